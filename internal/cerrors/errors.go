package cerrors

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e == nil {
		return "OK"
	}
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is matches any AppError carrying the same code, so copies made by
// WithCause/WithMessage still satisfy errors.Is against the sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a shallow copy of e with Cause.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	c := *e
	c.Cause = err
	return &c
}

// WithMessage returns a shallow copy with an overridden message.
func (e *AppError) WithMessage(msg string, a ...any) *AppError {
	if e == nil {
		return nil
	}
	c := *e
	if len(a) > 0 {
		c.Message = fmt.Sprintf(msg, a...)
	} else {
		c.Message = msg
	}
	return &c
}

// CodeOf returns the code if err is *AppError; "UNKNOWN" otherwise; "OK" for nil.
func CodeOf(err error) string {
	if err == nil {
		return "OK"
	}
	var e *AppError
	if errors.As(err, &e) {
		return e.Code
	}
	return "UNKNOWN"
}

// MessageOf returns the message if err is *AppError; err.Error() otherwise; "OK" for nil.
func MessageOf(err error) string {
	switch e := err.(type) {
	case nil:
		return "OK"
	case *AppError:
		if e.Message != "" {
			return e.Message
		}
		return e.Code
	default:
		return e.Error()
	}
}

// HTTPStatusOf returns the HTTP status if err is *AppError; otherwise 500; 200 for nil.
func HTTPStatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var e *AppError
	if errors.As(err, &e) && e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsCode reports whether err is an *AppError with the given code.
func IsCode(err error, code string) bool {
	var e *AppError
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

func def(code, msg string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: msg, HTTPStatus: httpStatus}
}

var (
	OK = def("OK", "OK", http.StatusOK)
)

var (
	ErrGenericBadRequest      = def("400000", "bad request error", http.StatusBadRequest)
	ErrGenericUnknownAPIPath  = def("400004", "unknown api path", http.StatusNotFound)
	ErrGenericInternalServer  = def("500000", "internal server error", http.StatusInternalServerError)
	ErrGenericRequestTimedOut = def("500004", "request timeout error", http.StatusGatewayTimeout)
)

// Configuration documents (node config, recipe catalog, zone schedule).
var (
	ErrConfiguration     = def("600000", "configuration error", http.StatusInternalServerError)
	ErrMissingDocument   = def("600001", "configuration document not found", http.StatusInternalServerError)
	ErrMalformedDocument = def("600002", "malformed configuration document", http.StatusInternalServerError)
)

// Node provisioning.
var (
	ErrProvisioning      = def("610000", "provisioning error", http.StatusInternalServerError)
	ErrUnknownMedium     = def("610001", "unknown device medium", http.StatusBadRequest)
	ErrPinPoolExhausted  = def("610002", "pin pool exhausted", http.StatusConflict)
	ErrInvalidHysteresis = def("610003", "hysteresis must be non-negative", http.StatusBadRequest)
	ErrDuplicateDevice   = def("610004", "duplicate device id", http.StatusConflict)
	ErrNodeNotFound      = def("610404", "node not found", http.StatusNotFound)
	ErrNoNodesRegistered = def("610503", "no nodes registered", http.StatusServiceUnavailable)
)

// Automation and thresholds.
var (
	ErrAutomationTargetNotFound = def("620000", "automation target not found", http.StatusNotFound)
	ErrThresholdUpdate          = def("630000", "threshold update failure", http.StatusInternalServerError)
	ErrMalformedRecipeKey       = def("630001", "malformed recipe key", http.StatusBadRequest)
	ErrRecipeNotFound           = def("630002", "recipe not found in catalog", http.StatusNotFound)
)
