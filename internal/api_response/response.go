package api_response

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okieraised/smartfarm-agent/internal/cerrors"
	"github.com/okieraised/smartfarm-agent/internal/constants"
)

// Response is the envelope of every REST reply.
type Response[T any] struct {
	RequestID     string         `json:"request_id"`
	Code          string         `json:"code"`
	Message       string         `json:"message"`
	ServerTime    int64          `json:"server_time"`
	ServerTimeISO string         `json:"server_time_iso"`
	Count         int            `json:"count,omitempty"`
	Data          T              `json:"data"`
	Meta          map[string]any `json:"meta,omitempty"`
}

// BaseOutput is what services hand back to routers.
type BaseOutput struct {
	Code    string
	Message string
	Data    any
	Count   int
	Meta    any
}

func New[T any](ctx context.Context) *Response[T] {
	now := time.Now()
	return &Response[T]{
		RequestID:     requestIDFromContext(ctx),
		ServerTime:    now.Unix(),
		ServerTimeISO: now.Format(time.RFC3339),
	}
}

func (r *Response[T]) WithMetaKV(k string, v any) *Response[T] {
	if r.Meta == nil {
		r.Meta = make(map[string]any)
	}
	r.Meta[k] = v
	return r
}

func (r *Response[T]) WithMeta(m map[string]any) *Response[T] {
	for k, v := range m {
		r.WithMetaKV(k, v)
	}
	return r
}

// Populate fills the envelope. A map meta is merged into Meta, any other
// value is stored under "meta"; count is applied when it is an int.
func (r *Response[T]) Populate(code, message string, data T, meta any, count any) *Response[T] {
	r.Code = code
	r.Message = message
	r.Data = data
	switch m := meta.(type) {
	case nil:
	case map[string]any:
		r.WithMeta(m)
	default:
		r.WithMetaKV("meta", m)
	}
	if total, ok := count.(int); ok {
		r.Count = total
	}
	return r
}

// FromOutput wraps a successful service result.
func FromOutput(ctx context.Context, out *BaseOutput) *Response[any] {
	if out == nil {
		out = &BaseOutput{Code: cerrors.OK.Code, Message: cerrors.OK.Message}
	}
	return New[any](ctx).Populate(out.Code, out.Message, out.Data, out.Meta, out.Count)
}

// Fail wraps appErr and returns the HTTP status to send it with.
func Fail(ctx context.Context, appErr *cerrors.AppError, meta map[string]any) (int, *Response[any]) {
	resp := New[any](ctx).Populate(appErr.Code, appErr.Message, nil, nil, nil)
	if len(meta) > 0 {
		resp.WithMeta(meta)
	}
	return cerrors.HTTPStatusOf(appErr), resp
}

func requestIDFromContext(ctx context.Context) string {
	if ctx != nil {
		if v := ctx.Value(constants.APIFieldRequestID); v != nil {
			return fmt.Sprint(v)
		}
	}
	return uuid.New().String()
}
