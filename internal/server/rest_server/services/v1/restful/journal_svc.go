package restful

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/okieraised/smartfarm-agent/internal/api_response"
	"github.com/okieraised/smartfarm-agent/internal/cerrors"
	"github.com/okieraised/smartfarm-agent/internal/constants"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"github.com/okieraised/smartfarm-agent/internal/journal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type IJournalService interface {
	ListEntries(ctx *gin.Context, input *JournalInput) (*api_response.BaseOutput, *cerrors.AppError)
	AddEntry(ctx *gin.Context, input *AddJournalInput) (*api_response.BaseOutput, *cerrors.AppError)
}

type JournalService struct {
	store  *journal.Store
	logger *log.Logger
}

func NewJournalService(options ...func(*JournalService)) *JournalService {
	svc := &JournalService{}
	for _, opt := range options {
		opt(svc)
	}
	if svc.store == nil {
		svc.store = journal.NewStore(constants.FarmDefaultJournalPath)
	}
	if svc.logger == nil {
		svc.logger = log.Default()
	}
	return svc
}

func WithJournalPath(path string) func(*JournalService) {
	return func(svc *JournalService) {
		if path != "" {
			svc.store = journal.NewStore(path)
		}
	}
}

func WithJournalLogger(l *log.Logger) func(*JournalService) {
	return func(svc *JournalService) {
		svc.logger = l
	}
}

type JournalInput struct {
	TracerCtx context.Context
	Tracer    trace.Tracer
}

type AddJournalInput struct {
	JournalInput
	Entry journal.Entry
}

func (svc *JournalService) ListEntries(ctx *gin.Context, input *JournalInput) (*api_response.BaseOutput, *cerrors.AppError) {
	_, span := input.Tracer.Start(input.TracerCtx, "list-journal")
	defer span.End()

	entries, err := svc.store.List()
	if err != nil {
		svc.logger.With(
			zap.String(constants.APIFieldRequestID, ctx.GetString(constants.APIFieldRequestID)),
		).Error("journal read failed", zap.Error(err))
		return nil, appErrorOf(err)
	}
	return ok(entries, len(entries)), nil
}

func (svc *JournalService) AddEntry(ctx *gin.Context, input *AddJournalInput) (*api_response.BaseOutput, *cerrors.AppError) {
	_, span := input.Tracer.Start(input.TracerCtx, "add-journal")
	defer span.End()

	if len(input.Entry) == 0 {
		return nil, cerrors.ErrGenericBadRequest.WithMessage("journal entry must be a non-empty object")
	}
	if err := svc.store.Add(input.Entry); err != nil {
		svc.logger.With(
			zap.String(constants.APIFieldRequestID, ctx.GetString(constants.APIFieldRequestID)),
		).Error("journal write failed", zap.Error(err))
		return nil, appErrorOf(err)
	}
	return ok(input.Entry, 1), nil
}
