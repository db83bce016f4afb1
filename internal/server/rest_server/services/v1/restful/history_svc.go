package restful

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/okieraised/smartfarm-agent/internal/agent/tsdb_exporter"
	"github.com/okieraised/smartfarm-agent/internal/api_response"
	"github.com/okieraised/smartfarm-agent/internal/cerrors"
	"github.com/okieraised/smartfarm-agent/internal/constants"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"github.com/okieraised/smartfarm-agent/internal/recipe"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type IHistoryService interface {
	History(ctx *gin.Context, input *HistoryInput) (*api_response.BaseOutput, *cerrors.AppError)
	Series(ctx *gin.Context, input *HistoryInput) (*api_response.BaseOutput, *cerrors.AppError)
}

// HistoryService serves the CSV history written by the exporter.
type HistoryService struct {
	path   string
	logger *log.Logger
}

func NewHistoryService(options ...func(*HistoryService)) *HistoryService {
	svc := &HistoryService{path: constants.ExporterDefaultCSVPath}
	for _, opt := range options {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = log.Default()
	}
	return svc
}

func WithHistoryPath(path string) func(*HistoryService) {
	return func(svc *HistoryService) {
		if path != "" {
			svc.path = path
		}
	}
}

func WithHistoryLogger(l *log.Logger) func(*HistoryService) {
	return func(svc *HistoryService) {
		svc.logger = l
	}
}

type HistoryInput struct {
	TracerCtx context.Context
	Tracer    trace.Tracer
	Date      string
	NodeID    string
}

func (svc *HistoryService) History(ctx *gin.Context, input *HistoryInput) (*api_response.BaseOutput, *cerrors.AppError) {
	rows, appErr := svc.read(ctx, input, "read-history")
	if appErr != nil {
		return nil, appErr
	}
	return ok(rows, len(rows)), nil
}

// Series serves one day of history as chart data. The date is required.
func (svc *HistoryService) Series(ctx *gin.Context, input *HistoryInput) (*api_response.BaseOutput, *cerrors.AppError) {
	if input.Date == "" {
		return nil, cerrors.ErrGenericBadRequest.WithMessage("date is required")
	}
	rows, appErr := svc.read(ctx, input, "read-history-series")
	if appErr != nil {
		return nil, appErr
	}
	series := tsdb_exporter.Series(rows)
	return ok(series, len(series.Temp)+len(series.Humi)), nil
}

func (svc *HistoryService) read(ctx *gin.Context, input *HistoryInput, spanName string) ([]tsdb_exporter.Row, *cerrors.AppError) {
	_, span := input.Tracer.Start(input.TracerCtx, spanName)
	defer span.End()

	if input.Date != "" {
		if _, err := time.Parse(recipe.DateLayout, input.Date); err != nil {
			return nil, cerrors.ErrGenericBadRequest.WithMessage("date must be YYYY-MM-DD")
		}
	}

	rows, err := tsdb_exporter.ReadHistory(svc.path, input.Date)
	if errors.Is(err, cerrors.ErrMissingDocument) {
		return []tsdb_exporter.Row{}, nil
	}
	if err != nil {
		svc.logger.With(
			zap.String(constants.APIFieldRequestID, ctx.GetString(constants.APIFieldRequestID)),
		).Error("history read failed", zap.Error(err))
		return nil, appErrorOf(err)
	}
	if input.NodeID != "" {
		filtered := rows[:0]
		for _, r := range rows {
			if r.NodeID == input.NodeID {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}
	if rows == nil {
		rows = []tsdb_exporter.Row{}
	}
	return rows, nil
}
