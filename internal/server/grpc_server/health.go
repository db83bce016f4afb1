package grpc_server

import (
	"context"
	"sort"
	"time"

	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Check reports whether one farm component can currently serve.
type Check func() bool

// HealthReporter publishes check results through the standard gRPC health
// service. Each check is its own service name; the empty service name is
// SERVING only when every check passes.
type HealthReporter struct {
	hs       *health.Server
	checks   map[string]Check
	interval time.Duration
	logger   *log.Logger
	last     map[string]healthpb.HealthCheckResponse_ServingStatus
}

func NewHealthReporter(interval time.Duration, checks map[string]Check) *HealthReporter {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &HealthReporter{
		hs:       health.NewServer(),
		checks:   checks,
		interval: interval,
		logger:   log.Default().Named("grpc_health"),
		last:     map[string]healthpb.HealthCheckResponse_ServingStatus{},
	}
}

func (r *HealthReporter) Server() *health.Server { return r.hs }

// Refresh runs every check once and updates the served statuses.
func (r *HealthReporter) Refresh() {
	names := make([]string, 0, len(r.checks))
	for name := range r.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	overall := healthpb.HealthCheckResponse_SERVING
	for _, name := range names {
		st := healthpb.HealthCheckResponse_SERVING
		if !r.checks[name]() {
			st = healthpb.HealthCheckResponse_NOT_SERVING
			overall = healthpb.HealthCheckResponse_NOT_SERVING
		}
		r.set(name, st)
	}
	r.set("", overall)
}

func (r *HealthReporter) set(name string, st healthpb.HealthCheckResponse_ServingStatus) {
	if prev, ok := r.last[name]; ok && prev != st {
		r.logger.Info("health status changed", zap.String("service", name), zap.String("status", st.String()))
	}
	r.last[name] = st
	r.hs.SetServingStatus(name, st)
}

// Run refreshes on every interval until ctx is done, then marks every
// service NOT_SERVING.
func (r *HealthReporter) Run(ctx context.Context) error {
	r.Refresh()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.hs.Shutdown()
			return nil
		case <-ticker.C:
			r.Refresh()
		}
	}
}
