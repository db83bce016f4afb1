package monitoring

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/arl/statsviz"
	"github.com/okieraised/smartfarm-agent/internal/config"
	"github.com/okieraised/smartfarm-agent/internal/constants"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"github.com/pkg/errors"
)

func getMonitoringPort() int {
	port := config.Int(config.AgentMonitoringPort, constants.AgentDefaultMonitoringPort)
	if port <= 0 {
		return constants.AgentDefaultMonitoringPort
	}
	return port
}

// NewMonitoringServer serves the statsviz runtime dashboard under
// /debug/statsviz until ctx is done.
func NewMonitoringServer(ctx context.Context) error {
	log.Default().Info("Starting monitoring server")
	mux := http.NewServeMux()
	if err := statsviz.Register(mux); err != nil {
		return errors.Wrap(err, "failed to register statsviz")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", getMonitoringPort()),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Default().Info("Shutting down monitoring server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return errors.Wrap(err, "failed to start monitoring server")
	}
}
