package rest_server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/okieraised/smartfarm-agent/internal/config"
	"github.com/okieraised/smartfarm-agent/internal/constants"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"github.com/okieraised/smartfarm-agent/internal/server/rest_server/middlewares"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

func getHTTPPort() int {
	port := config.Int(config.AgentHTTPPort, constants.AgentDefaultHTTPPort)
	if port <= 0 {
		return constants.AgentDefaultHTTPPort
	}
	return port
}

func getHTTPRequestTimeout() time.Duration {
	return config.Duration(config.AgentHTTPRequestTimeout, constants.DefaultHTTPRequestTimeout*time.Second)
}

// NewEngine builds the gin engine with the agent middleware chain and the
// routes added by registerRoutes.
func NewEngine(registerRoutes func(engine *gin.Engine)) *gin.Engine {
	if mode := viper.GetString(config.AgentHTTPMode); mode != "" {
		gin.SetMode(mode)
	}
	router := gin.New()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodGet, http.MethodDelete},
		AllowHeaders: []string{constants.HeaderAccessControlAllowHeaders, constants.HeaderOrigin, constants.HeaderAccept,
			constants.HeaderXRequestedWith, constants.HeaderContentType, constants.HeaderAuthorization, constants.HeaderXAPIKey},
		ExposeHeaders: []string{constants.HeaderContentLength},
	}))

	router.NoRoute(middlewares.NoRouteMW())
	httpLog := log.Default().Named("http")
	router.Use(
		middlewares.RecoveryMW(httpLog),
		middlewares.RequestIDMW(),
		middlewares.RequestLoggingMW(httpLog),
		middlewares.RequestTimeoutMW(getHTTPRequestTimeout()),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/ws", "/metrics"})),
		middlewares.ResponseHashMW(),
	)

	if registerRoutes != nil {
		registerRoutes(router)
	}
	return router
}

func NewHTTPServer(ctx context.Context, registerRoutes func(engine *gin.Engine)) error {
	log.Default().Info("Initializing HTTP server")

	serverAddr := fmt.Sprintf("0.0.0.0:%d", getHTTPPort())
	srv := &http.Server{
		Addr:              serverAddr,
		Handler:           NewEngine(registerRoutes),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		certFile, keyFile := viper.GetString(config.AgentTLSCertFile), viper.GetString(config.AgentTLSKeyFile)
		if certFile != "" && keyFile != "" {
			err = srv.ListenAndServeTLS(certFile, keyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	log.Default().Info(fmt.Sprintf("HTTP server listening on %s", serverAddr))

	select {
	case <-ctx.Done():
		log.Default().Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Default().Info("Graceful stop timed out, forcing shutdown")
			_ = srv.Close()
		}
		return nil
	case err := <-errCh:
		return errors.Wrap(err, "failed to start HTTP server")
	}
}
