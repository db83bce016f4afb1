package grpc_server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"time"

	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/okieraised/smartfarm-agent/internal/config"
	"github.com/okieraised/smartfarm-agent/internal/constants"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
)

func getGRPCPort() int {
	port := config.Int(config.AgentGRPCPort, constants.AgentDefaultGRPCPort)
	if port <= 0 {
		return constants.AgentDefaultGRPCPort
	}
	return port
}

func recoverPanic(p any) error {
	log.Default().Error("panic recovered", zap.Any("panic", p))
	return status.Error(codes.Internal, "internal server error")
}

func serverCredentials() (grpc.ServerOption, error) {
	certFile, keyFile := viper.GetString(config.AgentTLSCertFile), viper.GetString(config.AgentTLSKeyFile)
	if certFile == "" || keyFile == "" {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load server cert file")
	}
	tlsCfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	if caFile := viper.GetString(config.AgentTLSClientCAFile); caFile != "" {
		caBytes, err := os.ReadFile(caFile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read client CA file")
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caBytes) {
			return nil, errors.Errorf("no certificates found in client CA file %s", caFile)
		}
		tlsCfg.ClientCAs = pool
		tlsCfg.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return grpc.Creds(credentials.NewTLS(tlsCfg)), nil
}

// NewServer builds the gRPC server with the agent interceptors and the
// reporter's health service registered.
func NewServer(reporter *HealthReporter) (*grpc.Server, error) {
	serverOpts := []grpc.ServerOption{
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle:     5 * time.Minute,
			MaxConnectionAge:      2 * time.Hour,
			MaxConnectionAgeGrace: 30 * time.Second,
			Time:                  2 * time.Minute,
			Timeout:               20 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             1 * time.Minute,
			PermitWithoutStream: true,
		}),
		grpc.ChainUnaryInterceptor(
			grpc_recovery.UnaryServerInterceptor(grpc_recovery.WithRecoveryHandler(recoverPanic)),
		),
		grpc.ChainStreamInterceptor(
			grpc_recovery.StreamServerInterceptor(grpc_recovery.WithRecoveryHandler(recoverPanic)),
		),
	}
	creds, err := serverCredentials()
	if err != nil {
		return nil, err
	}
	if creds != nil {
		serverOpts = append(serverOpts, creds)
	}

	s := grpc.NewServer(serverOpts...)
	healthpb.RegisterHealthServer(s, reporter.Server())
	return s, nil
}

// NewGRPCServer serves the health service until ctx is done, then
// graceful-stops.
func NewGRPCServer(ctx context.Context, reporter *HealthReporter) error {
	log.Default().Info("Initializing gRPC server")
	grpcServer, err := NewServer(reporter)
	if err != nil {
		return err
	}

	lis, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", getGRPCPort()))
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}

	errCh := make(chan error, 1)
	go func() {
		log.Default().Info("Starting gRPC server", zap.String("addr", lis.Addr().String()))
		errCh <- grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		log.Default().Info("Shutting down gRPC server")
		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()

		t := time.NewTimer(3 * time.Second)
		defer t.Stop()
		select {
		case <-stopped:
		case <-t.C:
			log.Default().Info("Graceful stop timed out, forcing shutdown")
			grpcServer.Stop()
		}
		return nil
	case err = <-errCh:
		return errors.Wrap(err, "failed to start gRPC server")
	}
}
