package handler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name reported alongside the overall ("") status.
const ServiceName = "mentorhub.auth"

// GRPCServer serves grpc.health.v1.Health with statuses driven by a Checker.
type GRPCServer struct {
	*grpc.Server
	health  *health.Server
	checker *Checker
	log     zerolog.Logger
}

// NewGRPCServer returns a gRPC server with the health service registered and otelgrpc instrumentation.
// Statuses start as NOT_SERVING until the first Refresh.
func NewGRPCServer(checker *Checker, log zerolog.Logger) *GRPCServer {
	srv := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	s := &GRPCServer{Server: srv, health: hs, checker: checker, log: log}
	s.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Refresh runs the readiness probes once and publishes the result.
func (s *GRPCServer) Refresh(ctx context.Context) bool {
	healthy, results := s.checker.Run(ctx)
	if healthy {
		s.set(healthpb.HealthCheckResponse_SERVING)
		return true
	}
	for _, r := range results {
		if !r.OK {
			s.log.Warn().Str("check", r.Name).Str("error", r.Error).Msg("readiness check failed")
		}
	}
	s.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return false
}

// Watch refreshes the published status every interval until ctx is done.
func (s *GRPCServer) Watch(ctx context.Context, interval time.Duration) {
	s.Refresh(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

// Shutdown marks every service NOT_SERVING and stops the server gracefully.
func (s *GRPCServer) Shutdown() {
	s.health.Shutdown()
	s.GracefulStop()
}

func (s *GRPCServer) set(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
