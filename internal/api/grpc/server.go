package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/clintrovert/lazybird/internal/leader"
)

// ServicePrefix prefixes the per-project health service names
const ServicePrefix = "lazybird.project."

// Status is the orchestrator state reported over gRPC health
type Status interface {
	Projects() []leader.ProjectStatus
}

// Server reports orchestrator health through the standard gRPC health service.
// The overall service is SERVING while the orchestrator runs; each project is
// SERVING when it is enabled and its last poll succeeded.
type Server struct {
	health *health.Server
	status Status
	logger *zap.Logger
}

// NewServer creates a new gRPC health server
func NewServer(status Status, logger *zap.Logger) *Server {
	return &Server{
		health: health.NewServer(),
		status: status,
		logger: logger,
	}
}

// Register registers the server with a gRPC server
func (s *Server) Register(grpcServer *grpc.Server) {
	healthpb.RegisterHealthServer(grpcServer, s.health)
	s.Refresh()
}

// Refresh updates every service status from the orchestrator
func (s *Server) Refresh() {
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	for _, p := range s.status.Projects() {
		st := healthpb.HealthCheckResponse_SERVING
		if !p.Project.IsEnabled() || p.LastError != "" {
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
		s.health.SetServingStatus(ServicePrefix+p.Project.ID, st)
	}
}

// Run refreshes status every interval until ctx is done, then reports every
// service as not serving
func (s *Server) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping health reporter")
			s.health.Shutdown()
			return
		case <-ticker.C:
			s.Refresh()
		}
	}
}
