package grpc

import (
	"context"
	"log/slog"
	"net"
	"sort"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/Sarojini27-bose/memeverse/explore/core"
)

// ServiceName is the health service name reporting the overall state.
const ServiceName = "memeverse.explore"

// Server exposes the standard gRPC health protocol. Every named dependency
// gets its own health entry and the overall entry is SERVING only when all
// of them answer.
type Server struct {
	log    *slog.Logger
	srv    *grpc.Server
	health *health.Server
	deps   map[string]core.Pinger
}

func NewServer(log *slog.Logger, deps map[string]core.Pinger) *Server {
	s := &Server{
		log:    log,
		srv:    grpc.NewServer(),
		health: health.NewServer(),
		deps:   deps,
	}
	healthpb.RegisterHealthServer(s.srv, s.health)
	reflection.Register(s.srv)
	return s
}

// Refresh pings every dependency and publishes the results.
func (s *Server) Refresh(ctx context.Context) {
	names := make([]string, 0, len(s.deps))
	for name := range s.deps {
		names = append(names, name)
	}
	sort.Strings(names)

	overall := healthpb.HealthCheckResponse_SERVING
	for _, name := range names {
		status := healthpb.HealthCheckResponse_SERVING
		if err := s.deps[name].Ping(ctx); err != nil {
			s.log.Warn("dependency unhealthy", "dependency", name, "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
			overall = status
		}
		s.health.SetServingStatus(name, status)
	}
	s.health.SetServingStatus(ServiceName, overall)
	s.health.SetServingStatus("", overall)
}

func (s *Server) Serve(lis net.Listener) error {
	return s.srv.Serve(lis)
}

// Stop marks everything NOT_SERVING and drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}
