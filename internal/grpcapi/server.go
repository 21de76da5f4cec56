// Package grpcapi exposes the standard grpc.health.v1 service so
// orchestrators can health-check the server without speaking HTTP.
package grpcapi

import (
	"context"
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// AttendanceService is the service name reported next to the overall ("")
// status.
const AttendanceService = "rollcall.Attendance"

const defaultCheckInterval = 10 * time.Second

type Dependencies struct {
	Logger zerolog.Logger
	Addr   string

	// Check decides SERVING vs NOT_SERVING, typically a DB ping.
	Check func(ctx context.Context) error

	// CheckInterval defaults to 10s.
	CheckInterval time.Duration
}

type Server struct {
	addr     string
	logger   zerolog.Logger
	check    func(ctx context.Context) error
	interval time.Duration

	grpcServer *grpc.Server
	health     *health.Server
}

func NewServer(d Dependencies) *Server {
	if d.CheckInterval <= 0 {
		d.CheckInterval = defaultCheckInterval
	}
	s := &Server{
		addr:       d.Addr,
		logger:     d.Logger,
		check:      d.Check,
		interval:   d.CheckInterval,
		grpcServer: grpc.NewServer(),
		health:     health.NewServer(),
	}
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Refresh runs the check once and publishes the result.
func (s *Server) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if s.check != nil {
		ctx, cancel := context.WithTimeout(ctx, s.interval)
		defer cancel()
		if err := s.check(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("health check failed")
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.setStatus(status)
	return status
}

func (s *Server) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(AttendanceService, status)
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve refreshes the status on the configured interval while serving lis.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.Refresh(ctx)
	go s.refreshLoop(ctx)

	s.logger.Info().Str("addr", lis.Addr().String()).Msg("grpc health listening")
	return s.grpcServer.Serve(lis)
}

func (s *Server) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
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

// Shutdown marks every service NOT_SERVING and drains in-flight calls.
func (s *Server) Shutdown() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
