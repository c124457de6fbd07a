// Package grpcserver hosts the gRPC side of the shared listener: the standard
// health service plus reflection.
package grpcserver

import (
	"context"
	"fmt"
	"net"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"internship-matcher/internal/shared/telemetry"
)

// ServiceName is the health service name clients can query in addition to "".
const ServiceName = "internship.matcher.v1.Matcher"

// Readiness reports whether the engine can serve matches.
type Readiness interface {
	Ready() bool
}

type Server struct {
	GRPC   *grpc.Server
	Health *health.Server
	ready  Readiness
}

func New(ready Readiness) *Server {
	gs := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 5 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.ChainUnaryInterceptor(recoveryInterceptor(), loggingInterceptor()),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	s := &Server{GRPC: gs, Health: hs, ready: ready}
	s.Sync()
	return s
}

// Sync publishes the current readiness to the health service.
func (s *Server) Sync() {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if s.ready == nil || s.ready.Ready() {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.Health.SetServingStatus("", st)
	s.Health.SetServingStatus(ServiceName, st)
}

// Watch re-syncs readiness every interval until ctx is done.
func (s *Server) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sync()
		}
	}
}

func (s *Server) Serve(lis net.Listener) error {
	telemetry.Info("grpc.start", map[string]any{"addr": lis.Addr().String()})
	return s.GRPC.Serve(lis)
}

// Stop marks every service NOT_SERVING before draining connections.
func (s *Server) Stop() {
	s.Health.Shutdown()
	s.GRPC.GracefulStop()
}

func recoveryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				telemetry.Error("grpc.panic", map[string]any{
					"method": info.FullMethod,
					"panic":  fmt.Sprintf("%v", r),
					"stack":  string(debug.Stack()),
				})
				resp, err = nil, status.Error(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

func loggingInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := map[string]any{
			"method":      info.FullMethod,
			"code":        status.Code(err).String(),
			"duration_ms": time.Since(start).Milliseconds(),
		}
		if err != nil {
			fields["error"] = err.Error()
			telemetry.Warn("grpc.request", fields)
		} else {
			telemetry.Debug("grpc.request", fields)
		}
		return resp, err
	}
}
