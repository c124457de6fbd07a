// Package mux serves HTTP/1 and gRPC on one listener.
package mux

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soheilhy/cmux"

	"internship-matcher/internal/shared/server/grpcserver"
	"internship-matcher/internal/shared/telemetry"
)

type Mux struct {
	HTTP *http.Server
	GRPC *grpcserver.Server

	listener net.Listener
	cm       cmux.CMux
	closing  atomic.Bool
	wg       sync.WaitGroup
}

func New(handler http.Handler, grpcSrv *grpcserver.Server) *Mux {
	return &Mux{
		HTTP: &http.Server{
			Handler:           handler,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		GRPC: grpcSrv,
	}
}

// Listen binds addr. Call it before Serve.
func (m *Mux) Listen(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	m.listener = lis
	m.cm = cmux.New(lis)
	return nil
}

// Addr is the bound address, useful after listening on port 0.
func (m *Mux) Addr() string {
	if m.listener == nil {
		return ""
	}
	return m.listener.Addr().String()
}

// Serve blocks until the listener is closed.
func (m *Mux) Serve() error {
	if m.cm == nil {
		return errors.New("mux: Listen must be called before Serve")
	}
	grpcL := m.cm.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	httpL := m.cm.Match(cmux.HTTP1Fast(), cmux.Any())

	if m.GRPC != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if err := m.GRPC.Serve(grpcL); err != nil && !m.closing.Load() {
				telemetry.Error("grpc.serve_failed", map[string]any{"error": err.Error()})
			}
		}()
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.HTTP.Serve(httpL); err != nil && !errors.Is(err, http.ErrServerClosed) && !m.closing.Load() {
			telemetry.Error("http.serve_failed", map[string]any{"error": err.Error()})
		}
	}()

	telemetry.Info("server.start", map[string]any{"addr": m.Addr()})
	err := m.cm.Serve()
	if m.closing.Load() {
		return nil
	}
	return err
}

// Shutdown drains HTTP, stops gRPC and closes the shared listener.
func (m *Mux) Shutdown(ctx context.Context) error {
	m.closing.Store(true)
	httpErr := m.HTTP.Shutdown(ctx)

	if m.GRPC != nil {
		stopped := make(chan struct{})
		go func() {
			m.GRPC.Stop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			m.GRPC.GRPC.Stop()
		}
	}

	if m.listener != nil {
		_ = m.listener.Close()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		telemetry.Warn("server.shutdown_timeout", nil)
		return ctx.Err()
	}
	return httpErr
}
