package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// acceptBackoff pauses the accept loop after a failed Accept.
const acceptBackoff = 10 * time.Millisecond

type Server struct {
	Name   string
	Router Router

	logger         *slog.Logger
	maxConns       int
	readTimeout    time.Duration
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	inst           *instruments
	limiter        *limiter

	routes atomic.Pointer[Routes]

	mu       sync.Mutex
	listener net.Listener
	closed   bool
	conns    sync.WaitGroup
}

func NewServer(name string, opts ...Option) *Server {
	s := &Server{
		Name:   name,
		Router: NewRouter(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With("server", name)
	s.inst = newInstruments(s.tracerProvider, s.meterProvider)
	s.limiter = newLimiter(s.maxConns)

	return s
}

// Register adds a route. Routes are frozen once the server starts serving.
func (s *Server) Register(method Method, path string, handler Handler, middleware ...Middleware) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.routes.Load() != nil {
		return ErrServerStarted
	}

	s.Router.Register(method, path, handler, middleware...)
	return nil
}

// ListenAndServe binds addr and serves until ctx is done or Shutdown is
// called. A bind failure is returned immediately.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener and serves each on its own
// goroutine. It returns ErrServerClosed once the listener is closed by
// Shutdown or by ctx.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		listener.Close()
		return ErrServerClosed
	}
	if s.listener != nil {
		s.mu.Unlock()
		listener.Close()
		return ErrServerStarted
	}
	s.listener = listener
	s.mu.Unlock()

	routes := s.table()

	stop := context.AfterFunc(ctx, func() {
		s.closeListener()
	})
	defer stop()

	s.logger.Info("listening", "addr", listener.Addr().String(), "routes", routes.Len(), "max_conns", s.maxConns)

	for {
		if err := s.limiter.acquire(ctx); err != nil {
			s.closeListener()
			return ErrServerClosed
		}

		conn, err := listener.Accept()
		if err != nil {
			s.limiter.release()

			if s.isClosed() || errors.Is(err, net.ErrClosed) {
				return ErrServerClosed
			}

			s.logger.Error("accept connection", "error", err)
			time.Sleep(acceptBackoff)
			continue
		}

		if !s.track() {
			s.limiter.release()
			conn.Close()
			return ErrServerClosed
		}

		go func() {
			defer s.conns.Done()
			defer s.limiter.release()

			s.ServeConn(ctx, conn)
		}()
	}
}

// Shutdown closes the listener and waits for in-flight connections or for
// ctx to be done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeListener()

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// table freezes the router on first use and returns the shared route table.
func (s *Server) table() *Routes {
	if routes := s.routes.Load(); routes != nil {
		return routes
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if routes := s.routes.Load(); routes != nil {
		return routes
	}
	routes := s.Router.Routes()
	s.routes.Store(routes)
	return routes
}

func (s *Server) closeListener() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Warn("close listener", "error", err)
		}
	}
}

// track registers a connection with Shutdown unless the server is closing.
func (s *Server) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.conns.Add(1)
	return true
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}
