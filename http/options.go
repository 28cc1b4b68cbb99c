package http

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type Option func(server *Server)

func WithLogger(logger *slog.Logger) Option {
	return func(server *Server) {
		server.logger = logger
	}
}

// WithMaxConns bounds the number of connections served at once. Zero or a
// negative value leaves concurrency unbounded.
func WithMaxConns(n int) Option {
	return func(server *Server) {
		server.maxConns = n
	}
}

// WithReadTimeout sets a deadline for reading the request. Zero disables it.
func WithReadTimeout(d time.Duration) Option {
	return func(server *Server) {
		server.readTimeout = d
	}
}

func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(server *Server) {
		server.tracerProvider = provider
	}
}

func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(server *Server) {
		server.meterProvider = provider
	}
}
