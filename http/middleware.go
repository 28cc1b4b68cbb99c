package http

import (
	"log/slog"
	"time"
)

type Middleware func(next Handler) Handler

// RecoverMiddleware turns a handler panic into the fallback body. Without it
// a panic still only fails its own connection, with a 500 status line.
func RecoverMiddleware(logger *slog.Logger, fallback string) Middleware {
	return func(next Handler) Handler {
		return func(req *Request) (body string) {
			defer func() {
				if recovered := recover(); recovered != nil {
					logger.Error("handler panic", "method", req.Method, "path", req.Path, "panic", recovered)
					body = fallback
				}
			}()

			return next(req)
		}
	}
}

func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(req *Request) string {
			start := time.Now()
			body := next(req)

			logger.Debug("handled",
				"method", req.Method,
				"path", req.Path,
				"bytes", len(body),
				"duration", time.Since(start),
			)

			return body
		}
	}
}
