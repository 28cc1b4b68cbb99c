package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/freekieb7/minihttp/config"
	"github.com/freekieb7/minihttp/filesystem"
	"github.com/freekieb7/minihttp/http"
	"github.com/freekieb7/minihttp/pages"
	"github.com/freekieb7/minihttp/telemetry"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const name = "github.com/freekieb7/minihttp"

func main() {
	if err := run(context.Background()); err != nil {
		log.Fatalln(err)
	}
}

func run(ctx context.Context) (err error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if cfg.Telemetry {
		shutdown, setupErr := telemetry.Setup(ctx, cfg.ServiceName)
		if setupErr != nil {
			return setupErr
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err = errors.Join(err, shutdown(shutdownCtx))
		}()

		logger = otelslog.NewLogger(name)
	}

	server := http.NewServer(cfg.ServiceName,
		http.WithLogger(logger),
		http.WithMaxConns(cfg.MaxConns),
		http.WithReadTimeout(cfg.ReadTimeout),
	)
	server.Router.Middleware = append(server.Router.Middleware, http.LoggingMiddleware(logger))

	pages.New(filesystem.NewLocalFileSystem(cfg.PagesDir), logger).Register(&server.Router)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe(ctx, cfg.Addr)
	}()

	select {
	case err := <-serverErrCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
