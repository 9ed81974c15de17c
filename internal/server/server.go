// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matthewbaird/retention/internal/handler"
	"github.com/matthewbaird/retention/internal/logger"
)

const shutdownTimeout = 10 * time.Second

// Config holds server configuration.
type Config struct {
	Port   string
	Deps   handler.Deps
	Logger *logger.Logger
}

// NewRouter builds the router with middleware and every route registered.
func NewRouter(cfg Config) http.Handler {
	handler.SetLogger(cfg.Logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(handler.Recovery)
	r.Use(handler.Logging)
	handler.RegisterRoutes(r, cfg.Deps)
	return r
}

// Run starts the HTTP server and blocks until ctx is done, then shuts down
// gracefully.
func Run(ctx context.Context, cfg Config) error {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           NewRouter(cfg),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
