// Package httpapi serves the SQL engine as a JSON API over HTTP.
//
// Request bodies carry the buffer text and a byte offset, mirroring the
// engine's own operations. Schema changes are streamed to clients as
// server-sent events on /api/events.
package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leapstack-labs/sqlsense/internal/engine"
	"github.com/leapstack-labs/sqlsense/internal/schema"
	"golang.org/x/sync/errgroup"
)

// DefaultAddr is used when Config.Addr is empty.
const DefaultAddr = "127.0.0.1:7420"

// Server is the HTTP front end of an engine.
type Server struct {
	engine  *engine.Engine
	addr    string
	version string
	logger  *slog.Logger
	events  *events
}

// Config holds configuration for the HTTP server.
type Config struct {
	Engine  *engine.Engine
	Addr    string
	Version string
	Logger  *slog.Logger
}

// NewServer creates a server and subscribes it to the engine's schema
// changes.
func NewServer(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		engine:  cfg.Engine,
		addr:    cfg.Addr,
		version: cfg.Version,
		logger:  cfg.Logger,
		events:  newEvents(),
	}
	cfg.Engine.OnSchemaChange(func(*schema.Cache) {
		s.events.broadcast(s.schemaEvent())
	})
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Get("/healthz", s.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.status)
		r.Get("/dialects", s.dialects)
		r.Get("/schema", s.schema)
		r.Post("/schema/refresh", s.refresh)
		r.Get("/events", s.stream)

		r.Post("/complete", s.complete)
		r.Post("/hover", s.hover)
		r.Post("/definition", s.definition)
		r.Post("/references", s.references)
		r.Post("/rename", s.rename)
		r.Post("/validate", s.validate)
		r.Post("/signature", s.signature)
	})
	return r
}

// Serve listens on the configured address and blocks until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting HTTP server", "addr", "http://"+ln.Addr().String())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down HTTP server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) schemaEvent() SchemaEvent {
	return SchemaEvent{
		Dialect: s.engine.Dialect().Name,
		Loading: s.engine.Loading(),
		Stats:   s.engine.Schema().Stats(),
	}
}
