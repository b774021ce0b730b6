package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/reactor/internal/config"
	diag "github.com/vango-dev/reactor/internal/errors"
	"github.com/vango-dev/reactor/pkg/instrument"
	"github.com/vango-dev/reactor/pkg/middleware"
	"github.com/vango-dev/reactor/pkg/reactive"
	"github.com/vango-dev/reactor/pkg/script"
	"github.com/vango-dev/reactor/pkg/view"
)

// Server exposes one script's store over HTTP and WebSocket.
type Server struct {
	cfg *config.Config

	// base is the logger given by WithLogger; logger adds the component.
	base   *slog.Logger
	logger *slog.Logger

	registry       *prometheus.Registry
	tracerProvider trace.TracerProvider

	session *Session
	hub     *view.Hub
	page    *view.Document
	handler http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.base = logger
		}
	}
}

// WithRegistry sets the registry metrics are registered in and served
// from. Defaults to a fresh registry with the Go runtime collector.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// WithTracerProvider sets the provider spans come from. Defaults to the
// global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) {
		s.tracerProvider = tp
	}
}

// New loads the configured script and page and builds the store.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:  cfg,
		base: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.base.With("component", "server")
	if s.tracerProvider == nil {
		s.tracerProvider = otel.GetTracerProvider()
	}
	if cfg.Metrics.Enabled && s.registry == nil {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(collectors.NewGoCollector())
	}

	prog, err := s.loadProgram()
	if err != nil {
		return nil, err
	}

	format := view.Formatter{DecimalKeys: cfg.View.DecimalKeys}
	s.hub = view.NewHub(
		view.WithHubFormatter(format),
		view.WithSnapshot(func() map[string]any { return s.session.Snapshot() }),
		view.WithHubLogger(s.base.With("component", "hub")),
	)
	sinks := view.Fanout{s.hub}
	if cfg.View.Page != "" {
		if s.page, err = loadPage(cfg.View.Page, format); err != nil {
			return nil, err
		}
		sinks = append(sinks, s.page)
	}

	var (
		hooks   []reactive.Hooks
		tracing *instrument.Tracing
	)
	if cfg.Metrics.Enabled {
		hooks = append(hooks, instrument.NewMetrics(
			instrument.WithRegistry(s.registry),
			instrument.WithNamespace(cfg.Metrics.Namespace),
		))
		s.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: cfg.Metrics.Namespace,
			Subsystem: "ws",
			Name:      "clients",
			Help:      "Connected WebSocket clients",
		}, func() float64 { return float64(s.hub.ClientCount()) }))
	}
	if cfg.Tracing.Enabled {
		tracing = instrument.NewTracing(
			instrument.WithTracerProvider(s.tracerProvider),
			instrument.WithTracerName(cfg.Tracing.TracerName),
		)
		hooks = append(hooks, tracing)
	}

	s.session, err = NewSession(prog, sinks, tracing,
		reactive.WithHooks(reactive.ChainHooks(hooks...)),
		reactive.WithLogger(s.base.With("component", "reactive")),
	)
	if err != nil {
		return nil, err
	}
	s.handler = s.routes()
	return s, nil
}

// Session returns the session holding the store.
func (s *Server) Session() *Session {
	return s.session
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *view.Hub {
	return s.hub
}

func (s *Server) loadProgram() (*script.Program, error) {
	opts := []script.Option{script.WithLogger(s.base)}
	if s.cfg.Script == "" {
		return script.Load("empty.star", []byte{}, opts...)
	}
	return script.LoadFile(s.cfg.Script, opts...)
}

func loadPage(path string, format view.Formatter) (*view.Document, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from config
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer f.Close()
	doc, err := view.ParseDocument(f, view.WithFormatter(format))
	if err != nil {
		return nil, fmt.Errorf("parse page %s: %w", filepath.Base(path), err)
	}
	return doc, nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		chimw.RequestID,
		middleware.Logger(s.logger),
		chimw.Recoverer,
	)
	if s.cfg.Metrics.Enabled {
		r.Use(middleware.Prometheus(
			middleware.WithRegistry(s.registry),
			middleware.WithNamespace(s.cfg.Metrics.Namespace),
		))
	}
	if s.cfg.Tracing.Enabled {
		r.Use(middleware.OpenTelemetry(
			middleware.WithTracerProvider(s.tracerProvider),
			middleware.WithTracerName(s.cfg.Tracing.TracerName),
		))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.getState)
		r.Patch("/state", s.patchState)
		r.Get("/state/{key}", s.getKey)
		r.Put("/state/{key}", s.putKey)
		r.Post("/reset", s.reset)
		r.Get("/computed", s.computed)
		r.Get("/actions", s.listActions)
		r.Post("/actions/{name}", s.callAction)
		r.Post("/autobind", s.autoBind)
	})
	r.Get("/ws", s.hub.ServeHTTP)
	if s.cfg.Metrics.Enabled {
		r.Handle(s.cfg.Metrics.Path, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	if s.page != nil {
		r.Get("/", s.servePage)
	}
	return r
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
// With watch enabled it also reloads the script when it changes.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting server", "addr", "http://"+ln.Addr().String(), "script", s.cfg.Script)

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: s.cfg.Server.ReadHeaderTimeout,
	}

	if s.cfg.Watch && s.cfg.Script != "" {
		eg.Go(func() error {
			return s.watchScript(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down server")
		// Hijacked WebSocket connections are not tracked by Shutdown.
		s.hub.Close()
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// Reload loads the script again and swaps in a fresh store built from it.
// Connected clients receive the new state. On failure the old store stays.
func (s *Server) Reload() error {
	prog, err := s.loadProgram()
	if err != nil {
		s.logger.Error("reload failed", "error", diag.Classify(err).FormatCompact())
		return err
	}
	if err := s.session.Load(prog); err != nil {
		s.logger.Error("reload failed", "error", diag.Classify(err).FormatCompact())
		return err
	}
	s.hub.SendSnapshot(s.session.Snapshot())
	s.logger.Info("script reloaded", "script", s.cfg.Script)
	return nil
}
