package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendant/coauthors/pkg/coauthors"
	"github.com/tendant/coauthors/pkg/coauthors/api"
	"github.com/tendant/coauthors/pkg/coauthors/config"
)

// HTTPServer wires the coauthors service into an HTTP router
type HTTPServer struct {
	service  coauthors.Service
	config   *config.ServerConfig
	logger   *slog.Logger
	registry *prometheus.Registry
}

// NewHTTPServer creates a new HTTP server wrapper
func NewHTTPServer(service coauthors.Service, serverConfig *config.ServerConfig, logger *slog.Logger) *HTTPServer {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &HTTPServer{
		service:  service,
		config:   serverConfig,
		logger:   logger,
		registry: registry,
	}
}

// Mount registers middleware, /metrics and the autocomplete API on r
func (s *HTTPServer) Mount(r chi.Router) error {
	auth, err := s.authMiddleware()
	if err != nil {
		return err
	}

	metrics := api.NewMetrics(s.registry)
	handler := api.NewAutocompleteHandler(s.service, s.logger, metrics)

	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/"+s.config.APINamespace, func(r chi.Router) {
		r.Use(api.RequestIDMiddleware)
		r.Use(api.LoggingMiddleware(s.logger))
		r.Use(api.RecoveryMiddleware(s.logger))
		r.Use(metrics.Middleware)
		r.Use(chimiddleware.Timeout(30 * time.Second))
		r.Use(auth)
		r.Use(api.RequireCapability(s.config.RequiredCapability))
		r.Mount("/autocomplete", handler.Routes())
	})
	return nil
}

// Routes returns a standalone router, used by tests
func (s *HTTPServer) Routes() (http.Handler, error) {
	r := chi.NewRouter()
	if err := s.Mount(r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *HTTPServer) authMiddleware() (func(http.Handler) http.Handler, error) {
	switch s.config.AuthMode {
	case config.AuthModeJWT:
		return api.JWTIdentity(jwtauth.New("HS256", []byte(s.config.JWTSecret), nil)), nil
	case config.AuthModeAPIKey:
		mw, err := api.APIKeyIdentity(s.config.APIKeySHA256)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize API key middleware: %w", err)
		}
		return mw, nil
	case config.AuthModeNone:
		s.logger.Warn("Authentication disabled, every caller is authorized")
		return api.GrantAll("anonymous"), nil
	default:
		return nil, fmt.Errorf("unsupported auth mode: %s", s.config.AuthMode)
	}
}

// readinessHandler answers 200 while ping succeeds and 503 otherwise.
func readinessHandler(ping func(context.Context) error, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ping(r.Context()); err != nil {
			logger.WarnContext(r.Context(), "Readiness check failed", "err", err)
			render.Status(r, http.StatusServiceUnavailable)
			render.PlainText(w, r, http.StatusText(http.StatusServiceUnavailable))
			return
		}
		render.PlainText(w, r, http.StatusText(http.StatusOK))
	}
}
