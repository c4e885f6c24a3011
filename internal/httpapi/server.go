// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

// Package httpapi serves the authentication API over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"

	"github.com/flatrent/flatrent/internal/auth"
	"github.com/flatrent/flatrent/internal/observability"
)

// BasePath prefixes every auth route.
const BasePath = "/api/auth"

// PublicPaths are never inspected by the Authenticate middleware.
var PublicPaths = []string{
	BasePath + "/login",
	BasePath + "/register",
	BasePath + "/forgot-password",
	BasePath + "/reset-password",
	BasePath + "/refresh-token",
}

// Config configures the API server.
type Config struct {
	Addr             string
	AllowOrigins     []string
	ExposeResetToken bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records request and auth metrics. Without it metrics are
// registered on a private registry that is never exported.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// Server is the HTTP API server.
type Server struct {
	cfg        Config
	echo       *echo.Echo
	logger     *slog.Logger
	metrics    *observability.Metrics
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// New builds the API server and its routes.
func New(svc AuthService, cfg Config, opts ...Option) (*Server, error) {
	if svc == nil {
		return nil, oops.Code("HTTPAPI_INVALID_CONFIG").Errorf("auth service is required")
	}

	s := &Server{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	cors, err := corsMiddleware(cfg.AllowOrigins)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()
	e.HTTPErrorHandler = errorHandler(s.logger)

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			s.logger.ErrorContext(c.Request().Context(), "panic recovered",
				"error", err,
				"route", c.Path(),
				"stack", string(stack))
			return err
		},
	}))
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(metricsMiddleware(s.metrics))
	e.Use(requestLogger(s.logger))
	e.Use(cors)
	e.Use(Authenticate(svc, PublicPaths, s.logger))

	h := &authHandler{svc: svc, metrics: s.metrics, exposeResetToken: cfg.ExposeResetToken}
	g := e.Group(BasePath)
	g.POST("/register", h.register)
	g.POST("/login", h.login)
	g.POST("/refresh-token", h.refresh)
	g.POST("/logout", h.logout)
	g.POST("/forgot-password", h.forgotPassword)
	g.POST("/reset-password", h.resetPassword)
	g.GET("/me", h.me, RequireAuth(), RequireRole(auth.RoleTenant, auth.RoleLandlord, auth.RoleAdmin))

	s.echo = e
	return s, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start begins serving the API.
// The returned channel receives any error from the HTTP server after it starts
// and is closed when the server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Code("HTTPAPI_ALREADY_RUNNING").Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("HTTPAPI_LISTEN_FAILED").With("addr", s.cfg.Addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the server, waiting for in-flight requests
// until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.running.Store(true)
		return oops.Code("HTTPAPI_SHUTDOWN_FAILED").With("operation", "shutdown api server").Wrap(err)
	}
	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the address the server is listening on, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
