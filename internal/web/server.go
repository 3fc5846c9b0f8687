// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package web exposes the auth flows and task CRUD over HTTP/JSON.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/holomush/tasklist/internal/auth"
	"github.com/holomush/tasklist/internal/observability"
	"github.com/holomush/tasklist/internal/task"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 10 << 10

// Config holds boundary settings.
type Config struct {
	Addr string
	// CookieName names the session cookie.
	CookieName string
	// SecureCookie marks the session cookie Secure.
	SecureCookie bool
	// Development adds verbatim errors to responses.
	Development bool
}

// Purger removes expired reset tokens on demand.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Server routes API requests to the auth and task services.
type Server struct {
	cfg        Config
	auth       *auth.Service
	tasks      *task.Service
	purger     Purger
	metrics    *observability.Metrics
	logger     *slog.Logger
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records request counts and latency.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithPurger enables the admin purge route.
func WithPurger(p Purger) Option {
	return func(s *Server) { s.purger = p }
}

// NewServer creates a Server.
func NewServer(cfg Config, authSvc *auth.Service, taskSvc *task.Service, opts ...Option) (*Server, error) {
	if authSvc == nil {
		return nil, oops.Errorf("auth service is required")
	}
	if taskSvc == nil {
		return nil, oops.Errorf("task service is required")
	}
	if cfg.CookieName == "" {
		return nil, oops.Errorf("cookie name is required")
	}

	s := &Server{
		cfg:    cfg,
		auth:   authSvc,
		tasks:  taskSvc,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handler returns the complete API handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/signup", s.handleSignup)
	mux.HandleFunc("POST /api/v1/login", s.handleLogin)
	mux.HandleFunc("GET /api/v1/logout", s.handleLogout)
	mux.HandleFunc("POST /api/v1/logout", s.handleLogout)
	mux.HandleFunc("POST /api/v1/forgot-password", s.handleForgotPassword)
	mux.HandleFunc("GET /api/v1/reset-password", s.handleResetPassword)
	mux.HandleFunc("POST /api/v1/reset-password", s.handleResetPassword)
	mux.HandleFunc("POST /api/v1/update-password", s.handleUpdatePassword)

	mux.Handle("GET /api/v1/to-do", s.requireAuth(http.HandlerFunc(s.handleListTasks)))
	mux.Handle("POST /api/v1/to-do", s.requireAuth(http.HandlerFunc(s.handleCreateTask)))
	mux.Handle("GET /api/v1/to-do/{id}", s.requireAuth(http.HandlerFunc(s.handleGetTask)))
	mux.Handle("PATCH /api/v1/to-do/{id}", s.requireAuth(http.HandlerFunc(s.handleUpdateTask)))
	mux.Handle("DELETE /api/v1/to-do/{id}", s.requireAuth(http.HandlerFunc(s.handleDeleteTask)))

	if s.purger != nil {
		mux.Handle("POST /api/v1/admin/reset-tokens/purge",
			s.requireAuth(s.requireRole(auth.RoleAdmin, http.HandlerFunc(s.handlePurge))))
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, oops.Code(CodeRouteNotFound).Errorf("can not find %s", r.URL.Path))
	})

	return otelhttp.NewHandler(s.instrument(mux), "tasklist")
}

// Start begins serving on the configured address. The returned channel
// receives a serve error, and is closed when the server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.cfg.Addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
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

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.running.Store(true)
		return oops.With("operation", "shutdown_api_server").Wrap(err)
	}
	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the listening address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.DebugContext(r.Context(), "write response failed", "error", err)
	}
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst unchanged.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return invalidRequest("request body exceeds %d bytes", maxErr.Limit)
		}
		return invalidRequest("request body is not valid JSON")
	}
	return nil
}
