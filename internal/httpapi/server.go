// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentUMA Contributors

// Package httpapi exposes the authentication engine over HTTP. It is thin
// glue: request decoding, bearer-header extraction, and the mapping from
// the engine's typed failures to status codes. No auth decision is made
// here.
package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/rentuma/authcore/internal/auth"
)

// Server serves the authentication HTTP API.
type Server struct {
	addr       string
	svc        *auth.Service
	logger     *slog.Logger
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer creates an API server for the given engine.
func NewServer(addr string, svc *auth.Service, logger *slog.Logger) (*Server, error) {
	if svc == nil {
		return nil, oops.Errorf("auth service is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:   addr,
		svc:    svc,
		logger: logger,
	}, nil
}

// Handler returns the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.HandleFunc("GET /api/user/profile", s.handleGetProfile)
	mux.HandleFunc("PUT /api/user/profile", s.handleUpdateProfile)
	return mux
}

// Start begins serving the API. It returns an error channel that receives
// any error from the HTTP server after startup; the channel is closed when
// the server stops gracefully.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
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
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_api_server").Wrap(err)
		}
	}

	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the address the server is listening on.
// Returns empty string if not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
