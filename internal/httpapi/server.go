package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server manages the HTTP listener lifecycle.
type Server struct {
	srv      *http.Server
	listener net.Listener
	logger   *zap.Logger
}

// NewServer binds addr for serving h.
func NewServer(addr string, h *Handler, logger *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return &Server{
		srv: &http.Server{
			Handler:           h.Engine(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: ln,
		logger:   logger,
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Start serves requests. Blocks until stopped.
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", zap.String("addr", s.Addr()))
	if err := s.srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("HTTP server stopping")
	return s.srv.Shutdown(ctx)
}
