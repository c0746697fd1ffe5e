// Package server exposes the read-only debug API over HTTP.
package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/bronvakt/bronvakt/internal/app"
	"github.com/bronvakt/bronvakt/internal/config"
)

// Server is the HTTP debug server. It only reads system state.
type Server struct {
	cfg    *config.Config
	sys    *app.System
	server *http.Server
}

func New(cfg *config.Config, sys *app.System) *Server {
	s := &Server{cfg: cfg, sys: sys}
	s.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start begins listening. Blocks until the listener fails or is shut down.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	slog.Info("debug API listening", "addr", s.server.Addr)
	if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
