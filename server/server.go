// Package server provides a production-ready HTTP server wrapper with support
// for TLS, graceful shutdown and configuration defaults.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"
)

const (
	defaultTimeout      = 5 * time.Second
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 15 * time.Second
	defaultIdleTimeout  = 60 * time.Second
)

// Config defines the timeouts, address and optional TLS settings for the HTTP server.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// TLS switches the server to encrypted transport when non-nil.
	TLS *tls.Config
}

// Server wraps the standard [http.Server] bound to a single handler.
type Server struct {
	cfg        Config
	httpServer *http.Server
	ln         net.Listener
	addr       string
	mu         sync.RWMutex
	ready      chan struct{}
	readyOnce  sync.Once
}

// New initializes a new Server with the given config and handler.
func New(cfg Config, handler http.Handler) *Server {
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}

	s := &Server{
		cfg:   cfg,
		ready: make(chan struct{}),
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		TLSConfig:    cfg.TLS,
	}

	return s
}

// HTTPServer exposes the underlying [http.Server].
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// TLS reports whether the server was built for encrypted transport.
func (s *Server) TLS() bool {
	return s.cfg.TLS != nil
}

// Start listens on the configured address. See Listen.
func (s *Server) Start(ctx context.Context) error {
	return s.Listen(ctx, s.cfg.Addr)
}

// Listen binds addr and serves until the server is shut down. This call is
// blocking; a clean shutdown returns nil.
func (s *Server) Listen(ctx context.Context, addr string) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if s.cfg.TLS != nil {
		ln = tls.NewListener(ln, s.cfg.TLS)
	}

	s.mu.Lock()
	s.ln = ln
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	s.readyOnce.Do(func() { close(s.ready) }) // Addr() is now available

	err = s.httpServer.Serve(ln)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Shutdown gracefully shuts down the server without interrupting active
// connections. It returns once the listener is closed and in-flight requests
// are done, or when ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the network address the server is listening on.
// It waits for the server to be ready, making it safe for use in tests with dynamic ports.
func (s *Server) Addr() string {
	select {
	case <-s.ready:
	case <-time.After(defaultTimeout):
		return ""
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}
