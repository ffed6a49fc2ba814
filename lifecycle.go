package chiwarp

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/iaconlabs/chiwarp/server"
)

// ApplicationOptions configures the server built by InitHTTPServer.
type ApplicationOptions struct {
	// HTTPSOptions switches to encrypted transport when non-nil.
	HTTPSOptions *tls.Config
	// Zero timeouts select the server package defaults.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// InitHTTPServer builds the server handle bound to the adapter handler. A
// plain server is also recorded on the router instance.
func (a *Adapter) InitHTTPServer(opts ApplicationOptions) {
	srv := server.New(server.Config{
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  opts.IdleTimeout,
		TLS:          opts.HTTPSOptions,
	}, a)

	a.mu.Lock()
	a.httpServer = srv
	a.mu.Unlock()

	if opts.HTTPSOptions != nil {
		a.logger.Debug("https server initialized")
		return
	}
	a.instance.SetServer(srv.HTTPServer())
	a.logger.Debug("http server initialized")
}

// GetHTTPServer returns the underlying server, or nil before InitHTTPServer.
func (a *Adapter) GetHTTPServer() *http.Server {
	srv := a.server()
	if srv == nil {
		return nil
	}
	return srv.HTTPServer()
}

// Listen binds addr and serves until Close. It blocks; a clean close returns nil.
func (a *Adapter) Listen(ctx context.Context, addr string) error {
	srv := a.server()
	if srv == nil {
		return ErrServerNotInitialized
	}
	a.logger.Info("listening", zap.String("addr", addr), zap.Bool("tls", srv.TLS()))
	return srv.Listen(ctx, addr)
}

// Addr returns the bound address once Listen is serving, or "" if it never
// gets there within the server's readiness timeout.
func (a *Adapter) Addr() string {
	srv := a.server()
	if srv == nil {
		return ""
	}
	return srv.Addr()
}

// Close shuts the server down and returns once the listener is released and
// in-flight requests are done. Without a server it returns nil immediately.
// ctx is the only bound on how long this waits.
func (a *Adapter) Close(ctx context.Context) error {
	srv := a.server()
	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	a.logger.Info("server closed", zap.Error(err))
	return err
}

func (a *Adapter) server() *server.Server {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.httpServer
}
