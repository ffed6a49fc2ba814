// Package chiwarp lets an application framework delegate HTTP serving to the
// go-chi router. Adapter implements HTTPAdapter, the fixed contract the
// framework drives during bootstrap and request handling.
package chiwarp

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/iaconlabs/chiwarp/adapter"
	"github.com/iaconlabs/chiwarp/adapter/chiadapter"
	"github.com/iaconlabs/chiwarp/bodyparser"
	"github.com/iaconlabs/chiwarp/router"
	"github.com/iaconlabs/chiwarp/send"
	"github.com/iaconlabs/chiwarp/server"
	"github.com/iaconlabs/chiwarp/static"
)

// Type identifies this adapter's engine.
const Type = "chi"

var (
	// ErrNotImplemented is returned by operations this adapter does not support.
	ErrNotImplemented = errors.New("chiwarp: method not implemented")
	// ErrServerNotInitialized is returned by Listen before InitHTTPServer.
	ErrServerNotInitialized = errors.New("chiwarp: http server not initialized")
)

// Ensure Adapter implements the HTTPAdapter interface.
var _ HTTPAdapter = (*Adapter)(nil)

// Adapter bridges the framework contract onto a single router instance.
type Adapter struct {
	instance router.Router
	logger   *zap.Logger

	mu         sync.Mutex
	httpServer *server.Server
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithRouter injects a pre-built router instance instead of a fresh chi router.
func WithRouter(rt router.Router) Option {
	return func(a *Adapter) {
		if rt != nil {
			a.instance = rt
		}
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an Adapter. Without WithRouter a default chi router is created.
func New(opts ...Option) *Adapter {
	a := &Adapter{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	if a.instance == nil {
		a.instance = chiadapter.New()
	}
	return a
}

// ServeHTTP is the request handler the server is bound to. It gives every
// request a writer that supports a pending status before dispatching to the
// router instance.
func (a *Adapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rw := wrapResponse(w)
	a.instance.ServeHTTP(rw, r)
	rw.finish()
}

// GetInstance returns the router instance.
func (a *Adapter) GetInstance() router.Router {
	return a.instance
}

// GetType returns the engine identifier.
func (a *Adapter) GetType() string {
	return Type
}

// GetRequestHostname prefers the forwarded host over the Host header.
func (a *Adapter) GetRequestHostname(r *http.Request) string {
	if host := r.Header.Get("X-Forwarded-Host"); host != "" {
		return host
	}
	return r.Host
}

func (a *Adapter) GetRequestMethod(r *http.Request) string {
	return r.Method
}

// GetRequestURL returns the request target as sent by the client.
func (a *Adapter) GetRequestURL(r *http.Request) string {
	if r.RequestURI != "" {
		return r.RequestURI
	}
	return r.URL.RequestURI()
}

// Status sets the response status. On writers produced by ServeHTTP the
// status stays pending until the first write, so headers can still change.
func (a *Adapter) Status(w http.ResponseWriter, code int) {
	if sw, ok := w.(statusSetter); ok {
		sw.SetStatus(code)
		return
	}
	w.WriteHeader(code)
}

func (a *Adapter) SetHeader(w http.ResponseWriter, name, value string) {
	w.Header().Set(name, value)
}

func (a *Adapter) AppendHeader(w http.ResponseWriter, name, value string) {
	w.Header().Add(name, value)
}

func (a *Adapter) GetHeader(w http.ResponseWriter, name string) string {
	return w.Header().Get(name)
}

// IsHeadersSent reports whether the status line has been written.
func (a *Adapter) IsHeadersSent(w http.ResponseWriter) bool {
	if sw, ok := w.(interface{ Written() bool }); ok {
		return sw.Written()
	}
	return false
}

// Redirect sets the status and Location header and ends the response with
// an empty body.
func (a *Adapter) Redirect(w http.ResponseWriter, code int, url string) {
	w.Header().Set("Location", url)
	w.WriteHeader(code)
}

// Reply writes body with statusCode, 200 when zero. See send.Send for the
// supported body kinds.
func (a *Adapter) Reply(w http.ResponseWriter, body any, statusCode int) error {
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	return send.Send(w, statusCode, body, nil)
}

// End finishes the response with an optional message, keeping any pending status.
func (a *Adapter) End(w http.ResponseWriter, message string) error {
	if message == "" {
		if sw, ok := w.(interface{ commit() }); ok {
			sw.commit()
		}
		return nil
	}
	_, err := w.Write([]byte(message))
	return err
}

// SetViewEngine is not supported: this adapter does no server-side rendering.
func (a *Adapter) SetViewEngine(string) error {
	return ErrNotImplemented
}

// Render is not supported: this adapter does no server-side rendering.
func (a *Adapter) Render(http.ResponseWriter, string, any) error {
	return ErrNotImplemented
}

// UseStaticAssets serves files under root, mounted at opts.Prefix or globally.
func (a *Adapter) UseStaticAssets(root string, opts static.Options) error {
	opts.Prefix = normalizePrefix(opts.Prefix)
	serve, err := static.New(root, opts)
	if err != nil {
		return err
	}
	a.use(opts.Prefix, serve)
	return nil
}

// RegisterParserMiddleware installs the JSON and extended URL-encoded parsers,
// globally or under prefix. The JSON parser is strict: only objects and
// arrays are accepted at the top level.
func (a *Adapter) RegisterParserMiddleware(prefix string) {
	a.use(prefix, bodyparser.JSON(bodyparser.Options{Strict: true}))
	a.use(prefix, bodyparser.URLEncoded(bodyparser.Options{Extended: true}))
}

// EnableCors installs a CORS middleware built from opts, globally or under prefix.
func (a *Adapter) EnableCors(opts CorsOptions, prefix string) error {
	mw, err := newCors(opts, a.logger)
	if err != nil {
		return fmt.Errorf("chiwarp: enable cors: %w", err)
	}
	a.use(prefix, mw)
	return nil
}

// SetErrorHandler registers handler as middleware, globally or under prefix.
func (a *Adapter) SetErrorHandler(handler router.Middleware, prefix string) {
	a.use(prefix, handler)
}

// SetNotFoundHandler registers handler as middleware, globally or under
// prefix. It is registered exactly like SetErrorHandler.
func (a *Adapter) SetNotFoundHandler(handler router.Middleware, prefix string) {
	a.use(prefix, handler)
}

// CreateMiddlewareFactory returns a function registering handlers for the
// given verb on the router instance.
func (a *Adapter) CreateMiddlewareFactory(method router.RequestMethod) router.RegisterFunc {
	return router.MethodFactory(a.instance, method)
}

// Use registers global middlewares on the router instance.
func (a *Adapter) Use(mws ...router.Middleware) {
	a.instance.Use(mws...)
}

// use mounts mw globally when prefix is empty, otherwise only for paths
// under prefix.
func (a *Adapter) use(prefix string, mw router.Middleware) {
	prefix = normalizePrefix(prefix)
	if prefix == "" {
		a.instance.Use(mw)
		return
	}
	a.instance.Use(adapter.PathScoped(prefix, mw))
}

// normalizePrefix adds the leading slash request paths always carry, so
// "api" and "/api" mount the same way. "" and "/" both mean global.
func normalizePrefix(prefix string) string {
	if prefix == "" || prefix == "/" {
		return ""
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return prefix
}
