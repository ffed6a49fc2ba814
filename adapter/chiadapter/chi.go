// Package chiadapter provides the chiwarp router implementation for the go-chi framework.
package chiadapter

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"

	"github.com/iaconlabs/chiwarp/adapter"
	"github.com/iaconlabs/chiwarp/router"
)

var _ router.Router = (*ChiAdapter)(nil)

type wildcardKey struct{}

// ChiAdapter implements router.Router using the chi v5 router.
type ChiAdapter struct {
	mux *chi.Mux

	mu          sync.Mutex
	middlewares []router.Middleware
	chain       atomic.Pointer[http.Handler]

	server atomic.Pointer[http.Server]
}

// New initializes a new adapter with an empty chi router.
func New() *ChiAdapter {
	return NewWithMux(chi.NewRouter())
}

// NewWithMux wraps an existing chi router. Routes already registered on mux
// stay reachable.
func NewWithMux(mux *chi.Mux) *ChiAdapter {
	a := &ChiAdapter{mux: mux}
	a.compile()
	return a
}

// ServeHTTP runs the global middleware chain and dispatches to the chi multiplexer.
func (a *ChiAdapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	(*a.chain.Load()).ServeHTTP(w, r)
}

// Use appends global middlewares. They wrap the whole mux, so order relative
// to route registration does not matter and unmatched requests see them too.
func (a *ChiAdapter) Use(mws ...router.Middleware) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.middlewares = append(a.middlewares, mws...)
	a.compile()
}

// compile rebuilds the global onion. Callers hold a.mu, except New.
func (a *ChiAdapter) compile() {
	var h http.Handler = a.mux
	for i := len(a.middlewares) - 1; i >= 0; i-- {
		h = a.middlewares[i](h)
	}
	a.chain.Store(&h)
}

// Param extracts parameters from the request context provided by chi.
func (a *ChiAdapter) Param(r *http.Request, key string) string {
	if val := chi.URLParam(r, key); val != "" {
		return val
	}
	if name, _ := r.Context().Value(wildcardKey{}).(string); name != "" && (key == name || key == "*") {
		return chi.URLParam(r, "*")
	}
	return ""
}

func (a *ChiAdapter) GET(p string, h http.HandlerFunc, m ...router.Middleware) {
	a.register(http.MethodGet, p, h, m...)
}

func (a *ChiAdapter) POST(p string, h http.HandlerFunc, m ...router.Middleware) {
	a.register(http.MethodPost, p, h, m...)
}

func (a *ChiAdapter) PUT(p string, h http.HandlerFunc, m ...router.Middleware) {
	a.register(http.MethodPut, p, h, m...)
}

func (a *ChiAdapter) DELETE(p string, h http.HandlerFunc, m ...router.Middleware) {
	a.register(http.MethodDelete, p, h, m...)
}

func (a *ChiAdapter) PATCH(p string, h http.HandlerFunc, m ...router.Middleware) {
	a.register(http.MethodPatch, p, h, m...)
}

func (a *ChiAdapter) OPTIONS(p string, h http.HandlerFunc, m ...router.Middleware) {
	a.register(http.MethodOptions, p, h, m...)
}

func (a *ChiAdapter) HEAD(p string, h http.HandlerFunc, m ...router.Middleware) {
	a.register(http.MethodHead, p, h, m...)
}

// ANY registers h for every method chi knows about.
func (a *ChiAdapter) ANY(p string, h http.HandlerFunc, m ...router.Middleware) {
	a.register("", p, h, m...)
}

func (a *ChiAdapter) Handle(method, p string, h http.Handler, m ...router.Middleware) {
	a.register(method, p, h, m...)
}

func (a *ChiAdapter) HandleFunc(method, p string, h http.HandlerFunc, m ...router.Middleware) {
	a.register(method, p, h, m...)
}

// SetServer records the server handle so handlers can reach it through the router.
func (a *ChiAdapter) SetServer(srv *http.Server) { a.server.Store(srv) }

// Server returns the recorded server handle.
func (a *ChiAdapter) Server() *http.Server { return a.server.Load() }

func (a *ChiAdapter) Engine() any { return a.mux }

func (a *ChiAdapter) register(method, path string, h http.Handler, routeMws ...router.Middleware) {
	chiPath, wildcard := adapter.TranslatePath(path)

	// Route middlewares only; global ones already wrap the mux.
	finalHandler := h
	for i := len(routeMws) - 1; i >= 0; i-- {
		finalHandler = routeMws[i](finalHandler)
	}
	if wildcard != "" {
		finalHandler = withWildcard(wildcard, finalHandler)
	}

	if method == "" {
		a.mux.Handle(chiPath, finalHandler)
		return
	}
	if !isStandardMethod(method) {
		chi.RegisterMethod(method)
	}
	a.mux.Method(method, chiPath, finalHandler)
}

func withWildcard(name string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), wildcardKey{}, name)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func isStandardMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodConnect, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
