// Package router defines the contract every routing engine behind chiwarp
// must satisfy, plus the verb enumeration used by the middleware factory.
package router

import (
	"net/http"
)

// Middleware is the standard net/http middleware shape used across chiwarp.
type Middleware = func(http.Handler) http.Handler

// Router defines the contract that the underlying routing engine must implement.
// It keeps the adapter agnostic of the concrete mux.
type Router interface {
	// Router must satisfy the http.Handler interface; this is the unified
	// request handler the server is bound to.
	http.Handler

	// GET registers a new GET route with optional middlewares.
	GET(path string, h http.HandlerFunc, mws ...Middleware)
	// POST registers a new POST route with optional middlewares.
	POST(path string, h http.HandlerFunc, mws ...Middleware)
	// PUT registers a new PUT route with optional middlewares.
	PUT(path string, h http.HandlerFunc, mws ...Middleware)
	// DELETE registers a new DELETE route with optional middlewares.
	DELETE(path string, h http.HandlerFunc, mws ...Middleware)
	// PATCH registers a new PATCH route with optional middlewares.
	PATCH(path string, h http.HandlerFunc, mws ...Middleware)
	// OPTIONS registers a new OPTIONS route with optional middlewares.
	OPTIONS(path string, h http.HandlerFunc, mws ...Middleware)
	// HEAD registers a new HEAD route with optional middlewares.
	HEAD(path string, h http.HandlerFunc, mws ...Middleware)
	// ANY registers the handler for every method on path.
	ANY(path string, h http.HandlerFunc, mws ...Middleware)

	Handle(method, path string, h http.Handler, mws ...Middleware)
	HandleFunc(method, path string, h http.HandlerFunc, mws ...Middleware)

	// Use adds global middlewares. They run for every request, matched or not.
	Use(mws ...Middleware)
	// Param retrieves a path parameter by its key from the given request.
	Param(r *http.Request, key string) string

	// SetServer records the server handle bound to this router.
	SetServer(srv *http.Server)
	// Server returns the recorded server handle, or nil.
	Server() *http.Server

	// Engine returns the underlying router instance (e.g., *chi.Mux).
	Engine() any
}
