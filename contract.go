package chiwarp

import (
	"context"
	"net/http"

	"github.com/iaconlabs/chiwarp/router"
	"github.com/iaconlabs/chiwarp/static"
)

// HTTPAdapter is the contract a framework drives to run on top of an HTTP
// engine. The method set is closed: every capability the framework may ask
// for has a method here.
type HTTPAdapter interface {
	http.Handler

	// Server lifecycle.
	InitHTTPServer(opts ApplicationOptions)
	Listen(ctx context.Context, addr string) error
	Close(ctx context.Context) error
	GetHTTPServer() *http.Server
	GetInstance() router.Router

	// Request accessors.
	GetRequestHostname(r *http.Request) string
	GetRequestMethod(r *http.Request) string
	GetRequestURL(r *http.Request) string

	// Response mutators.
	Status(w http.ResponseWriter, code int)
	SetHeader(w http.ResponseWriter, name, value string)
	AppendHeader(w http.ResponseWriter, name, value string)
	GetHeader(w http.ResponseWriter, name string) string
	IsHeadersSent(w http.ResponseWriter) bool
	Redirect(w http.ResponseWriter, code int, url string)
	Reply(w http.ResponseWriter, body any, statusCode int) error
	End(w http.ResponseWriter, message string) error

	// Middleware registration. An empty prefix mounts globally.
	Use(mws ...router.Middleware)
	UseStaticAssets(root string, opts static.Options) error
	RegisterParserMiddleware(prefix string)
	EnableCors(opts CorsOptions, prefix string) error
	SetErrorHandler(handler router.Middleware, prefix string)
	SetNotFoundHandler(handler router.Middleware, prefix string)
	CreateMiddlewareFactory(method router.RequestMethod) router.RegisterFunc

	// View rendering is not supported; both always fail.
	SetViewEngine(engine string) error
	Render(w http.ResponseWriter, view string, data any) error

	GetType() string
}
