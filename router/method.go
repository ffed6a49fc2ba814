package router

import "net/http"

// RequestMethod enumerates the verbs a framework can ask a middleware
// factory for.
type RequestMethod int

const (
	GET RequestMethod = iota
	POST
	PUT
	DELETE
	PATCH
	ALL
	OPTIONS
	HEAD
	SEARCH
)

// MethodSearch is the non-standard SEARCH verb.
const MethodSearch = "SEARCH"

var methodNames = map[RequestMethod]string{
	GET:     http.MethodGet,
	POST:    http.MethodPost,
	PUT:     http.MethodPut,
	DELETE:  http.MethodDelete,
	PATCH:   http.MethodPatch,
	ALL:     "ALL",
	OPTIONS: http.MethodOptions,
	HEAD:    http.MethodHead,
	SEARCH:  MethodSearch,
}

// String returns the HTTP verb for m, or "ALL" for ALL and unknown values.
func (m RequestMethod) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return "ALL"
}

// RegisterFunc registers h for a fixed verb on the router it was built from.
type RegisterFunc func(path string, h http.HandlerFunc)

// MethodFactory returns the registration function of rt for the given verb.
// ALL and unknown values register on every method.
func MethodFactory(rt Router, m RequestMethod) RegisterFunc {
	switch m {
	case GET:
		return bind(rt.GET)
	case POST:
		return bind(rt.POST)
	case PUT:
		return bind(rt.PUT)
	case DELETE:
		return bind(rt.DELETE)
	case PATCH:
		return bind(rt.PATCH)
	case OPTIONS:
		return bind(rt.OPTIONS)
	case HEAD:
		return bind(rt.HEAD)
	case SEARCH:
		return func(path string, h http.HandlerFunc) {
			rt.HandleFunc(MethodSearch, path, h)
		}
	default:
		return bind(rt.ANY)
	}
}

func bind(fn func(string, http.HandlerFunc, ...Middleware)) RegisterFunc {
	return func(path string, h http.HandlerFunc) {
		fn(path, h)
	}
}
