// Package bodyparser provides JSON and URL-encoded request body parsing
// middlewares. Parsed bodies are stored in the request context and the raw
// bytes are replayed on r.Body so later handlers can still read it.
package bodyparser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/iaconlabs/chiwarp/router"
	"github.com/iaconlabs/chiwarp/send"
)

const (
	// DefaultLimit is the maximum accepted body size when Options.Limit is zero.
	DefaultLimit int64 = 100 << 10
	// DefaultParameterLimit caps the number of URL-encoded pairs.
	DefaultParameterLimit = 1000
)

var (
	// ErrTooLarge is reported when a body exceeds the configured limit.
	ErrTooLarge = errors.New("request entity too large")
	// ErrTooManyParameters is reported when a form carries more pairs than allowed.
	ErrTooManyParameters = errors.New("too many parameters")
	// ErrStrictJSON is reported in strict mode for top-level JSON primitives.
	ErrStrictJSON = errors.New("top-level JSON value must be an object or array")
)

// Options configures both parsers. Zero values select the defaults.
type Options struct {
	// Limit is the maximum body size in bytes.
	Limit int64
	// Strict makes the JSON parser reject anything but objects and arrays.
	Strict bool
	// Extended enables nested URL-encoded parsing (a[b][c]=1, a[]=1).
	Extended bool
	// ParameterLimit caps the number of URL-encoded pairs.
	ParameterLimit int
}

func (o Options) limit() int64 {
	if o.Limit <= 0 {
		return DefaultLimit
	}
	return o.Limit
}

func (o Options) parameterLimit() int {
	if o.ParameterLimit <= 0 {
		return DefaultParameterLimit
	}
	return o.ParameterLimit
}

// Payload is what a parser stores for a request.
type Payload struct {
	// Raw holds the body bytes as received.
	Raw []byte
	// Value is the decoded body: map[string]any, []any or a JSON scalar.
	Value any
	// MediaType is the parsed Content-Type without parameters.
	MediaType string
}

type payloadKey struct{}

// FromContext returns the payload stored by a parser, if any.
func FromContext(ctx context.Context) (*Payload, bool) {
	p, ok := ctx.Value(payloadKey{}).(*Payload)
	return p, ok
}

// Body returns the decoded body of r.
func Body(r *http.Request) (any, bool) {
	p, ok := FromContext(r.Context())
	if !ok {
		return nil, false
	}
	return p.Value, true
}

// Raw returns the raw body bytes captured by a parser, or nil.
func Raw(r *http.Request) []byte {
	if p, ok := FromContext(r.Context()); ok {
		return p.Raw
	}
	return nil
}

// JSON parses application/json and +json bodies.
func JSON(opts Options) router.Middleware {
	return parser(opts, isJSON, func(raw []byte) (any, error) {
		return decodeJSON(raw, opts.Strict)
	})
}

// URLEncoded parses application/x-www-form-urlencoded bodies.
func URLEncoded(opts Options) router.Middleware {
	return parser(opts, isForm, func(raw []byte) (any, error) {
		return parseForm(string(raw), opts.Extended, opts.parameterLimit())
	})
}

func parser(opts Options, match func(string) bool, decode func([]byte) (any, error)) router.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, parsed := FromContext(r.Context()); parsed || !hasBody(r) {
				next.ServeHTTP(w, r)
				return
			}
			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || !match(mediaType) {
				next.ServeHTTP(w, r)
				return
			}

			raw, err := readLimited(r, opts.limit())
			if err != nil {
				fail(w, err)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(raw))

			value, err := decode(raw)
			if err != nil {
				fail(w, err)
				return
			}

			p := &Payload{Raw: raw, Value: value, MediaType: mediaType}
			ctx := context.WithValue(r.Context(), payloadKey{}, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func hasBody(r *http.Request) bool {
	if r.Body == nil || r.Body == http.NoBody {
		return false
	}
	return r.ContentLength != 0
}

func isJSON(mediaType string) bool {
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func isForm(mediaType string) bool {
	return mediaType == "application/x-www-form-urlencoded"
}

func readLimited(r *http.Request, limit int64) ([]byte, error) {
	if r.ContentLength > limit {
		return nil, ErrTooLarge
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > limit {
		return nil, ErrTooLarge
	}
	return raw, nil
}

func decodeJSON(raw []byte, strict bool) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return map[string]any{}, nil
	}
	if strict && trimmed[0] != '{' && trimmed[0] != '[' {
		return nil, ErrStrictJSON
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	return v, nil
}

func fail(w http.ResponseWriter, err error) {
	code := http.StatusBadRequest
	if errors.Is(err, ErrTooLarge) || errors.Is(err, ErrTooManyParameters) {
		code = http.StatusRequestEntityTooLarge
	}
	_ = send.JSON(w, code, map[string]any{
		"statusCode": code,
		"message":    err.Error(),
	})
}
