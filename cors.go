package chiwarp

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/iaconlabs/chiwarp/router"
)

var validate = validator.New()

// CorsOptions is the CORS policy accepted by EnableCors. Zero values fall
// back to the defaults noted on each field.
type CorsOptions struct {
	// Origins lists allowed origins; "*" or empty allows any. Entries may
	// contain one wildcard, e.g. "https://*.example.com".
	Origins []string `validate:"dive,required"`
	// OriginFunc, when set, decides instead of Origins.
	OriginFunc func(origin string) bool
	// Methods defaults to GET, HEAD, PUT, PATCH, POST, DELETE.
	Methods []string `validate:"dive,required,uppercase"`
	// AllowedHeaders lists request headers clients may send. Empty or "*"
	// allows whatever the preflight asks for.
	AllowedHeaders []string
	ExposedHeaders []string
	Credentials    bool
	// MaxAge is how long, in seconds, preflight results may be cached.
	MaxAge int `validate:"gte=0"`
	// PreflightContinue passes preflight requests on to the next handler.
	PreflightContinue bool
	// OptionsSuccessStatus is the preflight status, 204 by default.
	OptionsSuccessStatus int `validate:"omitempty,gte=200,lt=300"`
	// Debug logs every CORS decision through the adapter logger.
	Debug bool
}

var defaultCorsMethods = []string{
	http.MethodGet, http.MethodHead, http.MethodPut,
	http.MethodPatch, http.MethodPost, http.MethodDelete,
}

// newCors validates opts and builds the middleware.
func newCors(opts CorsOptions, logger *zap.Logger) (router.Middleware, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, err
	}

	co := cors.Options{
		AllowedOrigins:       opts.Origins,
		AllowOriginFunc:      opts.OriginFunc,
		AllowedMethods:       opts.Methods,
		AllowedHeaders:       opts.AllowedHeaders,
		ExposedHeaders:       opts.ExposedHeaders,
		AllowCredentials:     opts.Credentials,
		MaxAge:               opts.MaxAge,
		OptionsPassthrough:   opts.PreflightContinue,
		OptionsSuccessStatus: opts.OptionsSuccessStatus,
		Debug:                opts.Debug,
	}
	if len(co.AllowedMethods) == 0 {
		co.AllowedMethods = defaultCorsMethods
	}
	if len(co.AllowedHeaders) == 0 {
		co.AllowedHeaders = []string{"*"}
	}
	if co.OptionsSuccessStatus == 0 {
		co.OptionsSuccessStatus = http.StatusNoContent
	}
	if opts.Debug {
		co.Logger = zap.NewStdLog(logger.Named("cors"))
	}

	return cors.New(co).Handler, nil
}
