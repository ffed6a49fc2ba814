// Package middleware provides net/http middlewares that bind and validate
// request input on top of any chiwarp router.
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iaconlabs/chiwarp/bodyparser"
	"github.com/iaconlabs/chiwarp/router"
	"github.com/iaconlabs/chiwarp/send"
)

// Internal singleton instance to allow custom tag registration.
var defaultValidator = validator.New()

// GetValidator returns the shared validator instance used by the Validate middleware.
// Use this to register custom validation tags or translations.
func GetValidator() *validator.Validate {
	return defaultValidator
}

type validatedKey struct{}

// ValidationError represents a specific validation failure for a field.
// It is intended to be returned as part of a structured JSON response.
type ValidationError struct {
	// Field is the name of the struct field that failed validation.
	Field string `json:"field"`
	// Rule is the name of the validator tag that was violated (e.g., "required", "email").
	Rule string `json:"rule"`
	// Message is a human-readable description of the error.
	Message string `json:"message"`
}

// Validate returns a middleware that binds and validates request input into a
// new T. The JSON body is taken from the body parser payload when one ran,
// otherwise read directly. Fields tagged `param:"name"` are filled from the
// path parameters of rt. Invalid JSON answers 400; failed rules answer 422
// with one ValidationError per field. The validated *T is available to the
// next handler through Validated.
func Validate[T any](rt router.Router) router.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			target := new(T)

			raw, err := requestBody(r)
			if err != nil {
				sendJSONError(w, "Unable to read request body", http.StatusBadRequest)
				return
			}
			if len(bytes.TrimSpace(raw)) > 0 {
				if err := json.Unmarshal(raw, target); err != nil {
					sendJSONError(w, "Invalid JSON format", http.StatusBadRequest)
					return
				}
			}

			mapPathParams(target, func(key string) string { return rt.Param(r, key) })

			if err := defaultValidator.Struct(target); err != nil {
				var invalid *validator.InvalidValidationError
				if errors.As(err, &invalid) {
					sendJSONError(w, err.Error(), http.StatusInternalServerError)
					return
				}
				sendDetailedError(w, formatValidationErrors(err))
				return
			}

			ctx := context.WithValue(r.Context(), validatedKey{}, target)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Validated returns the value stored by Validate[T] for r.
func Validated[T any](r *http.Request) (*T, bool) {
	v, ok := r.Context().Value(validatedKey{}).(*T)
	return v, ok
}

func requestBody(r *http.Request) ([]byte, error) {
	if raw := bodyparser.Raw(r); raw != nil {
		return raw, nil
	}
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))
	return raw, nil
}

// mapPathParams uses reflection to populate string fields decorated with the
// "param" tag.
func mapPathParams(target any, lookup func(string) string) {
	val := reflect.ValueOf(target).Elem()
	if val.Kind() != reflect.Struct {
		return
	}
	typ := val.Type()

	for i := range typ.NumField() {
		tag := typ.Field(i).Tag.Get("param")
		if tag == "" {
			continue
		}
		if paramVal := lookup(tag); paramVal != "" {
			f := val.Field(i)
			if f.CanSet() && f.Kind() == reflect.String {
				f.SetString(paramVal)
			}
		}
	}
}

// formatValidationErrors converts validator errors into a slice of ValidationError.
func formatValidationErrors(err error) []ValidationError {
	var errs []ValidationError
	var vErrors validator.ValidationErrors

	if errors.As(err, &vErrors) {
		for _, vErr := range vErrors {
			errs = append(errs, ValidationError{
				Field:   strings.ToLower(vErr.Field()),
				Rule:    vErr.Tag(),
				Message: createMsgForTag(vErr),
			})
		}
	}
	return errs
}

// createMsgForTag generates an error message based on the failed validation tag.
func createMsgForTag(v validator.FieldError) string {
	switch v.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return fmt.Sprintf("Minimum length/value is %s", v.Param())
	case "max":
		return fmt.Sprintf("Maximum length/value is %s", v.Param())
	default:
		return fmt.Sprintf("Validation failed on rule: %s", v.Tag())
	}
}

func sendJSONError(w http.ResponseWriter, msg string, code int) {
	_ = send.JSON(w, code, map[string]string{"error": msg})
}

// sendDetailedError sends a 422 response containing a list of validation errors.
func sendDetailedError(w http.ResponseWriter, errs []ValidationError) {
	_ = send.JSON(w, http.StatusUnprocessableEntity, map[string]any{
		"status": "error",
		"errors": errs,
	})
}
