package chiwarp

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/iaconlabs/chiwarp/router"
	"github.com/iaconlabs/chiwarp/send"
)

// Recovery returns a middleware that recovers from panics, logs the error,
// and returns an Internal Server Error (500) to the client.
// If stack is true, the stack trace goes to the log and the response.
func Recovery(logger *zap.Logger, stack bool) router.Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				err := recover()
				if err == nil {
					return
				}
				if err == http.ErrAbortHandler {
					panic(err)
				}

				message := fmt.Sprintf("panic recovered: %v", err)
				fields := []zap.Field{
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				}
				if stack {
					trace := string(debug.Stack())
					fields = append(fields, zap.String("stack", trace))
					message = fmt.Sprintf("%s\n\n%s", message, trace)
				}
				logger.Error("panic recovered", append(fields, zap.Any("panic", err))...)

				body := map[string]string{"error": "Internal Server Error"}
				if stack {
					body["error"] = message
				}
				_ = send.JSON(w, http.StatusInternalServerError, body)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
