// Package adapter contains shared helpers used to bridge chiwarp's path
// syntax and mounting rules onto concrete routers, plus the contract suite
// every router implementation is tested against.
package adapter

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/iaconlabs/chiwarp/router"
)

// colonRegex identifies parameter placeholders in the format ":name" (e.g., :id, :user-id).
// Dots end the name so ":id.json" keeps its literal suffix.
var colonRegex = regexp.MustCompile(`:([a-zA-Z0-9_-]+)`)

// TranslatePath converts colon-style path parameters (:param) into
// brace-style placeholders ({param}) and a named catch-all (*name) into the
// bare "*" chi expects. The catch-all name is returned separately.
func TranslatePath(path string) (string, string) {
	wildcard := ""
	if before, after, found := strings.Cut(path, "*"); found {
		wildcard = after
		if wildcard == "" {
			wildcard = "*"
		}
		path = before + "*"
	}

	translated := colonRegex.ReplaceAllStringFunc(path, func(m string) string {
		return "{" + strings.TrimPrefix(m, ":") + "}"
	})
	return translated, wildcard
}

// MatchPrefix reports whether path lies under prefix on a segment boundary.
// "/api" matches "/api" and "/api/users" but not "/apix".
func MatchPrefix(prefix, path string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

// PathScoped limits mw to requests whose path lies under prefix. Other
// requests skip straight to the next handler.
func PathScoped(prefix string, mw router.Middleware) router.Middleware {
	return func(next http.Handler) http.Handler {
		scoped := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if MatchPrefix(prefix, r.URL.Path) {
				scoped.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
