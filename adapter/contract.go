package adapter

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iaconlabs/chiwarp/router"
)

const (
	count           = 50
	firstLetterRune = 65 // 'A'
)

// RunRouterContract executes the functional contract tests for any [router.Router].
// Each sub-test receives a clean instance from factory.
func RunRouterContract(t *testing.T, factory func() router.Router) {
	t.Run("Parameters and Extensions", func(t *testing.T) {
		testParametersAndExtensions(t, factory())
	})

	t.Run("Native Context Propagation", func(t *testing.T) {
		testNativeContextPropagation(t, factory())
	})

	t.Run("Middleware Short-circuit", func(t *testing.T) {
		testMiddlewareShortCircuit(t, factory())
	})

	t.Run("Global Middleware After Routes", func(t *testing.T) {
		testLateGlobalMiddleware(t, factory())
	})

	t.Run("Global Middleware Sees Unmatched Paths", func(t *testing.T) {
		testGlobalOnUnmatched(t, factory())
	})

	t.Run("Onion Order", func(t *testing.T) {
		testOnionOrder(t, factory())
	})

	t.Run("Path Scoped Middleware", func(t *testing.T) {
		testPathScoped(t, factory())
	})

	t.Run("Handle and HandleFunc Methods", func(t *testing.T) {
		testHandleAndHandleFunc(t, factory())
	})

	t.Run("ANY Method Multi-registration", func(t *testing.T) {
		testAnyMethod(t, factory())
	})

	t.Run("Catch-All Wildcard Routes", func(t *testing.T) {
		testWildcardRoutes(t, factory())
	})

	t.Run("Custom HTTP Methods via Handle", func(t *testing.T) {
		testCustomMethods(t, factory())
	})

	t.Run("Server Handle Slot", func(t *testing.T) {
		testServerSlot(t, factory())
	})

	t.Run("Concurrency Security and Race Conditions", func(t *testing.T) {
		testConcurrency(t, factory())
	})
}

func testParametersAndExtensions(t *testing.T, adp router.Router) {
	adp.GET("/user/:id", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("plain:" + adp.Param(r, "id")))
	})
	adp.GET("/file/:name.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("json:" + adp.Param(r, "name")))
	})

	rec1 := httptest.NewRecorder()
	adp.ServeHTTP(rec1, httptest.NewRequest(http.MethodGet, "/user/123", nil))
	if rec1.Body.String() != "plain:123" {
		t.Errorf("Expected plain:123, got %s", rec1.Body.String())
	}

	rec2 := httptest.NewRecorder()
	adp.ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/file/config.json", nil))
	if rec2.Body.String() != "json:config" {
		t.Errorf("Expected json:config, got %s", rec2.Body.String())
	}
}

func testNativeContextPropagation(t *testing.T, adp router.Router) {
	type ctxKey string
	const key ctxKey = "user_id"

	adp.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), key, "warp-77")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	adp.GET("/profile", func(w http.ResponseWriter, r *http.Request) {
		val, _ := r.Context().Value(key).(string)
		_, _ = w.Write([]byte(val))
	})

	rec := httptest.NewRecorder()
	adp.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profile", nil))
	if rec.Body.String() != "warp-77" {
		t.Errorf("Context lost. Expected warp-77, got %s", rec.Body.String())
	}
}

func testMiddlewareShortCircuit(t *testing.T, adp router.Router) {
	handlerReached := false
	authMw := func(_ http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	}

	adp.GET("/secret", func(_ http.ResponseWriter, _ *http.Request) {
		handlerReached = true
	}, authMw)

	rec := httptest.NewRecorder()
	adp.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/secret", nil))

	if handlerReached {
		t.Error("Handler executed despite middleware abort")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func testLateGlobalMiddleware(t *testing.T, adp router.Router) {
	adp.GET("/late", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	adp.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Late", "true")
			next.ServeHTTP(w, r)
		})
	})

	rec := httptest.NewRecorder()
	adp.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/late", nil))
	if rec.Header().Get("X-Late") != "true" {
		t.Error("Middleware registered after the route did not run")
	}
}

func testGlobalOnUnmatched(t *testing.T, adp router.Router) {
	adp.Use(func(_ http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})
	})

	rec := httptest.NewRecorder()
	adp.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("Global middleware skipped for unmatched path, got %d", rec.Code)
	}
}

func testOnionOrder(t *testing.T, adp router.Router) {
	order := ""
	mw := func(tag string) router.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order += "(" + tag
				next.ServeHTTP(w, r)
				order += tag + ")"
			})
		}
	}

	adp.Use(mw("1"), mw("2"))
	adp.GET("/end", func(_ http.ResponseWriter, _ *http.Request) {
		order += "X"
	}, mw("3"))

	adp.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/end", nil))

	expected := "(1(2(3X3)2)1)"
	if order != expected {
		t.Errorf("The 'Onion' hierarchy is incorrect.\nExpected: %s\nGot: %s", expected, order)
	}
}

func testPathScoped(t *testing.T, adp router.Router) {
	hits := 0
	adp.Use(PathScoped("/api", func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits++
			next.ServeHTTP(w, r)
		})
	}))
	ok := func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) }
	adp.GET("/api/users", ok)
	adp.GET("/apix", ok)
	adp.GET("/public", ok)

	for _, p := range []string{"/public", "/apix", "/api/users"} {
		adp.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	if hits != 1 {
		t.Errorf("Scoped middleware leaked outside its prefix, hits=%d", hits)
	}
}

type handlerForTests struct{}

func (h *handlerForTests) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("handler_ok"))
}

func testHandleAndHandleFunc(t *testing.T, adp router.Router) {
	adp.Handle(http.MethodGet, "/test/handle", &handlerForTests{})

	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Handle", "true")
			next.ServeHTTP(w, r)
		})
	}
	adp.HandleFunc(http.MethodPost, "/test/handlefunc", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("func_ok"))
	}, mw)

	rec1 := httptest.NewRecorder()
	adp.ServeHTTP(rec1, httptest.NewRequest(http.MethodGet, "/test/handle", nil))
	if rec1.Body.String() != "handler_ok" {
		t.Errorf("Handle failed. Expected handler_ok, got %s", rec1.Body.String())
	}

	rec2 := httptest.NewRecorder()
	adp.ServeHTTP(rec2, httptest.NewRequest(http.MethodPost, "/test/handlefunc", nil))
	if rec2.Body.String() != "func_ok" || rec2.Header().Get("X-Handle") != "true" {
		t.Errorf("HandleFunc or Middleware failed. Body: %s, Header: %s",
			rec2.Body.String(), rec2.Header().Get("X-Handle"))
	}
}

func testAnyMethod(t *testing.T, adp router.Router) {
	adp.ANY("/any-route", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("method:" + r.Method))
	})

	for _, method := range []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodDelete,
		http.MethodPatch,
		http.MethodOptions,
	} {
		rec := httptest.NewRecorder()
		adp.ServeHTTP(rec, httptest.NewRequest(method, "/any-route", nil))

		expected := "method:" + method
		if rec.Body.String() != expected {
			t.Errorf("ANY method failed for %s. Expected %s, got %s", method, expected, rec.Body.String())
		}
	}
}

func testWildcardRoutes(t *testing.T, adp router.Router) {
	adp.GET("/static/*path", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("path:" + adp.Param(r, "path")))
	})

	rec := httptest.NewRecorder()
	adp.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/images/logo/brand.png", nil))
	if !strings.Contains(rec.Body.String(), "images/logo/brand.png") {
		t.Errorf("Wildcard failed. Got: %s", rec.Body.String())
	}
}

func testCustomMethods(t *testing.T, adp router.Router) {
	adp.Handle("PURGE", "/cache", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("purged"))
	}))

	rec := httptest.NewRecorder()
	adp.ServeHTTP(rec, httptest.NewRequest("PURGE", "/cache", nil))
	if rec.Body.String() != "purged" {
		t.Errorf("Custom method PURGE failed. Got: %s", rec.Body.String())
	}
}

func testServerSlot(t *testing.T, adp router.Router) {
	if adp.Server() != nil {
		t.Fatal("Fresh router should not carry a server handle")
	}
	srv := &http.Server{Handler: adp}
	adp.SetServer(srv)
	if adp.Server() != srv {
		t.Error("Server handle was not recorded")
	}
}

func testConcurrency(t *testing.T, adp router.Router) {
	adp.POST("/worker/:id", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write([]byte(adp.Param(r, "id") + string(body)))
	})

	results := make(chan bool, count)
	for i := range count {
		go func(val string) {
			req := httptest.NewRequest(http.MethodPost, "/worker/"+val, strings.NewReader(val))
			rec := httptest.NewRecorder()
			adp.ServeHTTP(rec, req)
			results <- rec.Body.String() == val+val
		}(string(rune(i + firstLetterRune)))
	}

	for range count {
		if !<-results {
			t.Error("Concurrency security failure: parameters leaked between parallel requests")
			break
		}
	}
}
