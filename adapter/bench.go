package adapter

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iaconlabs/chiwarp/router"
)

// RunSuiteBenchmarks measures the dispatch overhead of a [router.Router]
// implementation.
func RunSuiteBenchmarks(b *testing.B, factory func() router.Router) {
	// Baseline.
	b.Run("Static/Simple", func(b *testing.B) {
		runStaticBenchmark(b, factory())
	})

	// Cost of value extraction from the route context.
	b.Run("Param/Single", func(b *testing.B) {
		runParamBenchmark(b, factory())
	})

	// Five global layers, two of them scoped to a prefix.
	b.Run("Middleware/ScopedOnion", func(b *testing.B) {
		runOnionBenchmark(b, factory())
	})
}

func runStaticBenchmark(b *testing.B, adp router.Router) {
	adp.GET("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	b.ReportAllocs()
	b.ResetTimer()
	for range b.N {
		adp.ServeHTTP(httptest.NewRecorder(), req)
	}
}

func runParamBenchmark(b *testing.B, adp router.Router) {
	adp.GET("/user/:id", func(_ http.ResponseWriter, r *http.Request) {
		_ = adp.Param(r, "id")
	})
	req := httptest.NewRequest(http.MethodGet, "/user/12345", nil)
	b.ReportAllocs()
	b.ResetTimer()
	for range b.N {
		adp.ServeHTTP(httptest.NewRecorder(), req)
	}
}

func runOnionBenchmark(b *testing.B, adp router.Router) {
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
		})
	}

	adp.Use(mw, mw, mw)
	adp.Use(PathScoped("/g1", mw), PathScoped("/other", mw))
	adp.GET("/g1/g2/end", func(_ http.ResponseWriter, _ *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/g1/g2/end", nil)
	b.ReportAllocs()
	b.ResetTimer()
	for range b.N {
		adp.ServeHTTP(httptest.NewRecorder(), req)
	}
}
