package chiwarp_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iaconlabs/chiwarp"
)

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	logger := zap.New(core)

	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("database exploded")
	})

	t.Run("HidesStack", func(t *testing.T) {
		rec := httptest.NewRecorder()
		chiwarp.Recovery(logger, false)(panicky).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())
	})

	t.Run("WithStack", func(t *testing.T) {
		rec := httptest.NewRecorder()
		chiwarp.Recovery(logger, true)(panicky).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/y", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "database exploded")
		assert.Contains(t, rec.Body.String(), "goroutine")
	})

	entries := logs.FilterMessage("panic recovered").All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "/x", entries[0].ContextMap()["path"])
		assert.Equal(t, "database exploded", entries[0].ContextMap()["panic"])
		assert.Contains(t, entries[1].ContextMap(), "stack")
	}
}

func TestRecovery_AbortHandlerPropagates(t *testing.T) {
	h := chiwarp.Recovery(nil, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRecovery_PassThrough(t *testing.T) {
	h := chiwarp.Recovery(nil, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}
