package middleware_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwatkins/billtrack/internal/api/middleware"
	"github.com/dwatkins/billtrack/internal/api/shared"
	"github.com/dwatkins/billtrack/internal/platform/logger"
)

func TestTraceMiddleware(t *testing.T) {
	t.Parallel()

	var traceID string
	var scoped *slog.Logger
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
		scoped = logger.FromContextOrDefault(r.Context(), nil)
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/capacity", nil)
	rec := httptest.NewRecorder()
	middleware.TraceMiddleware(next).ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Len(t, traceID, 2*shared.TraceIDLength)
	assert.NotEqual(t, slog.Default(), scoped,
		"a trace-tagged logger must be stored in the context")
}

func TestTraceMiddleware_UniquePerRequest(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen[shared.GetTraceID(r.Context())] = true
	})
	handler := middleware.TraceMiddleware(next)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/bills", nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Len(t, seen, 5)
}
