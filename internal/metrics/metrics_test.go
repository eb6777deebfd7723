package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewService_Disabled(t *testing.T) {
	t.Run("Should serve 503 and make Record calls a no-op", func(t *testing.T) {
		svc, err := NewService(false)
		require.NoError(t, err)
		assert.False(t, svc.Enabled())

		svc.RecordCompose(context.Background(), 10*time.Millisecond, "success")
		svc.RecordDispatch(context.Background(), "dispatched")

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		svc.ExporterHandler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestNewService_Enabled(t *testing.T) {
	t.Run("Should expose recorded instruments in Prometheus exposition format", func(t *testing.T) {
		svc, err := NewService(true)
		require.NoError(t, err)
		assert.True(t, svc.Enabled())

		svc.RecordCompose(context.Background(), 250*time.Millisecond, "success")
		svc.RecordDispatch(context.Background(), "dispatched")

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		svc.ExporterHandler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "composer_compose_duration_seconds")
		assert.Contains(t, body, "composer_compose_outcomes_total")
		assert.Contains(t, body, "composer_dispatch_attempts_total")
	})
}

func TestService_Push(t *testing.T) {
	t.Run("Should no-op when no gateway URL is configured", func(t *testing.T) {
		svc, err := NewService(true)
		require.NoError(t, err)
		assert.NoError(t, svc.Push(context.Background(), "", "composer_compose"))
	})

	t.Run("Should no-op when the service is disabled regardless of URL", func(t *testing.T) {
		svc, err := NewService(false)
		require.NoError(t, err)
		assert.NoError(t, svc.Push(context.Background(), "http://127.0.0.1:0", "composer_compose"))
	})

	t.Run("Should push to a configured gateway", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		svc, err := NewService(true)
		require.NoError(t, err)
		svc.RecordCompose(context.Background(), time.Millisecond, "success")

		assert.NoError(t, svc.Push(context.Background(), srv.URL, "composer_compose"))
	})
}

func TestNilService(t *testing.T) {
	t.Run("Should tolerate a nil receiver on every method", func(t *testing.T) {
		var svc *Service
		assert.False(t, svc.Enabled())
		assert.NotPanics(t, func() {
			svc.RecordCompose(context.Background(), time.Millisecond, "success")
			svc.RecordDispatch(context.Background(), "dispatched")
		})
		assert.NoError(t, svc.Push(context.Background(), "http://127.0.0.1:0", "job"))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		svc.ExporterHandler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
