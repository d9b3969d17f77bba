package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveGatewayCall(t *testing.T) {
	m := New("test")
	m.ObserveGatewayCall("create_order", nil, time.Now())
	m.ObserveGatewayCall("create_order", errors.New("boom"), time.Now())
	m.ObserveGatewayCall("create_order", errors.New("boom"), time.Now())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.GatewayCalls.WithLabelValues("create_order", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.GatewayCalls.WithLabelValues("create_order", "error")))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New("test")
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/bookings/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bookings/abc", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestTotal.WithLabelValues("GET", "/bookings/{id}", "404")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New("test")
	m.PaymentConflicts.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_payment_conflicts_total 1")
}
