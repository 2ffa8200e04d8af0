package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_InstrumentRoundTripper(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/logout" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	client := NewClient(server.URL, WithTransport(metrics.InstrumentRoundTripper(nil)))

	require.Error(t, client.Logout(context.Background()))
	require.Error(t, client.Logout(context.Background()))

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.requests.WithLabelValues("500", "delete")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.inFlight))

	count, err := testutil.GatherAndCount(reg, "goshort_api_client_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNewMetrics_DoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	assert.Panics(t, func() { NewMetrics(reg) })
}
