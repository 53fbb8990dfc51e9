package network

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"orderbook-observer/src/helpers"
	"orderbook-observer/src/logger"
	"orderbook-observer/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(retries int) *HTTPClient {
	cfg := &models.MConfig{Feed: models.MFeedConfig{RequestTimeoutSeconds: 2, MaxRetries: retries}}
	return NewHTTPClient(cfg, logger.NewNop())
}

func TestGetRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "BTC/USD", r.URL.Query().Get("pair"))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	body, err := newClient(2).Get(context.Background(), srv.URL, map[string]string{"pair": "BTC/USD"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, int32(2), hits.Load())
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newClient(3).Get(context.Background(), srv.URL, nil)
	var netErr *helpers.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, int32(1), hits.Load())
}

func TestGetStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newClient(5).Get(ctx, srv.URL, nil)
	assert.Error(t, err)
}
