package objectstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/climate-atlas/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFile = "pr_sum_ssp126_90-10.csv"

func testClient(baseURL string) (*Client, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(baseURL, 5*time.Second, logger, metrics), metrics
}

func TestClient_Fetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/"+testFile, r.URL.Path)
		_, _ = w.Write([]byte("name,year\npr_sum,2030\n"))
	}))
	defer srv.Close()

	c, metrics := testClient(srv.URL + "/")
	body, err := c.Fetch(context.Background(), testFile)
	require.NoError(t, err)
	assert.Equal(t, "name,year\npr_sum,2030\n", string(body))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ObjectStoreRequests.WithLabelValues("success")))
}

func TestClient_Fetch_SizeLimit(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"at limit", 16, false},
		{"over limit", 17, true},
		{"well over limit", 4096, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write(make([]byte, tt.size))
			}))
			defer srv.Close()

			c, metrics := testClient(srv.URL)
			c.maxSize = 16
			body, err := c.Fetch(context.Background(), testFile)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrObjectTooLarge)
				assert.Nil(t, body)
				assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ObjectStoreRequests.WithLabelValues("error")))
				return
			}
			require.NoError(t, err)
			assert.Len(t, body, tt.size)
		})
	}
}

func TestClient_Fetch_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "<Error>NoSuchKey</Error>", http.StatusNotFound)
	}))
	defer srv.Close()

	c, metrics := testClient(srv.URL)
	_, err := c.Fetch(context.Background(), "missing.csv")
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, "Not Found", se.Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ObjectStoreRequests.WithLabelValues("not_found")))
}

func TestClient_Fetch_ClientErrorsDoNotTripBreaker(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c, _ := testClient(srv.URL)
	for range 8 {
		_, err := c.Fetch(context.Background(), testFile)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrUnavailable))
	}
	assert.Equal(t, int32(8), hits.Load())
}

func TestClient_Fetch_BreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, metrics := testClient(srv.URL)
	for range 5 {
		_, err := c.Fetch(context.Background(), testFile)
		require.Error(t, err)
	}

	_, err := c.Fetch(context.Background(), testFile)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(5), hits.Load(), "open breaker must not reach the server")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ObjectStoreRequests.WithLabelValues("breaker_open")))
	assert.Equal(t, 5.0, testutil.ToFloat64(metrics.ObjectStoreRequests.WithLabelValues("error")))
}

func TestClient_Fetch_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, _ := testClient(url)
	_, err := c.Fetch(context.Background(), testFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "object store request")
}

func TestIsSuccessful(t *testing.T) {
	assert.True(t, isSuccessful(nil))
	assert.True(t, isSuccessful(context.Canceled))
	assert.True(t, isSuccessful(&StatusError{Code: 404}))
	assert.False(t, isSuccessful(&StatusError{Code: 503}))
	assert.False(t, isSuccessful(errors.New("connection reset")))
}

func TestClient_SetRateLimit(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c, _ := testClient(srv.URL)
	c.SetRateLimit(1)

	_, err := c.Fetch(context.Background(), testFile)
	require.NoError(t, err)

	// The single token is spent, so a short deadline cannot be met.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Fetch(ctx, testFile)
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}
