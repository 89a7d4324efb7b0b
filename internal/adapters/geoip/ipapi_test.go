package geoip

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAPIClient(url string) *APIClient {
	return NewAPIClient(APIConfig{
		BaseURL:           url,
		RequestsPerMinute: 60000,
		Timeout:           2 * time.Second,
		MaxRetries:        2,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
	})
}

func TestAPIClient_Locate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json/8.8.8.8", r.URL.Path)
		assert.Equal(t, ipapiFields, r.URL.Query().Get("fields"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","country":"United States","countryCode":"US",
			"regionName":"Virginia","city":"Ashburn","lat":39.03,"lon":-77.5,"isp":"Google LLC","query":"8.8.8.8"}`))
	}))
	defer srv.Close()

	loc, err := testAPIClient(srv.URL).Locate(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, "8.8.8.8", loc.IP)
	assert.Equal(t, "Ashburn", loc.City)
	assert.Equal(t, "US", loc.CountryCode)
	assert.Equal(t, "Virginia", loc.Region)
	assert.InDelta(t, -77.5, loc.Lon, 1e-9)
	assert.InDelta(t, 39.03, loc.Lat, 1e-9)
	assert.Equal(t, SourceIPAPI, loc.Source)
}

func TestAPIClient_Locate_Fail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"fail","message":"reserved range","query":"192.0.2.1"}`))
	}))
	defer srv.Close()

	_, err := testAPIClient(srv.URL).Locate(context.Background(), "192.0.2.1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLookupFailed))
	assert.Contains(t, err.Error(), "reserved range")
}

func TestAPIClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"success","city":"Paris","lat":48.86,"lon":2.35,"query":"1.1.1.1"}`))
	}))
	defer srv.Close()

	loc, err := testAPIClient(srv.URL).Locate(context.Background(), "1.1.1.1")
	require.NoError(t, err)
	assert.Equal(t, "Paris", loc.City)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAPIClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testAPIClient(srv.URL).Locate(context.Background(), "1.1.1.1")
	var re *RetryError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 3, re.Attempts)
	assert.Equal(t, http.StatusTooManyRequests, re.LastStatus)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAPIClient_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := testAPIClient(srv.URL).Locate(context.Background(), "1.1.1.1")
	var re *RetryError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusForbidden, re.LastStatus)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAPIClient_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testAPIClient("http://127.0.0.1:1").Locate(ctx, "1.1.1.1")
	assert.Error(t, err)
}

func TestAPIClient_Backoff(t *testing.T) {
	c := NewAPIClient(APIConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second})
	for attempt, base := range []time.Duration{100, 200, 400, 800, 1000, 1000} {
		base *= time.Millisecond
		got := c.backoff(attempt)
		assert.GreaterOrEqual(t, got, base, "attempt %d", attempt)
		assert.LessOrEqual(t, got, base+base/4, "attempt %d", attempt)
	}
}

func TestAPIClient_CancelDuringRequest(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := NewAPIClient(APIConfig{
		BaseURL:           srv.URL,
		RequestsPerMinute: 60000,
		Timeout:           10 * time.Second,
		MaxRetries:        2,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
	})

	// No deadline: only cancellation can stop the request.
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	_, err := c.Locate(ctx, "1.1.1.1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, int32(1), calls.Load())
}
