package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastFetcher(source string) *httpFetcher {
	return newHTTPFetcher(source, 0)
}

func TestHTTPFetcher_SingleAttemptOnTransientFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		reason FetchReason
	}{
		{"rate limited", http.StatusTooManyRequests, ReasonRateLimited},
		{"server error", http.StatusServiceUnavailable, ReasonStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := fastFetcher("Test").get(context.Background(), srv.Client(), srv.URL, nil)

			var fe *FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.reason, fe.Reason)
			assert.Equal(t, tt.status, fe.StatusCode)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestHTTPFetcher_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, USER_AGENT, r.Header.Get("User-Agent"))
		assert.Equal(t, "yes", r.Header.Get("X-Test"))
		_, _ = w.Write([]byte(`ok`))
	}))
	defer srv.Close()

	body, err := fastFetcher("Test").get(context.Background(), srv.Client(), srv.URL, http.Header{"X-Test": {"yes"}})

	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestHTTPFetcher_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newHTTPFetcher("Test", 1)
	f.limiter.Allow()
	_, err := f.get(ctx, http.DefaultClient, "http://127.0.0.1:1", nil)

	reason, ok := FetchReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, ReasonNetwork, reason)
}

func TestHTTPFetcher_DoesNotRetryClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		reason FetchReason
	}{
		{"unauthorized", http.StatusUnauthorized, ReasonUnauthorized},
		{"forbidden", http.StatusForbidden, ReasonUnauthorized},
		{"not found", http.StatusNotFound, ReasonStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := fastFetcher("Test").get(context.Background(), srv.Client(), srv.URL, nil)

			reason, ok := FetchReasonOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.reason, reason)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestHTTPFetcher_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := fastFetcher("Test").get(context.Background(), http.DefaultClient, url, nil)

	reason, ok := FetchReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, ReasonNetwork, reason)
}

func TestDecodeJSON(t *testing.T) {
	var out map[string]any

	reason, _ := FetchReasonOf(decodeJSON("Test", nil, &out))
	assert.Equal(t, ReasonEmpty, reason)

	reason, _ = FetchReasonOf(decodeJSON("Test", []byte("{"), &out))
	assert.Equal(t, ReasonMalformed, reason)

	assert.NoError(t, decodeJSON("Test", []byte(`{"a":1}`), &out))
}

func TestFetchError_Message(t *testing.T) {
	err := &FetchError{Source: "RedditClient", Reason: ReasonStatus, StatusCode: 404}
	assert.Equal(t, "[RedditClient] fetch failed: status (status 404)", err.Error())
}
