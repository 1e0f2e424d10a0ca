package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spacesedan/myriadflow/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTwitterClient(t *testing.T, handler http.HandlerFunc) *TwitterClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tc := NewTwitterClient(config.TwitterConfig{BearerToken: "token"},
		WithTwitterBaseURL(srv.URL))
	tc.fetcher = fastFetcher("TwitterClient")
	return tc
}

func TestTwitterClient_SearchRecent(t *testing.T) {
	tc := newTestTwitterClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tweets/search/recent", r.URL.Path)
		assert.Equal(t, "#myriad", r.URL.Query().Get("query"))
		assert.Equal(t, "10", r.URL.Query().Get("max_results"))
		assert.Equal(t, "author_id", r.URL.Query().Get("expansions"))
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{
			"data": [{"id": "1", "text": "hi", "author_id": "42"}],
			"includes": {"users": [{"id": "42", "username": "alice"}]},
			"meta": {"result_count": 1}
		}`))
	})

	resp, err := tc.SearchRecent(context.Background(), "#myriad")

	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "alice", resp.Includes.Users[0].Username)
}

func TestTwitterClient_EmptySearch(t *testing.T) {
	tc := newTestTwitterClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"meta": {"result_count": 0}}`))
	})

	resp, err := tc.SearchRecent(context.Background(), "nothing")

	require.NoError(t, err)
	assert.Empty(t, resp.Data)
}

func TestTwitterClient_APIError(t *testing.T) {
	tc := newTestTwitterClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors": [{"title": "Invalid Request", "detail": "bad query"}]}`))
	})

	_, err := tc.UserTweets(context.Background(), "42")

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, ReasonAPIError, fe.Reason)
	assert.Contains(t, fe.Error(), "bad query")
}

func TestTwitterClient_GetUser(t *testing.T) {
	tc := newTestTwitterClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/42":
			_, _ = w.Write([]byte(`{"data": {"id": "42", "name": "Alice", "username": "alice"}}`))
		default:
			_, _ = w.Write([]byte(`{"errors": [{"title": "Not Found Error"}]}`))
		}
	})

	user, err := tc.GetUser(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = tc.GetUser(context.Background(), "404")
	reason, _ := FetchReasonOf(err)
	assert.Equal(t, ReasonAPIError, reason)
}
