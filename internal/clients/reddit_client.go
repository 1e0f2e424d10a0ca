package clients

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/spacesedan/myriadflow/config"
	"github.com/spacesedan/myriadflow/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	REDDIT_AUTH_URL     = "https://www.reddit.com/api/v1/access_token"
	REDDIT_API_URL      = "https://oauth.reddit.com/"
	REDDIT_SEARCH_LIMIT = 20
	REDDIT_USER_LIMIT   = 25
)

type RedditClient struct {
	Config  *clientcredentials.Config
	Client  *http.Client
	baseURL string
	fetcher *httpFetcher
	mu      sync.Mutex
}

type RedditOption func(*RedditClient)

func WithRedditBaseURL(u string) RedditOption {
	return func(rc *RedditClient) { rc.baseURL = u }
}

// WithRedditHTTPClient replaces the OAuth2 client. Token refresh is disabled.
func WithRedditHTTPClient(c *http.Client) RedditOption {
	return func(rc *RedditClient) {
		rc.Config = nil
		rc.Client = c
	}
}

func NewRedditClient(cfg config.RedditConfig, opts ...RedditOption) *RedditClient {
	oauthConf := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     REDDIT_AUTH_URL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	rc := &RedditClient{
		Config:  oauthConf,
		Client:  oauthConf.Client(context.Background()),
		baseURL: REDDIT_API_URL,
		fetcher: newHTTPFetcher("RedditClient", cfg.RPS),
	}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

func (rc *RedditClient) RefreshClient() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.Config == nil {
		return
	}
	rc.Client = rc.Config.Client(context.Background())
}

func (rc *RedditClient) httpClient() *http.Client {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.Client
}

// SearchPosts returns the newest posts matching keyword across Reddit.
func (rc *RedditClient) SearchPosts(ctx context.Context, keyword string) (*models.RedditListing, error) {
	q := url.Values{}
	q.Set("q", keyword)
	q.Set("sort", "new")
	q.Set("limit", strconv.Itoa(REDDIT_SEARCH_LIMIT))
	return rc.getListing(ctx, "search", q)
}

// UserPosts returns the newest submissions of a Reddit user. Both "u/name"
// and "name" are accepted.
func (rc *RedditClient) UserPosts(ctx context.Context, username string) (*models.RedditListing, error) {
	name := strings.TrimPrefix(strings.TrimPrefix(username, "/"), "u/")
	q := url.Values{}
	q.Set("sort", "new")
	q.Set("limit", strconv.Itoa(REDDIT_USER_LIMIT))
	return rc.getListing(ctx, "user/"+url.PathEscape(name)+"/submitted", q)
}

func (rc *RedditClient) getListing(ctx context.Context, path string, q url.Values) (*models.RedditListing, error) {
	u := strings.TrimRight(rc.baseURL, "/") + "/" + path + "?" + q.Encode()

	body, err := rc.fetcher.get(ctx, rc.httpClient(), u, nil)
	if reason, ok := FetchReasonOf(err); ok && reason == ReasonUnauthorized && rc.Config != nil {
		slog.Warn("[RedditClient] Token expired - Refreshing and Retrying...")
		rc.RefreshClient()
		body, err = rc.fetcher.get(ctx, rc.httpClient(), u, nil)
	}
	if err != nil {
		return nil, err
	}

	var listing models.RedditListing
	if err := decodeJSON("RedditClient", body, &listing); err != nil {
		return nil, err
	}
	if listing.Kind != "" && listing.Kind != "Listing" {
		return nil, &FetchError{Source: "RedditClient", Reason: ReasonMalformed,
			Err: errors.New("unexpected kind " + listing.Kind)}
	}
	return &listing, nil
}
