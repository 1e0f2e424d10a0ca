package clients

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/spacesedan/myriadflow/config"
	"github.com/spacesedan/myriadflow/internal/models"
	"golang.org/x/oauth2"
)

const (
	TWITTER_API_URL     = "https://api.twitter.com/2/"
	TWITTER_MAX_RESULTS = "10"
	TWITTER_FIELDS      = "referenced_tweets,attachments,entities,created_at"
)

type TwitterClient struct {
	Client  *http.Client
	baseURL string
	fetcher *httpFetcher
}

type TwitterOption func(*TwitterClient)

func WithTwitterBaseURL(u string) TwitterOption {
	return func(tc *TwitterClient) { tc.baseURL = u }
}

func WithTwitterHTTPClient(c *http.Client) TwitterOption {
	return func(tc *TwitterClient) { tc.Client = c }
}

func NewTwitterClient(cfg config.TwitterConfig, opts ...TwitterOption) *TwitterClient {
	ts := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: cfg.BearerToken,
		TokenType:   "Bearer",
	})
	tc := &TwitterClient{
		Client:  oauth2.NewClient(context.Background(), ts),
		baseURL: TWITTER_API_URL,
		fetcher: newHTTPFetcher("TwitterClient", cfg.RPS),
	}
	for _, opt := range opts {
		opt(tc)
	}
	return tc
}

// SearchRecent searches the last week of tweets for a hashtag. The leading
// '#' is optional.
func (tc *TwitterClient) SearchRecent(ctx context.Context, hashtag string) (*models.TwitterSearchResponse, error) {
	q := tweetQuery()
	q.Set("query", "#"+strings.TrimLeft(hashtag, "#"))
	return tc.getTweets(ctx, "tweets/search/recent", q)
}

func (tc *TwitterClient) UserTweets(ctx context.Context, userID string) (*models.TwitterSearchResponse, error) {
	return tc.getTweets(ctx, "users/"+url.PathEscape(userID)+"/tweets", tweetQuery())
}

func (tc *TwitterClient) GetUser(ctx context.Context, id string) (*models.TwitterUser, error) {
	body, err := tc.fetcher.get(ctx, tc.Client, tc.url("users/"+url.PathEscape(id), nil), nil)
	if err != nil {
		return nil, err
	}
	var resp models.TwitterUserResponse
	if err := decodeJSON("TwitterClient", body, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, &FetchError{Source: "TwitterClient", Reason: ReasonAPIError, Err: apiError(resp.Errors)}
	}
	return resp.Data, nil
}

func (tc *TwitterClient) getTweets(ctx context.Context, path string, q url.Values) (*models.TwitterSearchResponse, error) {
	body, err := tc.fetcher.get(ctx, tc.Client, tc.url(path, q), nil)
	if err != nil {
		return nil, err
	}
	var resp models.TwitterSearchResponse
	if err := decodeJSON("TwitterClient", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 && len(resp.Data) == 0 {
		return nil, &FetchError{Source: "TwitterClient", Reason: ReasonAPIError, Err: apiError(resp.Errors)}
	}
	return &resp, nil
}

func (tc *TwitterClient) url(path string, q url.Values) string {
	u := strings.TrimRight(tc.baseURL, "/") + "/" + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func tweetQuery() url.Values {
	q := url.Values{}
	q.Set("max_results", TWITTER_MAX_RESULTS)
	q.Set("tweet.fields", TWITTER_FIELDS)
	q.Set("expansions", "author_id")
	q.Set("user.fields", "username")
	return q
}

func apiError(errs []models.TwitterAPIError) error {
	if len(errs) == 0 {
		return errors.New("response carried no data")
	}
	if errs[0].Detail != "" {
		return errors.New(errs[0].Detail)
	}
	return errors.New(errs[0].Title)
}
