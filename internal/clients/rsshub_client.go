package clients

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/spacesedan/myriadflow/config"
)

// RSSHubClient reads Facebook page feeds through an RSSHub instance.
type RSSHubClient struct {
	Client  *http.Client
	baseURL string
	fetcher *httpFetcher
}

func NewRSSHubClient(cfg config.RSSHubConfig, client *http.Client) *RSSHubClient {
	if client == nil {
		client = &http.Client{}
	}
	return &RSSHubClient{
		Client:  client,
		baseURL: cfg.BaseURL,
		fetcher: newHTTPFetcher("RSSHubClient", cfg.RPS),
	}
}

// FetchFacebookFeed returns the raw feed document of a Facebook page.
func (c *RSSHubClient) FetchFacebookFeed(ctx context.Context, accountID string) ([]byte, error) {
	u := strings.TrimRight(c.baseURL, "/") + "/facebook/page/" + url.PathEscape(accountID)
	body, err := c.fetcher.get(ctx, c.Client, u, nil)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &FetchError{Source: "RSSHubClient", Reason: ReasonEmpty}
	}
	return body, nil
}
