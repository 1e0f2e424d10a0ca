package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"
)

// httpFetcher performs rate limited GET requests. Each call is a single
// attempt; a failed source is picked up again by the next scheduled tick.
type httpFetcher struct {
	source  string
	limiter *rate.Limiter
}

func newHTTPFetcher(source string, rps int) *httpFetcher {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &httpFetcher{
		source:  source,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (f *httpFetcher) get(ctx context.Context, client *http.Client, url string, header http.Header) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{Source: f.source, Reason: ReasonNetwork, Err: err}
	}

	body, ferr := f.do(ctx, client, url, header)
	if ferr != nil {
		slog.Warn(fmt.Sprintf("[%s] Request failed", f.source),
			slog.String("url", url),
			slog.String("reason", string(ferr.Reason)),
			slog.Int("status", ferr.StatusCode))
		return nil, ferr
	}
	return body, nil
}

func (f *httpFetcher) do(ctx context.Context, client *http.Client, url string, header http.Header) ([]byte, *FetchError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Source: f.source, Reason: ReasonMalformed, Err: err}
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", USER_AGENT)

	res, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{Source: f.source, Reason: ReasonNetwork, Err: err}
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusOK:
		body, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, &FetchError{Source: f.source, Reason: ReasonNetwork, Err: err}
		}
		return body, nil
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return nil, &FetchError{Source: f.source, Reason: ReasonUnauthorized, StatusCode: res.StatusCode}
	case res.StatusCode == http.StatusTooManyRequests:
		_, _ = io.Copy(io.Discard, res.Body)
		return nil, &FetchError{Source: f.source, Reason: ReasonRateLimited, StatusCode: res.StatusCode}
	default:
		_, _ = io.Copy(io.Discard, res.Body)
		return nil, &FetchError{Source: f.source, Reason: ReasonStatus, StatusCode: res.StatusCode}
	}
}

func decodeJSON(source string, body []byte, out any) error {
	if len(body) == 0 {
		return &FetchError{Source: source, Reason: ReasonEmpty}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &FetchError{Source: source, Reason: ReasonMalformed, Err: err}
	}
	return nil
}
