package tags

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spacesedan/myriadflow/internal/models"
	"github.com/spacesedan/myriadflow/internal/normalize"
)

type TwitterSearcher interface {
	SearchRecent(ctx context.Context, hashtag string) (*models.TwitterSearchResponse, error)
	GetUser(ctx context.Context, id string) (*models.TwitterUser, error)
}

type RedditSearcher interface {
	SearchPosts(ctx context.Context, keyword string) (*models.RedditListing, error)
}

type FeedFetcher interface {
	FetchFacebookFeed(ctx context.Context, accountID string) ([]byte, error)
}

type PeopleLister interface {
	ListPeople(ctx context.Context, platform models.Platform) ([]models.People, error)
}

// TwitterStrategy searches recent tweets for #keyword and hands back the
// original tweets for ingestion.
type TwitterStrategy struct {
	client TwitterSearcher
	now    func() time.Time
}

func NewTwitterStrategy(client TwitterSearcher, now func() time.Time) *TwitterStrategy {
	if now == nil {
		now = time.Now
	}
	return &TwitterStrategy{client: client, now: now}
}

func (s *TwitterStrategy) Name() string { return "twitter" }

func (s *TwitterStrategy) Search(ctx context.Context, keyword string) (Found, error) {
	resp, err := s.client.SearchRecent(ctx, keyword)
	if err != nil || resp == nil {
		return Found{}, err
	}

	found := Found{Total: len(resp.Data)}
	authors := normalize.Authors(resp)
	nctx := normalize.Context{Now: s.now().UTC(), Tag: keyword}

	for _, tweet := range normalize.OriginalTweets(resp.Data) {
		author, ok := authors[tweet.AuthorID]
		if !ok {
			user, err := s.client.GetUser(ctx, tweet.AuthorID)
			if err != nil {
				slog.Warn("[TagResolver] Could not resolve tweet author",
					slog.String("tweet_id", tweet.ID),
					slog.String("error", err.Error()))
				continue
			}
			author = *user
			authors[tweet.AuthorID] = author
		}

		c, err := normalize.Tweet(tweet, &author, nctx)
		if err != nil {
			slog.Warn("[TagResolver] Skipping tweet", slog.String("error", err.Error()))
			continue
		}
		found.Candidates = append(found.Candidates, c)
	}
	return found, nil
}

// FacebookStrategy scans the feeds of tracked Facebook pages for items
// mentioning the keyword.
type FacebookStrategy struct {
	client FeedFetcher
	people PeopleLister
}

func NewFacebookStrategy(client FeedFetcher, people PeopleLister) *FacebookStrategy {
	return &FacebookStrategy{client: client, people: people}
}

func (s *FacebookStrategy) Name() string { return "facebook" }

func (s *FacebookStrategy) Search(ctx context.Context, keyword string) (Found, error) {
	accounts, err := s.people.ListPeople(ctx, models.PlatformFacebook)
	if err != nil {
		return Found{}, fmt.Errorf("list facebook accounts: %w", err)
	}

	var (
		found   Found
		lastErr error
	)
	for _, acct := range accounts {
		raw, err := s.client.FetchFacebookFeed(ctx, acct.PlatformAccountID)
		if err != nil {
			lastErr = err
			continue
		}
		feed, err := normalize.ParseFeed(raw)
		if err != nil {
			lastErr = err
			continue
		}
		for _, item := range feed.Items {
			text := strings.ToLower(item.Title + " " + item.Description)
			if strings.Contains(text, keyword) {
				found.Total++
			}
		}
		if found.Total > 0 {
			return found, nil
		}
	}
	return found, lastErr
}

type RedditStrategy struct {
	client RedditSearcher
}

func NewRedditStrategy(client RedditSearcher) *RedditStrategy {
	return &RedditStrategy{client: client}
}

func (s *RedditStrategy) Name() string { return "reddit" }

func (s *RedditStrategy) Search(ctx context.Context, keyword string) (Found, error) {
	listing, err := s.client.SearchPosts(ctx, keyword)
	if err != nil {
		return Found{}, err
	}
	return Found{Total: len(normalize.RedditPosts(listing))}, nil
}
