// Package processing runs the scheduled ingestion ticks for each platform.
package processing

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/spacesedan/myriadflow/internal/db"
	"github.com/spacesedan/myriadflow/internal/ingest"
	"github.com/spacesedan/myriadflow/internal/models"
	"github.com/spacesedan/myriadflow/internal/normalize"
	"golang.org/x/sync/errgroup"
)

const DEFAULT_INGEST_WORKERS = 4

type Store interface {
	ListTags(ctx context.Context) ([]models.Tag, error)
	ListPeople(ctx context.Context, platform models.Platform) ([]models.People, error)
	FindCredentialByPeople(ctx context.Context, peopleID string) (*models.UserCredential, error)
}

type Ingester interface {
	Ingest(ctx context.Context, candidate models.CandidatePost, credential *models.UserCredential) (ingest.Result, error)
}

type RedditSource interface {
	SearchPosts(ctx context.Context, keyword string) (*models.RedditListing, error)
	UserPosts(ctx context.Context, username string) (*models.RedditListing, error)
}

type TwitterSource interface {
	SearchRecent(ctx context.Context, hashtag string) (*models.TwitterSearchResponse, error)
	UserTweets(ctx context.Context, userID string) (*models.TwitterSearchResponse, error)
	GetUser(ctx context.Context, id string) (*models.TwitterUser, error)
}

type FacebookSource interface {
	FetchFacebookFeed(ctx context.Context, accountID string) ([]byte, error)
}

// TickStats summarizes one ingestion tick.
type TickStats struct {
	Sources    int
	Fetched    int
	Created    int
	Duplicates int
	Failed     int
}

func (s *TickStats) add(o TickStats) {
	s.Sources += o.Sources
	s.Fetched += o.Fetched
	s.Created += o.Created
	s.Duplicates += o.Duplicates
	s.Failed += o.Failed
}

// source is one tag or tracked account polled during a tick.
type source struct {
	name   string
	people *models.People
	fetch  func(ctx context.Context) ([]models.CandidatePost, int, error)
}

type Orchestrator struct {
	store    Store
	ingester Ingester
	reddit   RedditSource
	twitter  TwitterSource
	facebook FacebookSource
	workers  int
	now      func() time.Time
}

type Option func(*Orchestrator)

func WithReddit(c RedditSource) Option     { return func(o *Orchestrator) { o.reddit = c } }
func WithTwitter(c TwitterSource) Option   { return func(o *Orchestrator) { o.twitter = c } }
func WithFacebook(c FacebookSource) Option { return func(o *Orchestrator) { o.facebook = c } }

func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func NewOrchestrator(store Store, ingester Ingester, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:    store,
		ingester: ingester,
		workers:  DEFAULT_INGEST_WORKERS,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunReddit searches every subscribed tag, then pulls the submissions of
// every tracked Reddit account.
func (o *Orchestrator) RunReddit(ctx context.Context) (TickStats, error) {
	if o.reddit == nil {
		return TickStats{}, errors.New("reddit source not configured")
	}
	var sources []source

	tags, err := o.store.ListTags(ctx)
	if err != nil {
		slog.Error("[Orchestrator] Failed to list tags", slog.String("error", err.Error()))
	}
	for _, tag := range tags {
		sources = append(sources, source{
			name: "reddit tag " + tag.ID,
			fetch: func(ctx context.Context) ([]models.CandidatePost, int, error) {
				listing, err := o.reddit.SearchPosts(ctx, tag.ID)
				if err != nil {
					return nil, 0, err
				}
				return o.redditCandidates(listing, normalize.Context{Tag: tag.ID})
			},
		})
	}

	accounts := o.accounts(ctx, models.PlatformReddit)
	for _, acct := range accounts {
		sources = append(sources, source{
			name:   "reddit account " + acct.Username,
			people: &acct,
			fetch: func(ctx context.Context) ([]models.CandidatePost, int, error) {
				listing, err := o.reddit.UserPosts(ctx, acct.Username)
				if err != nil {
					return nil, 0, err
				}
				return o.redditCandidates(listing, normalize.Context{People: &acct})
			},
		})
	}

	return o.run(ctx, "reddit", sources), nil
}

func (o *Orchestrator) redditCandidates(listing *models.RedditListing, nctx normalize.Context) ([]models.CandidatePost, int, error) {
	nctx.Now = o.now().UTC()
	posts := normalize.RedditPosts(listing)
	out := make([]models.CandidatePost, 0, len(posts))
	failed := 0
	for _, p := range posts {
		c, err := normalize.RedditPost(p, nctx)
		if err != nil {
			slog.Warn("[Orchestrator] Skipping reddit post", slog.String("error", err.Error()))
			failed++
			continue
		}
		out = append(out, c)
	}
	return out, failed, nil
}

// RunTwitter searches every subscribed tag as a hashtag, then pulls the
// timeline of every tracked Twitter account.
func (o *Orchestrator) RunTwitter(ctx context.Context) (TickStats, error) {
	if o.twitter == nil {
		return TickStats{}, errors.New("twitter source not configured")
	}
	var sources []source

	tags, err := o.store.ListTags(ctx)
	if err != nil {
		slog.Error("[Orchestrator] Failed to list tags", slog.String("error", err.Error()))
	}
	for _, tag := range tags {
		sources = append(sources, source{
			name: "twitter tag " + tag.ID,
			fetch: func(ctx context.Context) ([]models.CandidatePost, int, error) {
				resp, err := o.twitter.SearchRecent(ctx, tag.ID)
				if err != nil {
					return nil, 0, err
				}
				return o.twitterCandidates(ctx, resp, normalize.Context{Tag: tag.ID})
			},
		})
	}

	for _, acct := range o.accounts(ctx, models.PlatformTwitter) {
		sources = append(sources, source{
			name:   "twitter account " + acct.Username,
			people: &acct,
			fetch: func(ctx context.Context) ([]models.CandidatePost, int, error) {
				resp, err := o.twitter.UserTweets(ctx, acct.PlatformAccountID)
				if err != nil {
					return nil, 0, err
				}
				return o.twitterCandidates(ctx, resp, normalize.Context{People: &acct})
			},
		})
	}

	return o.run(ctx, "twitter", sources), nil
}

func (o *Orchestrator) twitterCandidates(ctx context.Context, resp *models.TwitterSearchResponse, nctx normalize.Context) ([]models.CandidatePost, int, error) {
	if resp == nil {
		return nil, 0, nil
	}
	nctx.Now = o.now().UTC()
	authors := normalize.Authors(resp)
	tweets := normalize.OriginalTweets(resp.Data)
	out := make([]models.CandidatePost, 0, len(tweets))
	failed := 0

	for _, tweet := range tweets {
		author, ok := authors[tweet.AuthorID]
		if !ok {
			user, err := o.twitter.GetUser(ctx, tweet.AuthorID)
			if err != nil {
				slog.Warn("[Orchestrator] Could not resolve tweet author",
					slog.String("tweet_id", tweet.ID),
					slog.String("error", err.Error()))
				failed++
				continue
			}
			author = *user
			authors[tweet.AuthorID] = author
		}
		c, err := normalize.Tweet(tweet, &author, nctx)
		if err != nil {
			slog.Warn("[Orchestrator] Skipping tweet", slog.String("error", err.Error()))
			failed++
			continue
		}
		out = append(out, c)
	}
	return out, failed, nil
}

// RunFacebook reads the RSS feed of every tracked Facebook page.
func (o *Orchestrator) RunFacebook(ctx context.Context) (TickStats, error) {
	if o.facebook == nil {
		return TickStats{}, errors.New("facebook source not configured")
	}
	var sources []source
	for _, acct := range o.accounts(ctx, models.PlatformFacebook) {
		sources = append(sources, source{
			name:   "facebook page " + acct.PlatformAccountID,
			people: &acct,
			fetch: func(ctx context.Context) ([]models.CandidatePost, int, error) {
				raw, err := o.facebook.FetchFacebookFeed(ctx, acct.PlatformAccountID)
				if err != nil {
					return nil, 0, err
				}
				feed, err := normalize.ParseFeed(raw)
				if err != nil {
					return nil, 0, err
				}
				nctx := normalize.Context{Now: o.now().UTC(), People: &acct}
				out := make([]models.CandidatePost, 0, len(feed.Items))
				failed := 0
				for _, item := range feed.Items {
					c, err := normalize.FacebookItem(item, nctx)
					if err != nil {
						slog.Warn("[Orchestrator] Skipping feed item", slog.String("error", err.Error()))
						failed++
						continue
					}
					out = append(out, c)
				}
				return out, failed, nil
			},
		})
	}
	return o.run(ctx, "facebook", sources), nil
}

func (o *Orchestrator) accounts(ctx context.Context, platform models.Platform) []models.People {
	accounts, err := o.store.ListPeople(ctx, platform)
	if err != nil {
		slog.Error("[Orchestrator] Failed to list tracked accounts",
			slog.String("platform", string(platform)),
			slog.String("error", err.Error()))
		return nil
	}
	return accounts
}

// run polls sources on a bounded pool. Items of one source are committed in
// listing order; a failing source never stops the others.
func (o *Orchestrator) run(ctx context.Context, platform string, sources []source) TickStats {
	start := time.Now()
	var (
		total TickStats
		mu    sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for _, src := range sources {
		g.Go(func() error {
			stats := o.poll(gctx, src)
			mu.Lock()
			total.add(stats)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	slog.Info("[Orchestrator] Tick finished",
		slog.String("platform", platform),
		slog.Int("sources", total.Sources),
		slog.Int("fetched", total.Fetched),
		slog.Int("created", total.Created),
		slog.Int("duplicates", total.Duplicates),
		slog.Int("failed", total.Failed),
		slog.Duration("duration", time.Since(start)))
	return total
}

func (o *Orchestrator) poll(ctx context.Context, src source) TickStats {
	stats := TickStats{Sources: 1}

	candidates, failed, err := src.fetch(ctx)
	stats.Failed += failed
	if err != nil {
		slog.Warn("[Orchestrator] Fetch failed, skipping source",
			slog.String("source", src.name),
			slog.String("error", err.Error()))
		stats.Failed++
		return stats
	}
	stats.Fetched = len(candidates) + failed

	credential := o.credential(ctx, src.people)
	for _, c := range candidates {
		if ctx.Err() != nil {
			slog.Warn("[Orchestrator] Context cancelled, stopping source",
				slog.String("source", src.name))
			return stats
		}
		res, err := o.ingester.Ingest(ctx, c, credential)
		switch {
		case err != nil:
			slog.Warn("[Orchestrator] Failed to ingest item",
				slog.String("source", src.name),
				slog.String("key", c.NaturalKey()),
				slog.String("error", err.Error()))
			stats.Failed++
		case res.Outcome == ingest.OutcomeCreated:
			stats.Created++
		case res.Outcome == ingest.OutcomeDuplicate:
			stats.Duplicates++
		}
	}
	return stats
}

func (o *Orchestrator) credential(ctx context.Context, people *models.People) *models.UserCredential {
	if people == nil {
		return nil
	}
	cred, err := o.store.FindCredentialByPeople(ctx, people.ID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			slog.Warn("[Orchestrator] Credential lookup failed",
				slog.String("people_id", people.ID),
				slog.String("error", err.Error()))
		}
		return nil
	}
	return cred
}
