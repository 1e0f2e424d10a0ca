// Package app wires configuration into a running ingestion service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/spacesedan/myriadflow/config"
	"github.com/spacesedan/myriadflow/internal/clients"
	"github.com/spacesedan/myriadflow/internal/db"
	"github.com/spacesedan/myriadflow/internal/dedup"
	"github.com/spacesedan/myriadflow/internal/dispatcher"
	"github.com/spacesedan/myriadflow/internal/ingest"
	"github.com/spacesedan/myriadflow/internal/monitoring"
	"github.com/spacesedan/myriadflow/internal/processing"
	"github.com/spacesedan/myriadflow/internal/producer"
	"github.com/spacesedan/myriadflow/internal/scheduler"
	"github.com/spacesedan/myriadflow/internal/tags"
	"github.com/spacesedan/myriadflow/internal/utils"
	"github.com/spacesedan/myriadflow/internal/wallet"
)

const REPAIR_BATCH_SIZE = 100

type App struct {
	Config       config.Config
	Store        db.Store
	Dispatcher   *dispatcher.Dispatcher
	Pipeline     *ingest.Pipeline
	Binder       *wallet.Binder
	Resolver     *tags.Resolver
	Orchestrator *processing.Orchestrator

	queue        *dispatcher.WorkQueue
	valkey       *clients.ValkeyClient
	kafka        *clients.KafkaProducer
	publisher    *producer.Publisher
	cacheHealthy atomic.Bool
	background   sync.WaitGroup
	stop         context.CancelFunc
}

// New connects every configured dependency. Optional dependencies that are
// not configured (Valkey, Kafka, Reddit, Twitter, rewards) are left out.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{Config: cfg}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Store = store

	if cfg.Valkey.Address != "" {
		vc, err := clients.NewValkeyClient(ctx, cfg.Valkey)
		if err != nil {
			slog.Warn("[App] Valkey unavailable, dedup will use the store only",
				slog.String("error", err.Error()))
		} else {
			a.valkey = vc
		}
	}

	if cfg.Kafka.Broker != "" {
		kp, err := clients.NewKafkaProducer(ctx, cfg.Kafka)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.kafka = kp
		a.publisher = producer.NewPublisher(kp, utils.BATCH_SIZE, utils.BATCH_TIMEOUT)
	}

	a.queue = dispatcher.NewWorkQueue(cfg.Cascade.Workers, cfg.Cascade.QueueSize, cfg.Cascade.Timeout, nil)
	a.Dispatcher = dispatcher.New(store, a.queue, nil)

	deriver, err := wallet.NewSS58Deriver(cfg.Wallet.SS58Prefix)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Binder = wallet.NewBinder(deriver, a.Dispatcher, store, cfg.Wallet.DeriveTimeout)

	var gate *dedup.Gate
	if a.valkey != nil {
		gate = dedup.NewGate(store, a.valkey, &a.cacheHealthy)
	} else {
		gate = dedup.NewGate(store, nil, nil)
	}
	a.Pipeline = ingest.NewPipeline(gate, a.Dispatcher, a.Binder)

	rsshub := clients.NewRSSHubClient(cfg.RSSHub, nil)
	orchOpts := []processing.Option{
		processing.WithFacebook(rsshub),
		processing.WithWorkers(cfg.Ingest.Workers),
	}
	var strategies []tags.Strategy

	var twitter *clients.TwitterClient
	if cfg.Twitter.BearerToken != "" {
		twitter = clients.NewTwitterClient(cfg.Twitter)
		orchOpts = append(orchOpts, processing.WithTwitter(twitter))
		strategies = append(strategies, tags.NewTwitterStrategy(twitter, nil))
	}
	strategies = append(strategies, tags.NewFacebookStrategy(rsshub, store))
	if cfg.Reddit.ClientID != "" {
		reddit := clients.NewRedditClient(cfg.Reddit)
		orchOpts = append(orchOpts, processing.WithReddit(reddit))
		strategies = append(strategies, tags.NewRedditStrategy(reddit))
	}

	a.Resolver = tags.NewResolver(store, a.Dispatcher, a.Pipeline, strategies...)
	a.Orchestrator = processing.NewOrchestrator(store, a.Pipeline, orchOpts...)

	deps := dispatcher.EffectDeps{Tags: a.Resolver}
	if cfg.Reward.BaseURL != "" {
		deps.Rewards = clients.NewRewardClient(cfg.Reward, nil)
	}
	if a.publisher != nil {
		deps.Publisher = a.publisher
	}
	for key, effects := range dispatcher.DefaultCascades(deps) {
		a.Dispatcher.Register(key, effects...)
	}

	return a, nil
}

func openStore(ctx context.Context, cfg config.Config) (db.Store, error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		slog.Warn("[App] Using in-memory store, data is lost on exit")
		return db.NewMemoryStore(), nil

	case config.BackendPostgres:
		pool, err := clients.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		store := db.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil

	case config.BackendDynamoDB:
		awsCfg, err := clients.LoadAWSConfig(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		store := db.NewDynamoStore(clients.NewDynamoDBClient(awsCfg, cfg.AWSEndpoint))
		if err := store.EnsureTables(ctx); err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}

// Jobs returns the periodic jobs of the ingestion service.
func (a *App) Jobs() []scheduler.Job {
	ing := a.Config.Ingest
	jobs := []scheduler.Job{
		{
			Name:     "facebook-ingest",
			Interval: ing.FacebookInterval,
			Timeout:  ing.TickTimeout,
			Run:      tick(a.Orchestrator.RunFacebook),
		},
		{
			Name:     "wallet-repair",
			Interval: ing.RepairInterval,
			Timeout:  ing.TickTimeout,
			Run: func(ctx context.Context) error {
				n, err := a.Binder.Repair(ctx, REPAIR_BATCH_SIZE)
				if n > 0 {
					slog.Info("[App] Wallet repair bound posts", slog.Int("count", n))
				}
				return err
			},
		},
	}
	if a.Config.Reddit.ClientID != "" {
		jobs = append(jobs, scheduler.Job{
			Name:     "reddit-ingest",
			Interval: ing.RedditInterval,
			Timeout:  ing.TickTimeout,
			Run:      tick(a.Orchestrator.RunReddit),
		})
	}
	if a.Config.Twitter.BearerToken != "" {
		jobs = append(jobs, scheduler.Job{
			Name:     "twitter-ingest",
			Interval: ing.TwitterInterval,
			Timeout:  ing.TickTimeout,
			Run:      tick(a.Orchestrator.RunTwitter),
		})
	}
	return jobs
}

func tick(run func(context.Context) (processing.TickStats, error)) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := run(ctx)
		return err
	}
}

// Start runs the background workers: cascade queue, cache health monitor
// and content publisher. They stop when ctx is cancelled or on Shutdown.
func (a *App) Start(ctx context.Context) {
	ctx, a.stop = context.WithCancel(ctx)
	a.queue.Start()

	if a.valkey != nil {
		a.background.Add(1)
		go func() {
			defer a.background.Done()
			monitoring.MonitorCacheHealth(ctx, a.valkey, a.Config.HealthCheckInterval, &a.cacheHealthy)
		}()
	}
	if a.publisher != nil {
		a.background.Add(1)
		go func() {
			defer a.background.Done()
			a.publisher.Run(ctx)
		}()
	}
}

// Shutdown drains the cascade queue, stops the background workers and
// closes every connection. It gives up waiting once ctx is done.
func (a *App) Shutdown(ctx context.Context) {
	if err := a.queue.Shutdown(ctx); err != nil {
		slog.Warn("[App] Cascade queue did not drain", slog.String("error", err.Error()))
	}
	if a.stop != nil {
		a.stop()
	}

	done := make(chan struct{})
	go func() {
		a.background.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("[App] Background workers did not stop in time", slog.String("error", ctx.Err().Error()))
	}

	if a.publisher != nil {
		_ = a.publisher.Flush(ctx)
	}
	a.Close()
}

func (a *App) Close() {
	if a.kafka != nil {
		a.kafka.Close()
	}
	if a.valkey != nil {
		a.valkey.Close()
	}
	if a.Store != nil {
		a.Store.Close()
	}
}
