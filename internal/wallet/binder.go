// Package wallet binds a deterministic wallet address to every stored post.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spacesedan/myriadflow/internal/db"
	"github.com/spacesedan/myriadflow/internal/models"
)

const DefaultDeriveTimeout = 5 * time.Second

var (
	ErrDerivationTimeout = errors.New("wallet derivation timed out")
	ErrNotPersisted      = errors.New("post has no id")
)

// Deriver maps a post id to a wallet address. Implementations must be
// deterministic.
type Deriver interface {
	Derive(ctx context.Context, id string) (string, error)
}

type PostUpdater interface {
	UpdatePost(ctx context.Context, id string, patch db.PostPatch) error
}

type UnboundLister interface {
	ListUnboundPosts(ctx context.Context, limit int) ([]models.Post, error)
}

type Binder struct {
	deriver Deriver
	updater PostUpdater
	lister  UnboundLister
	timeout time.Duration
}

func NewBinder(deriver Deriver, updater PostUpdater, lister UnboundLister, timeout time.Duration) *Binder {
	if timeout <= 0 {
		timeout = DefaultDeriveTimeout
	}
	return &Binder{deriver: deriver, updater: updater, lister: lister, timeout: timeout}
}

// Bind derives the address for a persisted post and stores it. On success
// post.WalletAddress is set.
func (b *Binder) Bind(ctx context.Context, post *models.Post) error {
	if post == nil || post.ID == "" {
		return ErrNotPersisted
	}

	address, err := b.derive(ctx, post.ID)
	if err != nil {
		return err
	}

	if err := b.updater.UpdatePost(ctx, post.ID, db.PostPatch{WalletAddress: &address}); err != nil {
		return fmt.Errorf("persist wallet for post %s: %w", post.ID, err)
	}
	post.WalletAddress = address
	return nil
}

func (b *Binder) derive(ctx context.Context, id string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	type result struct {
		address string
		err     error
	}
	done := make(chan result, 1)
	go func() {
		address, err := b.deriver.Derive(ctx, id)
		done <- result{address, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("derive wallet for post %s: %w", id, r.err)
		}
		return r.address, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: post %s", ErrDerivationTimeout, id)
		}
		return "", ctx.Err()
	}
}

// Repair binds stored posts that are still missing an address, for example
// because a derivation timed out at ingestion. It returns how many posts were
// bound.
func (b *Binder) Repair(ctx context.Context, limit int) (int, error) {
	posts, err := b.lister.ListUnboundPosts(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list unbound posts: %w", err)
	}

	bound := 0
	for i := range posts {
		if ctx.Err() != nil {
			return bound, ctx.Err()
		}
		if err := b.Bind(ctx, &posts[i]); err != nil {
			slog.Error("[WalletBinder] Repair failed for post",
				slog.String("post_id", posts[i].ID),
				slog.String("error", err.Error()))
			continue
		}
		bound++
	}

	if len(posts) > 0 {
		slog.Info("[WalletBinder] Repair pass finished",
			slog.Int("candidates", len(posts)),
			slog.Int("bound", bound))
	}
	return bound, nil
}
