// Package dedup answers whether a (platform, text id) pair was ingested
// before.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/spacesedan/myriadflow/internal/db"
	"github.com/spacesedan/myriadflow/internal/models"
)

// SeenCache is a fast, non-authoritative record of committed natural keys.
type SeenCache interface {
	IsPostProcessed(ctx context.Context, source, key string) (bool, error)
	MarkProcessed(ctx context.Context, source, key string) error
}

type PostFinder interface {
	FindPost(ctx context.Context, platform models.Platform, textID string) (*models.Post, error)
}

// Gate checks the cache first while it is healthy and falls back to the
// store, which alone can answer "not seen".
type Gate struct {
	store   PostFinder
	cache   SeenCache
	healthy *atomic.Bool
}

// NewGate builds a gate. cache and healthy may be nil, in which case every
// lookup goes to the store.
func NewGate(store PostFinder, cache SeenCache, healthy *atomic.Bool) *Gate {
	return &Gate{store: store, cache: cache, healthy: healthy}
}

func (g *Gate) cacheUsable() bool {
	return g.cache != nil && (g.healthy == nil || g.healthy.Load())
}

func (g *Gate) Exists(ctx context.Context, platform models.Platform, textID string) (bool, error) {
	key := models.NaturalKey(platform, textID)

	if g.cacheUsable() {
		seen, err := g.cache.IsPostProcessed(ctx, string(platform), key)
		if err != nil {
			slog.Warn("[DedupGate] Cache lookup failed, falling back to store",
				slog.String("key", key),
				slog.String("error", err.Error()))
		} else if seen {
			return true, nil
		}
	}

	_, err := g.store.FindPost(ctx, platform, textID)
	switch {
	case err == nil:
		g.MarkSeen(ctx, platform, textID)
		return true, nil
	case errors.Is(err, db.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("dedup lookup %s: %w", key, err)
	}
}

// MarkSeen records a committed key in the cache. Failures only cost a store
// lookup later, so they are logged and dropped.
func (g *Gate) MarkSeen(ctx context.Context, platform models.Platform, textID string) {
	if !g.cacheUsable() {
		return
	}
	key := models.NaturalKey(platform, textID)
	if err := g.cache.MarkProcessed(ctx, string(platform), key); err != nil {
		slog.Warn("[DedupGate] Failed to mark key as seen",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
}
