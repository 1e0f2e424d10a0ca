// Package tags resolves free-form keywords into stored tags, discovering
// new ones by searching the connected platforms.
package tags

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spacesedan/myriadflow/internal/db"
	"github.com/spacesedan/myriadflow/internal/ingest"
	"github.com/spacesedan/myriadflow/internal/models"
)

var ErrEmptyTag = errors.New("tag keyword is empty")

// Found is what a strategy saw for a keyword. Total counts raw platform
// results; Candidates are the items worth ingesting, already tagged.
type Found struct {
	Total      int
	Candidates []models.CandidatePost
}

type Strategy interface {
	Name() string
	Search(ctx context.Context, keyword string) (Found, error)
}

type TagStore interface {
	FindTag(ctx context.Context, id string) (*models.Tag, error)
}

type TagCreator interface {
	CreateTag(ctx context.Context, tag *models.Tag) error
}

type Ingester interface {
	Ingest(ctx context.Context, candidate models.CandidatePost, credential *models.UserCredential) (ingest.Result, error)
}

type Resolver struct {
	store      TagStore
	creator    TagCreator
	ingester   Ingester
	strategies []Strategy
}

// NewResolver builds a resolver that tries strategies in the given order.
func NewResolver(store TagStore, creator TagCreator, ingester Ingester, strategies ...Strategy) *Resolver {
	return &Resolver{store: store, creator: creator, ingester: ingester, strategies: strategies}
}

// Resolve returns the tag for keyword. An unknown keyword becomes a tag as
// soon as one strategy finds content for it; when none does, Resolve returns
// nil and stores nothing.
func (r *Resolver) Resolve(ctx context.Context, keyword string) (*models.Tag, error) {
	id := models.NormalizeTagID(keyword)
	if id == "" {
		return nil, ErrEmptyTag
	}

	existing, err := r.store.FindTag(ctx, id)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("find tag %s: %w", id, err)
	}

	for _, s := range r.strategies {
		found, err := s.Search(ctx, id)
		if err != nil {
			slog.Warn("[TagResolver] Strategy failed, trying next",
				slog.String("strategy", s.Name()),
				slog.String("tag", id),
				slog.String("error", err.Error()))
			continue
		}
		if found.Total == 0 {
			continue
		}

		tag, err := r.create(ctx, id)
		if err != nil {
			return nil, err
		}
		r.ingest(ctx, s.Name(), found.Candidates)

		slog.Info("[TagResolver] Tag resolved",
			slog.String("tag", id),
			slog.String("strategy", s.Name()),
			slog.Int("results", found.Total))
		return tag, nil
	}

	slog.Info("[TagResolver] No platform has content for tag", slog.String("tag", id))
	return nil, nil
}

func (r *Resolver) create(ctx context.Context, id string) (*models.Tag, error) {
	tag := &models.Tag{ID: id, Hide: false}
	err := r.creator.CreateTag(ctx, tag)
	if errors.Is(err, db.ErrConflict) {
		return r.store.FindTag(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("create tag %s: %w", id, err)
	}
	return tag, nil
}

func (r *Resolver) ingest(ctx context.Context, strategy string, candidates []models.CandidatePost) {
	if r.ingester == nil {
		return
	}
	created := 0
	for _, c := range candidates {
		res, err := r.ingester.Ingest(ctx, c, nil)
		if err != nil {
			slog.Warn("[TagResolver] Failed to ingest search result",
				slog.String("strategy", strategy),
				slog.String("key", c.NaturalKey()),
				slog.String("error", err.Error()))
			continue
		}
		if res.Outcome == ingest.OutcomeCreated {
			created++
		}
	}
	if len(candidates) > 0 {
		slog.Info("[TagResolver] Ingested search results",
			slog.String("strategy", strategy),
			slog.Int("candidates", len(candidates)),
			slog.Int("created", created))
	}
}

// Register makes sure every id exists as a tag without searching any
// platform. It backs the post creation cascade.
func (r *Resolver) Register(ctx context.Context, ids []string) error {
	var errs []error
	for _, raw := range ids {
		id := models.NormalizeTagID(raw)
		if id == "" {
			continue
		}
		_, err := r.store.FindTag(ctx, id)
		if err == nil {
			continue
		}
		if !errors.Is(err, db.ErrNotFound) {
			errs = append(errs, fmt.Errorf("find tag %s: %w", id, err))
			continue
		}
		if err := r.creator.CreateTag(ctx, &models.Tag{ID: id}); err != nil && !errors.Is(err, db.ErrConflict) {
			errs = append(errs, fmt.Errorf("create tag %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
