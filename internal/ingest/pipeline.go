// Package ingest commits one normalized candidate post at a time.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spacesedan/myriadflow/internal/db"
	"github.com/spacesedan/myriadflow/internal/dispatcher"
	"github.com/spacesedan/myriadflow/internal/models"
)

type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeFailed    Outcome = "failed"
)

type Result struct {
	Outcome Outcome
	Post    *models.Post
	// WalletErr is set when the post was stored but its address could not be
	// bound. The wallet repair job picks such posts up later.
	WalletErr error
}

type Gate interface {
	Exists(ctx context.Context, platform models.Platform, textID string) (bool, error)
	MarkSeen(ctx context.Context, platform models.Platform, textID string)
}

type Committer interface {
	CreatePost(ctx context.Context, post *models.Post, origin dispatcher.Origin) error
}

type Binder interface {
	Bind(ctx context.Context, post *models.Post) error
}

type Pipeline struct {
	gate      Gate
	committer Committer
	binder    Binder
}

func NewPipeline(gate Gate, committer Committer, binder Binder) *Pipeline {
	return &Pipeline{gate: gate, committer: committer, binder: binder}
}

// Ingest stores candidate unless its natural key is already known. A
// credential, when the authoring account has one, is recorded on the post.
func (p *Pipeline) Ingest(ctx context.Context, candidate models.CandidatePost, credential *models.UserCredential) (Result, error) {
	exists, err := p.gate.Exists(ctx, candidate.Platform, candidate.TextID)
	if err != nil {
		return Result{Outcome: OutcomeFailed}, err
	}
	if exists {
		return Result{Outcome: OutcomeDuplicate}, nil
	}

	post := candidate.NewPost()
	if credential != nil {
		post.CredentialUserID = credential.UserID
	}

	if err := p.committer.CreatePost(ctx, post, dispatcher.OriginIngestion); err != nil {
		if errors.Is(err, db.ErrConflict) {
			slog.Debug("[Ingest] Lost creation race, treating as duplicate",
				slog.String("key", candidate.NaturalKey()))
			p.gate.MarkSeen(ctx, candidate.Platform, candidate.TextID)
			return Result{Outcome: OutcomeDuplicate}, nil
		}
		return Result{Outcome: OutcomeFailed}, fmt.Errorf("create post %s: %w", candidate.NaturalKey(), err)
	}
	p.gate.MarkSeen(ctx, post.Platform, post.TextID)

	res := Result{Outcome: OutcomeCreated, Post: post}
	if err := p.binder.Bind(ctx, post); err != nil {
		slog.Warn("[Ingest] Wallet binding failed, leaving post for repair",
			slog.String("post_id", post.ID),
			slog.String("error", err.Error()))
		res.WalletErr = err
	}
	return res, nil
}
