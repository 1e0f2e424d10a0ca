package db

import (
	"context"
	"errors"
	"time"

	"github.com/spacesedan/myriadflow/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// PostPatch lists the post attributes that may change after creation. Nil
// fields are left untouched.
type PostPatch struct {
	WalletAddress    *string
	CredentialUserID *string
	UpdatedAt        time.Time
}

// Store is the persistence boundary of the pipeline. Posts are unique on
// (platform, text_id); CreatePost reports a violation as ErrConflict.
type Store interface {
	FindPost(ctx context.Context, platform models.Platform, textID string) (*models.Post, error)
	GetPost(ctx context.Context, id string) (*models.Post, error)
	CreatePost(ctx context.Context, post *models.Post) error
	UpdatePost(ctx context.Context, id string, patch PostPatch) error
	ListUnboundPosts(ctx context.Context, limit int) ([]models.Post, error)

	ListPeople(ctx context.Context, platform models.Platform) ([]models.People, error)
	FindCredentialByPeople(ctx context.Context, peopleID string) (*models.UserCredential, error)

	FindTag(ctx context.Context, id string) (*models.Tag, error)
	CreateTag(ctx context.Context, tag *models.Tag) error
	ListTags(ctx context.Context) ([]models.Tag, error)

	CurrencyExists(ctx context.Context, id string) (bool, error)
	UserExists(ctx context.Context, id string) (bool, error)

	Ping(ctx context.Context) error
	Close()
}

func applyPatch(post *models.Post, patch PostPatch) {
	if patch.WalletAddress != nil {
		post.WalletAddress = *patch.WalletAddress
	}
	if patch.CredentialUserID != nil {
		post.CredentialUserID = *patch.CredentialUserID
	}
	if !patch.UpdatedAt.IsZero() {
		post.UpdatedAt = patch.UpdatedAt
	}
}

func visibleTags(tags []models.Tag) []models.Tag {
	out := make([]models.Tag, 0, len(tags))
	for _, t := range tags {
		if !t.Hide {
			out = append(out, t)
		}
	}
	return out
}
