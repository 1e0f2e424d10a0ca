package wallet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spacesedan/myriadflow/internal/db"
	"github.com/spacesedan/myriadflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slowDeriver struct{ delay time.Duration }

func (d slowDeriver) Derive(ctx context.Context, id string) (string, error) {
	select {
	case <-time.After(d.delay):
		return "addr-" + id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type failingDeriver struct{}

func (failingDeriver) Derive(ctx context.Context, id string) (string, error) {
	return "", errors.New("keyring unavailable")
}

func seedPost(t *testing.T, store *db.MemoryStore, textID string) *models.Post {
	t.Helper()
	post := &models.Post{Platform: models.PlatformReddit, TextID: textID, CreatedAt: time.Now()}
	require.NoError(t, store.CreatePost(context.Background(), post))
	return post
}

func TestBinder_Bind(t *testing.T) {
	store := db.NewMemoryStore()
	deriver, err := NewSS58Deriver(DefaultSS58Prefix)
	require.NoError(t, err)
	binder := NewBinder(deriver, store, store, time.Second)
	ctx := context.Background()

	post := seedPost(t, store, "t3_1")
	require.NoError(t, binder.Bind(ctx, post))

	want, err := deriver.Derive(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, want, post.WalletAddress)

	stored, err := store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, want, stored.WalletAddress)
}

func TestBinder_RequiresPersistedPost(t *testing.T) {
	binder := NewBinder(slowDeriver{}, db.NewMemoryStore(), nil, time.Second)
	assert.ErrorIs(t, binder.Bind(context.Background(), &models.Post{}), ErrNotPersisted)
}

func TestBinder_Timeout(t *testing.T) {
	store := db.NewMemoryStore()
	binder := NewBinder(slowDeriver{delay: time.Second}, store, store, 10*time.Millisecond)
	post := seedPost(t, store, "t3_1")

	err := binder.Bind(context.Background(), post)

	assert.ErrorIs(t, err, ErrDerivationTimeout)
	assert.Empty(t, post.WalletAddress)
	stored, _ := store.GetPost(context.Background(), post.ID)
	assert.Empty(t, stored.WalletAddress)
}

func TestBinder_DeriverError(t *testing.T) {
	store := db.NewMemoryStore()
	binder := NewBinder(failingDeriver{}, store, store, time.Second)
	post := seedPost(t, store, "t3_1")

	err := binder.Bind(context.Background(), post)
	assert.ErrorContains(t, err, "keyring unavailable")
}

func TestBinder_Repair(t *testing.T) {
	store := db.NewMemoryStore()
	binder := NewBinder(slowDeriver{}, store, store, time.Second)
	ctx := context.Background()

	seedPost(t, store, "t3_1")
	seedPost(t, store, "t3_2")
	already := seedPost(t, store, "t3_3")
	wallet := "existing"
	require.NoError(t, store.UpdatePost(ctx, already.ID, db.PostPatch{WalletAddress: &wallet}))

	bound, err := binder.Repair(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, bound)

	remaining, err := store.ListUnboundPosts(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	stored, _ := store.GetPost(ctx, already.ID)
	assert.Equal(t, "existing", stored.WalletAddress)
}
