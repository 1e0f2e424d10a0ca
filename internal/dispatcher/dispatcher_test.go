package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spacesedan/myriadflow/internal/db"
	"github.com/spacesedan/myriadflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fakeRewards struct{ rec *recorder }

func (f fakeRewards) CreditDefaultCurrency(ctx context.Context, id string) error {
	f.rec.add("credit:" + id)
	return nil
}
func (f fakeRewards) GrantInitialTip(ctx context.Context, id string) error {
	f.rec.add("tip:" + id)
	return nil
}
func (f fakeRewards) PayoutReward(ctx context.Context, id string) error {
	f.rec.add("payout:" + id)
	return nil
}
func (f fakeRewards) ClaimPendingTips(ctx context.Context, id string) error {
	f.rec.add("claim:" + id)
	return nil
}

type failingPayout struct{ fakeRewards }

func (f failingPayout) PayoutReward(ctx context.Context, id string) error {
	f.rec.add("payout:" + id)
	return errors.New("ledger unavailable")
}

type fakeRegistrar struct{ rec *recorder }

func (f fakeRegistrar) Register(ctx context.Context, ids []string) error {
	for _, id := range ids {
		f.rec.add("tag:" + id)
	}
	return nil
}

func newTestDispatcher(t *testing.T, store Store, cascades Cascades, onError ErrorHandler) (*Dispatcher, *WorkQueue) {
	t.Helper()
	q := NewWorkQueue(2, 16, time.Second, onError)
	q.Start()
	t.Cleanup(func() { _ = q.Shutdown(context.Background()) })
	return New(store, q, cascades, WithClock(func() time.Time { return fixedNow })), q
}

func TestDispatcher_CreatePostStampsAndFires(t *testing.T) {
	store := db.NewMemoryStore()
	rec := &recorder{}
	d, q := newTestDispatcher(t, store, DefaultCascades(EffectDeps{Tags: fakeRegistrar{rec}}), nil)

	post := &models.Post{Platform: models.PlatformReddit, TextID: "t3_1", Tags: []string{"Myriad", "myriad", "Go"}}
	require.NoError(t, d.CreatePost(context.Background(), post, OriginIngestion))
	require.NoError(t, q.Shutdown(context.Background()))

	assert.NotEmpty(t, post.ID)
	assert.Equal(t, models.PlatformReddit, post.Platform)
	assert.Equal(t, fixedNow, post.CreatedAt)
	assert.Equal(t, fixedNow, post.UpdatedAt)
	assert.Equal(t, fixedNow, post.OriginCreatedAt)
	assert.Equal(t, []string{"myriad", "go"}, post.Tags)
	assert.ElementsMatch(t, []string{"tag:myriad", "tag:go"}, rec.snapshot())
}

func TestDispatcher_CreatePostForcesNativeOutsideIngestion(t *testing.T) {
	store := db.NewMemoryStore()
	d, _ := newTestDispatcher(t, store, nil, nil)

	origin := fixedNow.Add(-time.Hour)
	post := &models.Post{Platform: models.PlatformTwitter, TextID: "n1", OriginCreatedAt: origin}
	require.NoError(t, d.CreatePost(context.Background(), post, OriginUser))

	assert.Equal(t, models.PlatformNative, post.Platform)
	assert.Equal(t, origin, post.OriginCreatedAt)
}

func TestDispatcher_NoCascadeWhenWriteFails(t *testing.T) {
	store := db.NewMemoryStore()
	rec := &recorder{}
	d, q := newTestDispatcher(t, store, DefaultCascades(EffectDeps{Tags: fakeRegistrar{rec}}), nil)
	ctx := context.Background()

	require.NoError(t, d.CreatePost(ctx, &models.Post{Platform: models.PlatformReddit, TextID: "t3_1", Tags: []string{"a"}}, OriginIngestion))
	err := d.CreatePost(ctx, &models.Post{Platform: models.PlatformReddit, TextID: "t3_1", Tags: []string{"b"}}, OriginIngestion)
	require.ErrorIs(t, err, db.ErrConflict)
	require.NoError(t, q.Shutdown(ctx))

	assert.Equal(t, []string{"tag:a"}, rec.snapshot())
}

func TestDispatcher_CascadeFailureDoesNotAffectWrite(t *testing.T) {
	store := db.NewMemoryStore()
	errs := newErrorLog()
	rec := &recorder{}
	cascades := Cascades{
		{KindPost, OpCreate}: {
			{Name: "explodes", Run: func(ctx context.Context, ev Event) error { panic("unreachable service") }},
			{Name: "fails", Run: func(ctx context.Context, ev Event) error { return errors.New("reward api down") }},
			{Name: "records", Run: func(ctx context.Context, ev Event) error {
				rec.add("post:" + ev.Post.TextID)
				return nil
			}},
		},
	}
	d, q := newTestDispatcher(t, store, cascades, errs.handle)
	ctx := context.Background()

	post := &models.Post{Platform: models.PlatformTwitter, TextID: "1"}
	require.NoError(t, d.CreatePost(ctx, post, OriginIngestion))
	require.NoError(t, q.Shutdown(ctx))

	stored, err := store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "1", stored.TextID)
	assert.Equal(t, 2, errs.len())
	assert.Equal(t, []string{"post:1"}, rec.snapshot())
}

func TestDispatcher_CascadeIsDetachedFromCaller(t *testing.T) {
	store := db.NewMemoryStore()
	started := make(chan struct{})
	result := make(chan error, 1)
	cascades := Cascades{
		{KindTag, OpCreate}: {{Name: "waits", Run: func(ctx context.Context, ev Event) error {
			close(started)
			time.Sleep(20 * time.Millisecond)
			result <- ctx.Err()
			return nil
		}}},
	}
	d, q := newTestDispatcher(t, store, cascades, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.CreateTag(ctx, &models.Tag{ID: "myriad"}))
	<-started
	cancel()
	require.NoError(t, q.Shutdown(context.Background()))

	assert.NoError(t, <-result)
}

func TestDispatcher_UpdatePostStampsUpdatedAt(t *testing.T) {
	store := db.NewMemoryStore()
	d, _ := newTestDispatcher(t, store, nil, nil)
	ctx := context.Background()

	post := &models.Post{Platform: models.PlatformReddit, TextID: "t3_1"}
	require.NoError(t, store.CreatePost(ctx, post))

	wallet := "addr"
	require.NoError(t, d.UpdatePost(ctx, post.ID, db.PostPatch{WalletAddress: &wallet}))

	stored, err := store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "addr", stored.WalletAddress)
	assert.Equal(t, fixedNow, stored.UpdatedAt)
}

func TestDispatcher_CreateUser(t *testing.T) {
	rec := &recorder{}
	d, q := newTestDispatcher(t, db.NewMemoryStore(), DefaultCascades(EffectDeps{Rewards: fakeRewards{rec}}), nil)

	var written *models.User
	user := &models.User{ID: "u1", Name: "Alice"}
	err := d.CreateUser(context.Background(), user, func(ctx context.Context, u *models.User) error {
		written = u
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, q.Shutdown(context.Background()))

	assert.Equal(t, "Hello, my name is Alice!", written.Bio)
	assert.Equal(t, fixedNow, written.CreatedAt)
	assert.ElementsMatch(t, []string{"credit:u1", "tip:u1"}, rec.snapshot())
}

func TestDispatcher_CreateTransaction(t *testing.T) {
	store := db.NewMemoryStore()
	store.AddCurrency("MYRIA")
	store.AddUser("sender")
	rec := &recorder{}
	d, q := newTestDispatcher(t, store, DefaultCascades(EffectDeps{Rewards: fakeRewards{rec}}), nil)
	ctx := context.Background()
	write := func(ctx context.Context, tx *models.Transaction) error { return nil }

	tx := &models.Transaction{ID: "tx1", From: "sender", To: "recipient", Value: 1, CurrencyID: "myria"}
	require.NoError(t, d.CreateTransaction(ctx, tx, write))
	assert.Equal(t, "MYRIA", tx.CurrencyID)

	err := d.CreateTransaction(ctx, &models.Transaction{From: "sender", CurrencyID: "doge"}, write)
	assert.ErrorIs(t, err, ErrUnknownCurrency)

	err = d.CreateTransaction(ctx, &models.Transaction{From: "ghost", CurrencyID: "myria"}, write)
	assert.ErrorIs(t, err, ErrUnknownAccount)

	require.NoError(t, q.Shutdown(ctx))
	assert.Equal(t, []string{"payout:sender"}, rec.snapshot())
}

func TestDispatcher_Verify(t *testing.T) {
	rec := &recorder{}
	d, q := newTestDispatcher(t, db.NewMemoryStore(), DefaultCascades(EffectDeps{Rewards: fakeRewards{rec}}), nil)
	ctx := context.Background()

	require.NoError(t, d.Verify(ctx, "people-1", func(ctx context.Context) error { return nil }))
	err := d.Verify(ctx, "people-2", func(ctx context.Context) error { return errors.New("not owner") })
	assert.Error(t, err)

	require.NoError(t, q.Shutdown(ctx))
	assert.Equal(t, []string{"claim:people-1"}, rec.snapshot())
}

func TestDispatcher_PayoutFailureDoesNotFailTransaction(t *testing.T) {
	store := db.NewMemoryStore()
	store.AddCurrency("MYRIA")
	store.AddUser("sender")
	rec := &recorder{}

	var (
		mu     sync.Mutex
		failed []string
	)
	onError := func(task string, err error) {
		mu.Lock()
		defer mu.Unlock()
		failed = append(failed, task)
	}
	rewards := failingPayout{fakeRewards{rec}}
	d, q := newTestDispatcher(t, store, DefaultCascades(EffectDeps{Rewards: rewards}), onError)
	ctx := context.Background()

	written := false
	tx := &models.Transaction{ID: "tx1", From: "sender", To: "recipient", Value: 5, CurrencyID: "myria"}
	err := d.CreateTransaction(ctx, tx, func(ctx context.Context, tx *models.Transaction) error {
		written = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, written)
	require.NoError(t, q.Shutdown(ctx))
	assert.Equal(t, []string{"payout:sender"}, rec.snapshot())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"transaction.create:payoutReward"}, failed)
}
