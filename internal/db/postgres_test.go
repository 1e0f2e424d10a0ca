package db

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/spacesedan/myriadflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var postRowColumns = []string{
	"id", "platform", "text_id", "title", "text", "link", "has_media", "tags",
	"people_id", "platform_username", "platform_account_id", "wallet_address", "credential_user_id",
	"origin_created_at", "created_at", "updated_at",
}

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresStore(mock), mock
}

func testPost() *models.Post {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.Post{
		Platform:        models.PlatformReddit,
		TextID:          "t3_1",
		Title:           "hello",
		Text:            "body",
		Link:            "https://www.reddit.com/r/x/comments/t3_1/",
		Tags:            []string{"myriad"},
		PeopleID:        "p1",
		PlatformUser:    &models.PlatformUser{Username: "u/bob", PlatformAccountID: "u/bob"},
		OriginCreatedAt: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestPostgresStore_CreatePost(t *testing.T) {
	store, mock := newMockStore(t)
	post := testPost()

	mock.ExpectQuery("INSERT INTO posts").
		WithArgs("reddit", "t3_1", "hello", "body", post.Link, false, []string{"myriad"},
			"p1", "u/bob", "u/bob", nil, nil,
			post.OriginCreatedAt, post.CreatedAt, post.UpdatedAt).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("post-1"))

	require.NoError(t, store.CreatePost(context.Background(), post))
	assert.Equal(t, "post-1", post.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreatePostConflict(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO posts").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	err := store.CreatePost(context.Background(), testPost())
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindPost(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("(?s)SELECT .+FROM posts WHERE platform = \\$1 AND text_id = \\$2").
		WithArgs("reddit", "t3_1").
		WillReturnRows(pgxmock.NewRows(postRowColumns).AddRow(
			"post-1", "reddit", "t3_1", "hello", "body", "link", true, []string{"myriad"},
			"p1", "u/bob", "u/bob", "", "", now, now, now))

	post, err := store.FindPost(context.Background(), models.PlatformReddit, "t3_1")
	require.NoError(t, err)
	assert.Equal(t, "post-1", post.ID)
	assert.Equal(t, models.PlatformReddit, post.Platform)
	assert.True(t, post.HasMedia)
	assert.Equal(t, "u/bob", post.PlatformUser.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindPostNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("(?s)SELECT .+FROM posts").
		WithArgs("twitter", "404").
		WillReturnRows(pgxmock.NewRows(postRowColumns))

	_, err := store.FindPost(context.Background(), models.PlatformTwitter, "404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_UpdatePost(t *testing.T) {
	store, mock := newMockStore(t)
	wallet := "5Fwallet"
	at := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE posts").
		WithArgs("post-1", wallet, nil, at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE posts").
		WithArgs("missing", wallet, nil, at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	patch := PostPatch{WalletAddress: &wallet, UpdatedAt: at}
	require.NoError(t, store.UpdatePost(context.Background(), "post-1", patch))
	assert.ErrorIs(t, store.UpdatePost(context.Background(), "missing", patch), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateTag(t *testing.T) {
	store, mock := newMockStore(t)
	tag := &models.Tag{ID: "myriad"}

	mock.ExpectExec("INSERT INTO tags").
		WithArgs("myriad", false, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO tags").
		WithArgs("myriad", false, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	require.NoError(t, store.CreateTag(context.Background(), tag))
	assert.ErrorIs(t, store.CreateTag(context.Background(), tag), ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListPeople(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("(?s)SELECT .+FROM people WHERE platform = \\$1").
		WithArgs("facebook").
		WillReturnRows(pgxmock.NewRows([]string{"id", "platform", "platform_account_id", "username", "owner_id"}).
			AddRow("p1", "facebook", "999", "myriadsocial", "").
			AddRow("p2", "facebook", "998", "other", "u1"))

	people, err := store.ListPeople(context.Background(), models.PlatformFacebook)
	require.NoError(t, err)
	require.Len(t, people, 2)
	assert.Equal(t, models.PlatformFacebook, people[0].Platform)
	assert.Equal(t, "u1", people[1].OwnerID)
}

func TestPostgresStore_Exists(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("FROM currencies").WithArgs("MYRIA").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("FROM users").WithArgs("nobody").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err := store.CurrencyExists(context.Background(), "MYRIA")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.UserExists(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPostgresStore_Migrate(t *testing.T) {
	store, mock := newMockStore(t)
	for range schema {
		mock.ExpectExec("CREATE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}

	require.NoError(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
