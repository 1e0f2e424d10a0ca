package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/spacesedan/myriadflow/internal/models"
)

// PgxIface is satisfied by *pgxpool.Pool and by pgxmock pools.
type PgxIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
		platform TEXT NOT NULL,
		text_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL DEFAULT '',
		link TEXT NOT NULL DEFAULT '',
		has_media BOOLEAN NOT NULL DEFAULT FALSE,
		tags TEXT[] NOT NULL DEFAULT '{}',
		people_id TEXT,
		platform_username TEXT,
		platform_account_id TEXT,
		wallet_address TEXT,
		credential_user_id TEXT,
		origin_created_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (platform, text_id)
	)`,
	`CREATE INDEX IF NOT EXISTS posts_unbound_idx ON posts (created_at) WHERE wallet_address IS NULL`,
	`CREATE TABLE IF NOT EXISTS people (
		id TEXT PRIMARY KEY,
		platform TEXT NOT NULL,
		platform_account_id TEXT NOT NULL,
		username TEXT NOT NULL DEFAULT '',
		owner_id TEXT,
		UNIQUE (platform, platform_account_id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_credentials (
		id TEXT PRIMARY KEY,
		people_id TEXT NOT NULL UNIQUE REFERENCES people (id),
		user_id TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tags (
		id TEXT PRIMARY KEY,
		hide BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		bio TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS currencies (
		id TEXT PRIMARY KEY
	)`,
}

const postColumns = `id, platform, text_id, title, text, link, has_media, tags,
	COALESCE(people_id, ''), COALESCE(platform_username, ''), COALESCE(platform_account_id, ''),
	COALESCE(wallet_address, ''), COALESCE(credential_user_id, ''),
	origin_created_at, created_at, updated_at`

type PostgresStore struct {
	db PgxIface
}

func NewPostgresStore(db PgxIface) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the schema if it does not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("[DB] migration failed: %w", err)
		}
	}
	slog.Info("[DB] Schema is up to date")
	return nil
}

func scanPost(row pgx.Row) (*models.Post, error) {
	var (
		p                 models.Post
		platform          string
		username, account string
	)
	err := row.Scan(&p.ID, &platform, &p.TextID, &p.Title, &p.Text, &p.Link, &p.HasMedia, &p.Tags,
		&p.PeopleID, &username, &account, &p.WalletAddress, &p.CredentialUserID,
		&p.OriginCreatedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Platform = models.Platform(platform)
	if username != "" || account != "" {
		p.PlatformUser = &models.PlatformUser{Username: username, PlatformAccountID: account}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return &p, nil
}

func (s *PostgresStore) queryPost(ctx context.Context, where string, args ...any) (*models.Post, error) {
	p, err := scanPost(s.db.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE `+where, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[DB] failed to query post: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) FindPost(ctx context.Context, platform models.Platform, textID string) (*models.Post, error) {
	return s.queryPost(ctx, `platform = $1 AND text_id = $2`, string(platform), textID)
}

func (s *PostgresStore) GetPost(ctx context.Context, id string) (*models.Post, error) {
	return s.queryPost(ctx, `id = $1`, id)
}

func (s *PostgresStore) CreatePost(ctx context.Context, post *models.Post) error {
	var username, account string
	if post.PlatformUser != nil {
		username = post.PlatformUser.Username
		account = post.PlatformUser.PlatformAccountID
	}
	tags := post.Tags
	if tags == nil {
		tags = []string{}
	}

	query := `
		INSERT INTO posts (platform, text_id, title, text, link, has_media, tags,
			people_id, platform_username, platform_account_id, wallet_address, credential_user_id,
			origin_created_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (platform, text_id) DO NOTHING
		RETURNING id::text
	`
	var id string
	err := s.db.QueryRow(ctx, query,
		string(post.Platform), post.TextID, post.Title, post.Text, post.Link, post.HasMedia, tags,
		nullable(post.PeopleID), nullable(username), nullable(account),
		nullable(post.WalletAddress), nullable(post.CredentialUserID),
		post.OriginCreatedAt, post.CreatedAt, post.UpdatedAt,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("[DB] failed to insert post: %w", err)
	}
	post.ID = id
	return nil
}

func (s *PostgresStore) UpdatePost(ctx context.Context, id string, patch PostPatch) error {
	updatedAt := patch.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE posts
		SET wallet_address = COALESCE($2, wallet_address),
			credential_user_id = COALESCE($3, credential_user_id),
			updated_at = $4
		WHERE id = $1
	`, id, optional(patch.WalletAddress), optional(patch.CredentialUserID), updatedAt)
	if err != nil {
		return fmt.Errorf("[DB] failed to update post %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListUnboundPosts(ctx context.Context, limit int) ([]models.Post, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `SELECT `+postColumns+` FROM posts
		WHERE wallet_address IS NULL OR wallet_address = ''
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("[DB] failed to list unbound posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

func (s *PostgresStore) ListPeople(ctx context.Context, platform models.Platform) ([]models.People, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, platform, platform_account_id, username, COALESCE(owner_id, '')
		FROM people WHERE platform = $1 ORDER BY id
	`, string(platform))
	if err != nil {
		return nil, fmt.Errorf("[DB] failed to list people: %w", err)
	}
	defer rows.Close()

	var people []models.People
	for rows.Next() {
		var (
			p  models.People
			pf string
		)
		if err := rows.Scan(&p.ID, &pf, &p.PlatformAccountID, &p.Username, &p.OwnerID); err != nil {
			return nil, err
		}
		p.Platform = models.Platform(pf)
		people = append(people, p)
	}
	return people, rows.Err()
}

func (s *PostgresStore) FindCredentialByPeople(ctx context.Context, peopleID string) (*models.UserCredential, error) {
	var c models.UserCredential
	err := s.db.QueryRow(ctx, `SELECT id, people_id, user_id FROM user_credentials WHERE people_id = $1`, peopleID).
		Scan(&c.ID, &c.PeopleID, &c.UserID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[DB] failed to query credential: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) FindTag(ctx context.Context, id string) (*models.Tag, error) {
	var t models.Tag
	err := s.db.QueryRow(ctx, `SELECT id, hide, created_at, updated_at FROM tags WHERE id = $1`, id).
		Scan(&t.ID, &t.Hide, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[DB] failed to query tag: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) CreateTag(ctx context.Context, tag *models.Tag) error {
	cmd, err := s.db.Exec(ctx, `
		INSERT INTO tags (id, hide, created_at, updated_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, tag.ID, tag.Hide, tag.CreatedAt, tag.UpdatedAt)
	if err != nil {
		return fmt.Errorf("[DB] failed to insert tag: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func (s *PostgresStore) ListTags(ctx context.Context) ([]models.Tag, error) {
	rows, err := s.db.Query(ctx, `SELECT id, hide, created_at, updated_at FROM tags WHERE NOT hide ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("[DB] failed to list tags: %w", err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Hide, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (s *PostgresStore) CurrencyExists(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM currencies WHERE id = $1)`, id)
}

func (s *PostgresStore) UserExists(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id)
}

func (s *PostgresStore) exists(ctx context.Context, query, id string) (bool, error) {
	var ok bool
	if err := s.db.QueryRow(ctx, query, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("[DB] existence check failed: %w", err)
	}
	return ok, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.db.Close()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

var _ Store = (*PostgresStore)(nil)
