package database

import (
	"context"
	"fmt"

	"forumhub/internal/config"
	"forumhub/internal/logger"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

func Connect(cfg *config.Config) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)

	return Open(dsn)
}

// Open connects using a raw DSN or postgres:// URL.
func Open(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info.Println("[Database] Connected to database successfully")
	return db, nil
}

// Migrate creates the tables and indexes the repositories rely on. Every
// statement is idempotent so it runs on each startup.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			mobile TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL UNIQUE,
			password_hashed TEXT NOT NULL,
			follower_count INT NOT NULL DEFAULT 0,
			following_count INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS follows (
			follower_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			followee_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (follower_id, followee_id),
			CHECK (follower_id <> followee_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_follows_followee ON follows (followee_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_follows_follower ON follows (follower_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS discussions (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			text TEXT NOT NULL,
			image_url TEXT NOT NULL DEFAULT '',
			image_key TEXT NOT NULL DEFAULT '',
			hashtags TEXT[] NOT NULL DEFAULT '{}',
			likes BIGINT[] NOT NULL DEFAULT '{}',
			views BIGINT NOT NULL DEFAULT 0 CHECK (views >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_discussions_user ON discussions (user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_discussions_hashtags ON discussions USING GIN (hashtags)`,
		`CREATE TABLE IF NOT EXISTS discussion_comments (
			id TEXT PRIMARY KEY,
			discussion_id BIGINT NOT NULL REFERENCES discussions(id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL,
			text TEXT NOT NULL,
			likes BIGINT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_discussion ON discussion_comments (discussion_id, created_at DESC, id DESC)`,
		`CREATE TABLE IF NOT EXISTS refresh_tokens (
			id TEXT PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			token_hash TEXT NOT NULL UNIQUE,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			revoked_at TIMESTAMPTZ,
			replaced_by TEXT,
			device_info TEXT,
			ip_address TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user ON refresh_tokens (user_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
