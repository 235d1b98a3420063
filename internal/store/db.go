package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(5)
	db.SetMaxOpenConns(10)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS posts (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL DEFAULT '',
	description  TEXT NOT NULL DEFAULT '',
	category     TEXT NOT NULL DEFAULT '',
	author       TEXT NOT NULL DEFAULT '',
	publish_date TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'Publish',
	views        INTEGER NOT NULL DEFAULT 0,
	image        TEXT NOT NULL DEFAULT '',
	is_deleted   BOOLEAN NOT NULL DEFAULT FALSE,
	deleted_at   TIMESTAMPTZ,
	created_at   TIMESTAMPTZ DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS comments (
	id      TEXT PRIMARY KEY,
	author  TEXT NOT NULL DEFAULT '',
	body    TEXT NOT NULL DEFAULT '',
	date    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	status  TEXT NOT NULL DEFAULT 'Published',
	blog_id TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS users (
	id               TEXT PRIMARY KEY,
	email            TEXT UNIQUE NOT NULL,
	display_name     TEXT NOT NULL DEFAULT '',
	password_hash    TEXT NOT NULL DEFAULT '',
	is_anonymous     BOOLEAN NOT NULL DEFAULT FALSE,
	provider         TEXT NOT NULL DEFAULT '',
	provider_subject TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ DEFAULT NOW()
);
`

// EnsureSchema creates the tables on first start. Idempotent.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
