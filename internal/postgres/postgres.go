// internal/postgres/postgres.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // driver import
)

// Schema creates the tables the service needs. The seq column on
// borrowings records creation order, which drives listing order.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	role TEXT NOT NULL DEFAULT 'ordinary',
	password_hash TEXT NOT NULL,
	salt TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS books (
	id UUID PRIMARY KEY,
	title TEXT NOT NULL,
	author TEXT NOT NULL,
	cover TEXT NOT NULL,
	inventory INT NOT NULL CHECK (inventory >= 0),
	daily_fee NUMERIC(8, 2) NOT NULL CHECK (daily_fee >= 0),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS borrowings (
	id UUID PRIMARY KEY,
	seq BIGSERIAL,
	borrow_date DATE NOT NULL,
	expected_return_date DATE NOT NULL,
	actual_return_date DATE,
	book_id UUID NOT NULL REFERENCES books (id),
	user_id UUID NOT NULL REFERENCES users (id)
);

CREATE INDEX IF NOT EXISTS borrowings_user_idx ON borrowings (user_id);
CREATE INDEX IF NOT EXISTS borrowings_borrow_date_idx ON borrowings (borrow_date);
`

// Connect opens a pooled connection and verifies it responds.
func Connect(ctx context.Context, url string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}

// EnsureSchema applies the schema so first runs work against an empty
// database.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
