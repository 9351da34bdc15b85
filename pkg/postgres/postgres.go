// Package postgres opens pooled PostgreSQL connections and applies schema migrations.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const driverName = "pgx"

const (
	defaultConnMaxIdleTime = 5 * time.Minute
	defaultConnMaxLifetime = 30 * time.Minute
	defaultMaxIdleConns    = 5
	defaultMaxOpenConns    = 25
)

// Option tunes the connection pool of a freshly opened database.
type Option func(*sqlx.DB)

func WithConnMaxIdleTime(d time.Duration) Option {
	return func(db *sqlx.DB) {
		if d > 0 {
			db.SetConnMaxIdleTime(d)
		}
	}
}

func WithConnMaxLifetime(d time.Duration) Option {
	return func(db *sqlx.DB) {
		if d > 0 {
			db.SetConnMaxLifetime(d)
		}
	}
}

func WithMaxIdleConns(n int) Option {
	return func(db *sqlx.DB) {
		if n > 0 {
			db.SetMaxIdleConns(n)
		}
	}
}

func WithMaxOpenConns(n int) Option {
	return func(db *sqlx.DB) {
		if n > 0 {
			db.SetMaxOpenConns(n)
		}
	}
}

// New connects to the database at dsn, verifies the connection and applies opts
// on top of the default pool settings. The caller owns the returned handle.
func New(ctx context.Context, dsn string, opts ...Option) (*sqlx.DB, error) {
	const op = "postgres.New"

	db, err := sqlx.ConnectContext(ctx, driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}

	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetMaxOpenConns(defaultMaxOpenConns)

	for _, opt := range opts {
		opt(db)
	}

	return db, nil
}
