// Package siteconfig caches the last server configuration payload locally so
// categories and localization stay available while the server is unreachable.
package siteconfig

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/recipebook/internal/dbx"
)

type Repository interface {
	// Get returns the cached payload and when it was fetched. A missing
	// cache yields (nil, zero time, nil).
	Get(ctx context.Context) ([]byte, time.Time, error)
	Put(ctx context.Context, payload []byte, fetchedAt time.Time) error
}

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context) ([]byte, time.Time, error) {
	var (
		payload   []byte
		fetchedAt time.Time
	)
	err := r.db.QueryRowContext(ctx, `SELECT payload, fetched_at FROM site_config WHERE id = 1`).Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to get site config: %w", err)
	}
	return payload, fetchedAt, nil
}

func (r *SQLiteRepository) Put(ctx context.Context, payload []byte, fetchedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO site_config (id, payload, fetched_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at
	`, payload, fetchedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to put site config: %w", err)
	}
	return nil
}
