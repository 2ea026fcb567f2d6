package siteconfig

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE site_config (
  id         INTEGER PRIMARY KEY CHECK (id = 1),
  payload    BLOB NOT NULL,
  fetched_at TIMESTAMP NOT NULL
);`)
	require.NoError(t, err)
	return db
}

func TestGet_EmptyCache(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	payload, at, err := r.Get(context.Background())
	require.NoError(t, err)
	require.Nil(t, payload)
	require.True(t, at.IsZero())
}

func TestPut_OverwritesSingleRow(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	second := first.Add(time.Hour)

	require.NoError(t, r.Put(ctx, []byte(`{"categories":["soup"]}`), first))
	require.NoError(t, r.Put(ctx, []byte(`{"categories":["cake"]}`), second))

	payload, at, err := r.Get(ctx)
	require.NoError(t, err)
	require.JSONEq(t, `{"categories":["cake"]}`, string(payload))
	require.True(t, second.Equal(at), "got %v", at)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM site_config`).Scan(&n))
	require.Equal(t, 1, n)
}

func TestGet_DBErrorWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	require.NoError(t, db.Close())

	_, _, err := r.Get(context.Background())
	require.ErrorContains(t, err, "failed to get site config")
}
