package client

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/recipebook/internal/client/api"
	"github.com/dmitrijs2005/recipebook/internal/client/models"
	"github.com/dmitrijs2005/recipebook/internal/client/repositories/siteconfig"
	"github.com/dmitrijs2005/recipebook/internal/logging"
)

func newTestCache(t *testing.T) (*ConfigCache, func()) {
	t.Helper()
	c, srv, _ := newTestClient(t)

	db, err := InitDatabase(context.Background(), filepath.Join(t.TempDir(), "cache.db"), logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cache := NewConfigCache(c, siteconfig.NewSQLiteRepository(db), logging.Nop())
	cache.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

	srv.SetConfig(models.SiteConfig{Categories: []models.Category{{ID: "soup", Name: "Soup"}}})
	return cache, srv.Close
}

func TestConfigCache_FallsBackWhenOffline(t *testing.T) {
	cache, stop := newTestCache(t)
	ctx := context.Background()

	cfg, fetchedAt, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.True(t, fetchedAt.IsZero())
	assert.Equal(t, "soup", cfg.Categories[0].ID)

	stop()

	cfg, fetchedAt, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "soup", cfg.Categories[0].ID)
	assert.True(t, fetchedAt.Equal(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)))
}

func TestConfigCache_OfflineWithoutCache(t *testing.T) {
	cache, stop := newTestCache(t)
	stop()

	_, _, err := cache.Get(context.Background())
	apiErr, ok := api.As(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsNetwork())
}

func TestConfigCache_ServerErrorIsNotMasked(t *testing.T) {
	c, srv, _ := newTestClient(t)
	db, err := InitDatabase(context.Background(), filepath.Join(t.TempDir(), "cache.db"), logging.Nop())
	require.NoError(t, err)
	defer db.Close()
	cache := NewConfigCache(c, siteconfig.NewSQLiteRepository(db), logging.Nop())

	_, _, err = cache.Get(context.Background())
	require.NoError(t, err)

	srv.FailNext("GET /config", http.StatusInternalServerError, `{"success":false,"error":{"code":"internal","message":"down"}}`)
	_, _, err = cache.Get(context.Background())
	apiErr, ok := api.As(err)
	require.True(t, ok)
	assert.Equal(t, "internal", apiErr.Code())
}
