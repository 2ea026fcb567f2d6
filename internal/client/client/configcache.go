package client

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dmitrijs2005/recipebook/internal/client/api"
	"github.com/dmitrijs2005/recipebook/internal/client/models"
	"github.com/dmitrijs2005/recipebook/internal/client/repositories/siteconfig"
	"github.com/dmitrijs2005/recipebook/internal/logging"
)

// ConfigCache serves GET /config and keeps the last good copy in the local
// database, so categories are still known while the server is unreachable.
type ConfigCache struct {
	remote Client
	repo   siteconfig.Repository
	logger logging.Logger
	now    func() time.Time
}

func NewConfigCache(c Client, repo siteconfig.Repository, logger logging.Logger) *ConfigCache {
	return &ConfigCache{remote: c, repo: repo, logger: logger, now: time.Now}
}

// Get returns the fresh config when the server answers, otherwise the cached
// one along with the time it was fetched. A zero time means fresh data.
func (c *ConfigCache) Get(ctx context.Context) (*models.SiteConfig, time.Time, error) {
	cfg, err := c.remote.GetConfig(ctx)
	if err == nil {
		c.store(ctx, cfg)
		return cfg, time.Time{}, nil
	}

	apiErr, ok := api.As(err)
	if !ok || !apiErr.IsNetwork() {
		return nil, time.Time{}, err
	}

	payload, fetchedAt, cacheErr := c.repo.Get(ctx)
	if cacheErr != nil || payload == nil {
		return nil, time.Time{}, errors.Join(err, cacheErr)
	}

	var cached models.SiteConfig
	if jsonErr := json.Unmarshal(payload, &cached); jsonErr != nil {
		return nil, time.Time{}, errors.Join(err, jsonErr)
	}
	c.logger.Info(ctx, "serving cached site config", "fetched_at", fetchedAt)
	return &cached, fetchedAt, nil
}

func (c *ConfigCache) store(ctx context.Context, cfg *models.SiteConfig) {
	payload, err := json.Marshal(cfg)
	if err != nil {
		c.logger.Warn(ctx, "encode site config", "error", err)
		return
	}
	if err := c.repo.Put(ctx, payload, c.now()); err != nil {
		c.logger.Warn(ctx, "cache site config", "error", err)
	}
}
