package org

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConfigProvider hands out organisation settings to the calculators and
// workflows instead of letting them reach into the store ad hoc, so
// tests can substitute a fixed configuration.
type ConfigProvider interface {
	Settings(ctx context.Context, orgID int64) (*Settings, error)
}

const settingsCacheTTL = 5 * time.Minute

// CachedProvider is a Redis read-through cache over the settings
// repository. Redis being down degrades to direct reads.
type CachedProvider struct {
	repo   Repository
	client *redis.Client
	logger *slog.Logger
}

// NewCachedProvider builds a CachedProvider.
func NewCachedProvider(repo Repository, client *redis.Client, logger *slog.Logger) *CachedProvider {
	return &CachedProvider{repo: repo, client: client, logger: logger}
}

func settingsCacheKey(orgID int64) string {
	return fmt.Sprintf("org:settings:%d", orgID)
}

// Settings returns the org's settings, serving from cache when possible.
func (p *CachedProvider) Settings(ctx context.Context, orgID int64) (*Settings, error) {
	key := settingsCacheKey(orgID)
	if p.client != nil {
		raw, err := p.client.Get(ctx, key).Bytes()
		if err == nil {
			var s Settings
			if err := json.Unmarshal(raw, &s); err == nil {
				return &s, nil
			}
		} else if !errors.Is(err, redis.Nil) && p.logger != nil {
			p.logger.Warn("org settings cache read", slog.Any("error", err))
		}
	}

	s, err := p.repo.GetSettings(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if p.client != nil {
		if raw, err := json.Marshal(s); err == nil {
			if err := p.client.Set(ctx, key, raw, settingsCacheTTL).Err(); err != nil && p.logger != nil {
				p.logger.Warn("org settings cache write", slog.Any("error", err))
			}
		}
	}
	return s, nil
}

// Invalidate drops a cached entry after settings change.
func (p *CachedProvider) Invalidate(ctx context.Context, orgID int64) {
	if p.client == nil {
		return
	}
	if err := p.client.Del(ctx, settingsCacheKey(orgID)).Err(); err != nil && p.logger != nil {
		p.logger.Warn("org settings cache invalidate", slog.Any("error", err))
	}
}
