package org

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	_ "github.com/cadenza-hq/cadenza/testing"
)

type countingRepo struct {
	settings *Settings
	calls    int
}

func (r *countingRepo) GetSettings(ctx context.Context, orgID int64) (*Settings, error) {
	r.calls++
	if r.settings == nil || r.settings.OrgID != orgID {
		return nil, ErrNotFound
	}
	return r.settings, nil
}

func TestCachedProviderReadThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := &countingRepo{settings: &Settings{OrgID: 1, Name: "Allegro Music School", Currency: "GBP", TaxEnabled: true, TaxRatePercent: 20}}
	provider := NewCachedProvider(repo, client, nil)

	ctx := context.Background()
	first, err := provider.Settings(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "GBP", first.Currency)

	second, err := provider.Settings(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, repo.calls, "second read must be served from cache")
}

func TestCachedProviderInvalidate(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := &countingRepo{settings: &Settings{OrgID: 1, Currency: "GBP"}}
	provider := NewCachedProvider(repo, client, nil)

	ctx := context.Background()
	_, err := provider.Settings(ctx, 1)
	require.NoError(t, err)

	provider.Invalidate(ctx, 1)

	_, err = provider.Settings(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls)
}

func TestCachedProviderUnknownOrg(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	provider := NewCachedProvider(&countingRepo{}, client, nil)

	_, err := provider.Settings(context.Background(), 99)
	require.ErrorIs(t, err, ErrNotFound)
}
