package org

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates an unknown organisation.
var ErrNotFound = errors.New("organisation not found")

// Repository loads organisation settings.
type Repository interface {
	GetSettings(ctx context.Context, orgID int64) (*Settings, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a pool-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) GetSettings(ctx context.Context, orgID int64) (*Settings, error) {
	var s Settings
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, currency, tax_enabled, tax_rate_percent, default_rate_card_id
		FROM organisations
		WHERE id = $1`,
		orgID).
		Scan(&s.OrgID, &s.Name, &s.Currency, &s.TaxEnabled, &s.TaxRatePercent, &s.DefaultRateCardID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}
