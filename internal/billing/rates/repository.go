package rates

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides access to an org's rate cards.
type Repository interface {
	List(ctx context.Context, orgID int64) ([]RateCard, error)
	Get(ctx context.Context, orgID, id int64) (*RateCard, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a pool-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const cardColumns = `id, org_id, name, duration_minutes, price_minor, is_default, created_at, updated_at`

func (r *repository) List(ctx context.Context, orgID int64) ([]RateCard, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+cardColumns+` FROM rate_cards WHERE org_id = $1 ORDER BY id`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []RateCard
	for rows.Next() {
		var c RateCard
		if err := rows.Scan(&c.ID, &c.OrgID, &c.Name, &c.DurationMinutes, &c.PriceMinor, &c.IsDefault, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func (r *repository) Get(ctx context.Context, orgID, id int64) (*RateCard, error) {
	var c RateCard
	err := r.pool.QueryRow(ctx, `SELECT `+cardColumns+` FROM rate_cards WHERE org_id = $1 AND id = $2`, orgID, id).
		Scan(&c.ID, &c.OrgID, &c.Name, &c.DurationMinutes, &c.PriceMinor, &c.IsDefault, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
