package terms

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides access to an org's terms.
type Repository interface {
	Get(ctx context.Context, orgID, id int64) (*Term, error)
	// FindEnclosing returns the term whose window contains date, or nil.
	FindEnclosing(ctx context.Context, orgID int64, date time.Time) (*Term, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a pool-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const termColumns = `id, org_id, name, start_date, end_date, created_at, updated_at`

func (r *repository) Get(ctx context.Context, orgID, id int64) (*Term, error) {
	var t Term
	err := r.pool.QueryRow(ctx, `SELECT `+termColumns+` FROM terms WHERE org_id = $1 AND id = $2`, orgID, id).
		Scan(&t.ID, &t.OrgID, &t.Name, &t.StartDate, &t.EndDate, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *repository) FindEnclosing(ctx context.Context, orgID int64, date time.Time) (*Term, error) {
	var t Term
	err := r.pool.QueryRow(ctx, `
		SELECT `+termColumns+`
		FROM terms
		WHERE org_id = $1 AND start_date <= $2 AND end_date >= $2
		ORDER BY start_date DESC
		LIMIT 1`,
		orgID, date).
		Scan(&t.ID, &t.OrgID, &t.Name, &t.StartDate, &t.EndDate, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}
