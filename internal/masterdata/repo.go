package masterdata

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository looks up reference entities by id within an org's scope.
type Repository interface {
	GetTeacher(ctx context.Context, orgID, id int64) (*Teacher, error)
	GetLocation(ctx context.Context, orgID, id int64) (*Location, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a pool-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) GetTeacher(ctx context.Context, orgID, id int64) (*Teacher, error) {
	var t Teacher
	err := r.pool.QueryRow(ctx, `SELECT id, org_id, name, created_at, updated_at FROM teachers WHERE org_id = $1 AND id = $2`, orgID, id).
		Scan(&t.ID, &t.OrgID, &t.Name, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *repository) GetLocation(ctx context.Context, orgID, id int64) (*Location, error) {
	var l Location
	err := r.pool.QueryRow(ctx, `SELECT id, org_id, name, created_at, updated_at FROM locations WHERE org_id = $1 AND id = $2`, orgID, id).
		Scan(&l.ID, &l.OrgID, &l.Name, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}
