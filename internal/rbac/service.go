package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MembershipRepository resolves a user's role within an organisation.
type MembershipRepository interface {
	RoleInOrg(ctx context.Context, userID, orgID int64) (Role, bool, error)
}

type membershipRepository struct {
	pool *pgxpool.Pool
}

// NewMembershipRepository builds a pool-backed repository.
func NewMembershipRepository(pool *pgxpool.Pool) MembershipRepository {
	return &membershipRepository{pool: pool}
}

func (r *membershipRepository) RoleInOrg(ctx context.Context, userID, orgID int64) (Role, bool, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `SELECT role FROM org_members WHERE user_id = $1 AND org_id = $2`, userID, orgID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return role, true, nil
}
