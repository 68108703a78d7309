// Package auth verifies API tokens presented by operator clients. Token
// issuance and account management live outside this service.
package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/cadenza-hq/cadenza/internal/shared"
)

// ErrInvalidToken indicates a missing, malformed or unverifiable token.
var ErrInvalidToken = errors.New("invalid api token")

// Repository looks up token credentials.
type Repository interface {
	// GetToken returns the bcrypt hash and owning user for a token id.
	GetToken(ctx context.Context, tokenID int64) (hash string, actor *shared.Actor, err error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a pool-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) GetToken(ctx context.Context, tokenID int64) (string, *shared.Actor, error) {
	var hash string
	var actor shared.Actor
	err := r.pool.QueryRow(ctx, `
		SELECT t.token_hash, u.id, u.full_name
		FROM api_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.id = $1`,
		tokenID).Scan(&hash, &actor.UserID, &actor.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, ErrInvalidToken
		}
		return "", nil, err
	}
	return hash, &actor, nil
}

// Verify checks a bearer token of the form "<tokenID>.<secret>" and
// returns the owning actor.
func Verify(ctx context.Context, repo Repository, token string) (*shared.Actor, error) {
	id, secret, ok := strings.Cut(token, ".")
	if !ok {
		return nil, ErrInvalidToken
	}
	tokenID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}
	hash, actor, err := repo.GetToken(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		return nil, ErrInvalidToken
	}
	return actor, nil
}
