package auth_test

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/cadenza-hq/cadenza/internal/auth"
	"github.com/cadenza-hq/cadenza/internal/shared"
	_ "github.com/cadenza-hq/cadenza/testing"
)

type stubTokenRepo struct {
	id    int64
	hash  string
	actor *shared.Actor
}

func (s *stubTokenRepo) GetToken(ctx context.Context, tokenID int64) (string, *shared.Actor, error) {
	if tokenID != s.id {
		return "", nil, auth.ErrInvalidToken
	}
	return s.hash, s.actor, nil
}

func newStubTokenRepo(t *testing.T, id int64, secret string) *stubTokenRepo {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash secret: %v", err)
	}
	return &stubTokenRepo{id: id, hash: string(hash), actor: &shared.Actor{UserID: 1, Name: "Admin User"}}
}

func TestVerifySeededDevToken(t *testing.T) {
	repo := newStubTokenRepo(t, 1, "cadenza-dev-secret")

	actor, err := auth.Verify(context.Background(), repo, "1.cadenza-dev-secret")
	if err != nil {
		t.Fatalf("seeded token rejected: %v", err)
	}
	if actor.UserID != 1 || actor.Name != "Admin User" {
		t.Fatalf("unexpected actor: %+v", actor)
	}
}

func TestVerifyRejectsNonNumericID(t *testing.T) {
	repo := newStubTokenRepo(t, 1, "cadenza-dev-secret")

	if _, err := auth.Verify(context.Background(), repo, "dev-token.cadenza-dev-secret"); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	repo := newStubTokenRepo(t, 1, "cadenza-dev-secret")

	if _, err := auth.Verify(context.Background(), repo, "1.wrong"); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
	if _, err := auth.Verify(context.Background(), repo, "no-separator"); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}
