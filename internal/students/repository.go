package students

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the student does not exist in the org's scope.
var ErrNotFound = errors.New("student not found")

// Repository provides access to students and their payer linkage.
type Repository interface {
	Get(ctx context.Context, orgID, id int64) (*Student, error)
	// ResolvePayer returns the primary-payer guardian when linked,
	// otherwise the student themselves.
	ResolvePayer(ctx context.Context, orgID, studentID int64) (*Payer, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a pool-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, orgID, id int64) (*Student, error) {
	var s Student
	err := r.pool.QueryRow(ctx, `
		SELECT id, org_id, name, default_rate_card_id, created_at, updated_at
		FROM students
		WHERE org_id = $1 AND id = $2`,
		orgID, id).
		Scan(&s.ID, &s.OrgID, &s.Name, &s.DefaultRateCardID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *repository) ResolvePayer(ctx context.Context, orgID, studentID int64) (*Payer, error) {
	var p Payer
	err := r.pool.QueryRow(ctx, `
		SELECT g.id, g.name
		FROM student_guardians sg
		JOIN guardians g ON g.id = sg.guardian_id
		WHERE sg.student_id = $1 AND sg.is_primary_payer AND g.org_id = $2
		LIMIT 1`,
		studentID, orgID).
		Scan(&p.ID, &p.Name)
	if err == nil {
		p.Kind = PayerGuardian
		return &p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	student, err := r.Get(ctx, orgID, studentID)
	if err != nil {
		return nil, err
	}
	return &Payer{Kind: PayerStudent, ID: student.ID, Name: student.Name}, nil
}
