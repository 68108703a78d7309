package recurrence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the rule does not exist in the org's scope.
var ErrNotFound = errors.New("recurrence rule not found")

// Repository provides access to recurrence rules and closure dates.
type Repository interface {
	Get(ctx context.Context, orgID, id int64) (*Rule, error)
	Create(ctx context.Context, rule Rule) (int64, error)
	// Truncate moves the rule's end date earlier. It refuses to extend an
	// already-set end date.
	Truncate(ctx context.Context, orgID, id int64, endDate time.Time) error
	ListClosures(ctx context.Context, orgID int64, from, to time.Time) ([]Closure, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db dbtx
}

// NewRepository builds a pool-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

// NewRepositoryWithTx binds the repository to an open transaction.
func NewRepositoryWithTx(tx pgx.Tx) Repository {
	return &repository{db: tx}
}

const ruleColumns = `id, org_id, pattern, weekday, interval_weeks, start_time, duration_minutes, start_date, end_date, timezone, teacher_id, location_id, room, created_at, updated_at`

func (r *repository) Get(ctx context.Context, orgID, id int64) (*Rule, error) {
	query := fmt.Sprintf(`SELECT %s FROM recurrence_rules WHERE org_id = $1 AND id = $2`, ruleColumns)
	var rule Rule
	var weekday int
	err := r.db.QueryRow(ctx, query, orgID, id).Scan(
		&rule.ID, &rule.OrgID, &rule.Pattern, &weekday, &rule.IntervalWeeks,
		&rule.StartTime, &rule.DurationMinutes, &rule.StartDate, &rule.EndDate,
		&rule.Timezone, &rule.TeacherID, &rule.LocationID, &rule.Room,
		&rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rule.Weekday = time.Weekday(weekday)
	return &rule, nil
}

func (r *repository) Create(ctx context.Context, rule Rule) (int64, error) {
	if rule.EndDate != nil && rule.EndDate.Before(rule.StartDate) {
		return 0, errors.New("recurrence rule end date before start date")
	}
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO recurrence_rules
			(org_id, pattern, weekday, interval_weeks, start_time, duration_minutes,
			 start_date, end_date, timezone, teacher_id, location_id, room, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING id`,
		rule.OrgID, rule.Pattern, int(rule.Weekday), rule.IntervalWeeks,
		rule.StartTime, rule.DurationMinutes, rule.StartDate, rule.EndDate,
		rule.Timezone, rule.TeacherID, rule.LocationID, rule.Room,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create recurrence rule: %w", err)
	}
	return id, nil
}

func (r *repository) Truncate(ctx context.Context, orgID, id int64, endDate time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE recurrence_rules
		SET end_date = $3, updated_at = NOW()
		WHERE org_id = $1 AND id = $2
		  AND (end_date IS NULL OR end_date > $3)`,
		orgID, id, endDate)
	if err != nil {
		return fmt.Errorf("truncate recurrence rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either absent or already truncated at least this far. Check which.
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM recurrence_rules WHERE org_id = $1 AND id = $2)`, orgID, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}

func (r *repository) ListClosures(ctx context.Context, orgID int64, from, to time.Time) ([]Closure, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, org_id, date, location_id, reason
		FROM closure_dates
		WHERE org_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date`,
		orgID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var closures []Closure
	for rows.Next() {
		var c Closure
		if err := rows.Scan(&c.ID, &c.OrgID, &c.Date, &c.LocationID, &c.Reason); err != nil {
			return nil, err
		}
		closures = append(closures, c)
	}
	return closures, rows.Err()
}
