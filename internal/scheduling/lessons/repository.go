package lessons

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CancelParams stamps who retracted a set of lessons and why.
type CancelParams struct {
	Reason  string
	ActorID int64
	At      time.Time
}

// Repository provides access to lesson occurrences.
type Repository interface {
	// ListScheduledOnRecurrence returns scheduled lessons generated by the
	// recurrence whose start falls within [from, to), ordered by start.
	ListScheduledOnRecurrence(ctx context.Context, orgID, recurrenceID int64, from, to time.Time) ([]Lesson, error)
	// CancelScheduledOnRecurrence cancels those same lessons and removes
	// any attendance already logged against them. Returns the cancelled ids.
	CancelScheduledOnRecurrence(ctx context.Context, orgID, recurrenceID int64, from, to time.Time, params CancelParams) ([]int64, error)
	// CreateBatch inserts lessons and links the student as participant on
	// each. Returns the created ids in input order.
	CreateBatch(ctx context.Context, batch []Lesson, studentID int64) ([]int64, error)
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

const lessonColumns = `id, org_id, recurrence_id, starts_at, ends_at, status, teacher_id, location_id, room, lesson_type, title, is_online, cancelled_by, cancelled_at, cancellation_reason, created_at, updated_at`

func (r *repository) ListScheduledOnRecurrence(ctx context.Context, orgID, recurrenceID int64, from, to time.Time) ([]Lesson, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+lessonColumns+`
		FROM lessons
		WHERE org_id = $1 AND recurrence_id = $2 AND status = $3
		  AND starts_at >= $4 AND starts_at < $5
		ORDER BY starts_at`,
		orgID, recurrenceID, StatusScheduled, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Lesson
	for rows.Next() {
		var l Lesson
		if err := rows.Scan(
			&l.ID, &l.OrgID, &l.RecurrenceID, &l.StartsAt, &l.EndsAt, &l.Status,
			&l.TeacherID, &l.LocationID, &l.Room, &l.LessonType, &l.Title, &l.IsOnline,
			&l.CancelledBy, &l.CancelledAt, &l.CancellationReason, &l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *repository) CancelScheduledOnRecurrence(ctx context.Context, orgID, recurrenceID int64, from, to time.Time, params CancelParams) ([]int64, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE lessons
		SET status = $1, cancelled_by = $2, cancelled_at = $3, cancellation_reason = $4, updated_at = NOW()
		WHERE org_id = $5 AND recurrence_id = $6 AND status = $7
		  AND starts_at >= $8 AND starts_at < $9
		RETURNING id`,
		StatusCancelled, params.ActorID, params.At, params.Reason,
		orgID, recurrenceID, StatusScheduled, from, to)
	if err != nil {
		return nil, fmt.Errorf("cancel lessons: %w", err)
	}
	ids, err := collectIDs(rows)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	// Attendance logged against a retracted occurrence is meaningless.
	if _, err := r.db.Exec(ctx, `DELETE FROM attendance_records WHERE lesson_id = ANY($1)`, ids); err != nil {
		return nil, fmt.Errorf("remove attendance: %w", err)
	}
	return ids, nil
}

func (r *repository) CreateBatch(ctx context.Context, batch []Lesson, studentID int64) ([]int64, error) {
	ids := make([]int64, 0, len(batch))
	for _, l := range batch {
		var id int64
		err := r.db.QueryRow(ctx, `
			INSERT INTO lessons
				(org_id, recurrence_id, starts_at, ends_at, status, teacher_id, location_id,
				 room, lesson_type, title, is_online, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
			RETURNING id`,
			l.OrgID, l.RecurrenceID, l.StartsAt, l.EndsAt, StatusScheduled,
			l.TeacherID, l.LocationID, l.Room, l.LessonType, l.Title, l.IsOnline,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("create lesson: %w", err)
		}
		if _, err := r.db.Exec(ctx, `INSERT INTO lesson_participants (lesson_id, student_id) VALUES ($1, $2)`, id, studentID); err != nil {
			return nil, fmt.Errorf("link participant: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func collectIDs(rows pgx.Rows) ([]int64, error) {
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
