package adjustments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cadenza-hq/cadenza/internal/billing/invoices"
	"github.com/cadenza-hq/cadenza/internal/platform/db"
	"github.com/cadenza-hq/cadenza/internal/scheduling/lessons"
	"github.com/cadenza-hq/cadenza/internal/scheduling/recurrence"
)

// ConfirmUpdate records the concrete outcome of a confirmed adjustment.
type ConfirmUpdate struct {
	ConfirmedBy        int64
	ConfirmedAt        time.Time
	CancelledLessonIDs []int64
	CreatedLessonIDs   []int64
	NewRecurrenceID    *int64
	InvoiceID          *int64
}

// Repository provides access to term adjustment records.
type Repository interface {
	CreateDraft(ctx context.Context, adj TermAdjustment) (int64, error)
	Get(ctx context.Context, orgID, id int64) (*TermAdjustment, error)
	// GetDraftForUpdate re-fetches the adjustment filtered by draft status,
	// locking the row for the enclosing transaction. ErrAlreadyProcessed
	// when no draft row matches.
	GetDraftForUpdate(ctx context.Context, orgID, id int64) (*TermAdjustment, error)
	// MarkConfirmed flips draft to confirmed. The update is guarded by the
	// draft-status filter; ErrAlreadyProcessed when zero rows match.
	MarkConfirmed(ctx context.Context, orgID, id int64, update ConfirmUpdate) error
}

// TxStores groups the repositories participating in one confirm
// transaction.
type TxStores struct {
	Adjustments Repository
	Lessons     lessons.Repository
	Recurrences recurrence.Repository
	Invoices    invoices.Repository
}

// TxRunner opens the transactional boundary the confirm workflow runs
// inside. All stores it hands to fn share one transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, s TxStores) error) error
}

type pgTxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner builds a pgx-backed TxRunner.
func NewTxRunner(pool *pgxpool.Pool) TxRunner {
	return &pgTxRunner{pool: pool}
}

func (r *pgTxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context, s TxStores) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, TxStores{
			Adjustments: &repository{db: tx},
			Lessons:     lessons.NewRepositoryWithTx(tx),
			Recurrences: recurrence.NewRepositoryWithTx(tx),
			Invoices:    invoices.NewRepositoryWithTx(tx),
		})
	})
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

const adjustmentColumns = `id, reference, org_id, adjustment_type, student_id, recurrence_id, payer_kind, payer_id, term_id,
	effective_date, term_end_date,
	original_weekday, original_start_time, original_lesson_count, original_teacher_id, original_location_id,
	duration_minutes, lesson_type, lesson_title, is_online, room,
	new_weekday, new_start_time, new_teacher_id, new_location_id, new_lesson_count, new_dates,
	lesson_rate_minor, rate_low_confidence, lessons_difference, amount_minor, tax_minor, total_minor,
	currency, existing_invoice_id, notes, status, created_by, created_at, confirmed_by, confirmed_at,
	cancelled_lesson_ids, created_lesson_ids, new_recurrence_id, invoice_id`

func (r *repository) CreateDraft(ctx context.Context, adj TermAdjustment) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO term_adjustments
			(reference, org_id, adjustment_type, student_id, recurrence_id, payer_kind, payer_id, term_id,
			 effective_date, term_end_date,
			 original_weekday, original_start_time, original_lesson_count, original_teacher_id, original_location_id,
			 duration_minutes, lesson_type, lesson_title, is_online, room,
			 new_weekday, new_start_time, new_teacher_id, new_location_id, new_lesson_count, new_dates,
			 lesson_rate_minor, rate_low_confidence, lessons_difference, amount_minor, tax_minor, total_minor,
			 currency, existing_invoice_id, notes, status, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
		        $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35, $36, $37, NOW())
		RETURNING id`,
		adj.Reference, adj.OrgID, adj.Type, adj.StudentID, adj.RecurrenceID, adj.PayerKind, adj.PayerID, adj.TermID,
		adj.EffectiveDate, adj.TermEndDate,
		int(adj.OriginalWeekday), adj.OriginalStartTime, adj.OriginalLessonCount, adj.OriginalTeacherID, adj.OriginalLocationID,
		adj.DurationMinutes, adj.LessonType, adj.LessonTitle, adj.IsOnline, adj.Room,
		weekdayPtr(adj.NewWeekday), adj.NewStartTime, adj.NewTeacherID, adj.NewLocationID, adj.NewLessonCount, adj.NewDates,
		adj.RateMinor, adj.RateLowConfidence, adj.LessonsDelta, adj.AmountMinor, adj.TaxMinor, adj.TotalMinor,
		adj.Currency, adj.ExistingInvoiceID, adj.Notes, StatusDraft, adj.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create draft adjustment: %w", err)
	}
	return id, nil
}

func (r *repository) Get(ctx context.Context, orgID, id int64) (*TermAdjustment, error) {
	return r.fetch(ctx, `SELECT `+adjustmentColumns+` FROM term_adjustments WHERE org_id = $1 AND id = $2`, orgID, id)
}

func (r *repository) GetDraftForUpdate(ctx context.Context, orgID, id int64) (*TermAdjustment, error) {
	adj, err := r.fetch(ctx, `SELECT `+adjustmentColumns+` FROM term_adjustments WHERE org_id = $1 AND id = $2 AND status = 'draft' FOR UPDATE`, orgID, id)
	if err != nil {
		return nil, err
	}
	if adj == nil {
		return nil, ErrAlreadyProcessed
	}
	return adj, nil
}

func (r *repository) MarkConfirmed(ctx context.Context, orgID, id int64, update ConfirmUpdate) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE term_adjustments
		SET status = $3, confirmed_by = $4, confirmed_at = $5,
		    cancelled_lesson_ids = $6, created_lesson_ids = $7,
		    new_recurrence_id = $8, invoice_id = $9
		WHERE org_id = $1 AND id = $2 AND status = $10`,
		orgID, id, StatusConfirmed, update.ConfirmedBy, update.ConfirmedAt,
		update.CancelledLessonIDs, update.CreatedLessonIDs,
		update.NewRecurrenceID, update.InvoiceID, StatusDraft)
	if err != nil {
		return fmt.Errorf("confirm adjustment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyProcessed
	}
	return nil
}

func (r *repository) fetch(ctx context.Context, query string, args ...any) (*TermAdjustment, error) {
	var adj TermAdjustment
	var origWeekday int
	var newWeekday *int
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&adj.ID, &adj.Reference, &adj.OrgID, &adj.Type, &adj.StudentID, &adj.RecurrenceID, &adj.PayerKind, &adj.PayerID, &adj.TermID,
		&adj.EffectiveDate, &adj.TermEndDate,
		&origWeekday, &adj.OriginalStartTime, &adj.OriginalLessonCount, &adj.OriginalTeacherID, &adj.OriginalLocationID,
		&adj.DurationMinutes, &adj.LessonType, &adj.LessonTitle, &adj.IsOnline, &adj.Room,
		&newWeekday, &adj.NewStartTime, &adj.NewTeacherID, &adj.NewLocationID, &adj.NewLessonCount, &adj.NewDates,
		&adj.RateMinor, &adj.RateLowConfidence, &adj.LessonsDelta, &adj.AmountMinor, &adj.TaxMinor, &adj.TotalMinor,
		&adj.Currency, &adj.ExistingInvoiceID, &adj.Notes, &adj.Status, &adj.CreatedBy, &adj.CreatedAt,
		&adj.ConfirmedBy, &adj.ConfirmedAt,
		&adj.CancelledLessonIDs, &adj.CreatedLessonIDs, &adj.NewRecurrenceID, &adj.InvoiceID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	adj.OriginalWeekday = time.Weekday(origWeekday)
	if newWeekday != nil {
		w := time.Weekday(*newWeekday)
		adj.NewWeekday = &w
	}
	return &adj, nil
}

func weekdayPtr(w *time.Weekday) *int {
	if w == nil {
		return nil
	}
	v := int(*w)
	return &v
}
