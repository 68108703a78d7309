// Package adjustments implements the term adjustment engine: mid-term
// withdrawal or day-change of a student's recurring lesson series, with
// proration of the financial impact. Preview computes and persists a
// draft; confirm applies it exactly once.
package adjustments

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/cadenza-hq/cadenza/internal/students"
)

// Type enumerates the supported adjustment kinds.
type Type string

const (
	TypeWithdrawal Type = "withdrawal"
	TypeDayChange  Type = "day_change"
)

// Valid reports whether the type is a known adjustment kind.
func (t Type) Valid() bool {
	return t == TypeWithdrawal || t == TypeDayChange
}

// Status is the two-phase lifecycle of an adjustment. The only legal
// transition is Draft to Confirmed, and it happens at most once.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusConfirmed Status = "confirmed"
)

// CanTransition reports whether moving from s to next is legal.
func (s Status) CanTransition(next Status) bool {
	return s == StatusDraft && next == StatusConfirmed
}

// ErrAlreadyProcessed is returned when confirm cannot find a draft row:
// the adjustment either never existed or was already confirmed. Either
// way the caller must not retry the mutation.
var ErrAlreadyProcessed = errors.New("adjustment not found or already confirmed")

// TermAdjustment is the durable record of one adjustment request. The
// draft captures the full computed schedule, not just the deltas, so
// confirm never recomputes from live data.
type TermAdjustment struct {
	ID           int64     `json:"id" db:"id"`
	Reference    uuid.UUID `json:"reference" db:"reference"`
	OrgID        int64     `json:"org_id" db:"org_id"`
	Type         Type      `json:"adjustment_type" db:"adjustment_type"`
	StudentID    int64     `json:"student_id" db:"student_id"`
	RecurrenceID int64     `json:"recurrence_id" db:"recurrence_id"`
	// Payer resolved at preview time: the primary-payer guardian when one
	// is linked, otherwise the student.
	PayerKind     students.PayerKind `json:"payer_kind" db:"payer_kind"`
	PayerID       int64              `json:"payer_id" db:"payer_id"`
	TermID        *int64             `json:"term_id,omitempty" db:"term_id"`
	EffectiveDate time.Time          `json:"effective_date" db:"effective_date"`
	TermEndDate   time.Time          `json:"term_end_date" db:"term_end_date"`

	// Original series, derived from the first remaining lesson.
	OriginalWeekday     time.Weekday `json:"original_weekday" db:"original_weekday"`
	OriginalStartTime   string       `json:"original_start_time" db:"original_start_time"`
	OriginalLessonCount int          `json:"original_lesson_count" db:"original_lesson_count"`
	OriginalTeacherID   int64        `json:"original_teacher_id" db:"original_teacher_id"`
	OriginalLocationID  int64        `json:"original_location_id" db:"original_location_id"`
	DurationMinutes     int          `json:"duration_minutes" db:"duration_minutes"`
	LessonType          string       `json:"lesson_type" db:"lesson_type"`
	LessonTitle         string       `json:"lesson_title" db:"lesson_title"`
	IsOnline            bool         `json:"is_online" db:"is_online"`
	Room                *string      `json:"room,omitempty" db:"room"`

	// Replacement series; empty for withdrawals.
	NewWeekday     *time.Weekday `json:"new_weekday,omitempty" db:"new_weekday"`
	NewStartTime   *string       `json:"new_start_time,omitempty" db:"new_start_time"`
	NewTeacherID   *int64        `json:"new_teacher_id,omitempty" db:"new_teacher_id"`
	NewLocationID  *int64        `json:"new_location_id,omitempty" db:"new_location_id"`
	NewLessonCount int           `json:"new_lesson_count" db:"new_lesson_count"`
	NewDates       []time.Time   `json:"new_dates,omitempty" db:"new_dates"`

	// Financial impact. Positive delta means lessons removed (credit),
	// negative means lessons added (supplementary charge).
	RateMinor         int64   `json:"lesson_rate_minor" db:"lesson_rate_minor"`
	RateLowConfidence bool    `json:"rate_low_confidence" db:"rate_low_confidence"`
	LessonsDelta      int     `json:"lessons_difference" db:"lessons_difference"`
	AmountMinor       int64   `json:"adjustment_amount_minor" db:"adjustment_amount_minor"`
	TaxMinor          int64   `json:"vat_amount_minor" db:"vat_amount_minor"`
	TotalMinor        int64   `json:"total_adjustment_minor" db:"total_adjustment_minor"`
	Currency          string  `json:"currency_code" db:"currency_code"`
	ExistingInvoiceID *int64  `json:"existing_term_invoice,omitempty" db:"existing_invoice_id"`
	Notes             *string `json:"notes,omitempty" db:"notes"`

	Status      Status     `json:"status" db:"status"`
	CreatedBy   int64      `json:"created_by" db:"created_by"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	ConfirmedBy *int64     `json:"confirmed_by,omitempty" db:"confirmed_by"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty" db:"confirmed_at"`

	// Populated on confirm.
	CancelledLessonIDs []int64 `json:"cancelled_lesson_ids,omitempty" db:"cancelled_lesson_ids"`
	CreatedLessonIDs   []int64 `json:"created_lesson_ids,omitempty" db:"created_lesson_ids"`
	NewRecurrenceID    *int64  `json:"new_recurrence_id,omitempty" db:"new_recurrence_id"`
	InvoiceID          *int64  `json:"invoice_id,omitempty" db:"invoice_id"`
}
