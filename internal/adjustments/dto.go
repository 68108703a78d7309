package adjustments

import "time"

// PreviewRequest describes one adjustment to calculate. New-schedule
// fields are required for day changes and ignored for withdrawals.
type PreviewRequest struct {
	AdjustmentType  Type      `json:"adjustment_type" validate:"required,oneof=withdrawal day_change"`
	StudentID       int64     `json:"student_id" validate:"required,gt=0"`
	RecurrenceID    int64     `json:"recurrence_id" validate:"required,gt=0"`
	EffectiveDate   time.Time `json:"effective_date" validate:"required"`
	TermID          *int64    `json:"term_id,omitempty" validate:"omitempty,gt=0"`
	NewDayOfWeek    *int      `json:"new_day_of_week,omitempty" validate:"omitempty,gte=0,lte=6"`
	NewStartTime    *string   `json:"new_start_time,omitempty" validate:"omitempty,datetime=15:04"`
	NewTeacherID    *int64    `json:"new_teacher_id,omitempty" validate:"omitempty,gt=0"`
	NewLocationID   *int64    `json:"new_location_id,omitempty" validate:"omitempty,gt=0"`
	ManualRateMinor *int64    `json:"manual_rate_minor,omitempty" validate:"omitempty,gte=0"`
	Notes           *string   `json:"notes,omitempty"`
}

// PreviewResponse is the full human-readable preview an operator reviews
// before confirming.
type PreviewResponse struct {
	AdjustmentID   int64  `json:"adjustment_id"`
	Reference      string `json:"reference"`
	AdjustmentType Type   `json:"adjustment_type"`
	StudentName    string `json:"student_name"`
	TermName       string `json:"term_name,omitempty"`
	EffectiveDate  string `json:"effective_date"`
	TermEndDate    string `json:"term_end_date"`

	OriginalDay         string `json:"original_day"`
	OriginalTime        string `json:"original_time"`
	OriginalTeacherName string `json:"original_teacher_name"`
	OriginalLocation    string `json:"original_location"`
	OriginalLessonCount int    `json:"original_lesson_count"`

	NewDay         string   `json:"new_day,omitempty"`
	NewTime        string   `json:"new_time,omitempty"`
	NewTeacherName string   `json:"new_teacher_name,omitempty"`
	NewLocation    string   `json:"new_location,omitempty"`
	NewLessonCount int      `json:"new_lesson_count"`
	NewDates       []string `json:"new_dates,omitempty"`

	LessonRateMinor       int64  `json:"lesson_rate_minor"`
	RateLowConfidence     bool   `json:"rate_low_confidence"`
	LessonsDifference     int    `json:"lessons_difference"`
	AdjustmentAmountMinor int64  `json:"adjustment_amount_minor"`
	VATAmountMinor        int64  `json:"vat_amount_minor"`
	TotalAdjustmentMinor  int64  `json:"total_adjustment_minor"`
	CurrencyCode          string `json:"currency_code"`
	ExistingTermInvoiceID *int64 `json:"existing_term_invoice,omitempty"`
}

// ConfirmRequest carries the confirm-time options.
type ConfirmRequest struct {
	GenerateCreditNote *bool `json:"generate_credit_note,omitempty"`
}

// GenerateDocument applies the default of true when the field is absent.
func (r ConfirmRequest) GenerateDocument() bool {
	return r.GenerateCreditNote == nil || *r.GenerateCreditNote
}

// ConfirmResponse reports what the confirm applied.
type ConfirmResponse struct {
	Type                Type   `json:"-"`
	Success             bool   `json:"success"`
	AdjustmentID        int64  `json:"adjustment_id"`
	CancelledCount      int    `json:"cancelled_count"`
	CreatedCount        int    `json:"created_count"`
	NewRecurrenceID     *int64 `json:"new_recurrence_id,omitempty"`
	CreditNoteInvoiceID *int64 `json:"credit_note_invoice_id,omitempty"`
}
