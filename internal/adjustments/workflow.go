package adjustments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cadenza-hq/cadenza/internal/billing/invoices"
	"github.com/cadenza-hq/cadenza/internal/billing/money"
	"github.com/cadenza-hq/cadenza/internal/platform/httpx"
	"github.com/cadenza-hq/cadenza/internal/scheduling/lessons"
	"github.com/cadenza-hq/cadenza/internal/scheduling/recurrence"
	"github.com/cadenza-hq/cadenza/internal/shared"
)

// Notifier enqueues post-confirm notifications. Delivery is a
// collaborator concern; failures are logged, never propagated.
type Notifier interface {
	AdjustmentConfirmed(ctx context.Context, orgID, adjustmentID int64) error
}

// AuditRecorder abstracts the audit log writer.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Workflow applies confirmed adjustments. It is the engine's only
// mutating entry point, and every write of one confirm call shares a
// single transaction: a mid-sequence failure rolls everything back and
// leaves the draft retryable.
type Workflow struct {
	logger   *slog.Logger
	tx       TxRunner
	audit    AuditRecorder
	notifier Notifier
}

// NewWorkflow wires the workflow.
func NewWorkflow(logger *slog.Logger, tx TxRunner, audit AuditRecorder, notifier Notifier) *Workflow {
	return &Workflow{logger: logger, tx: tx, audit: audit, notifier: notifier}
}

// Confirm applies the draft adjustment exactly once. Concurrent or
// repeated calls for the same id race on the draft-status row filter;
// every caller after the first loses and receives ErrAlreadyProcessed
// wrapped in a conflict.
func (w *Workflow) Confirm(ctx context.Context, orgID, adjustmentID int64, generateDocument bool, actor shared.Actor) (*ConfirmResponse, error) {
	var resp *ConfirmResponse
	var confirmed *TermAdjustment

	err := w.tx.WithinTx(ctx, func(ctx context.Context, s TxStores) error {
		adj, err := s.Adjustments.GetDraftForUpdate(ctx, orgID, adjustmentID)
		if err != nil {
			if errors.Is(err, ErrAlreadyProcessed) {
				return fmt.Errorf("%w: %s", httpx.ErrConflict, ErrAlreadyProcessed)
			}
			return fmt.Errorf("refetch draft: %w", err)
		}
		if !adj.Status.CanTransition(StatusConfirmed) {
			return fmt.Errorf("%w: %s", httpx.ErrConflict, ErrAlreadyProcessed)
		}

		now := time.Now()
		update := ConfirmUpdate{ConfirmedBy: actor.UserID, ConfirmedAt: now}

		cancelled, err := s.Lessons.CancelScheduledOnRecurrence(ctx, orgID, adj.RecurrenceID,
			adj.EffectiveDate, adj.TermEndDate.AddDate(0, 0, 1),
			lessons.CancelParams{
				Reason:  cancellationReason(adj.Type),
				ActorID: actor.UserID,
				At:      now,
			})
		if err != nil {
			return err
		}
		update.CancelledLessonIDs = cancelled

		// The old rule must never regenerate lessons past the adjustment
		// point, even if another process re-expands it.
		if err := s.Recurrences.Truncate(ctx, orgID, adj.RecurrenceID, adj.EffectiveDate.AddDate(0, 0, -1)); err != nil {
			return err
		}

		if adj.Type == TypeDayChange {
			newRecurrenceID, createdIDs, err := w.createReplacementSeries(ctx, s, adj)
			if err != nil {
				return err
			}
			update.NewRecurrenceID = &newRecurrenceID
			update.CreatedLessonIDs = createdIDs
		}

		if adj.TotalMinor != 0 && generateDocument {
			doc, err := w.issueDocument(ctx, s, adj)
			if err != nil {
				return err
			}
			update.InvoiceID = &doc.ID
		}

		if err := s.Adjustments.MarkConfirmed(ctx, orgID, adjustmentID, update); err != nil {
			if errors.Is(err, ErrAlreadyProcessed) {
				return fmt.Errorf("%w: %s", httpx.ErrConflict, ErrAlreadyProcessed)
			}
			return err
		}

		confirmed = adj
		resp = &ConfirmResponse{
			Type:                adj.Type,
			Success:             true,
			AdjustmentID:        adjustmentID,
			CancelledCount:      len(update.CancelledLessonIDs),
			CreatedCount:        len(update.CreatedLessonIDs),
			NewRecurrenceID:     update.NewRecurrenceID,
			CreditNoteInvoiceID: update.InvoiceID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := w.audit.Record(ctx, shared.AuditLog{
		OrgID:    orgID,
		ActorID:  actor.UserID,
		Action:   "term_adjustment.confirm",
		Entity:   "term_adjustment",
		EntityID: fmt.Sprintf("%d", adjustmentID),
		Meta: map[string]any{
			"type":            string(confirmed.Type),
			"student_id":      confirmed.StudentID,
			"cancelled_count": resp.CancelledCount,
			"created_count":   resp.CreatedCount,
			"total_minor":     confirmed.TotalMinor,
		},
		At: time.Now(),
	}); err != nil {
		w.logger.Error("audit adjustment confirm", slog.Int64("adjustment_id", adjustmentID), slog.Any("error", err))
	}

	if w.notifier != nil {
		if err := w.notifier.AdjustmentConfirmed(ctx, orgID, adjustmentID); err != nil {
			w.logger.Warn("enqueue adjustment notification", slog.Int64("adjustment_id", adjustmentID), slog.Any("error", err))
		}
	}

	w.logger.Info("adjustment confirmed",
		slog.Int64("org_id", orgID),
		slog.Int64("adjustment_id", adjustmentID),
		slog.String("type", string(confirmed.Type)),
		slog.Int("cancelled", resp.CancelledCount),
		slog.Int("created", resp.CreatedCount))

	return resp, nil
}

// createReplacementSeries inserts the forward-looking rule and its
// lesson rows. The rule is created even when the filtered date list is
// empty, so the new schedule exists once the term resumes.
func (w *Workflow) createReplacementSeries(ctx context.Context, s TxStores, adj *TermAdjustment) (int64, []int64, error) {
	teacherID := adj.OriginalTeacherID
	if adj.NewTeacherID != nil {
		teacherID = *adj.NewTeacherID
	}
	locationID := adj.OriginalLocationID
	if adj.NewLocationID != nil {
		locationID = *adj.NewLocationID
	}
	startTime := adj.OriginalStartTime
	if adj.NewStartTime != nil {
		startTime = *adj.NewStartTime
	}

	endDate := adj.TermEndDate
	rule := recurrence.Rule{
		OrgID:           adj.OrgID,
		Pattern:         recurrence.PatternWeekly,
		Weekday:         *adj.NewWeekday,
		IntervalWeeks:   1,
		StartTime:       startTime,
		DurationMinutes: adj.DurationMinutes,
		StartDate:       adj.EffectiveDate,
		EndDate:         &endDate,
		Timezone:        "UTC",
		TeacherID:       teacherID,
		LocationID:      locationID,
		Room:            adj.Room,
	}
	ruleID, err := s.Recurrences.Create(ctx, rule)
	if err != nil {
		return 0, nil, err
	}

	if len(adj.NewDates) == 0 {
		return ruleID, nil, nil
	}

	batch := make([]lessons.Lesson, 0, len(adj.NewDates))
	for _, d := range adj.NewDates {
		startsAt, err := combineDateTime(d, startTime)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: invalid new start time %q", httpx.ErrValidation, startTime)
		}
		batch = append(batch, lessons.Lesson{
			OrgID:        adj.OrgID,
			RecurrenceID: &ruleID,
			StartsAt:     startsAt,
			EndsAt:       startsAt.Add(time.Duration(adj.DurationMinutes) * time.Minute),
			TeacherID:    teacherID,
			LocationID:   locationID,
			Room:         adj.Room,
			LessonType:   adj.LessonType,
			Title:        adj.LessonTitle,
			IsOnline:     adj.IsOnline,
		})
	}
	createdIDs, err := s.Lessons.CreateBatch(ctx, batch, adj.StudentID)
	if err != nil {
		return 0, nil, err
	}
	return ruleID, createdIDs, nil
}

// issueDocument creates the credit note or supplementary invoice for a
// non-zero delta. Document amounts carry the opposite sign of the
// adjustment delta: net lessons removed credit the payer.
func (w *Workflow) issueDocument(ctx context.Context, s TxStores, adj *TermAdjustment) (*invoices.Invoice, error) {
	kind := invoices.KindCreditNote
	if adj.LessonsDelta < 0 {
		kind = invoices.KindInvoice
	}

	quantity := adj.LessonsDelta
	if quantity < 0 {
		quantity = -quantity
	}
	subtotal := -adj.AmountMinor
	tax := -adj.TaxMinor
	total := -adj.TotalMinor
	unit := int64(0)
	if quantity > 0 {
		unit = subtotal / int64(quantity)
	}

	doc, err := s.Invoices.CreateDocument(ctx, invoices.CreateDocumentInput{
		OrgID:              adj.OrgID,
		Kind:               kind,
		PayerKind:          adj.PayerKind,
		PayerID:            adj.PayerID,
		TermID:             adj.TermID,
		SourceAdjustmentID: adj.ID,
		RelatedInvoiceID:   adj.ExistingInvoiceID,
		Currency:           adj.Currency,
		SubtotalMinor:      subtotal,
		TaxMinor:           tax,
		TotalMinor:         total,
		LineDescription:    documentLineDescription(adj, quantity),
		LineQuantity:       quantity,
		LineUnitMinor:      unit,
	})
	if err != nil {
		if errors.Is(err, invoices.ErrAlreadyIssued) {
			// A document from an earlier partial application already
			// exists; link it instead of failing the retry.
			existing, findErr := s.Invoices.FindBySourceAdjustment(ctx, adj.OrgID, adj.ID)
			if findErr != nil {
				return nil, findErr
			}
			if existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}
	return doc, nil
}

func cancellationReason(t Type) string {
	if t == TypeWithdrawal {
		return "student withdrawal"
	}
	return "lesson day change"
}

func documentLineDescription(adj *TermAdjustment, quantity int) string {
	label := "Withdrawal adjustment"
	if adj.Type == TypeDayChange {
		label = "Day change adjustment"
	}
	noun := "lessons"
	if quantity == 1 {
		noun = "lesson"
	}
	return fmt.Sprintf("%s: %d %s × %s", label, quantity, noun, money.Format(adj.RateMinor, adj.Currency))
}

func combineDateTime(date time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := date.UTC().Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}
