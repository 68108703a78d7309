package adjustments

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cadenza-hq/cadenza/internal/billing/invoices"
	"github.com/cadenza-hq/cadenza/internal/platform/httpx"
	"github.com/cadenza-hq/cadenza/internal/scheduling/lessons"
	"github.com/cadenza-hq/cadenza/internal/scheduling/recurrence"
	"github.com/cadenza-hq/cadenza/internal/shared"
)

func closureOn(day time.Time) recurrence.Closure {
	return recurrence.Closure{OrgID: testOrgID, Date: day, Reason: "closed"}
}

type fakeTxRunner struct {
	stores TxStores
}

func (f fakeTxRunner) WithinTx(ctx context.Context, fn func(context.Context, TxStores) error) error {
	return fn(ctx, f.stores)
}

type fakeAudit struct {
	logs []shared.AuditLog
}

func (f *fakeAudit) Record(_ context.Context, log shared.AuditLog) error {
	f.logs = append(f.logs, log)
	return nil
}

type fakeNotifier struct {
	adjustmentIDs []int64
	err           error
}

func (f *fakeNotifier) AdjustmentConfirmed(_ context.Context, _, adjustmentID int64) error {
	if f.err != nil {
		return f.err
	}
	f.adjustmentIDs = append(f.adjustmentIDs, adjustmentID)
	return nil
}

func (f *fixture) newWorkflow(t *testing.T) (*Workflow, *fakeAudit, *fakeNotifier) {
	t.Helper()
	audit := &fakeAudit{}
	notifier := &fakeNotifier{}
	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	wf := NewWorkflow(logger, fakeTxRunner{stores: TxStores{
		Adjustments: f.adjRepo,
		Lessons:     f.lessonRepo,
		Recurrences: f.recurrences,
		Invoices:    f.invoiceRepo,
	}}, audit, notifier)
	return wf, audit, notifier
}

func (f *fixture) previewWithdrawal(t *testing.T, effective time.Time) int64 {
	t.Helper()
	resp, err := f.calc.Preview(context.Background(), testOrgID, PreviewRequest{
		AdjustmentType: TypeWithdrawal,
		StudentID:      testStudentID,
		RecurrenceID:   testRuleID,
		EffectiveDate:  effective,
	}, 99)
	require.NoError(t, err)
	return resp.AdjustmentID
}

func (f *fixture) previewDayChange(t *testing.T, effective time.Time, weekday time.Weekday, startTime string) int64 {
	t.Helper()
	day := int(weekday)
	resp, err := f.calc.Preview(context.Background(), testOrgID, PreviewRequest{
		AdjustmentType: TypeDayChange,
		StudentID:      testStudentID,
		RecurrenceID:   testRuleID,
		EffectiveDate:  effective,
		NewDayOfWeek:   &day,
		NewStartTime:   &startTime,
	}, 99)
	require.NoError(t, err)
	return resp.AdjustmentID
}

func TestConfirmWithdrawal(t *testing.T) {
	f := newFixture(t)
	f.giveStudentRateCard(5000)
	adjID := f.previewWithdrawal(t, date(2026, 1, 6))
	wf, audit, notifier := f.newWorkflow(t)

	resp, err := wf.Confirm(context.Background(), testOrgID, adjID, true, shared.Actor{UserID: 7, Name: "admin"})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Equal(t, 6, resp.CancelledCount)
	require.Equal(t, 0, resp.CreatedCount)
	require.Nil(t, resp.NewRecurrenceID)
	require.NotNil(t, resp.CreditNoteInvoiceID)

	for _, l := range f.lessonRepo.lessons {
		require.Equal(t, lessons.StatusCancelled, l.Status)
		require.NotNil(t, l.CancellationReason)
		require.Equal(t, "student withdrawal", *l.CancellationReason)
	}

	// The old rule stops the day before the adjustment takes effect.
	require.Equal(t, date(2026, 1, 5), f.recurrences.truncated[testRuleID])

	doc := f.invoiceRepo.bySource[adjID]
	require.NotNil(t, doc)
	require.Equal(t, invoices.KindCreditNote, doc.Kind)
	require.Equal(t, int64(-30000), doc.SubtotalMinor)
	require.Equal(t, int64(-6000), doc.TaxMinor)
	require.Equal(t, int64(-36000), doc.TotalMinor)
	require.Len(t, doc.Lines, 1)
	require.Equal(t, 6, doc.Lines[0].Quantity)
	require.Equal(t, int64(-5000), doc.Lines[0].UnitMinor)
	require.True(t, strings.Contains(doc.Lines[0].Description, "Withdrawal adjustment: 6 lessons"),
		"unexpected line description %q", doc.Lines[0].Description)

	stored, err := f.adjRepo.Get(context.Background(), testOrgID, adjID)
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, stored.Status)
	require.Len(t, stored.CancelledLessonIDs, 6)
	require.NotNil(t, stored.ConfirmedBy)
	require.Equal(t, int64(7), *stored.ConfirmedBy)
	require.Equal(t, doc.ID, *stored.InvoiceID)

	require.Len(t, audit.logs, 1)
	require.Equal(t, "term_adjustment.confirm", audit.logs[0].Action)
	require.Equal(t, []int64{adjID}, notifier.adjustmentIDs)
}

func TestConfirmSparesLessonAtWindowBoundary(t *testing.T) {
	f := newFixture(t)
	f.giveStudentRateCard(5000)
	adjID := f.previewWithdrawal(t, date(2026, 1, 6))
	rid := testRuleID
	f.lessonRepo.lessons = append(f.lessonRepo.lessons, lessons.Lesson{
		ID:           999,
		OrgID:        testOrgID,
		RecurrenceID: &rid,
		StartsAt:     date(2026, 2, 13),
		EndsAt:       date(2026, 2, 13).Add(30 * time.Minute),
		Status:       lessons.StatusScheduled,
		TeacherID:    testTeacherID,
		LocationID:   testLocID,
		LessonType:   "individual",
		Title:        "Piano",
	})
	wf, _, _ := f.newWorkflow(t)

	resp, err := wf.Confirm(context.Background(), testOrgID, adjID, true, shared.Actor{UserID: 7, Name: "admin"})
	require.NoError(t, err)
	require.Equal(t, 6, resp.CancelledCount)

	for _, l := range f.lessonRepo.lessons {
		if l.ID == 999 {
			require.Equal(t, lessons.StatusScheduled, l.Status)
		} else {
			require.Equal(t, lessons.StatusCancelled, l.Status)
		}
	}
}

func TestConfirmDayChange(t *testing.T) {
	f := newFixture(t)
	f.giveStudentRateCard(3500)
	adjID := f.previewDayChange(t, date(2026, 1, 6), time.Thursday, "17:30")
	wf, _, _ := f.newWorkflow(t)

	resp, err := wf.Confirm(context.Background(), testOrgID, adjID, true, shared.Actor{UserID: 7})
	require.NoError(t, err)
	require.Equal(t, 6, resp.CancelledCount)
	require.Equal(t, 6, resp.CreatedCount)
	require.NotNil(t, resp.NewRecurrenceID)

	rule, err := f.recurrences.Get(context.Background(), testOrgID, *resp.NewRecurrenceID)
	require.NoError(t, err)
	require.Equal(t, time.Thursday, rule.Weekday)
	require.Equal(t, "17:30", rule.StartTime)
	require.Equal(t, date(2026, 1, 6), rule.StartDate)
	require.NotNil(t, rule.EndDate)
	require.Equal(t, date(2026, 2, 12), *rule.EndDate)
	require.Equal(t, 30, rule.DurationMinutes)

	var created []lessons.Lesson
	for _, l := range f.lessonRepo.lessons {
		if l.RecurrenceID != nil && *l.RecurrenceID == *resp.NewRecurrenceID {
			created = append(created, l)
		}
	}
	require.Len(t, created, 6)
	first := created[0]
	require.Equal(t, time.Date(2026, 1, 8, 17, 30, 0, 0, time.UTC), first.StartsAt)
	require.Equal(t, first.StartsAt.Add(30*time.Minute), first.EndsAt)
	require.Equal(t, lessons.StatusScheduled, first.Status)

	// Zero delta, so no document.
	require.Nil(t, resp.CreditNoteInvoiceID)
	require.Empty(t, f.invoiceRepo.bySource)
}

func TestConfirmDayChangeWithClosureIssuesCredit(t *testing.T) {
	f := newFixture(t)
	f.giveStudentRateCard(3500)
	f.recurrences.closures = append(f.recurrences.closures, closureOn(date(2026, 1, 15)))
	adjID := f.previewDayChange(t, date(2026, 1, 6), time.Thursday, "17:30")
	wf, _, _ := f.newWorkflow(t)

	resp, err := wf.Confirm(context.Background(), testOrgID, adjID, true, shared.Actor{UserID: 7})
	require.NoError(t, err)
	require.Equal(t, 6, resp.CancelledCount)
	require.Equal(t, 5, resp.CreatedCount)
	require.NotNil(t, resp.CreditNoteInvoiceID)

	doc := f.invoiceRepo.bySource[adjID]
	require.Equal(t, invoices.KindCreditNote, doc.Kind)
	require.Equal(t, int64(-3500), doc.SubtotalMinor)
	require.Equal(t, int64(-700), doc.TaxMinor)
	require.Equal(t, int64(-4200), doc.TotalMinor)
}

func TestConfirmDayChangeChargesAddedLessons(t *testing.T) {
	f := newFixture(t)
	f.giveStudentRateCard(3500)
	adjID := f.previewDayChange(t, date(2026, 2, 4), time.Thursday, "17:30")
	wf, _, _ := f.newWorkflow(t)

	resp, err := wf.Confirm(context.Background(), testOrgID, adjID, true, shared.Actor{UserID: 7})
	require.NoError(t, err)

	// One Tuesday swapped for two Thursdays: the extra lesson is invoiced.
	doc := f.invoiceRepo.bySource[adjID]
	require.NotNil(t, doc)
	require.Equal(t, invoices.KindInvoice, doc.Kind)
	require.Equal(t, int64(3500), doc.SubtotalMinor)
	require.Equal(t, int64(700), doc.TaxMinor)
	require.Equal(t, int64(4200), doc.TotalMinor)
	require.NotNil(t, resp.CreditNoteInvoiceID)
}

func TestConfirmTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	f.giveStudentRateCard(5000)
	adjID := f.previewWithdrawal(t, date(2026, 1, 6))
	wf, audit, _ := f.newWorkflow(t)

	_, err := wf.Confirm(context.Background(), testOrgID, adjID, true, shared.Actor{UserID: 7})
	require.NoError(t, err)

	_, err = wf.Confirm(context.Background(), testOrgID, adjID, true, shared.Actor{UserID: 7})
	if !errors.Is(err, httpx.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	require.Len(t, f.invoiceRepo.bySource, 1)
	require.Len(t, audit.logs, 1)
}

func TestConfirmUnknownAdjustment(t *testing.T) {
	f := newFixture(t)
	wf, _, _ := f.newWorkflow(t)

	_, err := wf.Confirm(context.Background(), testOrgID, 12345, true, shared.Actor{UserID: 7})
	if !errors.Is(err, httpx.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestConfirmWithoutDocument(t *testing.T) {
	f := newFixture(t)
	f.giveStudentRateCard(5000)
	adjID := f.previewWithdrawal(t, date(2026, 1, 6))
	wf, _, _ := f.newWorkflow(t)

	resp, err := wf.Confirm(context.Background(), testOrgID, adjID, false, shared.Actor{UserID: 7})
	require.NoError(t, err)
	require.Nil(t, resp.CreditNoteInvoiceID)
	require.Empty(t, f.invoiceRepo.bySource)

	stored, _ := f.adjRepo.Get(context.Background(), testOrgID, adjID)
	require.Equal(t, StatusConfirmed, stored.Status)
}

func TestConfirmLinksDocumentFromEarlierAttempt(t *testing.T) {
	f := newFixture(t)
	f.giveStudentRateCard(5000)
	adjID := f.previewWithdrawal(t, date(2026, 1, 6))

	// A previous partially applied confirm already issued the credit note.
	src := adjID
	f.invoiceRepo.bySource = map[int64]*invoices.Invoice{
		adjID: {ID: 500, OrgID: testOrgID, Kind: invoices.KindCreditNote, SourceAdjustmentID: &src},
	}

	wf, _, _ := f.newWorkflow(t)
	resp, err := wf.Confirm(context.Background(), testOrgID, adjID, true, shared.Actor{UserID: 7})
	require.NoError(t, err)
	require.NotNil(t, resp.CreditNoteInvoiceID)
	require.Equal(t, int64(500), *resp.CreditNoteInvoiceID)
	require.Len(t, f.invoiceRepo.bySource, 1)
}

func TestConfirmNotifierFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.giveStudentRateCard(5000)
	adjID := f.previewWithdrawal(t, date(2026, 1, 6))
	wf, _, notifier := f.newWorkflow(t)
	notifier.err = errors.New("queue down")

	resp, err := wf.Confirm(context.Background(), testOrgID, adjID, true, shared.Actor{UserID: 7})
	require.NoError(t, err)
	require.True(t, resp.Success)
}
