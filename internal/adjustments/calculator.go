package adjustments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/cadenza-hq/cadenza/internal/billing/invoices"
	"github.com/cadenza-hq/cadenza/internal/billing/rates"
	"github.com/cadenza-hq/cadenza/internal/masterdata"
	"github.com/cadenza-hq/cadenza/internal/org"
	"github.com/cadenza-hq/cadenza/internal/platform/httpx"
	"github.com/cadenza-hq/cadenza/internal/scheduling/lessons"
	"github.com/cadenza-hq/cadenza/internal/scheduling/recurrence"
	"github.com/cadenza-hq/cadenza/internal/students"
	"github.com/cadenza-hq/cadenza/internal/terms"
)

// Calculator produces adjustment previews. Its only write is the draft
// TermAdjustment row recording what was calculated; everything else is
// read-only fan-out.
type Calculator struct {
	logger       *slog.Logger
	orgCfg       org.ConfigProvider
	termResolver *terms.Resolver
	recurrences  recurrence.Repository
	lessons      lessons.Repository
	rateCards    rates.Repository
	students     students.Repository
	invoices     invoices.Repository
	masterdata   masterdata.Repository
	adjustments  Repository
}

// NewCalculator wires the calculator's collaborators.
func NewCalculator(
	logger *slog.Logger,
	orgCfg org.ConfigProvider,
	termResolver *terms.Resolver,
	recurrences recurrence.Repository,
	lessonRepo lessons.Repository,
	rateCards rates.Repository,
	studentRepo students.Repository,
	invoiceRepo invoices.Repository,
	masterdataRepo masterdata.Repository,
	adjustmentRepo Repository,
) *Calculator {
	return &Calculator{
		logger:       logger,
		orgCfg:       orgCfg,
		termResolver: termResolver,
		recurrences:  recurrences,
		lessons:      lessonRepo,
		rateCards:    rateCards,
		students:     studentRepo,
		invoices:     invoiceRepo,
		masterdata:   masterdataRepo,
		adjustments:  adjustmentRepo,
	}
}

// Preview computes the schedule and financial impact of an adjustment
// and persists it as a draft.
func (c *Calculator) Preview(ctx context.Context, orgID int64, req PreviewRequest, createdBy int64) (*PreviewResponse, error) {
	if req.AdjustmentType == TypeDayChange {
		if req.NewDayOfWeek == nil || req.NewStartTime == nil {
			return nil, fmt.Errorf("%w: day change requires new_day_of_week and new_start_time", httpx.ErrValidation)
		}
		if _, err := time.Parse("15:04", *req.NewStartTime); err != nil {
			return nil, fmt.Errorf("%w: new_start_time must be HH:MM", httpx.ErrValidation)
		}
	}

	settings, err := c.orgCfg.Settings(ctx, orgID)
	if err != nil {
		if errors.Is(err, org.ErrNotFound) {
			return nil, fmt.Errorf("%w: organisation %d", httpx.ErrNotFound, orgID)
		}
		return nil, fmt.Errorf("load org settings: %w", err)
	}

	effective := recurrence.DateOnly(req.EffectiveDate)
	resolvedTerm, err := c.termResolver.Resolve(ctx, orgID, effective, req.TermID)
	if err != nil {
		return nil, err
	}
	termEnd := recurrence.DateOnly(resolvedTerm.EndDate)

	rule, err := c.recurrences.Get(ctx, orgID, req.RecurrenceID)
	if err != nil {
		if errors.Is(err, recurrence.ErrNotFound) {
			return nil, fmt.Errorf("%w: recurrence %d", httpx.ErrNotFound, req.RecurrenceID)
		}
		return nil, fmt.Errorf("load recurrence: %w", err)
	}

	student, err := c.students.Get(ctx, orgID, req.StudentID)
	if err != nil {
		if errors.Is(err, students.ErrNotFound) {
			return nil, fmt.Errorf("%w: student %d", httpx.ErrNotFound, req.StudentID)
		}
		return nil, fmt.Errorf("load student: %w", err)
	}

	remaining, err := c.lessons.ListScheduledOnRecurrence(ctx, orgID, rule.ID, effective, termEnd.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("list remaining lessons: %w", err)
	}
	if len(remaining) == 0 {
		return nil, fmt.Errorf("%w: no remaining lessons to adjust", httpx.ErrValidation)
	}

	first := remaining[0]
	duration := first.DurationMinutes()
	origTime := localTimeLabel(first.StartsAt, rule.Timezone)

	rateMinor, lowConfidence, err := c.resolveRate(ctx, orgID, duration, student, settings.DefaultRateCardID, req.ManualRateMinor)
	if err != nil {
		return nil, err
	}

	payer, err := c.students.ResolvePayer(ctx, orgID, student.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve payer: %w", err)
	}

	adj := TermAdjustment{
		Reference:           uuid.New(),
		OrgID:               orgID,
		Type:                req.AdjustmentType,
		StudentID:           student.ID,
		RecurrenceID:        rule.ID,
		PayerKind:           payer.Kind,
		PayerID:             payer.ID,
		TermID:              resolvedTerm.TermID,
		EffectiveDate:       effective,
		TermEndDate:         termEnd,
		OriginalWeekday:     first.StartsAt.Weekday(),
		OriginalStartTime:   origTime,
		OriginalLessonCount: len(remaining),
		OriginalTeacherID:   first.TeacherID,
		OriginalLocationID:  first.LocationID,
		DurationMinutes:     duration,
		LessonType:          first.LessonType,
		LessonTitle:         first.Title,
		IsOnline:            first.IsOnline,
		Room:                first.Room,
		RateMinor:           rateMinor,
		RateLowConfidence:   lowConfidence,
		Currency:            settings.Currency,
		Notes:               req.Notes,
		Status:              StatusDraft,
		CreatedBy:           createdBy,
	}

	if req.AdjustmentType == TypeDayChange {
		newWeekday := time.Weekday(*req.NewDayOfWeek)
		newLocation := first.LocationID
		if req.NewLocationID != nil {
			newLocation = *req.NewLocationID
		}
		closures, err := c.recurrences.ListClosures(ctx, orgID, effective, termEnd)
		if err != nil {
			return nil, fmt.Errorf("list closures: %w", err)
		}
		dates := recurrence.ExcludeClosures(
			recurrence.Occurrences(effective, termEnd, newWeekday),
			closures, newLocation)

		adj.NewWeekday = &newWeekday
		adj.NewStartTime = req.NewStartTime
		adj.NewTeacherID = req.NewTeacherID
		adj.NewLocationID = req.NewLocationID
		adj.NewLessonCount = len(dates)
		adj.NewDates = dates
	}

	adj.LessonsDelta = adj.OriginalLessonCount - adj.NewLessonCount
	adj.AmountMinor = int64(adj.LessonsDelta) * rateMinor
	if settings.TaxEnabled {
		adj.TaxMinor = taxOn(adj.AmountMinor, settings.TaxRatePercent)
	}
	adj.TotalMinor = adj.AmountMinor + adj.TaxMinor

	// Locate a linkable term invoice for the payer; only possible when an
	// actual term was resolved.
	if resolvedTerm.TermID != nil {
		existing, err := c.invoices.FindOpenTermInvoice(ctx, orgID, *resolvedTerm.TermID, payer.Kind, payer.ID)
		if err != nil {
			return nil, fmt.Errorf("find term invoice: %w", err)
		}
		if existing != nil {
			adj.ExistingInvoiceID = &existing.ID
		}
	}

	id, err := c.adjustments.CreateDraft(ctx, adj)
	if err != nil {
		return nil, err
	}
	adj.ID = id

	c.logger.Info("adjustment preview calculated",
		slog.Int64("org_id", orgID),
		slog.Int64("adjustment_id", id),
		slog.String("type", string(adj.Type)),
		slog.Int("lessons_difference", adj.LessonsDelta),
		slog.Int64("total_minor", adj.TotalMinor))

	return c.buildResponse(ctx, adj, student.Name, resolvedTerm.Name)
}

func (c *Calculator) resolveRate(ctx context.Context, orgID int64, duration int, student *students.Student, orgDefaultCardID, override *int64) (int64, bool, error) {
	cards, err := c.rateCards.List(ctx, orgID)
	if err != nil {
		return 0, false, fmt.Errorf("list rate cards: %w", err)
	}
	var studentCard *rates.RateCard
	if student.DefaultRateCardID != nil {
		studentCard, err = c.rateCards.Get(ctx, orgID, *student.DefaultRateCardID)
		if err != nil {
			return 0, false, fmt.Errorf("load student rate card: %w", err)
		}
	}
	var orgDefault *rates.RateCard
	if orgDefaultCardID != nil {
		orgDefault, err = c.rateCards.Get(ctx, orgID, *orgDefaultCardID)
		if err != nil {
			return 0, false, fmt.Errorf("load org default rate card: %w", err)
		}
	}
	minor, low := rates.Resolve(duration, cards, studentCard, orgDefault, override)
	return minor, low, nil
}

func (c *Calculator) buildResponse(ctx context.Context, adj TermAdjustment, studentName, termName string) (*PreviewResponse, error) {
	resp := &PreviewResponse{
		AdjustmentID:          adj.ID,
		Reference:             adj.Reference.String(),
		AdjustmentType:        adj.Type,
		StudentName:           studentName,
		TermName:              termName,
		EffectiveDate:         adj.EffectiveDate.Format("2006-01-02"),
		TermEndDate:           adj.TermEndDate.Format("2006-01-02"),
		OriginalDay:           adj.OriginalWeekday.String(),
		OriginalTime:          adj.OriginalStartTime,
		OriginalLessonCount:   adj.OriginalLessonCount,
		NewLessonCount:        adj.NewLessonCount,
		LessonRateMinor:       adj.RateMinor,
		RateLowConfidence:     adj.RateLowConfidence,
		LessonsDifference:     adj.LessonsDelta,
		AdjustmentAmountMinor: adj.AmountMinor,
		VATAmountMinor:        adj.TaxMinor,
		TotalAdjustmentMinor:  adj.TotalMinor,
		CurrencyCode:          adj.Currency,
		ExistingTermInvoiceID: adj.ExistingInvoiceID,
	}

	if teacher, err := c.masterdata.GetTeacher(ctx, adj.OrgID, adj.OriginalTeacherID); err == nil && teacher != nil {
		resp.OriginalTeacherName = teacher.Name
	}
	if location, err := c.masterdata.GetLocation(ctx, adj.OrgID, adj.OriginalLocationID); err == nil && location != nil {
		resp.OriginalLocation = location.Name
	}

	if adj.Type == TypeDayChange {
		resp.NewDay = adj.NewWeekday.String()
		if adj.NewStartTime != nil {
			resp.NewTime = *adj.NewStartTime
		}
		for _, d := range adj.NewDates {
			resp.NewDates = append(resp.NewDates, d.Format("2006-01-02"))
		}
		newTeacherID := adj.OriginalTeacherID
		if adj.NewTeacherID != nil {
			newTeacherID = *adj.NewTeacherID
		}
		newLocationID := adj.OriginalLocationID
		if adj.NewLocationID != nil {
			newLocationID = *adj.NewLocationID
		}
		if teacher, err := c.masterdata.GetTeacher(ctx, adj.OrgID, newTeacherID); err == nil && teacher != nil {
			resp.NewTeacherName = teacher.Name
		}
		if location, err := c.masterdata.GetLocation(ctx, adj.OrgID, newLocationID); err == nil && location != nil {
			resp.NewLocation = location.Name
		}
	}
	return resp, nil
}

// taxOn computes tax on the absolute amount and applies it with the
// amount's sign, so credits carry negative tax.
func taxOn(amountMinor int64, ratePercent float64) int64 {
	tax := int64(math.Round(math.Abs(float64(amountMinor)) * ratePercent / 100))
	if amountMinor < 0 {
		return -tax
	}
	return tax
}

func localTimeLabel(t time.Time, tz string) string {
	if loc, err := time.LoadLocation(tz); err == nil {
		return t.In(loc).Format("15:04")
	}
	return t.UTC().Format("15:04")
}
