package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/cadenza-hq/cadenza/internal/jobs"
	"github.com/cadenza-hq/cadenza/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeAdjustmentConfirmed notifies affected parties after a term
	// adjustment has been confirmed.
	TaskTypeAdjustmentConfirmed = "adjustment:confirmed"
	// TaskTypeIdempotencyCleanup prunes expired idempotency keys.
	TaskTypeIdempotencyCleanup = "idempotency:cleanup"

	idempotencyRetention = 24 * time.Hour
)

// AdjustmentConfirmedPayload carries the identifiers needed to build the
// confirmation notification.
type AdjustmentConfirmedPayload struct {
	OrgID        int64 `json:"org_id"`
	AdjustmentID int64 `json:"adjustment_id"`
}

// NewAdjustmentConfirmedTask constructs an Asynq task.
func NewAdjustmentConfirmedTask(payload AdjustmentConfirmedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAdjustmentConfirmed, data), nil
}

// NewIdempotencyCleanupTask constructs the cron-driven cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeIdempotencyCleanup, nil)
}

// HandleAdjustmentConfirmedTask processes TaskTypeAdjustmentConfirmed tasks.
// Delivery over email/SMS is deferred to the messaging integration; for now
// the handler records the notification so operators can trace fan-out.
func HandleAdjustmentConfirmedTask(logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track("adjustment_confirmed")
		var payload AdjustmentConfirmedPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			tracker.End(err)
			return asynq.SkipRetry
		}
		logger.Info("adjustment confirmed notification",
			slog.Int64("org_id", payload.OrgID),
			slog.Int64("adjustment_id", payload.AdjustmentID),
		)
		return tracker.End(nil)
	}
}

// HandleIdempotencyCleanupTask prunes idempotency keys past their retention
// window.
func HandleIdempotencyCleanupTask(store *shared.IdempotencyStore, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track("idempotency_cleanup")
		if err := store.Cleanup(ctx, idempotencyRetention); err != nil {
			return tracker.End(err)
		}
		logger.Debug("idempotency cleanup complete")
		return tracker.End(nil)
	}
}
