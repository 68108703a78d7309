package jobs

import "context"

// Notifier adapts the queue client to the adjustment workflow's notification
// hook.
type Notifier struct {
	client *Client
}

// NewNotifier constructs a Notifier around the queue client.
func NewNotifier(client *Client) *Notifier {
	return &Notifier{client: client}
}

// AdjustmentConfirmed enqueues the confirmation notification task.
func (n *Notifier) AdjustmentConfirmed(ctx context.Context, orgID, adjustmentID int64) error {
	_, err := n.client.EnqueueAdjustmentConfirmed(ctx, AdjustmentConfirmedPayload{
		OrgID:        orgID,
		AdjustmentID: adjustmentID,
	})
	return err
}
