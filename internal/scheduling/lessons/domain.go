package lessons

import "time"

// Status enumerates lesson lifecycle states. Completed lessons are
// immutable; only scheduled lessons may be cancelled or regenerated.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Lesson is a single scheduled occurrence, usually generated from a
// recurrence rule.
type Lesson struct {
	ID                 int64      `json:"id" db:"id"`
	OrgID              int64      `json:"org_id" db:"org_id"`
	RecurrenceID       *int64     `json:"recurrence_id,omitempty" db:"recurrence_id"`
	StartsAt           time.Time  `json:"starts_at" db:"starts_at"`
	EndsAt             time.Time  `json:"ends_at" db:"ends_at"`
	Status             Status     `json:"status" db:"status"`
	TeacherID          int64      `json:"teacher_id" db:"teacher_id"`
	LocationID         int64      `json:"location_id" db:"location_id"`
	Room               *string    `json:"room,omitempty" db:"room"`
	LessonType         string     `json:"lesson_type" db:"lesson_type"`
	Title              string     `json:"title" db:"title"`
	IsOnline           bool       `json:"is_online" db:"is_online"`
	CancelledBy        *int64     `json:"cancelled_by,omitempty" db:"cancelled_by"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancellationReason *string    `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

// DurationMinutes derives the lesson length from its start/end span.
func (l Lesson) DurationMinutes() int {
	return int(l.EndsAt.Sub(l.StartsAt) / time.Minute)
}
