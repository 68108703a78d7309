package recurrence

import "time"

// PatternType enumerates supported repeat patterns.
type PatternType string

const (
	PatternWeekly PatternType = "weekly"
)

// Rule is a weekly repeating lesson pattern. Concrete lesson rows are
// generated from it; the rule itself carries no occurrence state.
type Rule struct {
	ID              int64        `json:"id" db:"id"`
	OrgID           int64        `json:"org_id" db:"org_id"`
	Pattern         PatternType  `json:"pattern" db:"pattern"`
	Weekday         time.Weekday `json:"weekday" db:"weekday"`
	IntervalWeeks   int          `json:"interval_weeks" db:"interval_weeks"`
	StartTime       string       `json:"start_time" db:"start_time"` // HH:MM, org-local
	DurationMinutes int          `json:"duration_minutes" db:"duration_minutes"`
	StartDate       time.Time    `json:"start_date" db:"start_date"`
	EndDate         *time.Time   `json:"end_date,omitempty" db:"end_date"`
	Timezone        string       `json:"timezone" db:"timezone"`
	TeacherID       int64        `json:"teacher_id" db:"teacher_id"`
	LocationID      int64        `json:"location_id" db:"location_id"`
	Room            *string      `json:"room,omitempty" db:"room"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
}

// Closure marks a date on which no lessons run. LocationID nil means the
// closure applies org-wide.
type Closure struct {
	ID         int64     `json:"id" db:"id"`
	OrgID      int64     `json:"org_id" db:"org_id"`
	Date       time.Time `json:"date" db:"date"`
	LocationID *int64    `json:"location_id,omitempty" db:"location_id"`
	Reason     string    `json:"reason" db:"reason"`
}
