package terms

import "time"

// Term is a bounded scheduling and billing period, typically a school
// term. Adjustments are scoped to the remainder of the enclosing term.
type Term struct {
	ID        int64     `json:"id" db:"id"`
	OrgID     int64     `json:"org_id" db:"org_id"`
	Name      string    `json:"name" db:"name"`
	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   time.Time `json:"end_date" db:"end_date"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Resolved is the outcome of resolving an effective date to a term
// window. TermID is nil when the org has no term covering the date; in
// that case EndDate is a fixed-length fallback window and no invoice
// linkage will be attempted downstream.
type Resolved struct {
	TermID  *int64
	Name    string
	EndDate time.Time
}
