package students

import "time"

// Student is a learner enrolled with an organisation.
type Student struct {
	ID                int64     `json:"id" db:"id"`
	OrgID             int64     `json:"org_id" db:"org_id"`
	Name              string    `json:"name" db:"name"`
	DefaultRateCardID *int64    `json:"default_rate_card_id,omitempty" db:"default_rate_card_id"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// PayerKind distinguishes who a financial document is addressed to.
type PayerKind string

const (
	PayerStudent  PayerKind = "student"
	PayerGuardian PayerKind = "guardian"
)

// Payer is the party billed for a student's lessons: the primary-payer
// guardian when one is linked, otherwise the student themselves.
type Payer struct {
	Kind PayerKind `json:"kind"`
	ID   int64     `json:"id"`
	Name string    `json:"name"`
}
