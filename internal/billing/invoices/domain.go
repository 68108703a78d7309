package invoices

import (
	"time"

	"github.com/cadenza-hq/cadenza/internal/students"
)

// Kind distinguishes a supplementary invoice from a credit note.
type Kind string

const (
	KindInvoice    Kind = "invoice"
	KindCreditNote Kind = "credit_note"
)

// Invoice is a financial document issued to a payer. Credit notes carry
// negative line amounts and negative totals.
type Invoice struct {
	ID                 int64              `json:"id" db:"id"`
	OrgID              int64              `json:"org_id" db:"org_id"`
	Number             string             `json:"number" db:"number"`
	Kind               Kind               `json:"kind" db:"kind"`
	PayerKind          students.PayerKind `json:"payer_kind" db:"payer_kind"`
	PayerID            int64              `json:"payer_id" db:"payer_id"`
	TermID             *int64             `json:"term_id,omitempty" db:"term_id"`
	SourceAdjustmentID *int64             `json:"source_adjustment_id,omitempty" db:"source_adjustment_id"`
	RelatedInvoiceID   *int64             `json:"related_invoice_id,omitempty" db:"related_invoice_id"`
	Currency           string             `json:"currency" db:"currency"`
	SubtotalMinor      int64              `json:"subtotal_minor" db:"subtotal_minor"`
	TaxMinor           int64              `json:"tax_minor" db:"tax_minor"`
	TotalMinor         int64              `json:"total_minor" db:"total_minor"`
	IssuedAt           time.Time          `json:"issued_at" db:"issued_at"`
	Lines              []Line             `json:"lines,omitempty" db:"-"`
}

// Line is one priced row on an invoice or credit note.
type Line struct {
	ID          int64  `json:"id" db:"id"`
	InvoiceID   int64  `json:"invoice_id" db:"invoice_id"`
	Description string `json:"description" db:"description"`
	Quantity    int    `json:"quantity" db:"quantity"`
	UnitMinor   int64  `json:"unit_minor" db:"unit_minor"`
	AmountMinor int64  `json:"amount_minor" db:"amount_minor"`
}
