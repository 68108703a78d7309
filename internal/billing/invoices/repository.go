package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cadenza-hq/cadenza/internal/students"
)

// ErrAlreadyIssued indicates a document already exists for the source
// adjustment; a retried confirm must not create a second one.
var ErrAlreadyIssued = errors.New("financial document already issued for adjustment")

// CreateDocumentInput carries everything needed to issue one document.
type CreateDocumentInput struct {
	OrgID              int64
	Kind               Kind
	PayerKind          students.PayerKind
	PayerID            int64
	TermID             *int64
	SourceAdjustmentID int64
	RelatedInvoiceID   *int64
	Currency           string
	SubtotalMinor      int64
	TaxMinor           int64
	TotalMinor         int64
	LineDescription    string
	LineQuantity       int
	LineUnitMinor      int64
}

// Repository provides access to invoices and credit notes.
type Repository interface {
	// FindOpenTermInvoice locates a pre-existing non-credit-note invoice
	// for the same term and payer, or nil.
	FindOpenTermInvoice(ctx context.Context, orgID, termID int64, payerKind students.PayerKind, payerID int64) (*Invoice, error)
	// CreateDocument issues an invoice or credit note with a single line.
	// The source adjustment id is unique across documents.
	CreateDocument(ctx context.Context, input CreateDocumentInput) (*Invoice, error)
	// FindBySourceAdjustment returns the document a previous confirm
	// attempt issued for the adjustment, or nil.
	FindBySourceAdjustment(ctx context.Context, orgID, adjustmentID int64) (*Invoice, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db dbtx
}

// NewRepository builds a pool-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

// NewRepositoryWithTx binds the repository to an open transaction.
func NewRepositoryWithTx(tx pgx.Tx) Repository {
	return &repository{db: tx}
}

func (r *repository) FindOpenTermInvoice(ctx context.Context, orgID, termID int64, payerKind students.PayerKind, payerID int64) (*Invoice, error) {
	var inv Invoice
	err := r.db.QueryRow(ctx, `
		SELECT id, org_id, number, kind, payer_kind, payer_id, term_id, source_adjustment_id,
		       related_invoice_id, currency, subtotal_minor, tax_minor, total_minor, issued_at
		FROM invoices
		WHERE org_id = $1 AND term_id = $2 AND payer_kind = $3 AND payer_id = $4 AND kind <> $5
		ORDER BY issued_at DESC
		LIMIT 1`,
		orgID, termID, payerKind, payerID, KindCreditNote).
		Scan(&inv.ID, &inv.OrgID, &inv.Number, &inv.Kind, &inv.PayerKind, &inv.PayerID,
			&inv.TermID, &inv.SourceAdjustmentID, &inv.RelatedInvoiceID, &inv.Currency,
			&inv.SubtotalMinor, &inv.TaxMinor, &inv.TotalMinor, &inv.IssuedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

func (r *repository) CreateDocument(ctx context.Context, input CreateDocumentInput) (*Invoice, error) {
	number, err := r.generateNumber(ctx, input.OrgID, input.Kind)
	if err != nil {
		return nil, fmt.Errorf("generate document number: %w", err)
	}

	inv := Invoice{
		OrgID:              input.OrgID,
		Number:             number,
		Kind:               input.Kind,
		PayerKind:          input.PayerKind,
		PayerID:            input.PayerID,
		TermID:             input.TermID,
		SourceAdjustmentID: &input.SourceAdjustmentID,
		RelatedInvoiceID:   input.RelatedInvoiceID,
		Currency:           input.Currency,
		SubtotalMinor:      input.SubtotalMinor,
		TaxMinor:           input.TaxMinor,
		TotalMinor:         input.TotalMinor,
		IssuedAt:           time.Now(),
	}
	err = r.db.QueryRow(ctx, `
		INSERT INTO invoices
			(org_id, number, kind, payer_kind, payer_id, term_id, source_adjustment_id,
			 related_invoice_id, currency, subtotal_minor, tax_minor, total_minor, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		inv.OrgID, inv.Number, inv.Kind, inv.PayerKind, inv.PayerID, inv.TermID,
		inv.SourceAdjustmentID, inv.RelatedInvoiceID, inv.Currency,
		inv.SubtotalMinor, inv.TaxMinor, inv.TotalMinor, inv.IssuedAt,
	).Scan(&inv.ID)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return nil, ErrAlreadyIssued
		}
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	line := Line{
		InvoiceID:   inv.ID,
		Description: input.LineDescription,
		Quantity:    input.LineQuantity,
		UnitMinor:   input.LineUnitMinor,
		AmountMinor: input.SubtotalMinor,
	}
	err = r.db.QueryRow(ctx, `
		INSERT INTO invoice_lines (invoice_id, description, quantity, unit_minor, amount_minor)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		line.InvoiceID, line.Description, line.Quantity, line.UnitMinor, line.AmountMinor,
	).Scan(&line.ID)
	if err != nil {
		return nil, fmt.Errorf("create invoice line: %w", err)
	}
	inv.Lines = []Line{line}
	return &inv, nil
}

func (r *repository) FindBySourceAdjustment(ctx context.Context, orgID, adjustmentID int64) (*Invoice, error) {
	var inv Invoice
	err := r.db.QueryRow(ctx, `
		SELECT id, org_id, number, kind, payer_kind, payer_id, term_id, source_adjustment_id,
		       related_invoice_id, currency, subtotal_minor, tax_minor, total_minor, issued_at
		FROM invoices
		WHERE org_id = $1 AND source_adjustment_id = $2`,
		orgID, adjustmentID).
		Scan(&inv.ID, &inv.OrgID, &inv.Number, &inv.Kind, &inv.PayerKind, &inv.PayerID,
			&inv.TermID, &inv.SourceAdjustmentID, &inv.RelatedInvoiceID, &inv.Currency,
			&inv.SubtotalMinor, &inv.TaxMinor, &inv.TotalMinor, &inv.IssuedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

// generateNumber allocates the next number per org/kind/year through an
// atomic upsert on document_sequences, so concurrent issuance cannot
// hand out the same number twice.
func (r *repository) generateNumber(ctx context.Context, orgID int64, kind Kind) (string, error) {
	prefix := "INV"
	if kind == KindCreditNote {
		prefix = "CN"
	}
	year := time.Now().Year()
	var seq int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO document_sequences (org_id, doc_type, period, seq)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (org_id, doc_type, period)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq`,
		orgID, prefix, fmt.Sprintf("%d", year)).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%04d", prefix, year, seq), nil
}
