package terms

import (
	"context"
	"fmt"
	"time"
)

// FallbackWindowDays is the substitute term length for orgs that do not
// model discrete terms. The engine still needs a bounded window to scope
// remaining lessons and proration.
const FallbackWindowDays = 90

// Resolver finds the term window enclosing an effective date.
type Resolver struct {
	repo Repository
}

// NewResolver builds a Resolver.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve maps an effective date to a term window. An explicit term id
// takes precedence and is fetched scoped to the org; otherwise the term
// containing the date is used. With neither, the window ends
// FallbackWindowDays after the effective date and TermID stays nil,
// which callers must treat as "no invoice linkage possible".
func (r *Resolver) Resolve(ctx context.Context, orgID int64, effective time.Time, explicitTermID *int64) (Resolved, error) {
	if explicitTermID != nil {
		term, err := r.repo.Get(ctx, orgID, *explicitTermID)
		if err != nil {
			return Resolved{}, fmt.Errorf("resolve term %d: %w", *explicitTermID, err)
		}
		if term != nil {
			return Resolved{TermID: &term.ID, Name: term.Name, EndDate: term.EndDate}, nil
		}
	}

	term, err := r.repo.FindEnclosing(ctx, orgID, effective)
	if err != nil {
		return Resolved{}, fmt.Errorf("find enclosing term: %w", err)
	}
	if term != nil {
		return Resolved{TermID: &term.ID, Name: term.Name, EndDate: term.EndDate}, nil
	}

	return Resolved{EndDate: effective.AddDate(0, 0, FallbackWindowDays)}, nil
}
