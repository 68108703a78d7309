// Package org exposes organisation-level configuration consumed across
// the billing and scheduling engines.
package org

// Settings is the billing-relevant configuration of one organisation.
type Settings struct {
	OrgID             int64   `json:"org_id"`
	Name              string  `json:"name"`
	Currency          string  `json:"currency"`
	TaxEnabled        bool    `json:"tax_enabled"`
	TaxRatePercent    float64 `json:"tax_rate_percent"`
	DefaultRateCardID *int64  `json:"default_rate_card_id,omitempty"`
}
