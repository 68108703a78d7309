package rates

import "time"

// RateCard prices a lesson of a fixed duration.
type RateCard struct {
	ID              int64     `json:"id" db:"id"`
	OrgID           int64     `json:"org_id" db:"org_id"`
	Name            string    `json:"name" db:"name"`
	DurationMinutes int       `json:"duration_minutes" db:"duration_minutes"`
	PriceMinor      int64     `json:"price_minor" db:"price_minor"`
	IsDefault       bool      `json:"is_default" db:"is_default"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
