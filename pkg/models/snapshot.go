package models

import "time"

// UnknownValue is the sentinel stored in optional snapshot fields when no
// locator resolved to usable text.
const UnknownValue = "unknown"

// ListingSnapshot represents the structured fields extracted from a single
// listing-detail page. A snapshot is immutable once created; the next
// navigation produces a new snapshot rather than mutating the old one.
type ListingSnapshot struct {
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	ListingType string    `json:"listing_type"`
	SalaryText  string    `json:"salary_text"`
	SourceURL   string    `json:"source_url"`
	CapturedAt  time.Time `json:"captured_at"`
}

// HasRequiredFields reports whether the snapshot is usable downstream.
// Title and description must both carry real text; everything else may be
// the unknown sentinel.
func (s ListingSnapshot) HasRequiredFields() bool {
	return s.Title != "" && s.Title != UnknownValue &&
		s.Description != "" && s.Description != UnknownValue
}
