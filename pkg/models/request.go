package models

// AnalyzeRequest represents a direct request to run the analysis pipeline for
// a listing, bypassing page observation.
type AnalyzeRequest struct {
	Title       string `json:"title" validate:"required"`
	Company     string `json:"company,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description" validate:"required"`
	ListingType string `json:"listing_type,omitempty"`
	SalaryText  string `json:"salary_text,omitempty"`
	SourceURL   string `json:"source_url" validate:"omitempty,url"`
}

// NotificationActionRequest reports that the user activated a notification
// button on the delivery surface.
type NotificationActionRequest struct {
	Action    string `json:"action" validate:"required"`
	Key       string `json:"key" validate:"required"`
	SourceURL string `json:"source_url" validate:"omitempty,url"`
}

// ClearCacheHTTPRequest identifies the listing whose stored result should be
// discarded.
type ClearCacheHTTPRequest struct {
	Title     string `json:"title" validate:"required"`
	Company   string `json:"company,omitempty"`
	SourceURL string `json:"source_url" validate:"omitempty,url"`
}
