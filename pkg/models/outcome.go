package models

import "time"

// ListingAnalysis is the backend's verdict on a single listing.
type ListingAnalysis struct {
	IsLegitimate    bool     `json:"is_legitimate"`
	QualityScore    int      `json:"quality_score"`
	RedFlags        []string `json:"red_flags"`
	Suggestions     []string `json:"suggestions"`
	RequiredSkills  []string `json:"required_skills"`
	ExperienceLevel string   `json:"experience_level"`
	ListingType     string   `json:"listing_type"`
}

// Profile is the stored user profile returned by the backend. Only the resume
// text participates in the pipeline; the rest is carried opaquely.
type Profile struct {
	ResumeText string         `json:"resume_text"`
	Extra      map[string]any `json:"-"`
}

// MatchAnalysis is the backend's comparison of a listing against the profile.
type MatchAnalysis struct {
	MatchScore     int      `json:"match_score"`
	MatchingSkills []string `json:"matching_skills"`
	MissingSkills  []string `json:"missing_skills"`
	Reasoning      string   `json:"reasoning"`
}

// AnalysisOutcome is the merged result of one pipeline run for one listing.
// It is complete or it does not exist; partial outcomes are never exposed.
type AnalysisOutcome struct {
	Title     string `json:"title"`
	Company   string `json:"company"`
	SourceURL string `json:"source_url"`

	IsLegitimate    bool     `json:"is_legitimate"`
	QualityScore    int      `json:"quality_score"`
	RedFlags        []string `json:"red_flags"`
	Suggestions     []string `json:"suggestions"`
	RequiredSkills  []string `json:"required_skills"`
	ExperienceLevel string   `json:"experience_level"`
	ListingType     string   `json:"listing_type"`

	MatchScore     int      `json:"match_score"`
	MatchingSkills []string `json:"matching_skills"`
	MissingSkills  []string `json:"missing_skills"`
	Reasoning      string   `json:"reasoning"`

	ProducedAt        time.Time `json:"produced_at"`
	ServedFromCache   bool      `json:"served_from_cache"`
	CacheStaleWarning string    `json:"cache_stale_warning,omitempty"`
}

// MergeOutcome composes the three backend responses into one outcome.
func MergeOutcome(snapshot ListingSnapshot, analysis *ListingAnalysis, match *MatchAnalysis) AnalysisOutcome {
	return AnalysisOutcome{
		Title:           snapshot.Title,
		Company:         snapshot.Company,
		SourceURL:       snapshot.SourceURL,
		IsLegitimate:    analysis.IsLegitimate,
		QualityScore:    analysis.QualityScore,
		RedFlags:        analysis.RedFlags,
		Suggestions:     analysis.Suggestions,
		RequiredSkills:  analysis.RequiredSkills,
		ExperienceLevel: analysis.ExperienceLevel,
		ListingType:     analysis.ListingType,
		MatchScore:      match.MatchScore,
		MatchingSkills:  match.MatchingSkills,
		MissingSkills:   match.MissingSkills,
		Reasoning:       match.Reasoning,
		ProducedAt:      time.Now(),
	}
}
