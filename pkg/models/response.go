package models

import "time"

// AnalyzeResponse represents the response from a direct analyze request.
type AnalyzeResponse struct {
	Success        bool             `json:"success"`
	Outcome        *AnalysisOutcome `json:"outcome,omitempty"`
	ProcessingTime time.Duration    `json:"processing_time"`
	RequestID      string           `json:"request_id"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    time.Duration     `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ErrorResponse represents an error response. Kind carries the pipeline
// classification when the failure came out of a pipeline run.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Kind      string    `json:"kind,omitempty"`
	Message   string    `json:"message"`
	Hint      string    `json:"hint,omitempty"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// StatsResponse reports pipeline counters for the status endpoint.
type StatsResponse struct {
	PipelinesStarted   int64 `json:"pipelines_started"`
	PipelinesSucceeded int64 `json:"pipelines_succeeded"`
	PipelinesFailed    int64 `json:"pipelines_failed"`
	CacheHits          int64 `json:"cache_hits"`
	CacheFallbacks     int64 `json:"cache_fallbacks"`
	NotificationsSent  int64 `json:"notifications_sent"`
}
