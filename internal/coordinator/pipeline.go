package coordinator

import (
	"sync/atomic"
	"time"

	"joblens-agent/pkg/models"
	"joblens-agent/pkg/utils"
)

// PipelineRequest tags one analysis run. The ID travels through logs; Key and
// OriginContextID travel back with the result so the page context can reject
// answers for listings it no longer shows.
type PipelineRequest struct {
	ID              string
	Snapshot        models.ListingSnapshot
	Key             string
	OriginContextID string
	IssuedAt        time.Time
}

// PipelineStatus is the lifecycle of one pipeline run.
type PipelineStatus string

const (
	StatusRunning   PipelineStatus = "running"
	StatusSucceeded PipelineStatus = "succeeded"
	StatusFailed    PipelineStatus = "failed"
)

// PipelineState is the queryable record of the most recent run for a page
// context.
type PipelineState struct {
	RequestID string                  `json:"request_id"`
	Key       string                  `json:"key"`
	Status    PipelineStatus          `json:"status"`
	Outcome   *models.AnalysisOutcome `json:"outcome,omitempty"`
	ErrorKind utils.ErrorKind         `json:"error_kind,omitempty"`
	ErrorHint string                  `json:"error_hint,omitempty"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// stats tracks pipeline counters. All fields are atomics; readers get a
// consistent-enough snapshot without locking the coordinator.
type stats struct {
	started        atomic.Int64
	succeeded      atomic.Int64
	failed         atomic.Int64
	cacheHits      atomic.Int64
	cacheFallbacks atomic.Int64
	notifications  atomic.Int64
}

func (s *stats) snapshot() models.StatsResponse {
	return models.StatsResponse{
		PipelinesStarted:   s.started.Load(),
		PipelinesSucceeded: s.succeeded.Load(),
		PipelinesFailed:    s.failed.Load(),
		CacheHits:          s.cacheHits.Load(),
		CacheFallbacks:     s.cacheFallbacks.Load(),
		NotificationsSent:  s.notifications.Load(),
	}
}
