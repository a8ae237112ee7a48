package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"joblens-agent/internal/bridge"
	"joblens-agent/internal/cache"
	"joblens-agent/internal/config"
	"joblens-agent/internal/logging"
	"joblens-agent/internal/notify"
	"joblens-agent/pkg/models"
	"joblens-agent/pkg/utils"
)

// Backend is the analysis API the coordinator drives. backend.Client
// satisfies it; tests substitute fakes.
type Backend interface {
	AnalyzeListing(ctx context.Context, snapshot models.ListingSnapshot) (*models.ListingAnalysis, error)
	FetchProfile(ctx context.Context) (*models.Profile, error)
	ComputeMatch(ctx context.Context, description, resumeText string) (*models.MatchAnalysis, error)
}

// TokenSource yields the capability token gating all pipeline work.
// storage.Store satisfies it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Coordinator runs the analysis pipeline in the background context. It
// consumes observed listings off the bridge, drives the three backend calls
// in order, manages the result cache, and reports outcomes back to the page
// context that asked.
type Coordinator struct {
	cfg        *config.Config
	bridge     *bridge.Bridge
	backend    Backend
	cache      *cache.ResultCache
	tokens     TokenSource
	dispatcher *notify.Dispatcher
	logger     logging.Logger

	mu     sync.RWMutex
	states map[string]*PipelineState

	stats stats
}

// New creates a coordinator wired to the background side of the bridge.
func New(cfg *config.Config, br *bridge.Bridge, be Backend, rc *cache.ResultCache, tokens TokenSource, dispatcher *notify.Dispatcher) *Coordinator {
	return &Coordinator{
		cfg:        cfg,
		bridge:     br,
		backend:    be,
		cache:      rc,
		tokens:     tokens,
		dispatcher: dispatcher,
		logger:     logging.GetGlobalLogger().WithField("component", "coordinator"),
		states:     make(map[string]*PipelineState),
	}
}

// Run consumes bridge messages until ctx is cancelled or the bridge closes.
func (c *Coordinator) Run(ctx context.Context) {
	c.logger.Info("Analysis coordinator started", map[string]interface{}{})

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Analysis coordinator stopping", map[string]interface{}{})
			return
		case msg, ok := <-c.bridge.Messages():
			if !ok {
				c.logger.Info("Bridge closed, coordinator stopping", map[string]interface{}{})
				return
			}
			c.dispatch(ctx, msg)
		}
	}
}

func (c *Coordinator) dispatch(ctx context.Context, msg models.Message) {
	switch msg.Type {
	case models.MsgListingObserved:
		var event models.ListingObservedEvent
		if err := msg.DecodeData(&event); err != nil {
			c.logger.Warn("Undecodable listing-observed event", map[string]interface{}{
				"error": err.Error(),
			})
			return
		}
		go c.process(ctx, event)

	case models.MsgGetCurrentState:
		var req models.CurrentStateRequest
		if err := msg.DecodeData(&req); err != nil {
			return
		}
		c.replyWithState(ctx, req.OriginContextID)

	case models.MsgClearCache:
		var req models.ClearCacheRequest
		if err := msg.DecodeData(&req); err != nil {
			return
		}
		c.ClearCacheEntry(req.Key)

	default:
		c.logger.Debug("Ignoring message not addressed to background context", map[string]interface{}{
			"type": string(msg.Type),
		})
	}
}

// process runs one pipeline and reports the outcome back over the bridge.
func (c *Coordinator) process(ctx context.Context, event models.ListingObservedEvent) {
	req := PipelineRequest{
		ID:              utils.GenerateRequestID(),
		Snapshot:        event.Snapshot,
		Key:             cache.Key(event.Snapshot),
		OriginContextID: event.OriginContextID,
		IssuedAt:        time.Now(),
	}

	outcome, err := c.Handle(ctx, req)
	if err != nil {
		c.reportError(ctx, req, err)
		return
	}

	resultEvent := models.AnalysisResultEvent{
		OriginContextID: req.OriginContextID,
		Key:             req.Key,
		Outcome:         outcome,
	}
	msg, merr := models.NewMessage(models.MsgAnalysisResult, resultEvent)
	if merr != nil {
		c.logger.Error("Failed to encode analysis result", map[string]interface{}{
			"request_id": req.ID,
			"error":      merr.Error(),
		})
		return
	}
	if serr := c.bridge.Send(ctx, msg); serr != nil {
		// The page context is gone; the outcome stays cached for its return.
		c.logger.Warn("Could not deliver analysis result", map[string]interface{}{
			"request_id": req.ID,
			"error":      serr.Error(),
		})
	}
}

// Handle executes one pipeline run: auth gate, cache lookup, the three
// backend calls in order, cache write, notification. It returns a complete
// outcome or a classified error, never a partial result.
func (c *Coordinator) Handle(ctx context.Context, req PipelineRequest) (models.AnalysisOutcome, error) {
	c.stats.started.Add(1)
	c.setState(req, StatusRunning, nil, nil)

	log := c.logger.WithFields(map[string]interface{}{
		"request_id": req.ID,
		"key":        req.Key,
	})

	token, err := c.tokens.Token(ctx)
	if err != nil || token == "" {
		cerr := utils.NewAuthRequiredError("no capability token available")
		c.stats.failed.Add(1)
		c.setState(req, StatusFailed, nil, cerr)
		return models.AnalysisOutcome{}, cerr
	}

	if cached, ok := c.cache.Get(req.Key); ok {
		c.stats.cacheHits.Add(1)
		cached.ServedFromCache = true
		c.stats.succeeded.Add(1)
		c.setState(req, StatusSucceeded, &cached, nil)
		log.Info("Pipeline served from cache", map[string]interface{}{})
		return cached, nil
	}

	outcome, err := c.runBackendCalls(ctx, req.Snapshot)
	if err != nil {
		if fallback, ok := c.staleFallback(req.Key, err); ok {
			c.stats.cacheFallbacks.Add(1)
			c.stats.succeeded.Add(1)
			c.setState(req, StatusSucceeded, &fallback, nil)
			log.Warn("Backend unreachable, served stale cached outcome", map[string]interface{}{})
			return fallback, nil
		}
		c.stats.failed.Add(1)
		cerr, _ := utils.AsClassified(err)
		c.setState(req, StatusFailed, nil, cerr)
		log.Warn("Pipeline failed", map[string]interface{}{
			"error": err.Error(),
		})
		return models.AnalysisOutcome{}, err
	}

	c.cache.Put(req.Key, outcome)

	if c.dispatcher != nil && c.dispatcher.MaybeNotify(ctx, req.Key, outcome) {
		c.stats.notifications.Add(1)
	}

	c.stats.succeeded.Add(1)
	c.setState(req, StatusSucceeded, &outcome, nil)
	log.Info("Pipeline completed", map[string]interface{}{
		"quality_score": outcome.QualityScore,
		"match_score":   outcome.MatchScore,
		"duration":      utils.FormatDuration(time.Since(req.IssuedAt)),
	})
	return outcome, nil
}

// runBackendCalls performs the three calls in sequence. The match call needs
// the profile's resume text, so there is no useful parallelism here.
func (c *Coordinator) runBackendCalls(ctx context.Context, snapshot models.ListingSnapshot) (models.AnalysisOutcome, error) {
	analysis, err := c.backend.AnalyzeListing(ctx, snapshot)
	if err != nil {
		return models.AnalysisOutcome{}, err
	}

	profile, err := c.backend.FetchProfile(ctx)
	if err != nil {
		return models.AnalysisOutcome{}, err
	}

	match, err := c.backend.ComputeMatch(ctx, snapshot.Description, profile.ResumeText)
	if err != nil {
		return models.AnalysisOutcome{}, err
	}

	outcome := models.MergeOutcome(snapshot, analysis, match)
	outcome.ProducedAt = time.Now()
	return outcome, nil
}

// staleFallback serves an expired cached outcome when, and only when, the
// failure was the network itself. Auth, rate-limit, and server failures mean
// the backend answered; a stale result would mask a real condition the user
// must act on.
func (c *Coordinator) staleFallback(key string, err error) (models.AnalysisOutcome, bool) {
	if kind, ok := utils.KindOf(err); !ok || kind != utils.KindNetworkError {
		return models.AnalysisOutcome{}, false
	}

	stale, ok := c.cache.GetStale(key)
	if !ok {
		return models.AnalysisOutcome{}, false
	}
	stale.ServedFromCache = true
	stale.CacheStaleWarning = "Shown from a previous analysis because the analysis service is unreachable."
	return stale, true
}

func (c *Coordinator) reportError(ctx context.Context, req PipelineRequest, err error) {
	cerr, ok := utils.AsClassified(err)
	if !ok {
		cerr = utils.NewServerError(err.Error())
	}

	event := models.AnalysisErrorEvent{
		OriginContextID: req.OriginContextID,
		Key:             req.Key,
		Kind:            string(cerr.Kind),
		Hint:            cerr.Hint,
		Message:         cerr.Message,
	}
	msg, merr := models.NewMessage(models.MsgAnalysisError, event)
	if merr != nil {
		return
	}
	if serr := c.bridge.Send(ctx, msg); serr != nil {
		c.logger.Warn("Could not deliver analysis error", map[string]interface{}{
			"request_id": req.ID,
			"error":      serr.Error(),
		})
	}
}

// replyWithState re-sends the latest resolved outcome or error for a page
// context that just reconnected.
func (c *Coordinator) replyWithState(ctx context.Context, contextID string) {
	state, ok := c.StateFor(contextID)
	if !ok {
		return
	}

	switch state.Status {
	case StatusSucceeded:
		if state.Outcome == nil {
			return
		}
		msg, err := models.NewMessage(models.MsgAnalysisResult, models.AnalysisResultEvent{
			OriginContextID: contextID,
			Key:             state.Key,
			Outcome:         *state.Outcome,
		})
		if err != nil {
			return
		}
		_ = c.bridge.Send(ctx, msg)
	case StatusFailed:
		msg, err := models.NewMessage(models.MsgAnalysisError, models.AnalysisErrorEvent{
			OriginContextID: contextID,
			Key:             state.Key,
			Kind:            string(state.ErrorKind),
			Hint:            state.ErrorHint,
		})
		if err != nil {
			return
		}
		_ = c.bridge.Send(ctx, msg)
	}
}

// OpenFeedbackSurface asks the page context to surface the analysis panel.
// Triggered by notification actions.
func (c *Coordinator) OpenFeedbackSurface(ctx context.Context, key string) error {
	msg, err := models.NewMessage(models.MsgOpenFeedbackSurface, models.OpenFeedbackSurfaceEvent{Key: key})
	if err != nil {
		return err
	}
	return c.bridge.Send(ctx, msg)
}

// HandleNotificationAction reacts to the user activating a notification
// button. View-analysis opens the feedback surface for the listing;
// open-listing is resolved by the delivery surface itself, so it only gets
// acknowledged here.
func (c *Coordinator) HandleNotificationAction(ctx context.Context, actionID, key, sourceURL string) error {
	switch actionID {
	case notify.ActionViewAnalysis:
		return c.OpenFeedbackSurface(ctx, key)
	case notify.ActionOpenListing:
		c.logger.Info("Open-listing action acknowledged", map[string]interface{}{
			"key": key,
			"url": sourceURL,
		})
		return nil
	default:
		return fmt.Errorf("unknown notification action: %s", actionID)
	}
}

// ClearCacheEntry drops one cached outcome, or every outcome when key is
// empty, and re-arms notification dedup for the affected listing.
func (c *Coordinator) ClearCacheEntry(key string) {
	if key == "" {
		c.logger.Info("Clear-cache request without key ignored", map[string]interface{}{})
		return
	}
	c.cache.Invalidate(key)
	if c.dispatcher != nil {
		c.dispatcher.Reset(key)
	}
	c.logger.Info("Cached outcome invalidated", map[string]interface{}{
		"key": key,
	})
}

// StateFor returns the latest pipeline state recorded for a page context.
func (c *Coordinator) StateFor(contextID string) (*PipelineState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	state, ok := c.states[contextID]
	if !ok {
		return nil, false
	}
	copied := *state
	return &copied, true
}

// Stats returns the pipeline counters.
func (c *Coordinator) Stats() models.StatsResponse {
	return c.stats.snapshot()
}

func (c *Coordinator) setState(req PipelineRequest, status PipelineStatus, outcome *models.AnalysisOutcome, cerr *utils.ClassifiedError) {
	if req.OriginContextID == "" {
		return
	}

	state := &PipelineState{
		RequestID: req.ID,
		Key:       req.Key,
		Status:    status,
		Outcome:   outcome,
		UpdatedAt: time.Now(),
	}
	if cerr != nil {
		state.ErrorKind = cerr.Kind
		state.ErrorHint = cerr.Hint
	}

	c.mu.Lock()
	c.states[req.OriginContextID] = state
	c.mu.Unlock()
}

// IsHealthy reports whether the coordinator can reach its bridge. Used by the
// readiness probe.
func (c *Coordinator) IsHealthy() error {
	if c.bridge == nil {
		return errors.New("coordinator has no bridge")
	}
	return nil
}
