package watcher

import (
	"context"
	"sync"

	"joblens-agent/internal/bridge"
	"joblens-agent/internal/cache"
	"joblens-agent/internal/config"
	"joblens-agent/internal/logging"
	"joblens-agent/internal/presenter"
	"joblens-agent/internal/watcher/sources"
	"joblens-agent/pkg/models"
	"joblens-agent/pkg/utils"
)

// State is the watcher's position in its observation cycle.
type State string

const (
	// StateIdle: the current address is not a listing page.
	StateIdle State = "idle"
	// StateScanning: on a listing page, but no complete snapshot yet.
	StateScanning State = "scanning"
	// StateExtracted: a complete snapshot has been announced.
	StateExtracted State = "extracted"
)

// Watcher is the page-context half of the pipeline. It observes navigation,
// extracts listing snapshots, announces them over the bridge, and routes
// analysis results and errors into the feedback surface.
type Watcher struct {
	cfg        *config.Config
	source     sources.PageSource
	extractor  *Extractor
	classifier *URLClassifier
	bridge     *bridge.Bridge
	presenter  *presenter.Presenter
	nav        NavigationSource
	logger     logging.Logger

	contextID string

	mu         sync.Mutex
	state      State
	current    *models.ListingSnapshot
	currentKey string
}

// New wires a watcher to a page source and the page side of the bridge. Each
// watcher gets a fresh context ID; results tagged for another context are
// not ours.
func New(cfg *config.Config, source sources.PageSource, br *bridge.Bridge, pres *presenter.Presenter) (*Watcher, error) {
	classifier, err := NewURLClassifier(cfg.Watcher.ListingURLPattern)
	if err != nil {
		return nil, err
	}

	return &Watcher{
		cfg:        cfg,
		source:     source,
		extractor:  NewExtractor(),
		classifier: classifier,
		bridge:     br,
		presenter:  pres,
		nav:        NewPollingNavigationSource(source, cfg.Watcher.PollInterval),
		logger:     logging.GetGlobalLogger().WithField("component", "page_watcher"),
		contextID:  utils.GenerateContextID(),
		state:      StateIdle,
	}, nil
}

// ContextID returns the page context identity this watcher announces under.
func (w *Watcher) ContextID() string {
	return w.contextID
}

// Run processes navigation events and bridge messages until ctx is
// cancelled. On startup it asks the background context for any state it
// already holds, which restores the surface after a page reload.
func (w *Watcher) Run(ctx context.Context) {
	w.logger.Info("Page watcher started", map[string]interface{}{
		"context_id": w.contextID,
	})

	w.RequestState(ctx)

	addresses := Debounce(ctx, w.nav.Addresses(ctx), w.cfg.Watcher.SettleDelay)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Page watcher stopping", map[string]interface{}{})
			return
		case url, ok := <-addresses:
			if !ok {
				return
			}
			w.HandleAddress(ctx, url)
		case msg, ok := <-w.bridge.Messages():
			if !ok {
				return
			}
			w.handleMessage(ctx, msg)
		}
	}
}

// HandleAddress reacts to a settled navigation. Leaving a listing page hides
// the surface and forgets the snapshot; arriving on one triggers a scan.
func (w *Watcher) HandleAddress(ctx context.Context, url string) {
	if !w.classifier.IsListingURL(url) {
		w.mu.Lock()
		w.state = StateIdle
		w.current = nil
		w.currentKey = ""
		w.mu.Unlock()
		w.presenter.Reset()
		return
	}

	w.scan(ctx, url)
}

func (w *Watcher) scan(ctx context.Context, url string) {
	w.mu.Lock()
	w.state = StateScanning
	w.mu.Unlock()

	doc, err := w.source.Document(ctx)
	if err != nil {
		w.logger.Warn("Could not read page content", map[string]interface{}{
			"url":   url,
			"error": err.Error(),
		})
		return
	}

	snapshot := w.extractor.ExtractSnapshot(doc, url)
	if !snapshot.HasRequiredFields() {
		// Not enough to analyze. The surface stays as it is; the next
		// navigation or a settle re-scan may do better.
		w.logger.Debug("Snapshot incomplete, not announcing", map[string]interface{}{
			"url": url,
		})
		return
	}

	key := cache.Key(snapshot)

	w.mu.Lock()
	w.state = StateExtracted
	w.current = &snapshot
	w.currentKey = key
	w.mu.Unlock()

	w.presenter.ShowLoading(key)
	w.announce(ctx, snapshot, key)
}

func (w *Watcher) announce(ctx context.Context, snapshot models.ListingSnapshot, key string) {
	event := models.ListingObservedEvent{
		Snapshot:        snapshot,
		OriginContextID: w.contextID,
	}
	msg, err := models.NewMessage(models.MsgListingObserved, event)
	if err != nil {
		w.logger.Error("Failed to encode listing-observed event", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	if err := w.bridge.Send(ctx, msg); err != nil {
		cerr, ok := utils.AsClassified(err)
		if !ok {
			cerr = utils.NewChannelInvalidatedError("could not reach background context", err)
		}
		w.presenter.ShowError(key, cerr.Kind, cerr.Message, cerr.Hint)
	}
}

// Retry re-runs extraction on the current address. Wired to the retry
// affordance on error views; a page that finished rendering since the last
// scan yields a fresh snapshot. When the page can no longer be scanned the
// held snapshot is re-announced instead, so a transient bridge failure is
// still retryable.
func (w *Watcher) Retry(ctx context.Context) {
	if url := w.source.CurrentURL(); w.classifier.IsListingURL(url) {
		w.scan(ctx, url)
		return
	}

	w.mu.Lock()
	snapshot := w.current
	key := w.currentKey
	w.mu.Unlock()

	if snapshot == nil {
		return
	}
	w.presenter.ShowLoading(key)
	w.announce(ctx, *snapshot, key)
}

// RequestState asks the background context to replay the latest resolved
// state for this page context.
func (w *Watcher) RequestState(ctx context.Context) {
	msg, err := models.NewMessage(models.MsgGetCurrentState, models.CurrentStateRequest{
		OriginContextID: w.contextID,
	})
	if err != nil {
		return
	}
	if err := w.bridge.Send(ctx, msg); err != nil {
		w.logger.Debug("State request not delivered", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (w *Watcher) handleMessage(ctx context.Context, msg models.Message) {
	switch msg.Type {
	case models.MsgAnalysisResult:
		var event models.AnalysisResultEvent
		if err := msg.DecodeData(&event); err != nil {
			return
		}
		if event.OriginContextID != "" && event.OriginContextID != w.contextID {
			return
		}
		w.presenter.ShowResult(event.Key, event.Outcome)

	case models.MsgAnalysisError:
		var event models.AnalysisErrorEvent
		if err := msg.DecodeData(&event); err != nil {
			return
		}
		if event.OriginContextID != "" && event.OriginContextID != w.contextID {
			return
		}
		w.presenter.ShowError(event.Key, utils.ErrorKind(event.Kind), event.Message, event.Hint)

	case models.MsgRequestCurrentListing:
		w.Retry(ctx)

	case models.MsgOpenFeedbackSurface:
		var event models.OpenFeedbackSurfaceEvent
		if err := msg.DecodeData(&event); err != nil {
			return
		}
		w.logger.Info("Feedback surface open requested", map[string]interface{}{
			"key": event.Key,
		})
		w.presenter.Surface(event.Key)

	default:
		w.logger.Debug("Ignoring message not addressed to page context", map[string]interface{}{
			"type": string(msg.Type),
		})
	}
}

// State returns the watcher's current cycle position.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// CurrentSnapshot returns the held snapshot, if any.
func (w *Watcher) CurrentSnapshot() (models.ListingSnapshot, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return models.ListingSnapshot{}, false
	}
	return *w.current, true
}
