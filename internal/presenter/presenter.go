package presenter

import (
	"sync"
	"time"

	"joblens-agent/internal/logging"
	"joblens-agent/pkg/models"
	"joblens-agent/pkg/utils"
)

// ViewState is the visible state of the feedback surface.
type ViewState string

const (
	ViewHidden  ViewState = "hidden"
	ViewLoading ViewState = "loading"
	ViewResult  ViewState = "result"
	ViewError   ViewState = "error"
)

// View is one immutable rendering of the feedback surface.
type View struct {
	State     ViewState               `json:"state"`
	Key       string                  `json:"key,omitempty"`
	Outcome   *models.AnalysisOutcome `json:"outcome,omitempty"`
	ErrorKind utils.ErrorKind         `json:"error_kind,omitempty"`
	Message   string                  `json:"message,omitempty"`
	Hint      string                  `json:"hint,omitempty"`
	CanRetry  bool                    `json:"can_retry"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// Renderer receives each new view. Implementations draw it somewhere; the
// presenter does not care where.
type Renderer interface {
	Render(view View)
}

// LogRenderer renders views as structured log lines.
type LogRenderer struct {
	logger logging.Logger
}

func NewLogRenderer() *LogRenderer {
	return &LogRenderer{logger: logging.GetGlobalLogger().WithField("component", "feedback_surface")}
}

func (r *LogRenderer) Render(view View) {
	fields := map[string]interface{}{
		"state": string(view.State),
		"key":   view.Key,
	}
	switch view.State {
	case ViewResult:
		fields["quality_score"] = view.Outcome.QualityScore
		fields["match_score"] = view.Outcome.MatchScore
		fields["served_from_cache"] = view.Outcome.ServedFromCache
	case ViewError:
		fields["error_kind"] = string(view.ErrorKind)
		fields["hint"] = view.Hint
		fields["can_retry"] = view.CanRetry
	}
	r.logger.Info("Feedback surface updated", fields)
}

// Presenter owns the feedback surface state for one page context. Every view
// carries the key of the listing it belongs to; updates tagged with a key
// other than the current one are stale and are dropped rather than rendered.
type Presenter struct {
	mu       sync.Mutex
	view     View
	renderer Renderer
	logger   logging.Logger
}

// New creates a presenter showing the hidden view.
func New(renderer Renderer) *Presenter {
	if renderer == nil {
		renderer = NewLogRenderer()
	}
	return &Presenter{
		view:     View{State: ViewHidden},
		renderer: renderer,
		logger:   logging.GetGlobalLogger().WithField("component", "presenter"),
	}
}

// ShowLoading switches the surface to the loading state for key. If the
// surface already shows a resolved view for the same key, the spinner would
// erase a finished answer, so the call is a no-op.
func (p *Presenter) ShowLoading(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.view.Key == key && (p.view.State == ViewResult || p.view.State == ViewError) {
		return
	}

	p.apply(View{
		State:     ViewLoading,
		Key:       key,
		UpdatedAt: time.Now(),
	})
}

// ShowResult renders a completed outcome for key. Results for a key the
// surface is no longer showing arrive after the user moved on; they are
// logged and discarded.
func (p *Presenter) ShowResult(key string, outcome models.AnalysisOutcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.view.Key != key {
		p.logger.Debug("Dropping stale result", map[string]interface{}{
			"result_key":  key,
			"current_key": p.view.Key,
		})
		return
	}

	p.apply(View{
		State:     ViewResult,
		Key:       key,
		Outcome:   &outcome,
		UpdatedAt: time.Now(),
	})
}

// ShowError renders a classified failure for key, with the same staleness
// guard as ShowResult. Auth failures are not retryable from the surface; the
// user has to sign in first.
func (p *Presenter) ShowError(key string, kind utils.ErrorKind, message, hint string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.view.Key != key {
		p.logger.Debug("Dropping stale error", map[string]interface{}{
			"error_key":   key,
			"current_key": p.view.Key,
		})
		return
	}

	p.apply(View{
		State:     ViewError,
		Key:       key,
		ErrorKind: kind,
		Message:   message,
		Hint:      hint,
		CanRetry:  kind != utils.KindAuthRequired,
		UpdatedAt: time.Now(),
	})
}

// Surface re-renders the current view so the surface comes to the front.
// Used when a notification action asks to show the analysis for key; a
// request for a listing the surface no longer holds is ignored.
func (p *Presenter) Surface(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.view.State == ViewHidden || p.view.Key != key {
		p.logger.Debug("Surface request for a listing not being shown", map[string]interface{}{
			"requested_key": key,
			"current_key":   p.view.Key,
		})
		return
	}
	p.renderer.Render(p.view)
}

// Reset hides the surface. Called when navigation leaves the listing page.
func (p *Presenter) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.view.State == ViewHidden {
		return
	}
	p.apply(View{State: ViewHidden, UpdatedAt: time.Now()})
}

// Current returns the view being shown.
func (p *Presenter) Current() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}

func (p *Presenter) apply(view View) {
	p.view = view
	p.renderer.Render(view)
}
