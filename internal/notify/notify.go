package notify

import (
	"context"
	"fmt"
	"sync"

	"joblens-agent/internal/logging"
	"joblens-agent/pkg/models"
	"joblens-agent/pkg/utils"
)

// Notification action identifiers. Activating ViewAnalysis opens the feedback
// surface for the listing; OpenListing focuses the listing page itself.
const (
	ActionViewAnalysis = "view-analysis"
	ActionOpenListing  = "open-listing"
)

// Action is one button on a notification.
type Action struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Notification is a high-match alert ready for delivery.
type Notification struct {
	ID        string   `json:"id"`
	Key       string   `json:"key"`
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	SourceURL string   `json:"source_url"`
	Actions   []Action `json:"actions"`
}

// Notifier delivers notifications to the user's system surface.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// PreferenceSource reports whether the user wants match notifications.
// storage.Store satisfies this.
type PreferenceSource interface {
	NotificationsEnabled(ctx context.Context) bool
}

// LogNotifier writes notifications as log lines. Stands in where no system
// notification surface is attached.
type LogNotifier struct {
	logger logging.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: logging.GetGlobalLogger().WithField("component", "notifier")}
}

func (n *LogNotifier) Notify(_ context.Context, notification Notification) error {
	n.logger.Info("Notification delivered", map[string]interface{}{
		"id":    notification.ID,
		"key":   notification.Key,
		"title": notification.Title,
		"body":  notification.Body,
	})
	return nil
}

// Dispatcher decides whether a completed outcome deserves a notification and
// sends at most one per listing. Preference lookups fail open: when the
// preference store is unreachable, notifying is better than silently
// swallowing a strong match.
type Dispatcher struct {
	notifier Notifier
	prefs    PreferenceSource
	minScore int

	mu   sync.Mutex
	seen map[string]bool

	logger logging.Logger
}

// NewDispatcher creates a dispatcher. A nil prefs source means notifications
// are always enabled.
func NewDispatcher(notifier Notifier, prefs PreferenceSource, minScore int) *Dispatcher {
	if notifier == nil {
		notifier = NewLogNotifier()
	}
	return &Dispatcher{
		notifier: notifier,
		prefs:    prefs,
		minScore: minScore,
		seen:     make(map[string]bool),
		logger:   logging.GetGlobalLogger().WithField("component", "notify_dispatcher"),
	}
}

// MaybeNotify fires a notification for outcome when either score clears the
// threshold, the user has not opted out, and no notification has been sent
// for this listing before. Returns whether a notification went out.
func (d *Dispatcher) MaybeNotify(ctx context.Context, key string, outcome models.AnalysisOutcome) bool {
	if outcome.MatchScore < d.minScore && outcome.QualityScore < d.minScore {
		return false
	}

	d.mu.Lock()
	if d.seen[key] {
		d.mu.Unlock()
		return false
	}
	d.seen[key] = true
	d.mu.Unlock()

	if d.prefs != nil && !d.prefs.NotificationsEnabled(ctx) {
		d.logger.Debug("Notification suppressed by preference", map[string]interface{}{
			"key": key,
		})
		return false
	}

	n := Notification{
		ID:        utils.GenerateRequestID(),
		Key:       key,
		Title:     fmt.Sprintf("Strong match: %s", outcome.Title),
		Body:      fmt.Sprintf("%s at %s scores %d%% against your profile.", outcome.Title, outcome.Company, outcome.MatchScore),
		SourceURL: outcome.SourceURL,
		Actions: []Action{
			{ID: ActionViewAnalysis, Title: "View analysis"},
			{ID: ActionOpenListing, Title: "Open listing"},
		},
	}

	if err := d.notifier.Notify(ctx, n); err != nil {
		// Delivery failure never fails the pipeline that produced the outcome.
		d.logger.Warn("Notification delivery failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return false
	}

	return true
}

// Reset clears the per-listing dedup state. Used when the cache entry for a
// listing is invalidated so a reanalysis can notify again.
func (d *Dispatcher) Reset(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, key)
}
