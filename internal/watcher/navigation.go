package watcher

import (
	"context"
	"time"

	"joblens-agent/internal/logging"
	"joblens-agent/internal/watcher/sources"
)

// NavigationSource emits page addresses as navigation happens.
type NavigationSource interface {
	// Addresses yields each observed address change. The channel closes when
	// the source stops.
	Addresses(ctx context.Context) <-chan string
}

// PollingNavigationSource detects navigation by polling the page source's
// current address. Catches SPA route changes that never trigger a page load.
type PollingNavigationSource struct {
	source   sources.PageSource
	interval time.Duration
	logger   logging.Logger
}

func NewPollingNavigationSource(source sources.PageSource, interval time.Duration) *PollingNavigationSource {
	if interval <= 0 {
		interval = time.Second
	}
	return &PollingNavigationSource{
		source:   source,
		interval: interval,
		logger:   logging.GetGlobalLogger().WithField("component", "navigation_poller"),
	}
}

func (p *PollingNavigationSource) Addresses(ctx context.Context) <-chan string {
	out := make(chan string, 1)

	go func() {
		defer close(out)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		var last string
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				url := p.source.CurrentURL()
				if url == "" || url == last {
					continue
				}
				last = url
				p.logger.Debug("Navigation observed", map[string]interface{}{
					"url": url,
				})
				select {
				case out <- url:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

// Debounce delays each address by the settle window and drops it when a newer
// one arrives inside the window. SPA route churn collapses into one emission
// for the address the page settled on.
func Debounce(ctx context.Context, in <-chan string, settle time.Duration) <-chan string {
	out := make(chan string, 1)

	go func() {
		defer close(out)

		var (
			timer   *time.Timer
			timerC  <-chan time.Time
			pending string
		)
		for {
			select {
			case <-ctx.Done():
				return
			case url, ok := <-in:
				if !ok {
					return
				}
				pending = url
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(settle)
				timerC = timer.C
			case <-timerC:
				timerC = nil
				select {
				case out <- pending:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}
