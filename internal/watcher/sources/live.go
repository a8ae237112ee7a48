package sources

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"joblens-agent/internal/config"
	"joblens-agent/internal/logging"
)

// LiveSource drives a real browser so script-rendered listings and SPA
// navigations are visible. The page is shared; the watcher is the only
// caller.
type LiveSource struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	logger   logging.Logger

	mu   sync.Mutex
	page *rod.Page
}

// NewLiveSource launches a stealth browser page. Prefers a system-installed
// Chrome; falls back to letting rod download one.
func NewLiveSource(cfg *config.Config) (*LiveSource, error) {
	logger := logging.GetGlobalLogger().WithField("component", "live_source")

	l := launcher.New().
		Headless(cfg.Watcher.HeadlessMode).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-gpu").
		Set("disable-dev-shm-usage")

	if chromePath := systemChromePath(); chromePath != "" {
		l = l.Bin(chromePath)
		logger.Info("Using system Chrome browser", map[string]interface{}{
			"chrome_path": chromePath,
		})
	}

	if cfg.Watcher.UserAgent != "" {
		l = l.Set("user-agent", cfg.Watcher.UserAgent)
	}

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := stealth.Page(browser)
	if err != nil {
		browser.MustClose()
		return nil, fmt.Errorf("failed to create stealth page: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	}); err != nil {
		logger.Warn("Failed to set viewport", map[string]interface{}{
			"error": err.Error(),
		})
	}

	source := &LiveSource{
		browser:  browser,
		launcher: l,
		logger:   logger,
		page:     page,
	}

	if cfg.Watcher.StartURL != "" {
		if err := source.Navigate(context.Background(), cfg.Watcher.StartURL); err != nil {
			logger.Warn("Initial navigation failed", map[string]interface{}{
				"url":   cfg.Watcher.StartURL,
				"error": err.Error(),
			})
		}
	}

	return source, nil
}

// CurrentURL asks the live page for its address. SPA route changes show up
// here without a page load, which is what the navigation poller relies on.
func (s *LiveSource) CurrentURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var url string
	err := rod.Try(func() {
		url = s.page.MustInfo().URL
	})
	if err != nil {
		s.logger.Debug("Could not read page URL", map[string]interface{}{
			"error": err.Error(),
		})
		return ""
	}
	return url
}

func (s *LiveSource) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := rod.Try(func() {
		s.page.Context(ctx).MustNavigate(url).MustWaitLoad()
	})
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (s *LiveSource) Document(ctx context.Context) (*goquery.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var html string
	err := rod.Try(func() {
		html = s.page.Context(ctx).MustHTML()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read page HTML: %w", err)
	}

	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (s *LiveSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := rod.Try(func() {
		s.browser.MustClose()
	})
	s.launcher.Cleanup()
	if err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}

func systemChromePath() string {
	if chromeBin := os.Getenv("CHROME_BIN"); chromeBin != "" {
		if _, err := os.Stat(chromeBin); err == nil {
			return chromeBin
		}
	}

	commonPaths := []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/opt/google/chrome/chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	}
	for _, path := range commonPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
