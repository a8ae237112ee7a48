package sources

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"joblens-agent/internal/config"
	"joblens-agent/internal/logging"
)

// FetchSource retrieves page content over plain HTTP. Good enough for
// server-rendered job boards; script-heavy sites need the live source.
type FetchSource struct {
	client    *http.Client
	userAgent string
	logger    logging.Logger

	mu  sync.RWMutex
	url string
}

func NewFetchSource(cfg *config.Config) *FetchSource {
	return &FetchSource{
		client:    &http.Client{Timeout: 30 * time.Second},
		userAgent: cfg.Watcher.UserAgent,
		logger:    logging.GetGlobalLogger().WithField("component", "fetch_source"),
		url:       cfg.Watcher.StartURL,
	}
}

func (s *FetchSource) CurrentURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.url
}

func (s *FetchSource) Navigate(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.url = url
	return nil
}

func (s *FetchSource) Document(ctx context.Context) (*goquery.Document, error) {
	url := s.CurrentURL()
	if url == "" {
		return nil, fmt.Errorf("fetch source has no address")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build page request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s returned status %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", url, err)
	}

	s.logger.Debug("Fetched page content", map[string]interface{}{
		"url": url,
	})
	return doc, nil
}

func (s *FetchSource) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
