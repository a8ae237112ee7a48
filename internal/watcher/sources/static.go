package sources

import (
	"context"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// StaticSource serves fixed HTML set by the caller. Used in tests and for
// one-shot analysis of content handed in over the API.
type StaticSource struct {
	mu   sync.RWMutex
	url  string
	html string
}

func NewStaticSource(url, html string) *StaticSource {
	return &StaticSource{url: url, html: html}
}

func (s *StaticSource) CurrentURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.url
}

// Navigate just records the address; content stays until SetHTML.
func (s *StaticSource) Navigate(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.url = url
	return nil
}

// SetPage swaps both address and content, simulating a navigation that
// landed on new markup.
func (s *StaticSource) SetPage(url, html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.url = url
	s.html = html
}

func (s *StaticSource) Document(_ context.Context) (*goquery.Document, error) {
	s.mu.RLock()
	html := s.html
	s.mu.RUnlock()
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (s *StaticSource) Close() error {
	return nil
}
