package sources

import (
	"context"

	"github.com/PuerkitoBio/goquery"
)

// PageSource abstracts where page content comes from. The watcher only ever
// asks two things: where are we, and what does the page look like right now.
type PageSource interface {
	// CurrentURL returns the address the source currently points at.
	CurrentURL() string

	// Navigate points the source at a new address.
	Navigate(ctx context.Context, url string) error

	// Document returns a parsed view of the current page content.
	Document(ctx context.Context) (*goquery.Document, error)

	// Close releases any resources held by the source.
	Close() error
}
