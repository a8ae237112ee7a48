package watcher

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"joblens-agent/internal/logging"
	"joblens-agent/pkg/models"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Extractor pulls listing fields out of parsed page content using the
// ordered locator lists. A field whose locators all come up empty reads as
// the unknown sentinel, never as the empty string.
type Extractor struct {
	logger logging.Logger
}

func NewExtractor() *Extractor {
	return &Extractor{
		logger: logging.GetGlobalLogger().WithField("component", "extractor"),
	}
}

// ExtractSnapshot builds a snapshot from the document. The caller decides
// whether the result is complete enough to analyze via HasRequiredFields.
func (e *Extractor) ExtractSnapshot(doc *goquery.Document, sourceURL string) models.ListingSnapshot {
	snapshot := models.ListingSnapshot{
		Title:       e.firstMatch(doc, titleLocators),
		Company:     e.firstMatch(doc, companyLocators),
		Location:    e.firstMatch(doc, locationLocators),
		Description: e.firstMatch(doc, descriptionLocators),
		ListingType: e.firstMatch(doc, listingTypeLocators),
		SalaryText:  e.firstMatch(doc, salaryLocators),
		SourceURL:   sourceURL,
		CapturedAt:  time.Now(),
	}

	e.logger.Debug("Snapshot extracted", map[string]interface{}{
		"url":      sourceURL,
		"title":    snapshot.Title,
		"company":  snapshot.Company,
		"complete": snapshot.HasRequiredFields(),
	})
	return snapshot
}

func (e *Extractor) firstMatch(doc *goquery.Document, locators []string) string {
	for _, locator := range locators {
		selection := doc.Find(locator).First()
		if selection.Length() == 0 {
			continue
		}
		if text := cleanText(selection.Text()); text != "" {
			return text
		}
	}
	return models.UnknownValue
}

func cleanText(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// URLClassifier decides whether an address looks like a single job listing.
type URLClassifier struct {
	pattern *regexp.Regexp
}

// NewURLClassifier compiles the listing pattern. An empty pattern matches
// nothing; the watcher then only analyzes on explicit request.
func NewURLClassifier(pattern string) (*URLClassifier, error) {
	if pattern == "" {
		return &URLClassifier{}, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid listing URL pattern %q: %w", pattern, err)
	}
	return &URLClassifier{pattern: re}, nil
}

// IsListingURL reports whether url points at an individual listing page.
func (c *URLClassifier) IsListingURL(url string) bool {
	if c.pattern == nil || url == "" {
		return false
	}
	return c.pattern.MatchString(url)
}
