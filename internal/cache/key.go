package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"joblens-agent/pkg/models"
)

// Key derives the stable cache key for a snapshot from exactly its identity
// fields (title, company, sourceUrl). The normalized values are hashed in a
// fixed canonical order with separators, so no other snapshot field can
// influence the key and the same value in a different field never collides.
func Key(snapshot models.ListingSnapshot) string {
	return KeyFor(snapshot.Title, snapshot.Company, snapshot.SourceURL)
}

// KeyFor derives the cache key from raw identity values.
func KeyFor(title, company, sourceURL string) string {
	h := sha256.New()
	for _, p := range []string{
		normalize(title),
		normalize(company),
		normalize(sourceURL),
	} {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
