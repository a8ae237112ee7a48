package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"joblens-agent/pkg/models"
)

func snapshot(title, company, url string) models.ListingSnapshot {
	return models.ListingSnapshot{
		Title:       title,
		Company:     company,
		SourceURL:   url,
		Description: "some description",
		CapturedAt:  time.Now(),
	}
}

func outcomeFor(title string) models.AnalysisOutcome {
	return models.AnalysisOutcome{Title: title, QualityScore: 75, ProducedAt: time.Now()}
}

func TestKeyIgnoresNonIdentityFields(t *testing.T) {
	a := snapshot("Backend Engineer", "Acme", "https://x/y")
	b := a
	b.Location = "Berlin"
	b.SalaryText = "$150k"
	b.ListingType = "full-time"
	b.Description = "a completely different description"

	assert.Equal(t, Key(a), Key(b))
}

func TestKeyIsStableAcrossWhitespaceAndCase(t *testing.T) {
	assert.Equal(t,
		KeyFor("Backend Engineer", "Acme", "https://x/y"),
		KeyFor("  backend engineer ", "ACME", "https://x/y"))
}

func TestKeyDiffersOnIdentityFields(t *testing.T) {
	base := KeyFor("Backend Engineer", "Acme", "https://x/y")
	assert.NotEqual(t, base, KeyFor("Frontend Engineer", "Acme", "https://x/y"))
	assert.NotEqual(t, base, KeyFor("Backend Engineer", "Globex", "https://x/y"))
	assert.NotEqual(t, base, KeyFor("Backend Engineer", "Acme", "https://x/z"))
}

func TestKeyDiffersWhenValuesSwapFields(t *testing.T) {
	// The same values living in different fields describe different listings.
	assert.NotEqual(t,
		KeyFor("Backend Engineer", "Acme", "https://x/y"),
		KeyFor("Acme", "Backend Engineer", "https://x/y"))
}

func TestGetMissesWhenAbsent(t *testing.T) {
	c := New(50, 24*time.Hour)
	_, ok := c.Get("nope")
	assert.False(t, ok)
}

func TestPutThenGet(t *testing.T) {
	c := New(50, 24*time.Hour)
	key := KeyFor("Backend Engineer", "Acme", "https://x/y")

	c.Put(key, outcomeFor("Backend Engineer"))

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "Backend Engineer", got.Title)
}

func TestExpiredEntryReadsAsMissBeforeAnySweep(t *testing.T) {
	c := New(50, 24*time.Hour)
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	key := KeyFor("Backend Engineer", "Acme", "https://x/y")
	c.Put(key, outcomeFor("Backend Engineer"))

	current = current.Add(23 * time.Hour)
	_, ok := c.Get(key)
	assert.True(t, ok, "entry younger than TTL should hit")

	current = current.Add(2 * time.Hour)
	_, ok = c.Get(key)
	assert.False(t, ok, "entry older than TTL must read as a miss")
	assert.Equal(t, 1, c.Len(), "expired entry stays physically present until a sweep")
}

func TestSweepKeepsNewestFifty(t *testing.T) {
	c := New(50, 24*time.Hour)
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	for i := 0; i < 51; i++ {
		current = current.Add(time.Second)
		c.Put(fmt.Sprintf("key-%02d", i), outcomeFor(fmt.Sprintf("job %d", i)))
	}

	assert.Equal(t, 50, c.Len())

	_, ok := c.Get("key-00")
	assert.False(t, ok, "oldest write must be evicted")
	for i := 1; i < 51; i++ {
		_, ok := c.Get(fmt.Sprintf("key-%02d", i))
		assert.True(t, ok, "key-%02d should survive the sweep", i)
	}
}

func TestSweepUsesWriteRecencyNotAccessRecency(t *testing.T) {
	c := New(2, 24*time.Hour)
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	c.Put("a", outcomeFor("a"))
	current = current.Add(time.Second)
	c.Put("b", outcomeFor("b"))

	// Reading "a" must not extend its life
	_, ok := c.Get("a")
	require.True(t, ok)

	current = current.Add(time.Second)
	c.Put("c", outcomeFor("c"))

	_, ok = c.Get("a")
	assert.False(t, ok, "oldest written entry evicted regardless of reads")
	_, ok = c.Get("b")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestInvalidateRemovesEntry(t *testing.T) {
	c := New(50, 24*time.Hour)
	key := KeyFor("Backend Engineer", "Acme", "https://x/y")

	c.Put(key, outcomeFor("Backend Engineer"))
	c.Invalidate(key)

	_, ok := c.Get(key)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestPutIsUpsert(t *testing.T) {
	c := New(50, 24*time.Hour)
	key := KeyFor("Backend Engineer", "Acme", "https://x/y")

	first := outcomeFor("Backend Engineer")
	first.QualityScore = 10
	second := outcomeFor("Backend Engineer")
	second.QualityScore = 90

	c.Put(key, first)
	c.Put(key, second)

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, 90, got.QualityScore)
	assert.Equal(t, 1, c.Len())
}
