package coordinator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"joblens-agent/internal/backend"
	"joblens-agent/internal/bridge"
	"joblens-agent/internal/cache"
	"joblens-agent/internal/config"
	"joblens-agent/internal/notify"
	"joblens-agent/pkg/models"
	"joblens-agent/pkg/utils"
)

type staticTokens struct {
	token string
}

func (s staticTokens) Token(context.Context) (string, error) {
	return s.token, nil
}

type countingBackend struct {
	mu      sync.Mutex
	counts  map[string]int
	handler *http.ServeMux
	server  *httptest.Server
}

func newCountingBackend(t *testing.T) *countingBackend {
	t.Helper()

	cb := &countingBackend{counts: make(map[string]int)}
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/listings/analyze", func(w http.ResponseWriter, r *http.Request) {
		cb.record("analyze")
		json.NewEncoder(w).Encode(models.ListingAnalysis{
			IsLegitimate:    true,
			QualityScore:    74,
			RequiredSkills:  []string{"Go", "Redis"},
			ExperienceLevel: "senior",
			ListingType:     "full-time",
		})
	})
	mux.HandleFunc("/api/v1/profile", func(w http.ResponseWriter, r *http.Request) {
		cb.record("profile")
		json.NewEncoder(w).Encode(models.Profile{ResumeText: "ten years of Go"})
	})
	mux.HandleFunc("/api/v1/match", func(w http.ResponseWriter, r *http.Request) {
		cb.record("match")
		json.NewEncoder(w).Encode(models.MatchAnalysis{
			MatchScore:     85,
			MatchingSkills: []string{"Go"},
			Reasoning:      "strong overlap",
		})
	})

	cb.handler = mux
	cb.server = httptest.NewServer(mux)
	t.Cleanup(cb.server.Close)
	return cb
}

func (cb *countingBackend) record(endpoint string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.counts[endpoint]++
}

func (cb *countingBackend) count(endpoint string) int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.counts[endpoint]
}

type captureNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (c *captureNotifier) Notify(_ context.Context, n notify.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n)
	return nil
}

func (c *captureNotifier) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func testConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Backend.BaseURL = baseURL
	cfg.Backend.Timeout = 5 * time.Second
	cfg.Backend.RateLimit = 6000
	cfg.Backend.Burst = 100
	cfg.Cache.Capacity = 50
	cfg.Cache.TTL = 24 * time.Hour
	cfg.Notifications.MinScore = 80
	cfg.Bridge.MaxAttempts = 3
	cfg.Bridge.RetryDelay = time.Millisecond
	cfg.Bridge.QueueSize = 16
	return cfg
}

func snapshotFixture() models.ListingSnapshot {
	return models.ListingSnapshot{
		Title:       "Senior Go Engineer",
		Company:     "Initech",
		Location:    "Remote",
		Description: "Build backend services in Go.",
		SourceURL:   "https://jobs.example.com/jobs/view/12345",
		CapturedAt:  time.Now(),
	}
}

func newTestCoordinator(t *testing.T, cfg *config.Config, tokens TokenSource, notifier notify.Notifier) (*Coordinator, *bridge.Bridge, *countingBackend) {
	t.Helper()

	cb := newCountingBackend(t)
	if cfg == nil {
		cfg = testConfig(cb.server.URL)
	} else {
		cfg.Backend.BaseURL = cb.server.URL
	}

	pageEp, bgEp := bridge.NewLocalPair(cfg.Bridge.QueueSize)
	policy := bridge.PolicyFromConfig(cfg)
	pageBridge := bridge.New(pageEp, policy)
	bgBridge := bridge.New(bgEp, policy)

	client := backend.NewClient(cfg, tokens)
	rc := cache.New(cfg.Cache.Capacity, cfg.Cache.TTL)
	dispatcher := notify.NewDispatcher(notifier, nil, cfg.Notifications.MinScore)

	coord := New(cfg, bgBridge, client, rc, tokens, dispatcher)
	return coord, pageBridge, cb
}

func pipelineFixture(snapshot models.ListingSnapshot) PipelineRequest {
	return PipelineRequest{
		ID:              "req-test",
		Snapshot:        snapshot,
		Key:             cache.Key(snapshot),
		OriginContextID: "ctx-page-1",
		IssuedAt:        time.Now(),
	}
}

func TestHandleRunsAllThreeCallsAndMerges(t *testing.T) {
	notifier := &captureNotifier{}
	coord, _, cb := newTestCoordinator(t, nil, staticTokens{token: "tok"}, notifier)

	outcome, err := coord.Handle(context.Background(), pipelineFixture(snapshotFixture()))

	require.NoError(t, err)
	assert.Equal(t, 1, cb.count("analyze"))
	assert.Equal(t, 1, cb.count("profile"))
	assert.Equal(t, 1, cb.count("match"))

	assert.Equal(t, "Senior Go Engineer", outcome.Title)
	assert.True(t, outcome.IsLegitimate)
	assert.Equal(t, 74, outcome.QualityScore)
	assert.Equal(t, 85, outcome.MatchScore)
	assert.False(t, outcome.ServedFromCache)
	assert.False(t, outcome.ProducedAt.IsZero())

	// Score 85 clears the default threshold of 80.
	assert.Equal(t, 1, notifier.len())

	stats := coord.Stats()
	assert.Equal(t, int64(1), stats.PipelinesStarted)
	assert.Equal(t, int64(1), stats.PipelinesSucceeded)
	assert.Equal(t, int64(1), stats.NotificationsSent)
}

func TestHandleMissingTokenMakesNoBackendCalls(t *testing.T) {
	coord, _, cb := newTestCoordinator(t, nil, staticTokens{token: ""}, nil)

	_, err := coord.Handle(context.Background(), pipelineFixture(snapshotFixture()))

	require.Error(t, err)
	kind, ok := utils.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, utils.KindAuthRequired, kind)
	assert.Equal(t, 0, cb.count("analyze"))
	assert.Equal(t, 0, cb.count("profile"))
	assert.Equal(t, 0, cb.count("match"))
}

func TestHandleRejectedCredentialsStopsAtFirstCall(t *testing.T) {
	mux := http.NewServeMux()
	profileCalls := 0
	mux.HandleFunc("/api/v1/listings/analyze", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/api/v1/profile", func(w http.ResponseWriter, r *http.Request) {
		profileCalls++
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := testConfig(server.URL)
	_, bgEp := bridge.NewLocalPair(16)
	client := backend.NewClient(cfg, staticTokens{token: "tok"})
	coord := New(cfg, bridge.New(bgEp, bridge.PolicyFromConfig(cfg)), client, cache.New(50, 24*time.Hour), staticTokens{token: "tok"}, nil)

	_, err := coord.Handle(context.Background(), pipelineFixture(snapshotFixture()))

	require.Error(t, err)
	kind, ok := utils.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, utils.KindAuthRequired, kind)
	assert.Equal(t, 0, profileCalls)
}

func TestHandleCacheHitSkipsNetwork(t *testing.T) {
	coord, _, cb := newTestCoordinator(t, nil, staticTokens{token: "tok"}, nil)
	req := pipelineFixture(snapshotFixture())

	first, err := coord.Handle(context.Background(), req)
	require.NoError(t, err)
	require.False(t, first.ServedFromCache)

	second, err := coord.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.ServedFromCache)
	assert.Empty(t, second.CacheStaleWarning)
	assert.Equal(t, first.QualityScore, second.QualityScore)

	assert.Equal(t, 1, cb.count("analyze"))
	assert.Equal(t, int64(1), coord.Stats().CacheHits)
}

type failingBackend struct {
	err error
}

func (f failingBackend) AnalyzeListing(context.Context, models.ListingSnapshot) (*models.ListingAnalysis, error) {
	return nil, f.err
}

func (f failingBackend) FetchProfile(context.Context) (*models.Profile, error) {
	return nil, f.err
}

func (f failingBackend) ComputeMatch(context.Context, string, string) (*models.MatchAnalysis, error) {
	return nil, f.err
}

func TestHandleNetworkFailureServesStaleOutcome(t *testing.T) {
	cfg := testConfig("http://unused")
	_, bgEp := bridge.NewLocalPair(16)

	// Nanosecond TTL expires the entry immediately: a fresh Get misses, but
	// the degraded path still serves it.
	rc := cache.New(50, time.Nanosecond)

	netErr := utils.NewNetworkError("no route to backend", nil)
	coord := New(cfg, bridge.New(bgEp, bridge.PolicyFromConfig(cfg)), failingBackend{err: netErr}, rc, staticTokens{token: "tok"}, nil)

	req := pipelineFixture(snapshotFixture())
	rc.Put(req.Key, models.AnalysisOutcome{Title: "Senior Go Engineer", QualityScore: 74})
	time.Sleep(time.Millisecond)

	outcome, err := coord.Handle(context.Background(), req)

	require.NoError(t, err)
	assert.True(t, outcome.ServedFromCache)
	assert.NotEmpty(t, outcome.CacheStaleWarning)
	assert.Equal(t, int64(1), coord.Stats().CacheFallbacks)
}

func TestHandleNetworkFailureWithoutCacheFails(t *testing.T) {
	cfg := testConfig("http://unused")
	_, bgEp := bridge.NewLocalPair(16)

	netErr := utils.NewNetworkError("no route to backend", nil)
	coord := New(cfg, bridge.New(bgEp, bridge.PolicyFromConfig(cfg)), failingBackend{err: netErr}, cache.New(50, 24*time.Hour), staticTokens{token: "tok"}, nil)

	_, err := coord.Handle(context.Background(), pipelineFixture(snapshotFixture()))

	require.Error(t, err)
	kind, _ := utils.KindOf(err)
	assert.Equal(t, utils.KindNetworkError, kind)
	assert.Equal(t, int64(1), coord.Stats().PipelinesFailed)
}

func TestHandleServerErrorDoesNotFallBackToCache(t *testing.T) {
	cfg := testConfig("http://unused")
	_, bgEp := bridge.NewLocalPair(16)
	rc := cache.New(50, time.Nanosecond)

	srvErr := utils.NewServerError("backend returned status 500")
	coord := New(cfg, bridge.New(bgEp, bridge.PolicyFromConfig(cfg)), failingBackend{err: srvErr}, rc, staticTokens{token: "tok"}, nil)

	req := pipelineFixture(snapshotFixture())
	rc.Put(req.Key, models.AnalysisOutcome{QualityScore: 74})
	time.Sleep(time.Millisecond)

	_, err := coord.Handle(context.Background(), req)

	require.Error(t, err)
	kind, _ := utils.KindOf(err)
	assert.Equal(t, utils.KindServerError, kind)
	assert.Equal(t, int64(0), coord.Stats().CacheFallbacks)
}

func TestRunRoundTripOverBridge(t *testing.T) {
	coord, pageBridge, _ := newTestCoordinator(t, nil, staticTokens{token: "tok"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go coord.Run(ctx)

	snapshot := snapshotFixture()
	event := models.ListingObservedEvent{
		Snapshot:        snapshot,
		OriginContextID: "ctx-page-1",
	}
	msg, err := models.NewMessage(models.MsgListingObserved, event)
	require.NoError(t, err)
	require.NoError(t, pageBridge.Send(ctx, msg))

	select {
	case reply := <-pageBridge.Messages():
		require.Equal(t, models.MsgAnalysisResult, reply.Type)
		var result models.AnalysisResultEvent
		require.NoError(t, reply.DecodeData(&result))
		assert.Equal(t, "ctx-page-1", result.OriginContextID)
		assert.Equal(t, cache.Key(snapshot), result.Key)
		assert.Equal(t, 85, result.Outcome.MatchScore)
	case <-time.After(5 * time.Second):
		t.Fatal("no analysis result arrived on the page bridge")
	}

	state, ok := coord.StateFor("ctx-page-1")
	require.True(t, ok)
	assert.Equal(t, StatusSucceeded, state.Status)
}

func TestRunReportsClassifiedErrorOverBridge(t *testing.T) {
	cfg := testConfig("http://unused")
	pageEp, bgEp := bridge.NewLocalPair(16)
	policy := bridge.PolicyFromConfig(cfg)
	pageBridge := bridge.New(pageEp, policy)

	authErr := utils.NewAuthRequiredError("backend rejected credentials (status 401)")
	coord := New(cfg, bridge.New(bgEp, policy), failingBackend{err: authErr}, cache.New(50, 24*time.Hour), staticTokens{token: "tok"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go coord.Run(ctx)

	msg, err := models.NewMessage(models.MsgListingObserved, models.ListingObservedEvent{
		Snapshot:        snapshotFixture(),
		OriginContextID: "ctx-page-2",
	})
	require.NoError(t, err)
	require.NoError(t, pageBridge.Send(ctx, msg))

	select {
	case reply := <-pageBridge.Messages():
		require.Equal(t, models.MsgAnalysisError, reply.Type)
		var errEvent models.AnalysisErrorEvent
		require.NoError(t, reply.DecodeData(&errEvent))
		assert.Equal(t, string(utils.KindAuthRequired), errEvent.Kind)
		assert.Equal(t, "Please sign in to run analyses.", errEvent.Hint)
	case <-time.After(5 * time.Second):
		t.Fatal("no analysis error arrived on the page bridge")
	}
}

func TestViewAnalysisActionOpensFeedbackSurface(t *testing.T) {
	coord, pageBridge, _ := newTestCoordinator(t, nil, staticTokens{token: "tok"}, nil)

	err := coord.HandleNotificationAction(context.Background(), notify.ActionViewAnalysis, "key-abc", "")
	require.NoError(t, err)

	select {
	case msg := <-pageBridge.Messages():
		require.Equal(t, models.MsgOpenFeedbackSurface, msg.Type)
		var event models.OpenFeedbackSurfaceEvent
		require.NoError(t, msg.DecodeData(&event))
		assert.Equal(t, "key-abc", event.Key)
	case <-time.After(time.Second):
		t.Fatal("no open-feedback-surface event arrived on the page bridge")
	}
}

func TestOpenListingActionIsAcknowledged(t *testing.T) {
	coord, pageBridge, _ := newTestCoordinator(t, nil, staticTokens{token: "tok"}, nil)

	err := coord.HandleNotificationAction(context.Background(), notify.ActionOpenListing, "key-abc", "https://jobs.example.com/jobs/view/42")
	require.NoError(t, err)

	select {
	case msg := <-pageBridge.Messages():
		t.Fatalf("unexpected message for open-listing action: %s", msg.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnknownNotificationActionIsRejected(t *testing.T) {
	coord, _, _ := newTestCoordinator(t, nil, staticTokens{token: "tok"}, nil)

	err := coord.HandleNotificationAction(context.Background(), "dismiss", "key-abc", "")
	assert.Error(t, err)
}

func TestClearCacheEntry(t *testing.T) {
	coord, _, cb := newTestCoordinator(t, nil, staticTokens{token: "tok"}, nil)
	req := pipelineFixture(snapshotFixture())

	_, err := coord.Handle(context.Background(), req)
	require.NoError(t, err)

	coord.ClearCacheEntry(req.Key)

	_, err = coord.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, cb.count("analyze"))
}
