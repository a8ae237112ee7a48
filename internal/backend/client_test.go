package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"joblens-agent/internal/config"
	"joblens-agent/pkg/models"
	"joblens-agent/pkg/utils"
)

type staticTokens struct {
	token string
}

func (s staticTokens) Token(context.Context) (string, error) {
	return s.token, nil
}

func clientFor(t *testing.T, baseURL, token string) *Client {
	t.Helper()
	cfg := &config.Config{}
	cfg.Backend.BaseURL = baseURL
	cfg.Backend.Timeout = 5 * time.Second
	cfg.Backend.RateLimit = 6000
	cfg.Backend.Burst = 100
	return NewClient(cfg, staticTokens{token: token})
}

func statusServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestAnalyzeListingSendsBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(models.ListingAnalysis{QualityScore: 61})
	}))
	defer server.Close()

	client := clientFor(t, server.URL, "secret-token")
	analysis, err := client.AnalyzeListing(context.Background(), models.ListingSnapshot{
		Title:       "Engineer",
		Description: "work",
	})

	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, 61, analysis.QualityScore)
}

func TestEmptyTokenClassifiesAuthRequiredWithoutCalling(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := clientFor(t, server.URL, "")
	_, err := client.FetchProfile(context.Background())

	require.Error(t, err)
	kind, ok := utils.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, utils.KindAuthRequired, kind)
	assert.False(t, called)
}

func TestStatusClassification(t *testing.T) {
	cases := []struct {
		status int
		kind   utils.ErrorKind
	}{
		{http.StatusUnauthorized, utils.KindAuthRequired},
		{http.StatusForbidden, utils.KindAuthRequired},
		{http.StatusTooManyRequests, utils.KindRateLimited},
		{http.StatusInternalServerError, utils.KindServerError},
		{http.StatusBadGateway, utils.KindServerError},
	}

	for _, tc := range cases {
		server := statusServer(t, tc.status)
		client := clientFor(t, server.URL, "tok")

		_, err := client.FetchProfile(context.Background())
		require.Error(t, err, "status %d", tc.status)

		kind, ok := utils.KindOf(err)
		require.True(t, ok, "status %d produced unclassified error %v", tc.status, err)
		assert.Equal(t, tc.kind, kind, "status %d", tc.status)
	}
}

func TestNoResponseClassifiesNetworkError(t *testing.T) {
	server := statusServer(t, http.StatusOK)
	server.Close() // nothing listens anymore

	client := clientFor(t, server.URL, "tok")
	_, err := client.ComputeMatch(context.Background(), "desc", "resume")

	require.Error(t, err)
	kind, ok := utils.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, utils.KindNetworkError, kind)
}
