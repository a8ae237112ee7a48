package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"joblens-agent/internal/config"
	"joblens-agent/internal/logging"
	"joblens-agent/pkg/models"
	"joblens-agent/pkg/utils"
)

// TokenProvider yields the capability token for outbound calls.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Client talks to the analysis backend. The backend's scoring is opaque; this
// client only shapes requests, classifies failures, and decodes responses.
// Outbound calls share a token bucket so a burst of observed listings cannot
// hammer the paid API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenProvider
	limiter    *rate.Limiter
	logger     logging.Logger
}

// NewClient creates a backend client from configuration.
func NewClient(cfg *config.Config, tokens TokenProvider) *Client {
	rps := rate.Limit(float64(cfg.Backend.RateLimit) / 60.0)
	burst := cfg.Backend.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL: cfg.Backend.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Backend.Timeout,
		},
		tokens:  tokens,
		limiter: rate.NewLimiter(rps, burst),
		logger:  logging.GetGlobalLogger().WithField("component", "backend_client"),
	}
}

type analyzeListingRequest struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Description string `json:"description"`
}

type computeMatchRequest struct {
	Description string `json:"description"`
	ResumeText  string `json:"resume_text"`
}

// AnalyzeListing submits a snapshot for legitimacy and quality analysis.
func (c *Client) AnalyzeListing(ctx context.Context, snapshot models.ListingSnapshot) (*models.ListingAnalysis, error) {
	req := analyzeListingRequest{
		Title:       snapshot.Title,
		Company:     snapshot.Company,
		Description: snapshot.Description,
	}

	var analysis models.ListingAnalysis
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/listings/analyze", req, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// FetchProfile retrieves the stored user profile.
func (c *Client) FetchProfile(ctx context.Context) (*models.Profile, error) {
	var profile models.Profile
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/profile", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ComputeMatch scores the listing against the profile's resume text. It needs
// the profile first, which is why the coordinator's calls are sequential.
func (c *Client) ComputeMatch(ctx context.Context, description, resumeText string) (*models.MatchAnalysis, error) {
	req := computeMatchRequest{
		Description: description,
		ResumeText:  resumeText,
	}

	var match models.MatchAnalysis
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/match", req, &match); err != nil {
		return nil, err
	}
	return &match, nil
}

// doJSON performs one bearer-authenticated call and classifies its failure at
// the point of failure. No response obtained is NETWORK_ERROR; a well-formed
// error response classifies by status. Calls are never retried here.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return utils.NewAuthRequiredError(fmt.Sprintf("capability token unavailable: %v", err))
	}
	if token == "" {
		return utils.NewAuthRequiredError("no capability token in shared storage")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return utils.NewNetworkError("request cancelled while rate limited", err)
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Backend call got no response", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return utils.NewNetworkError(fmt.Sprintf("no response from %s", path), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		cerr := utils.ClassifyStatus(resp.StatusCode)
		c.logger.Warn("Backend call failed", map[string]interface{}{
			"path":   path,
			"status": resp.StatusCode,
			"kind":   string(cerr.Kind),
		})
		return cerr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return utils.NewServerError(fmt.Sprintf("undecodable response from %s: %v", path, err))
	}

	c.logger.Debug("Backend call completed", map[string]interface{}{
		"path":     path,
		"duration": time.Since(start).String(),
	})

	return nil
}
