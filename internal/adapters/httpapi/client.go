// Package httpapi reads the dashboard aggregates from a running trialscope
// server over its JSON API.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/emiliopalmerini/trialscope/internal/domain"
)

const apiPrefix = "/api/v1"

// Client queries the dashboard API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new dashboard API client.
func NewClient(cfg Config) (*Client, error) {
	if !cfg.Enabled || cfg.URL == "" {
		return nil, fmt.Errorf("dashboard API client is disabled or URL not configured")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// apiError is the JSON error body returned by the server.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// DashboardStats fetches the headline rollups.
func (c *Client) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	var stats domain.DashboardStats
	if err := c.get(ctx, "/dashboard/stats", nil, &stats); err != nil {
		return domain.DashboardStats{}, fmt.Errorf("querying dashboard stats: %w", err)
	}
	return stats, nil
}

// CostBreakdown fetches the cost share per experiment.
func (c *Client) CostBreakdown(ctx context.Context) ([]domain.CostByExperiment, error) {
	var out []domain.CostByExperiment
	if err := c.get(ctx, "/dashboard/cost-breakdown", nil, &out); err != nil {
		return nil, fmt.Errorf("querying cost breakdown: %w", err)
	}
	return out, nil
}

// DailyCosts fetches the dense daily cost series.
func (c *Client) DailyCosts(ctx context.Context, days int) ([]domain.DailyCost, error) {
	q := url.Values{}
	q.Set("days", strconv.Itoa(days))
	var out []domain.DailyCost
	if err := c.get(ctx, "/dashboard/daily-costs", q, &out); err != nil {
		return nil, fmt.Errorf("querying daily costs: %w", err)
	}
	return out, nil
}

// AccuracyCurve fetches an experiment's accuracy points.
func (c *Client) AccuracyCurve(ctx context.Context, experimentID int64) ([]domain.AccuracyPoint, error) {
	var out []domain.AccuracyPoint
	path := fmt.Sprintf("/experiments/%d/accuracy-curve", experimentID)
	if err := c.get(ctx, path, nil, &out); err != nil {
		return nil, fmt.Errorf("querying accuracy curve: %w", err)
	}
	return out, nil
}

// IsAvailable checks if the API is reachable.
func (c *Client) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiPrefix+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// get executes a GET request and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u, err := url.Parse(c.baseURL + apiPrefix + path)
	if err != nil {
		return fmt.Errorf("parsing URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
