package httpapi

import (
	"context"
	"errors"

	"github.com/emiliopalmerini/trialscope/internal/domain"
)

// ErrUnavailable is returned by NoOpClient for every query.
var ErrUnavailable = errors.New("dashboard API not configured")

// NoOpClient is a dashboard API client that is never available.
type NoOpClient struct{}

// NewNoOpClient creates a new no-op client for graceful degradation.
func NewNoOpClient() *NoOpClient {
	return &NoOpClient{}
}

func (c *NoOpClient) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	return domain.DashboardStats{}, ErrUnavailable
}

func (c *NoOpClient) CostBreakdown(ctx context.Context) ([]domain.CostByExperiment, error) {
	return nil, ErrUnavailable
}

func (c *NoOpClient) DailyCosts(ctx context.Context, days int) ([]domain.DailyCost, error) {
	return nil, ErrUnavailable
}

func (c *NoOpClient) AccuracyCurve(ctx context.Context, experimentID int64) ([]domain.AccuracyPoint, error) {
	return nil, ErrUnavailable
}

func (c *NoOpClient) IsAvailable(ctx context.Context) bool {
	return false
}
