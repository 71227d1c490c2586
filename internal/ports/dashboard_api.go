package ports

import (
	"context"

	"github.com/emiliopalmerini/trialscope/internal/domain"
)

// DashboardAPI serves the aggregate payloads the charts consume.
type DashboardAPI interface {
	DashboardStats(ctx context.Context) (domain.DashboardStats, error)
	CostBreakdown(ctx context.Context) ([]domain.CostByExperiment, error)
	DailyCosts(ctx context.Context, days int) ([]domain.DailyCost, error)
	AccuracyCurve(ctx context.Context, experimentID int64) ([]domain.AccuracyPoint, error)
	// IsAvailable checks if the API is reachable.
	IsAvailable(ctx context.Context) bool
}
