package ports

import (
	"context"

	"github.com/emiliopalmerini/trialscope/internal/aggregate"
	"github.com/emiliopalmerini/trialscope/internal/domain"
)

// RecordExplorer answers drill-down and insight queries. Lookups of unknown
// or soft-deleted ids return domain.ErrNotFound.
type RecordExplorer interface {
	ExperimentSummaries(ctx context.Context, filter aggregate.ExperimentFilter) ([]domain.ExperimentSummary, error)
	ExperimentDetail(ctx context.Context, id int64) (domain.ExperimentDetail, error)
	ExperimentTrials(ctx context.Context, id int64, status string) ([]domain.TrialSummary, error)
	TrialDetail(ctx context.Context, id int64) (domain.TrialDetail, error)
	TrialRuns(ctx context.Context, id int64) ([]domain.RunView, error)
	TrialStats(ctx context.Context, id int64) (domain.TrialStats, error)
	Performance(ctx context.Context) (domain.PerformanceMetrics, error)
	Anomalies(ctx context.Context) ([]domain.Anomaly, error)
	Trends(ctx context.Context) (domain.Trends, error)
	Summary(ctx context.Context) (domain.Summary, error)
}
