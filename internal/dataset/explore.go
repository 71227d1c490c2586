package dataset

import (
	"context"

	"github.com/emiliopalmerini/trialscope/internal/aggregate"
	"github.com/emiliopalmerini/trialscope/internal/domain"
)

func (a *API) ExperimentSummaries(ctx context.Context, filter aggregate.ExperimentFilter) ([]domain.ExperimentSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return a.agg.ExperimentSummaries(a.store.Current(), filter), nil
}

func (a *API) ExperimentDetail(ctx context.Context, id int64) (domain.ExperimentDetail, error) {
	if err := ctx.Err(); err != nil {
		return domain.ExperimentDetail{}, err
	}
	return a.agg.ExperimentDetail(a.store.Current(), id)
}

func (a *API) ExperimentTrials(ctx context.Context, id int64, status string) ([]domain.TrialSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return a.agg.ExperimentTrials(a.store.Current(), id, status)
}

func (a *API) TrialDetail(ctx context.Context, id int64) (domain.TrialDetail, error) {
	if err := ctx.Err(); err != nil {
		return domain.TrialDetail{}, err
	}
	return a.agg.TrialDetail(a.store.Current(), id)
}

func (a *API) TrialRuns(ctx context.Context, id int64) ([]domain.RunView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return a.agg.TrialRuns(a.store.Current(), id)
}

func (a *API) TrialStats(ctx context.Context, id int64) (domain.TrialStats, error) {
	if err := ctx.Err(); err != nil {
		return domain.TrialStats{}, err
	}
	return a.agg.TrialStats(a.store.Current(), id)
}

func (a *API) Performance(ctx context.Context) (domain.PerformanceMetrics, error) {
	if err := ctx.Err(); err != nil {
		return domain.PerformanceMetrics{}, err
	}
	return a.agg.Performance(a.store.Current()), nil
}

func (a *API) Anomalies(ctx context.Context) ([]domain.Anomaly, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return a.agg.Anomalies(a.store.Current()), nil
}

func (a *API) Trends(ctx context.Context) (domain.Trends, error) {
	if err := ctx.Err(); err != nil {
		return domain.Trends{}, err
	}
	return a.agg.Trends(a.store.Current()), nil
}

func (a *API) Summary(ctx context.Context) (domain.Summary, error) {
	if err := ctx.Err(); err != nil {
		return domain.Summary{}, err
	}
	return a.agg.Summary(a.store.Current()), nil
}
