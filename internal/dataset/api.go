package dataset

import (
	"context"

	"github.com/emiliopalmerini/trialscope/internal/aggregate"
	"github.com/emiliopalmerini/trialscope/internal/domain"
)

// API answers dashboard queries from the store's current RecordSet.
type API struct {
	store *Store
	agg   *aggregate.Aggregator
}

// NewAPI creates an in-process dashboard API.
func NewAPI(store *Store, agg *aggregate.Aggregator) *API {
	return &API{store: store, agg: agg}
}

func (a *API) Aggregator() *aggregate.Aggregator { return a.agg }
func (a *API) Store() *Store                     { return a.store }

func (a *API) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	if err := ctx.Err(); err != nil {
		return domain.DashboardStats{}, err
	}
	return a.agg.DashboardStats(a.store.Current(), aggregate.All()), nil
}

// ExperimentStats is DashboardStats restricted to one experiment.
func (a *API) ExperimentStats(ctx context.Context, id int64) (domain.DashboardStats, error) {
	if err := ctx.Err(); err != nil {
		return domain.DashboardStats{}, err
	}
	rs := a.store.Current()
	if _, ok := rs.Experiment(id); !ok {
		return domain.DashboardStats{}, domain.ErrNotFound
	}
	return a.agg.DashboardStats(rs, aggregate.ForExperiment(id)), nil
}

func (a *API) CostBreakdown(ctx context.Context) ([]domain.CostByExperiment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return a.agg.CostByExperiment(a.store.Current()), nil
}

func (a *API) DailyCosts(ctx context.Context, days int) ([]domain.DailyCost, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return a.agg.DailyCosts(a.store.Current(), days), nil
}

func (a *API) AccuracyCurve(ctx context.Context, experimentID int64) ([]domain.AccuracyPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return a.agg.AccuracyCurve(a.store.Current(), experimentID), nil
}

// IsAvailable reports whether at least one reload succeeded.
func (a *API) IsAvailable(ctx context.Context) bool {
	return a.store.Status().Loaded
}
