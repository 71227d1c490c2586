package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/emiliopalmerini/trialscope/internal/domain"
	"github.com/emiliopalmerini/trialscope/internal/recordset"
	"github.com/emiliopalmerini/trialscope/internal/util"
)

// ExperimentFilter narrows ExperimentSummaries. Empty fields match everything.
type ExperimentFilter struct {
	Name      string
	ProjectID string
}

func (f ExperimentFilter) matches(exp domain.Experiment) bool {
	if f.Name != "" && !strings.Contains(strings.ToLower(exp.Name), strings.ToLower(f.Name)) {
		return false
	}
	if f.ProjectID != "" && exp.ProjectID != f.ProjectID {
		return false
	}
	return true
}

func summarize(exp domain.Experiment) domain.ExperimentSummary {
	return domain.ExperimentSummary{
		ID:          exp.ID,
		Name:        exp.Name,
		ProjectID:   exp.ProjectID,
		CreatedAt:   exp.CreatedAt,
		TotalTrials: exp.TotalTrials,
		TotalRuns:   exp.TotalRuns,
		TotalCost:   exp.TotalCost,
		AvgAccuracy: exp.AvgAccuracy,
	}
}

// ExperimentSummaries lists live experiments, newest first.
func (a *Aggregator) ExperimentSummaries(rs *recordset.RecordSet, filter ExperimentFilter) []domain.ExperimentSummary {
	out := []domain.ExperimentSummary{}
	for _, exp := range rs.Experiments() {
		if filter.matches(exp) {
			out = append(out, summarize(exp))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ci, cj := out[i].CreatedAt, out[j].CreatedAt
		if (ci == nil) != (cj == nil) {
			return cj == nil
		}
		if ci != nil && !ci.Equal(*cj) {
			return ci.After(*cj)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ExperimentDetail returns a live experiment with per-status trial counts.
func (a *Aggregator) ExperimentDetail(rs *recordset.RecordSet, id int64) (domain.ExperimentDetail, error) {
	exp, ok := rs.Experiment(id)
	if !ok {
		return domain.ExperimentDetail{}, fmt.Errorf("experiment %d: %w", id, domain.ErrNotFound)
	}
	detail := domain.ExperimentDetail{ExperimentSummary: summarize(exp)}
	for _, tr := range rs.TrialsOf(id) {
		switch {
		case tr.Status == domain.TrialFinished:
			detail.FinishedTrials++
		case tr.Status == domain.TrialFailed:
			detail.FailedTrials++
		case tr.Status.IsActive():
			detail.ActiveTrials++
		}
	}
	return detail, nil
}

func summarizeTrial(tr domain.Trial) domain.TrialSummary {
	return domain.TrialSummary{
		ID:              tr.ID,
		ExperimentID:    tr.ExperimentID,
		Status:          tr.Status,
		CreatedAt:       tr.CreatedAt,
		Accuracy:        tr.Accuracy,
		DurationSeconds: tr.DurationSeconds,
		RunCount:        tr.TotalRuns,
		TotalCost:       tr.TotalCost,
	}
}

// ExperimentTrials lists an experiment's trials oldest first, optionally
// restricted to one status.
func (a *Aggregator) ExperimentTrials(rs *recordset.RecordSet, id int64, status string) ([]domain.TrialSummary, error) {
	if _, ok := rs.Experiment(id); !ok {
		return nil, fmt.Errorf("experiment %d: %w", id, domain.ErrNotFound)
	}
	var want domain.TrialStatus
	if status != "" {
		want = domain.ParseTrialStatus(status)
	}

	out := []domain.TrialSummary{}
	for _, tr := range rs.TrialsOf(id) {
		if want != "" && tr.Status != want {
			continue
		}
		out = append(out, summarizeTrial(tr))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := compareTimes(out[i].CreatedAt, out[j].CreatedAt); c != 0 {
			return c < 0
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// TrialDetail returns a trial with its experiment name and run stats.
func (a *Aggregator) TrialDetail(rs *recordset.RecordSet, id int64) (domain.TrialDetail, error) {
	tr, ok := rs.Trial(id)
	if !ok {
		return domain.TrialDetail{}, fmt.Errorf("trial %d: %w", id, domain.ErrNotFound)
	}
	exp, _ := rs.Experiment(tr.ExperimentID)
	stats, err := a.TrialStats(rs, id)
	if err != nil {
		return domain.TrialDetail{}, err
	}
	return domain.TrialDetail{
		TrialSummary:   summarizeTrial(tr),
		ExperimentName: exp.Name,
		Stats:          stats,
	}, nil
}

// TrialRuns lists a trial's runs oldest first with cost per token.
func (a *Aggregator) TrialRuns(rs *recordset.RecordSet, id int64) ([]domain.RunView, error) {
	if _, ok := rs.Trial(id); !ok {
		return nil, fmt.Errorf("trial %d: %w", id, domain.ErrNotFound)
	}
	out := []domain.RunView{}
	for _, run := range rs.RunsOf(id) {
		view := domain.RunView{
			ID:        run.ID,
			TrialID:   run.TrialID,
			Tokens:    run.Tokens,
			Cost:      run.Cost,
			LatencyMs: run.LatencyMs,
			CreatedAt: run.CreatedAt,
		}
		if run.Cost != nil && run.Tokens != nil && *run.Tokens > 0 {
			view.CostPerToken = *run.Cost / float64(*run.Tokens)
		}
		out = append(out, view)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := compareTimes(out[i].CreatedAt, out[j].CreatedAt); c != 0 {
			return c < 0
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// TrialStats aggregates the runs of one trial.
func (a *Aggregator) TrialStats(rs *recordset.RecordSet, id int64) (domain.TrialStats, error) {
	if _, ok := rs.Trial(id); !ok {
		return domain.TrialStats{}, fmt.Errorf("trial %d: %w", id, domain.ErrNotFound)
	}

	var stats domain.TrialStats
	cost := decimal.Zero
	var latSum float64
	var latN int
	for _, run := range rs.RunsOf(id) {
		stats.TotalRuns++
		if run.Invalid {
			continue
		}
		if run.Cost != nil {
			cost = cost.Add(decimal.NewFromFloat(*run.Cost))
		}
		if run.Tokens != nil {
			stats.TotalTokens += *run.Tokens
		}
		if run.LatencyMs != nil {
			lat := *run.LatencyMs
			latSum += float64(lat)
			latN++
			if stats.MinLatency == nil || lat < *stats.MinLatency {
				stats.MinLatency = util.Int64Ptr(lat)
			}
			if stats.MaxLatency == nil || lat > *stats.MaxLatency {
				stats.MaxLatency = util.Int64Ptr(lat)
			}
		}
	}
	stats.TotalCost = cost.InexactFloat64()
	stats.AvgLatency = mean(latSum, latN)
	return stats, nil
}

// compareTimes orders nil timestamps after every real one.
func compareTimes(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case a.Before(*b):
		return -1
	case a.After(*b):
		return 1
	default:
		return 0
	}
}
