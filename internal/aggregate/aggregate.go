// Package aggregate computes dashboard rollups over a RecordSet.
//
// Every function is pure: it reads the record set and returns fresh values,
// so an Aggregator is safe for concurrent use. Records flagged invalid and
// nil fields count wherever only a count is reported, but never contribute
// to sums, averages, or day-bucketed series.
package aggregate

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/emiliopalmerini/trialscope/internal/domain"
	"github.com/emiliopalmerini/trialscope/internal/recordset"
	"github.com/emiliopalmerini/trialscope/internal/util"
)

// DefaultDailyWindow is the number of days returned when no window is given.
const DefaultDailyWindow = 30

// Aggregator computes rollups. Now anchors time windows when the data
// carries no usable timestamp.
type Aggregator struct {
	Now func() time.Time
}

// New returns an Aggregator using the wall clock.
func New() *Aggregator {
	return &Aggregator{Now: time.Now}
}

func (a *Aggregator) now() time.Time {
	if a == nil || a.Now == nil {
		return time.Now().UTC()
	}
	return a.Now().UTC()
}

// Scope restricts a rollup to one experiment or leaves it unrestricted.
type Scope struct {
	experimentID int64
	scoped       bool
}

// All is the unrestricted scope.
func All() Scope { return Scope{} }

// ForExperiment restricts a rollup to a single experiment.
func ForExperiment(id int64) Scope { return Scope{experimentID: id, scoped: true} }

func (s Scope) includes(experimentID int64) bool {
	return !s.scoped || s.experimentID == experimentID
}

// DashboardStats computes headline totals within scope.
func (a *Aggregator) DashboardStats(rs *recordset.RecordSet, scope Scope) domain.DashboardStats {
	var stats domain.DashboardStats

	for _, exp := range rs.Experiments() {
		if scope.includes(exp.ID) {
			stats.TotalExperiments++
		}
	}

	var accSum float64
	var accN, finished int
	for _, tr := range rs.Trials() {
		if !scope.includes(tr.ExperimentID) {
			continue
		}
		stats.TotalTrials++
		switch {
		case tr.Status.IsActive():
			stats.ActiveTrials++
		case tr.Status == domain.TrialFailed:
			stats.FailedTrials++
		case tr.Status == domain.TrialFinished:
			finished++
			if !tr.Invalid && tr.Accuracy != nil {
				accSum += *tr.Accuracy
				accN++
			}
		}
	}

	cost := decimal.Zero
	var latSum float64
	var latN int
	for _, run := range rs.Runs() {
		expID, _ := rs.ExperimentOfRun(run.ID)
		if !scope.includes(expID) {
			continue
		}
		stats.TotalRuns++
		if run.Invalid {
			continue
		}
		if run.Cost != nil {
			cost = cost.Add(decimal.NewFromFloat(*run.Cost))
		}
		if run.LatencyMs != nil {
			latSum += float64(*run.LatencyMs)
			latN++
		}
	}

	stats.TotalCost = cost.InexactFloat64()
	stats.AvgAccuracy = mean(accSum, accN)
	stats.AvgLatencyMs = mean(latSum, latN)
	if denom := finished + stats.FailedTrials; denom > 0 {
		stats.SuccessRate = util.Float64Ptr(float64(finished) / float64(denom))
	}
	return stats
}

// CostByExperiment groups run cost by owning experiment. Experiments without
// runs are omitted. Entries are ordered by cost descending, then id.
func (a *Aggregator) CostByExperiment(rs *recordset.RecordSet) []domain.CostByExperiment {
	type bucket struct {
		cost decimal.Decimal
		runs int
	}
	buckets := make(map[int64]*bucket)
	grand := decimal.Zero

	for _, run := range rs.Runs() {
		expID, ok := rs.ExperimentOfRun(run.ID)
		if !ok {
			continue
		}
		b := buckets[expID]
		if b == nil {
			b = &bucket{cost: decimal.Zero}
			buckets[expID] = b
		}
		b.runs++
		if !run.Invalid && run.Cost != nil {
			c := decimal.NewFromFloat(*run.Cost)
			b.cost = b.cost.Add(c)
			grand = grand.Add(c)
		}
	}

	out := make([]domain.CostByExperiment, 0, len(buckets))
	for _, exp := range rs.Experiments() {
		b, ok := buckets[exp.ID]
		if !ok {
			continue
		}
		entry := domain.CostByExperiment{
			ExperimentID:   exp.ID,
			ExperimentName: exp.Name,
			TotalCost:      b.cost.InexactFloat64(),
			RunCount:       b.runs,
		}
		if grand.IsPositive() {
			entry.Percentage = b.cost.Div(grand).Mul(decimal.NewFromInt(100)).InexactFloat64()
		}
		out = append(out, entry)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalCost != out[j].TotalCost {
			return out[i].TotalCost > out[j].TotalCost
		}
		return out[i].ExperimentID < out[j].ExperimentID
	})
	return out
}

// DailyCosts returns exactly windowDays consecutive UTC calendar days ending
// at the latest valid run date, or today when there is none. Days without
// runs are present with zero values.
func (a *Aggregator) DailyCosts(rs *recordset.RecordSet, windowDays int) []domain.DailyCost {
	if windowDays <= 0 {
		return []domain.DailyCost{}
	}

	end, ok := rs.Latest()
	if !ok {
		end = a.now()
	}
	end = util.StartOfDay(end)
	start := end.AddDate(0, 0, -(windowDays - 1))

	type bucket struct {
		cost        decimal.Decimal
		runs        int
		experiments map[int64]struct{}
	}
	buckets := make(map[string]*bucket, windowDays)

	for _, run := range rs.Runs() {
		if run.Invalid || run.CreatedAt == nil {
			continue
		}
		day := util.StartOfDay(*run.CreatedAt)
		if day.Before(start) || day.After(end) {
			continue
		}
		key := day.Format(domain.DateLayout)
		b := buckets[key]
		if b == nil {
			b = &bucket{cost: decimal.Zero, experiments: make(map[int64]struct{})}
			buckets[key] = b
		}
		b.runs++
		if run.Cost != nil {
			b.cost = b.cost.Add(decimal.NewFromFloat(*run.Cost))
		}
		if expID, ok := rs.ExperimentOfRun(run.ID); ok {
			b.experiments[expID] = struct{}{}
		}
	}

	out := make([]domain.DailyCost, windowDays)
	for i := 0; i < windowDays; i++ {
		key := start.AddDate(0, 0, i).Format(domain.DateLayout)
		out[i] = domain.DailyCost{Date: key}
		if b, ok := buckets[key]; ok {
			out[i].TotalCost = b.cost.InexactFloat64()
			out[i].RunCount = b.runs
			out[i].ExperimentCount = len(b.experiments)
		}
	}
	return out
}

// AccuracyCurve returns the valid trials of an experiment that carry an
// accuracy, ordered by timestamp then trial id. Unknown or deleted
// experiments yield an empty curve.
func (a *Aggregator) AccuracyCurve(rs *recordset.RecordSet, experimentID int64) []domain.AccuracyPoint {
	out := []domain.AccuracyPoint{}
	for _, tr := range rs.TrialsOf(experimentID) {
		if tr.Invalid || tr.CreatedAt == nil || tr.Accuracy == nil {
			continue
		}
		out = append(out, domain.AccuracyPoint{
			TrialID:   tr.ID,
			Timestamp: *tr.CreatedAt,
			Accuracy:  *tr.Accuracy,
			Status:    tr.Status,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].TrialID < out[j].TrialID
	})
	return out
}

func mean(sum float64, n int) *float64 {
	if n == 0 {
		return nil
	}
	return util.Float64Ptr(sum / float64(n))
}
