package aggregate

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/emiliopalmerini/trialscope/internal/domain"
	"github.com/emiliopalmerini/trialscope/internal/recordset"
	"github.com/emiliopalmerini/trialscope/internal/util"
)

const (
	highCostQuantile   = 0.95
	failedTrialLimit   = 2
	accuracyTrendWidth = 5
	costTrendDays      = 7
	velocityDays       = 30
	summaryTopN        = 5
)

// Performance summarises run-level efficiency over valid runs.
func (a *Aggregator) Performance(rs *recordset.RecordSet) domain.PerformanceMetrics {
	var m domain.PerformanceMetrics

	var tokenSum int64
	var tokenN int
	cost := decimal.Zero
	var latencies []float64
	for _, run := range rs.Runs() {
		if run.Invalid {
			continue
		}
		if run.Tokens != nil {
			tokenSum += *run.Tokens
			tokenN++
		}
		if run.Cost != nil {
			cost = cost.Add(decimal.NewFromFloat(*run.Cost))
		}
		if run.LatencyMs != nil {
			latencies = append(latencies, float64(*run.LatencyMs))
		}
	}

	m.AvgTokensPerRun = mean(float64(tokenSum), tokenN)
	if len(latencies) > 0 {
		sort.Float64s(latencies)
		m.MedianLatency = util.Float64Ptr(quantile(latencies, 0.5))
		m.P95Latency = util.Float64Ptr(quantile(latencies, 0.95))
	}
	if tokenSum > 0 {
		m.CostPerToken = util.Float64Ptr(cost.Div(decimal.NewFromInt(tokenSum)).InexactFloat64())
	}
	return m
}

// Anomalies flags runs costing more than the 95th percentile and
// experiments with more than two failed trials.
func (a *Aggregator) Anomalies(rs *recordset.RecordSet) []domain.Anomaly {
	out := []domain.Anomaly{}

	var costs []float64
	for _, run := range rs.Runs() {
		if !run.Invalid && run.Cost != nil {
			costs = append(costs, *run.Cost)
		}
	}
	if len(costs) > 0 {
		sorted := append([]float64(nil), costs...)
		sort.Float64s(sorted)
		threshold := quantile(sorted, highCostQuantile)

		var high []domain.Anomaly
		for _, run := range rs.Runs() {
			if run.Invalid || run.Cost == nil || *run.Cost <= threshold {
				continue
			}
			high = append(high, domain.Anomaly{
				Type:      domain.AnomalyHighCost,
				Severity:  domain.SeverityWarning,
				RunID:     util.Int64Ptr(run.ID),
				TrialID:   util.Int64Ptr(run.TrialID),
				Value:     util.Float64Ptr(*run.Cost),
				Threshold: util.Float64Ptr(threshold),
			})
		}
		sort.SliceStable(high, func(i, j int) bool {
			if *high[i].Value != *high[j].Value {
				return *high[i].Value > *high[j].Value
			}
			return *high[i].RunID < *high[j].RunID
		})
		out = append(out, high...)
	}

	for _, exp := range rs.Experiments() {
		failed := 0
		for _, tr := range rs.TrialsOf(exp.ID) {
			if tr.Status == domain.TrialFailed {
				failed++
			}
		}
		if failed > failedTrialLimit {
			n := failed
			out = append(out, domain.Anomaly{
				Type:         domain.AnomalyHighFailureRate,
				Severity:     domain.SeverityCritical,
				ExperimentID: util.Int64Ptr(exp.ID),
				FailedCount:  &n,
			})
		}
	}
	return out
}

// Trends derives directional insights: whether accuracy is improving over
// a trailing five-trial mean, the direction of cost over the last week, the
// mean trial duration, and experiments started per day over the last month.
func (a *Aggregator) Trends(rs *recordset.RecordSet) domain.Trends {
	var t domain.Trends

	var finished []domain.Trial
	var durSum float64
	var durN int
	for _, tr := range rs.Trials() {
		if tr.Invalid {
			continue
		}
		if tr.DurationSeconds != nil {
			durSum += *tr.DurationSeconds
			durN++
		}
		if tr.Status == domain.TrialFinished && tr.Accuracy != nil {
			finished = append(finished, tr)
		}
	}
	t.AvgTrialDuration = mean(durSum, durN)

	sort.SliceStable(finished, func(i, j int) bool {
		if !finished[i].CreatedAt.Equal(*finished[j].CreatedAt) {
			return finished[i].CreatedAt.Before(*finished[j].CreatedAt)
		}
		return finished[i].ID < finished[j].ID
	})
	acc := make([]float64, len(finished))
	for i, tr := range finished {
		acc[i] = *tr.Accuracy
	}
	t.AccuracyImproving = accuracyImproving(acc)

	daily := a.DailyCosts(rs, costTrendDays)
	first, last := daily[0].TotalCost, daily[len(daily)-1].TotalCost
	switch {
	case last > first:
		t.CostTrend = domain.TrendIncreasing
	case last < first:
		t.CostTrend = domain.TrendDecreasing
	default:
		t.CostTrend = domain.TrendStable
	}

	end, ok := rs.Latest()
	if !ok {
		end = a.now()
	}
	since := util.StartOfDay(end).AddDate(0, 0, -(velocityDays - 1))
	recent := 0
	for _, exp := range rs.Experiments() {
		if exp.Invalid || exp.CreatedAt == nil {
			continue
		}
		if !exp.CreatedAt.Before(since) {
			recent++
		}
	}
	t.ExperimentVelocity = float64(recent) / velocityDays
	return t
}

// accuracyImproving compares the latest trailing mean with the one four
// trials earlier. Both windows must be full, so at least nine values are needed.
func accuracyImproving(values []float64) *bool {
	n := len(values)
	if n < 2*accuracyTrendWidth-1 {
		return nil
	}
	window := func(end int) float64 {
		var sum float64
		for _, v := range values[end-accuracyTrendWidth+1 : end+1] {
			sum += v
		}
		return sum / accuracyTrendWidth
	}
	improving := window(n-1) > window(n-accuracyTrendWidth)
	return &improving
}

// Summary bundles dashboard totals, trends, and the most expensive experiments.
func (a *Aggregator) Summary(rs *recordset.RecordSet) domain.Summary {
	top := a.CostByExperiment(rs)
	if len(top) > summaryTopN {
		top = top[:summaryTopN]
	}
	return domain.Summary{
		Dashboard:      a.DashboardStats(rs, All()),
		Trends:         a.Trends(rs),
		TopExperiments: top,
	}
}

// quantile interpolates linearly between the closest ranks of sorted values.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// MovingAverage returns the trailing mean of values over window points.
// The first window-1 outputs average over the shorter available prefix.
// A window below one is treated as one.
func MovingAverage(values []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		n := i + 1
		if n > window {
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}
