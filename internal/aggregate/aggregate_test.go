package aggregate

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/emiliopalmerini/trialscope/internal/domain"
	"github.com/emiliopalmerini/trialscope/internal/recordset"
)

func assertFloatNear(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %f, want %f", name, got, want)
	}
}

func fixedAggregator() *Aggregator {
	return &Aggregator{Now: func() time.Time {
		return time.Date(2024, 6, 15, 13, 0, 0, 0, time.UTC)
	}}
}

// fixture: experiment 1 and 2 live, experiment 3 soft-deleted.
func fixture() *recordset.RecordSet {
	return recordset.Build(domain.RawData{
		Experiments: []domain.RawExperiment{
			{ID: 1, Name: "baseline", ProjectID: "p1", CreatedAt: "2024-01-01 08:00:00"},
			{ID: 2, Name: "tuned", ProjectID: "p2", CreatedAt: "2024-01-03 08:00:00"},
			{ID: 3, Name: "abandoned", ProjectID: "p1", CreatedAt: "2024-01-02 08:00:00", IsDeleted: "True"},
			{ID: 4, Name: "idle", ProjectID: "p2", CreatedAt: "2024-01-04 08:00:00"},
		},
		Trials: []domain.RawTrial{
			{ID: 10, ExperimentID: 1, Status: "finished", CreatedAt: "01/01/2024 10:00", Accuracy: "0.70", Duration: "100"},
			{ID: 11, ExperimentID: 1, Status: "finished", CreatedAt: "01/01/2024 10:00", Accuracy: "0.90", Duration: "200"},
			{ID: 12, ExperimentID: 1, Status: "failed", CreatedAt: "01/01/2024 12:00", Accuracy: "0.10"},
			{ID: 13, ExperimentID: 1, Status: "running", CreatedAt: "01/01/2024 13:00"},
			{ID: 20, ExperimentID: 2, Status: "pending", CreatedAt: "03/01/2024 10:00"},
			{ID: 30, ExperimentID: 3, Status: "finished", CreatedAt: "02/01/2024 10:00", Accuracy: "0.99"},
		},
		Runs: []domain.RawRun{
			{ID: 100, TrialID: 10, Tokens: "1000", Cost: "3.00", LatencyMs: "100", CreatedAt: "01/01/2024 10:01"},
			{ID: 101, TrialID: 11, Tokens: "1000", Cost: "1.00", LatencyMs: "300", CreatedAt: "01/01/2024 10:02"},
			{ID: 102, TrialID: 12, Tokens: "", Cost: "", LatencyMs: "", CreatedAt: "01/01/2024 12:01"},
			{ID: 200, TrialID: 20, Tokens: "2000", Cost: "4.00", LatencyMs: "200", CreatedAt: "05/01/2024 09:00"},
			{ID: 300, TrialID: 30, Tokens: "9999", Cost: "500", LatencyMs: "9999", CreatedAt: "02/01/2024 10:01"},
		},
	})
}

func TestDashboardStats_All(t *testing.T) {
	stats := fixedAggregator().DashboardStats(fixture(), All())

	if stats.TotalExperiments != 3 {
		t.Errorf("TotalExperiments = %d, want 3", stats.TotalExperiments)
	}
	if stats.TotalTrials != 5 {
		t.Errorf("TotalTrials = %d, want 5", stats.TotalTrials)
	}
	if stats.TotalRuns != 4 {
		t.Errorf("TotalRuns = %d, want 4", stats.TotalRuns)
	}
	assertFloatNear(t, "TotalCost", stats.TotalCost, 8.0)
	if stats.AvgAccuracy == nil {
		t.Fatal("AvgAccuracy is nil")
	}
	// failed trial accuracy is excluded
	assertFloatNear(t, "AvgAccuracy", *stats.AvgAccuracy, 0.8)
	if stats.AvgLatencyMs == nil {
		t.Fatal("AvgLatencyMs is nil")
	}
	assertFloatNear(t, "AvgLatencyMs", *stats.AvgLatencyMs, 200)
	if stats.ActiveTrials != 2 {
		t.Errorf("ActiveTrials = %d, want 2", stats.ActiveTrials)
	}
	if stats.FailedTrials != 1 {
		t.Errorf("FailedTrials = %d, want 1", stats.FailedTrials)
	}
	if stats.SuccessRate == nil {
		t.Fatal("SuccessRate is nil")
	}
	assertFloatNear(t, "SuccessRate", *stats.SuccessRate, 2.0/3.0)
}

func TestDashboardStats_Scoped(t *testing.T) {
	agg := fixedAggregator()
	rs := fixture()

	stats := agg.DashboardStats(rs, ForExperiment(2))
	if stats.TotalExperiments != 1 || stats.TotalTrials != 1 || stats.TotalRuns != 1 {
		t.Errorf("scoped counts = %+v", stats)
	}
	if stats.AvgAccuracy != nil {
		t.Errorf("AvgAccuracy = %v, want nil", *stats.AvgAccuracy)
	}
	if stats.SuccessRate != nil {
		t.Errorf("SuccessRate = %v, want nil when nothing finished or failed", *stats.SuccessRate)
	}

	deleted := agg.DashboardStats(rs, ForExperiment(3))
	if deleted != (domain.DashboardStats{}) {
		t.Errorf("deleted scope should be the zero form, got %+v", deleted)
	}
}

func TestDashboardStats_Empty(t *testing.T) {
	stats := fixedAggregator().DashboardStats(recordset.Empty(), All())
	if stats != (domain.DashboardStats{}) {
		t.Errorf("empty set = %+v, want zero form", stats)
	}
}

func TestCostByExperiment(t *testing.T) {
	got := fixedAggregator().CostByExperiment(fixture())

	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (experiment without runs and deleted one omitted)", len(got))
	}
	// equal costs break ties by id
	if got[0].ExperimentID != 1 || got[1].ExperimentID != 2 {
		t.Errorf("order = %d, %d; want 1, 2", got[0].ExperimentID, got[1].ExperimentID)
	}
	assertFloatNear(t, "exp1 cost", got[0].TotalCost, 4.0)
	assertFloatNear(t, "exp2 cost", got[1].TotalCost, 4.0)
	assertFloatNear(t, "exp1 pct", got[0].Percentage, 50)
	assertFloatNear(t, "exp2 pct", got[1].Percentage, 50)
	if got[0].RunCount != 3 {
		t.Errorf("exp1 RunCount = %d, want 3 (null-cost run still counted)", got[0].RunCount)
	}
}

func TestCostByExperiment_ZeroTotal(t *testing.T) {
	rs := recordset.Build(domain.RawData{
		Experiments: []domain.RawExperiment{{ID: 1, Name: "free", CreatedAt: "2024-01-01"}},
		Trials:      []domain.RawTrial{{ID: 1, ExperimentID: 1, Status: "finished", CreatedAt: "2024-01-01"}},
		Runs:        []domain.RawRun{{ID: 1, TrialID: 1, Cost: "0", CreatedAt: "2024-01-01"}},
	})
	got := fixedAggregator().CostByExperiment(rs)
	if len(got) != 1 || got[0].Percentage != 0 || math.IsNaN(got[0].Percentage) {
		t.Errorf("zero total should yield 0%% slices, got %+v", got)
	}
}

func TestDailyCosts_Dense(t *testing.T) {
	got := fixedAggregator().DailyCosts(fixture(), 7)

	if len(got) != 7 {
		t.Fatalf("len = %d, want 7", len(got))
	}
	if got[6].Date != "2024-01-05" {
		t.Errorf("last date = %s, want latest run date 2024-01-05", got[6].Date)
	}
	if got[0].Date != "2023-12-30" {
		t.Errorf("first date = %s, want 2023-12-30", got[0].Date)
	}

	byDate := make(map[string]domain.DailyCost)
	for _, d := range got {
		byDate[d.Date] = d
	}
	jan1 := byDate["2024-01-01"]
	assertFloatNear(t, "jan1 cost", jan1.TotalCost, 4.0)
	if jan1.RunCount != 3 || jan1.ExperimentCount != 1 {
		t.Errorf("jan1 = %+v", jan1)
	}
	if jan2 := byDate["2024-01-02"]; jan2.RunCount != 0 || jan2.TotalCost != 0 {
		t.Errorf("deleted experiment's day should be empty, got %+v", jan2)
	}
}

func TestDailyCosts_EmptyAndWindow(t *testing.T) {
	agg := fixedAggregator()

	got := agg.DailyCosts(recordset.Empty(), 30)
	if len(got) != 30 {
		t.Fatalf("len = %d, want 30", len(got))
	}
	if got[29].Date != "2024-06-15" {
		t.Errorf("empty set should anchor at today, got %s", got[29].Date)
	}
	for _, d := range got {
		if d.TotalCost != 0 || d.RunCount != 0 {
			t.Fatalf("expected zero day, got %+v", d)
		}
	}

	if got := agg.DailyCosts(fixture(), 0); len(got) != 0 {
		t.Errorf("window 0 should be empty, got %d", len(got))
	}
}

func TestAccuracyCurve(t *testing.T) {
	agg := fixedAggregator()
	rs := fixture()

	curve := agg.AccuracyCurve(rs, 1)
	if len(curve) != 3 {
		t.Fatalf("len = %d, want 3", len(curve))
	}
	// trials 10 and 11 share a timestamp and break ties by id
	wantIDs := []int64{10, 11, 12}
	for i, p := range curve {
		if p.TrialID != wantIDs[i] {
			t.Errorf("curve[%d].TrialID = %d, want %d", i, p.TrialID, wantIDs[i])
		}
	}
	if curve[2].Status != domain.TrialFailed {
		t.Errorf("status should be carried, got %q", curve[2].Status)
	}

	if got := agg.AccuracyCurve(rs, 3); len(got) != 0 {
		t.Errorf("deleted experiment curve = %v, want empty", got)
	}
	if got := agg.AccuracyCurve(rs, 42); got == nil || len(got) != 0 {
		t.Errorf("unknown experiment curve should be empty non-nil, got %v", got)
	}
}

func TestMovingAverage(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		window int
		want   []float64
	}{
		{"shrinking prefix", []float64{1, 2, 3, 4}, 2, []float64{1, 1.5, 2.5, 3.5}},
		{"window larger than data", []float64{2, 4}, 7, []float64{2, 3}},
		{"window one", []float64{5, 1}, 1, []float64{5, 1}},
		{"zero window", []float64{5, 1}, 0, []float64{5, 1}},
		{"empty", nil, 7, []float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MovingAverage(tt.values, tt.window)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				assertFloatNear(t, fmt.Sprintf("ma[%d]", i), got[i], tt.want[i])
			}
		})
	}
}

func TestExperimentDetail_NotFound(t *testing.T) {
	_, err := fixedAggregator().ExperimentDetail(fixture(), 3)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// randomRaw draws a small hierarchy with a mix of deleted experiments and
// malformed values.
func randomRaw(t *rapid.T) domain.RawData {
	var raw domain.RawData
	nExp := rapid.IntRange(0, 5).Draw(t, "experiments")
	for i := 0; i < nExp; i++ {
		raw.Experiments = append(raw.Experiments, domain.RawExperiment{
			ID:        int64(i),
			Name:      fmt.Sprintf("exp-%d", i),
			CreatedAt: "2024-01-01 00:00:00",
			IsDeleted: rapid.SampledFrom([]string{"False", "True"}).Draw(t, fmt.Sprintf("del%d", i)),
		})
	}
	nTrial := rapid.IntRange(0, 12).Draw(t, "trials")
	for i := 0; i < nTrial; i++ {
		raw.Trials = append(raw.Trials, domain.RawTrial{
			ID:           int64(i),
			ExperimentID: int64(rapid.IntRange(0, 5).Draw(t, fmt.Sprintf("te%d", i))),
			Status:       rapid.SampledFrom([]string{"pending", "running", "finished", "failed", "weird"}).Draw(t, fmt.Sprintf("ts%d", i)),
			CreatedAt:    fmt.Sprintf("%02d/01/2024 10:%02d", rapid.IntRange(1, 28).Draw(t, fmt.Sprintf("td%d", i)), i%60),
			Accuracy:     rapid.SampledFrom([]string{"", "0.1", "0.5", "0.9", "NaN", "2"}).Draw(t, fmt.Sprintf("ta%d", i)),
		})
	}
	nRun := rapid.IntRange(0, 30).Draw(t, "runs")
	for i := 0; i < nRun; i++ {
		raw.Runs = append(raw.Runs, domain.RawRun{
			ID:        int64(i),
			TrialID:   int64(rapid.IntRange(0, 12).Draw(t, fmt.Sprintf("rt%d", i))),
			Cost:      rapid.SampledFrom([]string{"", "0", "0.25", "1.5", "-1", "inf"}).Draw(t, fmt.Sprintf("rc%d", i)),
			LatencyMs: rapid.SampledFrom([]string{"", "10", "250"}).Draw(t, fmt.Sprintf("rl%d", i)),
			CreatedAt: fmt.Sprintf("%02d/01/2024 09:00", rapid.IntRange(1, 28).Draw(t, fmt.Sprintf("rd%d", i))),
		})
	}
	return raw
}

func TestProperties(t *testing.T) {
	agg := fixedAggregator()

	t.Run("soft delete invariance", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			raw := randomRaw(t)
			rs := recordset.Build(raw)

			// dropping deleted experiments and their descendants up front must not change anything
			live := make(map[int64]bool)
			var pruned domain.RawData
			for _, e := range raw.Experiments {
				if e.IsDeleted != "True" {
					live[e.ID] = true
					pruned.Experiments = append(pruned.Experiments, e)
				}
			}
			liveTrial := make(map[int64]bool)
			for _, tr := range raw.Trials {
				if live[tr.ExperimentID] {
					liveTrial[tr.ID] = true
					pruned.Trials = append(pruned.Trials, tr)
				}
			}
			for _, r := range raw.Runs {
				if liveTrial[r.TrialID] {
					pruned.Runs = append(pruned.Runs, r)
				}
			}
			prunedRS := recordset.Build(pruned)

			a, b := agg.DashboardStats(rs, All()), agg.DashboardStats(prunedRS, All())
			if a.TotalExperiments != b.TotalExperiments || a.TotalTrials != b.TotalTrials ||
				a.TotalRuns != b.TotalRuns || math.Abs(a.TotalCost-b.TotalCost) > 1e-9 {
				t.Fatalf("stats differ: %+v vs %+v", a, b)
			}
		})
	})

	t.Run("percentages sum to 100 or all zero", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			entries := agg.CostByExperiment(recordset.Build(randomRaw(t)))
			var sum, costSum float64
			for _, e := range entries {
				if math.IsNaN(e.Percentage) || e.Percentage < 0 {
					t.Fatalf("bad percentage %v", e.Percentage)
				}
				sum += e.Percentage
				costSum += e.TotalCost
			}
			if costSum == 0 && sum != 0 {
				t.Fatalf("zero total but percentages sum to %f", sum)
			}
			if costSum > 0 && math.Abs(sum-100) > 1e-6 {
				t.Fatalf("percentages sum to %f", sum)
			}
			for i := 1; i < len(entries); i++ {
				if entries[i].TotalCost > entries[i-1].TotalCost {
					t.Fatalf("not sorted descending at %d", i)
				}
			}
		})
	})

	t.Run("daily window is dense", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			n := rapid.IntRange(1, 120).Draw(t, "window")
			days := agg.DailyCosts(recordset.Build(randomRaw(t)), n)
			if len(days) != n {
				t.Fatalf("len = %d, want %d", len(days), n)
			}
			for i := 1; i < len(days); i++ {
				prev, _ := time.Parse(domain.DateLayout, days[i-1].Date)
				cur, _ := time.Parse(domain.DateLayout, days[i].Date)
				if cur.Sub(prev) != 24*time.Hour {
					t.Fatalf("gap between %s and %s", days[i-1].Date, days[i].Date)
				}
			}
		})
	})

	t.Run("averages never NaN", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			stats := agg.DashboardStats(recordset.Build(randomRaw(t)), All())
			for _, p := range []*float64{stats.AvgAccuracy, stats.AvgLatencyMs, stats.SuccessRate} {
				if p != nil && (math.IsNaN(*p) || math.IsInf(*p, 0)) {
					t.Fatalf("non-finite average in %+v", stats)
				}
			}
			if math.IsNaN(stats.TotalCost) {
				t.Fatal("NaN total cost")
			}
		})
	})

	t.Run("accuracy curve is ordered", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			rs := recordset.Build(randomRaw(t))
			expID := int64(rapid.IntRange(0, 5).Draw(t, "exp"))
			curve := agg.AccuracyCurve(rs, expID)
			for i := 1; i < len(curve); i++ {
				a, b := curve[i-1], curve[i]
				if b.Timestamp.Before(a.Timestamp) || (b.Timestamp.Equal(a.Timestamp) && b.TrialID < a.TrialID) {
					t.Fatalf("curve out of order at %d", i)
				}
			}
		})
	})
}
