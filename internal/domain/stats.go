package domain

import "time"

// DashboardStats holds headline rollups over a scope of records.
// Nullable averages are encoded as JSON null when nothing contributed.
type DashboardStats struct {
	TotalExperiments int      `json:"total_experiments"`
	TotalTrials      int      `json:"total_trials"`
	TotalRuns        int      `json:"total_runs"`
	TotalCost        float64  `json:"total_cost"`
	AvgAccuracy      *float64 `json:"avg_accuracy"`
	AvgLatencyMs     *float64 `json:"avg_latency_ms"`
	ActiveTrials     int      `json:"active_trials"`
	FailedTrials     int      `json:"failed_trials"`
	SuccessRate      *float64 `json:"success_rate"`
}

// CostByExperiment is one slice of the cost breakdown.
type CostByExperiment struct {
	ExperimentID   int64   `json:"experiment_id"`
	ExperimentName string  `json:"experiment_name"`
	TotalCost      float64 `json:"total_cost"`
	Percentage     float64 `json:"percentage"`
	RunCount       int     `json:"run_count"`
}

// DateLayout is the calendar-day format used across the API.
const DateLayout = "2006-01-02"

// DailyCost is one calendar day of the dense daily series.
type DailyCost struct {
	Date            string  `json:"date"`
	TotalCost       float64 `json:"total_cost"`
	RunCount        int     `json:"run_count"`
	ExperimentCount int     `json:"experiment_count"`
}

// AccuracyPoint is one trial on an experiment's accuracy curve.
type AccuracyPoint struct {
	TrialID   int64       `json:"trial_id"`
	Timestamp time.Time   `json:"timestamp"`
	Accuracy  float64     `json:"accuracy"`
	Status    TrialStatus `json:"status"`
}

// ExperimentSummary is an experiment with its derived totals.
type ExperimentSummary struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	ProjectID   string     `json:"project_id"`
	CreatedAt   *time.Time `json:"created_at"`
	TotalTrials int        `json:"total_trials"`
	TotalRuns   int        `json:"total_runs"`
	TotalCost   float64    `json:"total_cost"`
	AvgAccuracy *float64   `json:"avg_accuracy"`
}

// ExperimentDetail extends a summary with per-status trial counts.
type ExperimentDetail struct {
	ExperimentSummary
	FinishedTrials int `json:"finished_trials"`
	FailedTrials   int `json:"failed_trials"`
	ActiveTrials   int `json:"active_trials"`
}

// TrialSummary is a trial with its derived totals.
type TrialSummary struct {
	ID              int64       `json:"id"`
	ExperimentID    int64       `json:"experiment_id"`
	Status          TrialStatus `json:"status"`
	CreatedAt       *time.Time  `json:"created_at"`
	Accuracy        *float64    `json:"accuracy"`
	DurationSeconds *float64    `json:"duration_seconds"`
	RunCount        int         `json:"run_count"`
	TotalCost       float64     `json:"total_cost"`
}

// TrialDetail is a trial with its owning experiment and run stats.
type TrialDetail struct {
	TrialSummary
	ExperimentName string     `json:"experiment_name"`
	Stats          TrialStats `json:"stats"`
}

// TrialStats aggregates the runs of a single trial.
type TrialStats struct {
	TotalRuns   int      `json:"total_runs"`
	TotalCost   float64  `json:"total_cost"`
	AvgLatency  *float64 `json:"avg_latency"`
	TotalTokens int64    `json:"total_tokens"`
	MinLatency  *int64   `json:"min_latency"`
	MaxLatency  *int64   `json:"max_latency"`
}

// RunView is a run with derived per-run metrics.
type RunView struct {
	ID           int64      `json:"id"`
	TrialID      int64      `json:"trial_id"`
	Tokens       *int64     `json:"tokens"`
	Cost         *float64   `json:"cost"`
	LatencyMs    *int64     `json:"latency_ms"`
	CreatedAt    *time.Time `json:"created_at"`
	CostPerToken float64    `json:"cost_per_token"`
}

// PerformanceMetrics summarises run-level efficiency.
type PerformanceMetrics struct {
	AvgTokensPerRun *float64 `json:"avg_tokens_per_run"`
	MedianLatency   *float64 `json:"median_latency"`
	P95Latency      *float64 `json:"p95_latency"`
	CostPerToken    *float64 `json:"cost_per_token"`
}

// Anomaly severities.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Anomaly types.
const (
	AnomalyHighCost        = "high_cost"
	AnomalyHighFailureRate = "high_failure_rate"
)

// Anomaly is a single detected outlier.
type Anomaly struct {
	Type         string   `json:"type"`
	Severity     string   `json:"severity"`
	RunID        *int64   `json:"run_id,omitempty"`
	TrialID      *int64   `json:"trial_id,omitempty"`
	ExperimentID *int64   `json:"experiment_id,omitempty"`
	Value        *float64 `json:"value,omitempty"`
	Threshold    *float64 `json:"threshold,omitempty"`
	FailedCount  *int     `json:"failed_count,omitempty"`
}

// Cost trend directions.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// Trends holds directional insights over recent activity.
type Trends struct {
	AccuracyImproving  *bool    `json:"accuracy_improving"`
	CostTrend          string   `json:"cost_trend"`
	AvgTrialDuration   *float64 `json:"avg_trial_duration"`
	ExperimentVelocity float64  `json:"experiment_velocity"`
}

// Summary bundles the headline rollups served together.
type Summary struct {
	Dashboard      DashboardStats     `json:"dashboard"`
	Trends         Trends             `json:"trends"`
	TopExperiments []CostByExperiment `json:"top_experiments"`
}
