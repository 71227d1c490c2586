package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when an entity is absent or soft-deleted.
var ErrNotFound = errors.New("not found")

// TrialStatus is the lifecycle state of a trial.
type TrialStatus string

const (
	TrialPending  TrialStatus = "pending"
	TrialRunning  TrialStatus = "running"
	TrialFinished TrialStatus = "finished"
	TrialFailed   TrialStatus = "failed"
	// TrialInvalid marks a status string that could not be recognised.
	// It is terminal and never treated as active.
	TrialInvalid TrialStatus = "invalid"
)

// ParseTrialStatus maps a raw status string to a TrialStatus.
func ParseTrialStatus(s string) TrialStatus {
	switch TrialStatus(strings.ToLower(strings.TrimSpace(s))) {
	case TrialPending:
		return TrialPending
	case TrialRunning:
		return TrialRunning
	case TrialFinished:
		return TrialFinished
	case TrialFailed:
		return TrialFailed
	default:
		return TrialInvalid
	}
}

// IsActive reports whether the trial is still pending or running.
func (s TrialStatus) IsActive() bool {
	return s == TrialPending || s == TrialRunning
}

// Experiment is the root of the record hierarchy.
type Experiment struct {
	ID        int64
	Name      string
	ProjectID string
	CreatedAt *time.Time
	IsDeleted bool
	Invalid   bool

	TotalTrials int
	TotalRuns   int
	TotalCost   float64
	AvgAccuracy *float64
}

// Trial belongs to exactly one experiment.
type Trial struct {
	ID              int64
	ExperimentID    int64
	Status          TrialStatus
	CreatedAt       *time.Time
	Accuracy        *float64
	DurationSeconds *float64
	Invalid         bool

	TotalRuns int
	TotalCost float64
}

// Run belongs to exactly one trial.
type Run struct {
	ID        int64
	TrialID   int64
	Tokens    *int64
	Cost      *float64
	LatencyMs *int64
	CreatedAt *time.Time
	Invalid   bool
}
