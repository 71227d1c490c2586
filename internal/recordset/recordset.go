// Package recordset builds a normalized, indexed, read-only view over raw
// experiment, trial, and run records.
package recordset

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/emiliopalmerini/trialscope/internal/domain"
	"github.com/emiliopalmerini/trialscope/internal/util"
)

// Stats describes what happened to the raw records during construction.
type Stats struct {
	Experiments int `json:"experiments"`
	Trials      int `json:"trials"`
	Runs        int `json:"runs"`

	DeletedExperiments int `json:"deleted_experiments"`
	CascadedTrials     int `json:"cascaded_trials"`
	CascadedRuns       int `json:"cascaded_runs"`
	OrphanTrials       int `json:"orphan_trials"`
	OrphanRuns         int `json:"orphan_runs"`
	Duplicates         int `json:"duplicates"`
	Invalid            int `json:"invalid"`
}

// Dropped returns the number of raw records that did not survive construction.
func (s Stats) Dropped() int {
	return s.DeletedExperiments + s.CascadedTrials + s.CascadedRuns +
		s.OrphanTrials + s.OrphanRuns + s.Duplicates
}

// RecordSet is an immutable collection of live experiments, trials, and runs.
// Soft-deleted experiments and everything beneath them are absent, as are
// orphaned trials and runs. Safe for concurrent reads.
type RecordSet struct {
	experiments []domain.Experiment
	trials      []domain.Trial
	runs        []domain.Run

	expIdx      map[int64]int
	trialIdx    map[int64]int
	runIdx      map[int64]int
	trialsByExp map[int64][]int
	runsByTrial map[int64][]int

	stats Stats
}

// Empty returns a RecordSet with no records.
func Empty() *RecordSet {
	return Build(domain.RawData{})
}

// Build normalizes raw records into a RecordSet. It never fails: malformed
// values become nil and records with unparseable timestamps are flagged Invalid.
func Build(raw domain.RawData) *RecordSet {
	rs := &RecordSet{
		expIdx:      make(map[int64]int, len(raw.Experiments)),
		trialIdx:    make(map[int64]int, len(raw.Trials)),
		runIdx:      make(map[int64]int, len(raw.Runs)),
		trialsByExp: make(map[int64][]int),
		runsByTrial: make(map[int64][]int),
	}

	deletedExp := make(map[int64]bool)
	seenExp := make(map[int64]bool, len(raw.Experiments))
	for _, re := range raw.Experiments {
		if seenExp[re.ID] {
			rs.stats.Duplicates++
			continue
		}
		seenExp[re.ID] = true

		if util.ParseBool(re.IsDeleted) {
			deletedExp[re.ID] = true
			rs.stats.DeletedExperiments++
			continue
		}

		exp := normalizeExperiment(re)
		if exp.Invalid {
			rs.stats.Invalid++
		}
		rs.expIdx[exp.ID] = len(rs.experiments)
		rs.experiments = append(rs.experiments, exp)
	}

	// value is true when the trial was dropped through a deleted experiment
	droppedTrial := make(map[int64]bool)
	seenTrial := make(map[int64]bool, len(raw.Trials))
	for _, rt := range raw.Trials {
		if seenTrial[rt.ID] {
			rs.stats.Duplicates++
			continue
		}
		seenTrial[rt.ID] = true

		if _, ok := rs.expIdx[rt.ExperimentID]; !ok {
			droppedTrial[rt.ID] = deletedExp[rt.ExperimentID]
			if deletedExp[rt.ExperimentID] {
				rs.stats.CascadedTrials++
			} else {
				rs.stats.OrphanTrials++
			}
			continue
		}

		tr := normalizeTrial(rt)
		if tr.Invalid {
			rs.stats.Invalid++
		}
		rs.trialIdx[tr.ID] = len(rs.trials)
		rs.trialsByExp[tr.ExperimentID] = append(rs.trialsByExp[tr.ExperimentID], len(rs.trials))
		rs.trials = append(rs.trials, tr)
	}

	seenRun := make(map[int64]bool, len(raw.Runs))
	for _, rr := range raw.Runs {
		if seenRun[rr.ID] {
			rs.stats.Duplicates++
			continue
		}
		seenRun[rr.ID] = true

		if _, ok := rs.trialIdx[rr.TrialID]; !ok {
			if droppedTrial[rr.TrialID] {
				rs.stats.CascadedRuns++
			} else {
				rs.stats.OrphanRuns++
			}
			continue
		}

		run := normalizeRun(rr)
		if run.Invalid {
			rs.stats.Invalid++
		}
		rs.runIdx[run.ID] = len(rs.runs)
		rs.runsByTrial[run.TrialID] = append(rs.runsByTrial[run.TrialID], len(rs.runs))
		rs.runs = append(rs.runs, run)
	}

	rs.stats.Experiments = len(rs.experiments)
	rs.stats.Trials = len(rs.trials)
	rs.stats.Runs = len(rs.runs)

	rs.deriveTotals()
	return rs
}

func normalizeExperiment(re domain.RawExperiment) domain.Experiment {
	exp := domain.Experiment{
		ID:        re.ID,
		Name:      re.Name,
		ProjectID: re.ProjectID,
	}
	if t, ok := util.ParseTimestamp(re.CreatedAt); ok {
		exp.CreatedAt = &t
	} else {
		exp.Invalid = true
	}
	return exp
}

func normalizeTrial(rt domain.RawTrial) domain.Trial {
	tr := domain.Trial{
		ID:              rt.ID,
		ExperimentID:    rt.ExperimentID,
		Status:          domain.ParseTrialStatus(rt.Status),
		DurationSeconds: util.ParseNonNegative(rt.Duration),
	}
	if acc := util.ParseFloat(rt.Accuracy); acc != nil && *acc >= 0 && *acc <= 1 {
		tr.Accuracy = acc
	}
	if t, ok := util.ParseTimestamp(rt.CreatedAt); ok {
		tr.CreatedAt = &t
	} else {
		tr.Invalid = true
	}
	return tr
}

func normalizeRun(rr domain.RawRun) domain.Run {
	run := domain.Run{
		ID:        rr.ID,
		TrialID:   rr.TrialID,
		Tokens:    util.ParseNonNegativeInt(rr.Tokens),
		Cost:      util.ParseNonNegative(rr.Cost),
		LatencyMs: util.ParseNonNegativeInt(rr.LatencyMs),
	}
	if t, ok := util.ParseTimestamp(rr.CreatedAt); ok {
		run.CreatedAt = &t
	} else {
		run.Invalid = true
	}
	return run
}

// deriveTotals fills the per-trial and per-experiment rollups.
func (rs *RecordSet) deriveTotals() {
	for i := range rs.trials {
		tr := &rs.trials[i]
		cost := decimal.Zero
		for _, ri := range rs.runsByTrial[tr.ID] {
			run := rs.runs[ri]
			tr.TotalRuns++
			if !run.Invalid && run.Cost != nil {
				cost = cost.Add(decimal.NewFromFloat(*run.Cost))
			}
		}
		tr.TotalCost = cost.InexactFloat64()
	}

	for i := range rs.experiments {
		exp := &rs.experiments[i]
		cost := decimal.Zero
		var accSum float64
		var accN int
		for _, ti := range rs.trialsByExp[exp.ID] {
			tr := rs.trials[ti]
			exp.TotalTrials++
			exp.TotalRuns += tr.TotalRuns
			cost = cost.Add(decimal.NewFromFloat(tr.TotalCost))
			if !tr.Invalid && tr.Status == domain.TrialFinished && tr.Accuracy != nil {
				accSum += *tr.Accuracy
				accN++
			}
		}
		exp.TotalCost = cost.InexactFloat64()
		if accN > 0 {
			avg := accSum / float64(accN)
			exp.AvgAccuracy = &avg
		}
	}
}

// Stats returns construction statistics.
func (rs *RecordSet) Stats() Stats {
	return rs.stats
}

// Len returns the number of live records of all kinds.
func (rs *RecordSet) Len() int {
	return len(rs.experiments) + len(rs.trials) + len(rs.runs)
}

// Experiments returns all live experiments in source order.
func (rs *RecordSet) Experiments() []domain.Experiment {
	return append([]domain.Experiment(nil), rs.experiments...)
}

// Trials returns all live trials in source order.
func (rs *RecordSet) Trials() []domain.Trial {
	return append([]domain.Trial(nil), rs.trials...)
}

// Runs returns all live runs in source order.
func (rs *RecordSet) Runs() []domain.Run {
	return append([]domain.Run(nil), rs.runs...)
}

// Experiment looks up a live experiment by id.
func (rs *RecordSet) Experiment(id int64) (domain.Experiment, bool) {
	i, ok := rs.expIdx[id]
	if !ok {
		return domain.Experiment{}, false
	}
	return rs.experiments[i], true
}

// Trial looks up a live trial by id.
func (rs *RecordSet) Trial(id int64) (domain.Trial, bool) {
	i, ok := rs.trialIdx[id]
	if !ok {
		return domain.Trial{}, false
	}
	return rs.trials[i], true
}

// Run looks up a live run by id.
func (rs *RecordSet) Run(id int64) (domain.Run, bool) {
	i, ok := rs.runIdx[id]
	if !ok {
		return domain.Run{}, false
	}
	return rs.runs[i], true
}

// TrialsOf returns the trials of an experiment in source order.
func (rs *RecordSet) TrialsOf(experimentID int64) []domain.Trial {
	idx := rs.trialsByExp[experimentID]
	out := make([]domain.Trial, len(idx))
	for i, ti := range idx {
		out[i] = rs.trials[ti]
	}
	return out
}

// RunsOf returns the runs of a trial in source order.
func (rs *RecordSet) RunsOf(trialID int64) []domain.Run {
	idx := rs.runsByTrial[trialID]
	out := make([]domain.Run, len(idx))
	for i, ri := range idx {
		out[i] = rs.runs[ri]
	}
	return out
}

// ExperimentOfRun resolves the owning experiment id of a run.
func (rs *RecordSet) ExperimentOfRun(runID int64) (int64, bool) {
	run, ok := rs.Run(runID)
	if !ok {
		return 0, false
	}
	tr, ok := rs.Trial(run.TrialID)
	if !ok {
		return 0, false
	}
	return tr.ExperimentID, true
}

// ExperimentOfTrial resolves the owning experiment id of a trial.
func (rs *RecordSet) ExperimentOfTrial(trialID int64) (int64, bool) {
	tr, ok := rs.Trial(trialID)
	if !ok {
		return 0, false
	}
	return tr.ExperimentID, true
}

// Latest returns the most recent valid run timestamp, if any.
func (rs *RecordSet) Latest() (time.Time, bool) {
	var latest time.Time
	found := false
	for _, run := range rs.runs {
		if run.Invalid || run.CreatedAt == nil {
			continue
		}
		if !found || run.CreatedAt.After(latest) {
			latest = *run.CreatedAt
			found = true
		}
	}
	return latest, found
}
