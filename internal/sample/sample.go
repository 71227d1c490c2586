// Package sample generates synthetic experiment, trial and run tables.
package sample

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/emiliopalmerini/trialscope/internal/domain"
)

// Options shape the generated data.
type Options struct {
	Experiments    int
	TrialsPerExp   int
	RunsPerTrial   int
	Seed           uint64
	Now            time.Time
	CostPerToken   float64
	ProjectChoices []string
}

// DefaultOptions returns four experiments with a handful of trials and runs each.
func DefaultOptions() Options {
	return Options{
		Experiments:    4,
		TrialsPerExp:   3,
		RunsPerTrial:   5,
		Seed:           42,
		CostPerToken:   0.00001,
		ProjectChoices: []string{"project_a", "project_b", "project_c"},
	}
}

// trialStatuses is weighted towards finished trials.
var trialStatuses = []string{"finished", "finished", "finished", "failed", "pending"}

const (
	experimentLayout = "2006-01-02 15:04:05"
	eventLayout      = "02/01/2006 15:04"
)

// Generate builds raw tables with sequential ids. The same options always
// produce the same data.
func Generate(opts Options) domain.RawData {
	if opts.Now.IsZero() {
		opts.Now = time.Now().UTC()
	}
	if len(opts.ProjectChoices) == 0 {
		opts.ProjectChoices = DefaultOptions().ProjectChoices
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	between := func(lo, hi int) int { return lo + rng.IntN(hi-lo+1) }

	var raw domain.RawData
	for i := 1; i <= opts.Experiments; i++ {
		raw.Experiments = append(raw.Experiments, domain.RawExperiment{
			ID:        int64(i),
			Name:      fmt.Sprintf("exp-%d", i),
			ProjectID: opts.ProjectChoices[rng.IntN(len(opts.ProjectChoices))],
			CreatedAt: opts.Now.Add(-time.Duration(between(1, 30)) * 24 * time.Hour).Format(experimentLayout),
			IsDeleted: "False",
		})
	}

	var trialID int64
	for _, exp := range raw.Experiments {
		n := between(2, opts.TrialsPerExp+2)
		for range n {
			trialID++
			status := trialStatuses[rng.IntN(len(trialStatuses))]
			t := domain.RawTrial{
				ID:           trialID,
				ExperimentID: exp.ID,
				Status:       status,
				CreatedAt:    opts.Now.Add(-time.Duration(between(1, 500)) * time.Hour).Format(eventLayout),
			}
			if status == "finished" {
				t.Accuracy = strconv.FormatFloat(0.3+rng.Float64()*0.65, 'f', 4, 64)
			}
			if status == "finished" || status == "failed" {
				t.Duration = strconv.Itoa(between(1000, 100000))
			}
			raw.Trials = append(raw.Trials, t)
		}
	}

	var runID int64
	for _, t := range raw.Trials {
		n := between(1, opts.RunsPerTrial+3)
		for range n {
			runID++
			tokens := between(100, 500000)
			cost := float64(tokens) * opts.CostPerToken * (0.8 + rng.Float64()*0.4)
			raw.Runs = append(raw.Runs, domain.RawRun{
				ID:        runID,
				TrialID:   t.ID,
				Tokens:    strconv.Itoa(tokens),
				Cost:      strconv.FormatFloat(cost, 'f', 2, 64),
				LatencyMs: strconv.Itoa(between(10, 3000)),
				CreatedAt: opts.Now.Add(-time.Duration(between(1, 400)) * time.Hour).Format(eventLayout),
			})
		}
	}
	return raw
}
