package csvsource

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/emiliopalmerini/trialscope/internal/domain"
)

// Write stores raw as the three CSV files in dir, using the column names Load
// prefers. Existing files are replaced.
func Write(dir string, raw domain.RawData) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	exps := [][]string{{"id", "experiment_name", "project_id", "created_at", "is_del"}}
	for _, e := range raw.Experiments {
		exps = append(exps, []string{itoa(e.ID), e.Name, e.ProjectID, e.CreatedAt, e.IsDeleted})
	}
	trials := [][]string{{"id", "experiment_id", "status", "created_at", "accuracy", "duration(s)"}}
	for _, t := range raw.Trials {
		trials = append(trials, []string{itoa(t.ID), itoa(t.ExperimentID), t.Status, t.CreatedAt, t.Accuracy, t.Duration})
	}
	runs := [][]string{{"id", "trial_id", "tokens", "costs", "latency(ms)", "created_at"}}
	for _, r := range raw.Runs {
		runs = append(runs, []string{itoa(r.ID), itoa(r.TrialID), r.Tokens, r.Cost, r.LatencyMs, r.CreatedAt})
	}

	for name, rows := range map[string][][]string{ExperimentsFile: exps, TrialsFile: trials, RunsFile: runs} {
		if err := writeFile(filepath.Join(dir, name), rows); err != nil {
			return err
		}
	}
	return nil
}

// writeFile writes through a temporary file and renames it into place so a
// watcher never reads a half-written table.
func writeFile(path string, rows [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.WriteAll(rows); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
