// Package csvsource reads experiments, trials and runs from CSV files in one directory.
package csvsource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/emiliopalmerini/trialscope/internal/domain"
)

const (
	ExperimentsFile = "experiments.csv"
	TrialsFile      = "trials.csv"
	RunsFile        = "runs.csv"
)

// Column aliases accepted in headers, first name is the one written.
var (
	experimentColumns = map[string][]string{
		"id":         {"id"},
		"name":       {"experiment_name", "name"},
		"project_id": {"project_id"},
		"created_at": {"created_at"},
		"is_del":     {"is_del", "is_deleted"},
	}
	trialColumns = map[string][]string{
		"id":            {"id"},
		"experiment_id": {"experiment_id"},
		"status":        {"status"},
		"created_at":    {"created_at"},
		"accuracy":      {"accuracy"},
		"duration":      {"duration(s)", "duration_seconds", "duration"},
	}
	runColumns = map[string][]string{
		"id":         {"id"},
		"trial_id":   {"trial_id"},
		"tokens":     {"tokens"},
		"cost":       {"costs", "cost"},
		"latency":    {"latency(ms)", "latency_ms", "latency"},
		"created_at": {"created_at"},
	}
)

// Source loads the three CSV files from Dir.
type Source struct {
	Dir string
}

// New creates a Source reading from dir.
func New(dir string) *Source {
	return &Source{Dir: dir}
}

func (s *Source) Describe() string {
	return "csv:" + s.Dir
}

// Load reads all three files. A missing file is an error; malformed cells are
// passed through. Rows whose identity columns are not integers are skipped.
func (s *Source) Load(ctx context.Context) (domain.RawData, error) {
	var raw domain.RawData

	err := s.readFile(ctx, ExperimentsFile, experimentColumns, func(row record) error {
		id, ok := row.id("id")
		if !ok {
			return errSkip
		}
		raw.Experiments = append(raw.Experiments, domain.RawExperiment{
			ID:        id,
			Name:      row.get("name"),
			ProjectID: row.get("project_id"),
			CreatedAt: row.get("created_at"),
			IsDeleted: row.get("is_del"),
		})
		return nil
	})
	if err != nil {
		return raw, err
	}

	err = s.readFile(ctx, TrialsFile, trialColumns, func(row record) error {
		id, ok := row.id("id")
		expID, ok2 := row.id("experiment_id")
		if !ok || !ok2 {
			return errSkip
		}
		raw.Trials = append(raw.Trials, domain.RawTrial{
			ID:           id,
			ExperimentID: expID,
			Status:       row.get("status"),
			CreatedAt:    row.get("created_at"),
			Accuracy:     row.get("accuracy"),
			Duration:     row.get("duration"),
		})
		return nil
	})
	if err != nil {
		return raw, err
	}

	err = s.readFile(ctx, RunsFile, runColumns, func(row record) error {
		id, ok := row.id("id")
		trialID, ok2 := row.id("trial_id")
		if !ok || !ok2 {
			return errSkip
		}
		raw.Runs = append(raw.Runs, domain.RawRun{
			ID:        id,
			TrialID:   trialID,
			Tokens:    row.get("tokens"),
			Cost:      row.get("cost"),
			LatencyMs: row.get("latency"),
			CreatedAt: row.get("created_at"),
		})
		return nil
	})
	return raw, err
}

var errSkip = errors.New("skip row")

type record struct {
	cells []string
	index map[string]int
}

func (r record) get(col string) string {
	i, ok := r.index[col]
	if !ok || i >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[i])
}

// id parses an identity column. Float spellings of whole numbers ("3.0")
// are accepted since some exporters write integer columns that way.
func (r record) id(col string) (int64, bool) {
	v := r.get(col)
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

func headerIndex(header []string, columns map[string][]string) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := positions[h]; !dup {
			positions[h] = i
		}
	}
	index := make(map[string]int, len(columns))
	for col, aliases := range columns {
		for _, a := range aliases {
			if i, ok := positions[a]; ok {
				index[col] = i
				break
			}
		}
	}
	if _, ok := index["id"]; !ok {
		return nil, errors.New("missing id column")
	}
	return index, nil
}

func (s *Source) readFile(ctx context.Context, name string, columns map[string][]string, fn func(record) error) error {
	path := filepath.Join(s.Dir, name)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.ReuseRecord = false

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	index, err := headerIndex(header, columns)
	if err != nil {
		return fmt.Errorf("invalid header in %s: %w", path, err)
	}

	skipped := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		cells, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := fn(record{cells: cells, index: index}); err != nil {
			if errors.Is(err, errSkip) {
				skipped++
				continue
			}
			return err
		}
	}

	if skipped > 0 {
		log.WithFields(log.Fields{"file": path, "skipped": skipped}).Warn("skipped rows without a valid id")
	}
	return nil
}
