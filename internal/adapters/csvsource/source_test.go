package csvsource

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/emiliopalmerini/trialscope/internal/domain"
	"github.com/emiliopalmerini/trialscope/internal/ports"
)

var _ ports.WatchableSource = (*Source)(nil)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestLoad_OriginalColumnNames(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		ExperimentsFile: "id,experiment_name,project_id,created_at,is_del\n" +
			"1,exp-1,project_a,2024-05-01 10:00:00,False\n" +
			"x,broken,project_a,2024-05-01 10:00:00,False\n",
		TrialsFile: "id,experiment_id,status,created_at,accuracy,duration(s)\n" +
			"1,1,finished,01/05/2024 11:00,0.75,3600.0\n" +
			"2,1,pending,01/05/2024 12:00,,\n",
		RunsFile: "id,trial_id,tokens,costs,latency(ms),created_at\n" +
			"1,1,1200,0.01,250,01/05/2024 11:05\n",
	})

	raw, err := New(dir).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(raw.Experiments) != 1 {
		t.Fatalf("experiments = %d, want 1 (row with bad id skipped)", len(raw.Experiments))
	}
	want := domain.RawExperiment{ID: 1, Name: "exp-1", ProjectID: "project_a", CreatedAt: "2024-05-01 10:00:00", IsDeleted: "False"}
	if raw.Experiments[0] != want {
		t.Errorf("experiment = %+v", raw.Experiments[0])
	}
	if raw.Trials[0].Duration != "3600.0" || raw.Trials[1].Accuracy != "" {
		t.Errorf("trials = %+v", raw.Trials)
	}
	if raw.Runs[0].LatencyMs != "250" || raw.Runs[0].Cost != "0.01" {
		t.Errorf("run = %+v", raw.Runs[0])
	}
}

func TestLoad_AliasesAndShortRows(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		ExperimentsFile: "\ufeffID,Name,project_id,created_at\n7,renamed\n",
		TrialsFile:      "id,experiment_id,status,created_at,accuracy,duration_seconds\n3.0,7,RUNNING,,,\n",
		RunsFile:        "id,trial_id,tokens,cost,latency_ms,created_at\n",
	})

	raw, err := New(dir).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if raw.Experiments[0].Name != "renamed" || raw.Experiments[0].IsDeleted != "" {
		t.Errorf("experiment = %+v", raw.Experiments[0])
	}
	if raw.Trials[0].ID != 3 || raw.Trials[0].Status != "RUNNING" {
		t.Errorf("trial = %+v", raw.Trials[0])
	}
	if len(raw.Runs) != 0 {
		t.Errorf("runs = %+v", raw.Runs)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := New(t.TempDir()).Load(context.Background()); err == nil {
			t.Error("expected error for missing files")
		}
	})
	t.Run("missing id column", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{ExperimentsFile: "name\nfoo\n"})
		if _, err := New(dir).Load(context.Background()); err == nil {
			t.Error("expected error for header without id")
		}
	})
	t.Run("cancelled", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{ExperimentsFile: "id\n1\n"})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := New(dir).Load(ctx); err == nil {
			t.Error("expected context error")
		}
	})
}

func TestWriteThenLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	in := domain.RawData{
		Experiments: []domain.RawExperiment{{ID: 1, Name: "a, with comma", ProjectID: "p", CreatedAt: "2024-01-01 00:00:00", IsDeleted: "False"}},
		Trials:      []domain.RawTrial{{ID: 2, ExperimentID: 1, Status: "failed", CreatedAt: "01/01/2024 01:00", Duration: "12"}},
		Runs:        []domain.RawRun{{ID: 3, TrialID: 2, Tokens: "10", Cost: "0.5", LatencyMs: "7", CreatedAt: "01/01/2024 01:01"}},
	}
	if err := Write(dir, in); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	out, err := New(dir).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if out.Experiments[0] != in.Experiments[0] || out.Trials[0] != in.Trials[0] || out.Runs[0] != in.Runs[0] {
		t.Errorf("round trip mismatch: %+v", out)
	}
}

func TestWatch_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{RunsFile: "id\n"})

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(dir).WatchWithDelay(ctx, 50*time.Millisecond, func() { calls.Add(1) }) }()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 5; i++ {
		writeFiles(t, dir, map[string]string{RunsFile: "id\n1\n"})
	}
	writeFiles(t, dir, map[string]string{"notes.txt": "ignored"})

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(150 * time.Millisecond)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("onChange called %d times, want 1", got)
	}
}
