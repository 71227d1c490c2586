package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/emiliopalmerini/trialscope/internal/aggregate"
	"github.com/emiliopalmerini/trialscope/internal/config"
	"github.com/emiliopalmerini/trialscope/internal/dataset"
	"github.com/emiliopalmerini/trialscope/internal/domain"
	"github.com/emiliopalmerini/trialscope/internal/ports"
)

func TestServerFieldsAreInterfaces(t *testing.T) {
	s := &Server{}
	var _ ports.DashboardAPI = s.api        //nolint:staticcheck
	var _ ScopedStats = s.scoped            //nolint:staticcheck
	var _ ports.RecordExplorer = s.explorer //nolint:staticcheck
	var _ Reloader = s.reloader             //nolint:staticcheck
	var _ ports.MetricsExporter = s.metrics //nolint:staticcheck
	var _ Reloader = (*dataset.Store)(nil)  //nolint:staticcheck
	var _ ScopedStats = (*dataset.API)(nil) //nolint:staticcheck
}

type staticSource struct{ raw domain.RawData }

func (s staticSource) Load(ctx context.Context) (domain.RawData, error) { return s.raw, nil }
func (s staticSource) Describe() string                                 { return "static" }

type recordingMetrics struct {
	mu       sync.Mutex
	requests []ports.RequestMetrics
}

func (m *recordingMetrics) RecordRequest(ctx context.Context, r ports.RequestMetrics) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, r)
}
func (m *recordingMetrics) RecordReload(ctx context.Context, r ports.ReloadMetrics) {}
func (m *recordingMetrics) Close(ctx context.Context) error                       { return nil }

func fixture() domain.RawData {
	return domain.RawData{
		Experiments: []domain.RawExperiment{
			{ID: 1, Name: "alpha", ProjectID: "p1", CreatedAt: "2024-06-01 09:00:00"},
			{ID: 2, Name: "beta", ProjectID: "p2", CreatedAt: "2024-06-02 09:00:00"},
		},
		Trials: []domain.RawTrial{
			{ID: 10, ExperimentID: 1, Status: "finished", CreatedAt: "2024-06-01 10:00:00", Accuracy: "0.8", Duration: "60"},
			{ID: 11, ExperimentID: 1, Status: "failed", CreatedAt: "2024-06-02 10:00:00"},
			{ID: 20, ExperimentID: 2, Status: "running", CreatedAt: "2024-06-02 11:00:00"},
		},
		Runs: []domain.RawRun{
			{ID: 100, TrialID: 10, Tokens: "100", Cost: "1.5", LatencyMs: "200", CreatedAt: "2024-06-01 10:05:00"},
			{ID: 101, TrialID: 11, Tokens: "50", Cost: "0.5", LatencyMs: "100", CreatedAt: "2024-06-02 10:05:00"},
			{ID: 200, TrialID: 20, Tokens: "300", Cost: "3.0", LatencyMs: "300", CreatedAt: "2024-06-02 11:05:00"},
		},
	}
}

func newTestServer(t *testing.T) (*Server, *recordingMetrics) {
	t.Helper()
	store := dataset.NewStore(staticSource{raw: fixture()})
	if _, err := store.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	api := dataset.NewAPI(store, aggregate.New())
	metrics := &recordingMetrics{}
	return NewServer(config.Default(), api, api, api, store, metrics), metrics
}

func do(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	s, metrics := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/health")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("GET /health = %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if len(metrics.requests) != 1 || metrics.requests[0].Route != "GET /health" {
		t.Errorf("recorded requests = %+v", metrics.requests)
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc" {
		t.Errorf("X-Request-ID = %q, want abc", got)
	}
}

func TestAPI_DashboardStats(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/v1/dashboard/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	stats := decode[domain.DashboardStats](t, rec)
	if stats.TotalExperiments != 2 || stats.TotalTrials != 3 || stats.TotalRuns != 3 {
		t.Errorf("counts = %+v", stats)
	}
	if stats.TotalCost != 5 {
		t.Errorf("TotalCost = %v, want 5", stats.TotalCost)
	}
	if stats.AvgAccuracy == nil || *stats.AvgAccuracy != 0.8 {
		t.Errorf("AvgAccuracy = %v", stats.AvgAccuracy)
	}
}

func TestAPI_NullsAreExplicit(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/v1/trials/11")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"accuracy":null`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestAPI_DailyCosts(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		query string
		code  int
		len   int
	}{
		{"", http.StatusOK, aggregate.DefaultDailyWindow},
		{"?days=2", http.StatusOK, 2},
		{"?days=365", http.StatusOK, 365},
		{"?days=0", http.StatusBadRequest, 0},
		{"?days=366", http.StatusBadRequest, 0},
		{"?days=abc", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, "/api/v1/dashboard/daily-costs"+tt.query)
			if rec.Code != tt.code {
				t.Fatalf("status = %d, want %d", rec.Code, tt.code)
			}
			if tt.code != http.StatusOK {
				if e := decode[apiError](t, rec); e.Error != "invalid_parameter" || e.Message == "" {
					t.Errorf("error body = %+v", e)
				}
				return
			}
			daily := decode[[]domain.DailyCost](t, rec)
			if len(daily) != tt.len {
				t.Fatalf("len = %d, want %d", len(daily), tt.len)
			}
			if last := daily[len(daily)-1]; last.Date != "2024-06-02" || last.TotalCost != 3.5 {
				t.Errorf("last day = %+v", last)
			}
		})
	}
}

func TestAPI_CostBreakdown(t *testing.T) {
	s, _ := newTestServer(t)

	costs := decode[[]domain.CostByExperiment](t, do(t, s, http.MethodGet, "/api/v1/dashboard/cost-breakdown"))
	if len(costs) != 2 || costs[0].ExperimentID != 2 || costs[0].Percentage != 60 {
		t.Errorf("costs = %+v", costs)
	}
}

func TestAPI_Experiments(t *testing.T) {
	s, _ := newTestServer(t)

	all := decode[[]domain.ExperimentSummary](t, do(t, s, http.MethodGet, "/api/v1/experiments"))
	if len(all) != 2 {
		t.Fatalf("len = %d", len(all))
	}
	filtered := decode[[]domain.ExperimentSummary](t, do(t, s, http.MethodGet, "/api/v1/experiments?project_id=p1"))
	if len(filtered) != 1 || filtered[0].Name != "alpha" {
		t.Errorf("filtered = %+v", filtered)
	}

	detail := decode[domain.ExperimentDetail](t, do(t, s, http.MethodGet, "/api/v1/experiments/1"))
	if detail.FinishedTrials != 1 || detail.FailedTrials != 1 {
		t.Errorf("detail = %+v", detail)
	}

	trials := decode[[]domain.TrialSummary](t, do(t, s, http.MethodGet, "/api/v1/experiments/1/trials?status=failed"))
	if len(trials) != 1 || trials[0].ID != 11 {
		t.Errorf("trials = %+v", trials)
	}

	curve := decode[[]domain.AccuracyPoint](t, do(t, s, http.MethodGet, "/api/v1/experiments/1/accuracy-curve"))
	if len(curve) != 1 || curve[0].TrialID != 10 {
		t.Errorf("curve = %+v", curve)
	}
}

func TestAPI_Errors(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		path string
		code int
		err  string
	}{
		{"/api/v1/experiments/99", http.StatusNotFound, "not_found"},
		{"/api/v1/experiments/abc", http.StatusBadRequest, "invalid_parameter"},
		{"/api/v1/trials/99", http.StatusNotFound, "not_found"},
		{"/api/v1/trials/99/runs", http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, tt.path)
			if rec.Code != tt.code {
				t.Fatalf("status = %d, want %d", rec.Code, tt.code)
			}
			if e := decode[apiError](t, rec); e.Error != tt.err {
				t.Errorf("error = %+v", e)
			}
		})
	}
}

func TestAPI_TrialRuns(t *testing.T) {
	s, _ := newTestServer(t)

	resp := decode[trialRunsResponse](t, do(t, s, http.MethodGet, "/api/v1/trials/10/runs"))
	if len(resp.Runs) != 1 || resp.Runs[0].CostPerToken != 0.015 {
		t.Errorf("runs = %+v", resp.Runs)
	}
	if resp.Stats.TotalRuns != 1 || resp.Stats.TotalTokens != 100 {
		t.Errorf("stats = %+v", resp.Stats)
	}
}

func TestAPI_ReloadAndStatus(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/v1/reload")
	if rec.Code != http.StatusOK {
		t.Fatalf("reload status = %d: %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/reload"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET reload = %d", rec.Code)
	}

	status := decode[dataset.Status](t, do(t, s, http.MethodGet, "/api/v1/status"))
	if !status.Loaded || status.Stats.Runs != 3 || status.Source != "static" {
		t.Errorf("status = %+v", status)
	}
}
