package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/emiliopalmerini/trialscope/internal/domain"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{URL: srv.URL + "/", Enabled: true})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClient_Disabled(t *testing.T) {
	if _, err := NewClient(Config{URL: "http://localhost"}); err == nil {
		t.Error("expected error for disabled client")
	}
}

func TestClient_DashboardStats(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/dashboard/stats" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"total_experiments":2,"total_cost":12.5,"avg_accuracy":null,"success_rate":0.5}`))
	})

	stats, err := c.DashboardStats(context.Background())
	if err != nil {
		t.Fatalf("DashboardStats: %v", err)
	}
	if stats.TotalExperiments != 2 || stats.TotalCost != 12.5 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.AvgAccuracy != nil {
		t.Error("null accuracy should decode as nil")
	}
	if stats.SuccessRate == nil || *stats.SuccessRate != 0.5 {
		t.Errorf("SuccessRate = %v", stats.SuccessRate)
	}
}

func TestClient_DailyCostsQuery(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("days"); got != "3" {
			t.Errorf("days = %q, want 3", got)
		}
		w.Write([]byte(`[{"date":"2024-06-01","total_cost":1,"run_count":1,"experiment_count":1},
			{"date":"2024-06-02","total_cost":0,"run_count":0,"experiment_count":0},
			{"date":"2024-06-03","total_cost":2,"run_count":1,"experiment_count":1}]`))
	})

	days, err := c.DailyCosts(context.Background(), 3)
	if err != nil {
		t.Fatalf("DailyCosts: %v", err)
	}
	if len(days) != 3 || days[1].Date != "2024-06-02" {
		t.Errorf("days = %+v", days)
	}
}

func TestClient_NotFound(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not_found","message":"experiment 9 not found"}`))
	})

	_, err := c.AccuracyCurve(context.Background(), 9)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestClient_ServerErrorMessage(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"internal","message":"source unavailable"}`))
	})

	_, err := c.CostBreakdown(context.Background())
	if err == nil || !strings.Contains(err.Error(), "source unavailable") {
		t.Errorf("err = %v", err)
	}
}

func TestClient_IsAvailable(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusTeapot)
	})
	if !c.IsAvailable(context.Background()) {
		t.Error("expected API to be available")
	}
	if NewNoOpClient().IsAvailable(context.Background()) {
		t.Error("no-op client should never be available")
	}
}
