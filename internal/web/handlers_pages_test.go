package web

import (
	"net/http"
	"strings"
	"testing"
)

func TestDashboardPage(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"<svg",
		`href="/click/cost/exp:1"`,
		`href="/click/daily/day:2024-06-02"`,
		`href="/experiments/1">alpha</a>`,
		`data-date="2024-06-02"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Contains(body, `class="alert"`) {
		t.Error("unexpected load failure message")
	}
}

func TestDashboardPage_DayFilter(t *testing.T) {
	s, _ := newTestServer(t)

	body := do(t, s, http.MethodGet, "/?day=2024-06-02").Body.String()
	if !strings.Contains(body, `data-date="2024-06-02"`) || strings.Contains(body, `data-date="2024-06-01"`) {
		t.Error("days table should only show the filtered day")
	}
	if !strings.Contains(body, "/click/cost/exp:1?day=2024-06-02") {
		t.Error("chart links should carry the active day")
	}

	body = do(t, s, http.MethodGet, "/?day=not-a-date").Body.String()
	if !strings.Contains(body, `data-date="2024-06-01"`) {
		t.Error("invalid day should be ignored")
	}
}

func TestDashboardPage_HoverHighlightsRow(t *testing.T) {
	s, _ := newTestServer(t)

	body := do(t, s, http.MethodGet, "/?hover=exp:1").Body.String()
	if !strings.Contains(body, `<tr class="highlighted" data-id="1">`) {
		t.Error("hovered experiment row should be highlighted")
	}
	if !strings.Contains(body, `<tr class="" data-id="2">`) {
		t.Error("other rows should not be highlighted")
	}
	if !strings.Contains(body, `<figcaption class="tooltip">alpha`) {
		t.Error("cost chart should show the tooltip")
	}
}

func TestExperimentPage(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/experiments/1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"<h1>alpha</h1>", `href="/trials/10"`, `href="/click/accuracy/trial:10?experiment=1"`} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}

	if rec := do(t, s, http.MethodGet, "/experiments/99"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown experiment = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/experiments/x"); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid id = %d", rec.Code)
	}
}

func TestTrialPage(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/trials/10")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<h1>Trial 10</h1>") || !strings.Contains(body, `data-id="100"`) {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestClick(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name     string
		path     string
		code     int
		location string
	}{
		{"experiment slice", "/click/cost/exp:1", http.StatusSeeOther, "/experiments/1"},
		{"trial point", "/click/accuracy/trial:10?experiment=1", http.StatusSeeOther, "/trials/10"},
		{"day applies filter", "/click/daily/day:2024-06-02", http.StatusSeeOther, "/?day=2024-06-02"},
		{"active day clears filter", "/click/daily/day:2024-06-02?day=2024-06-02", http.StatusSeeOther, "/"},
		{"element without entity", "/click/cost/trend", http.StatusNotFound, ""},
		{"accuracy without experiment", "/click/accuracy/trial:10", http.StatusNotFound, ""},
		{"unknown chart", "/click/pie/exp:1", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, tt.path)
			if rec.Code != tt.code {
				t.Fatalf("status = %d, want %d", rec.Code, tt.code)
			}
			if got := rec.Header().Get("Location"); got != tt.location {
				t.Errorf("Location = %q, want %q", got, tt.location)
			}
		})
	}
}

func TestChartExport(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/charts/cost.svg")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q", ct)
	}

	rec = do(t, s, http.MethodGet, "/charts/daily.png")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Body.String(), "\x89PNG") {
		t.Errorf("daily.png = %d", rec.Code)
	}

	tests := []struct {
		path string
		code int
	}{
		{"/charts/accuracy.png", http.StatusBadRequest},
		{"/charts/accuracy.png?experiment=99", http.StatusNotFound},
		{"/charts/cost.gif", http.StatusBadRequest},
		{"/charts/pie.png", http.StatusNotFound},
	}
	for _, tt := range tests {
		if rec := do(t, s, http.MethodGet, tt.path); rec.Code != tt.code {
			t.Errorf("%s = %d, want %d", tt.path, rec.Code, tt.code)
		}
	}
}
