package web

import (
	"net/http"
	"strconv"

	"github.com/emiliopalmerini/trialscope/internal/aggregate"
	"github.com/emiliopalmerini/trialscope/internal/domain"
)

// MaxDailyWindow bounds the days parameter of the daily cost series.
const MaxDailyWindow = 365

func (s *Server) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.api.DashboardStats(r.Context())
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAPICostBreakdown(w http.ResponseWriter, r *http.Request) {
	costs, err := s.api.CostBreakdown(r.Context())
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, costs)
}

func (s *Server) handleAPIDailyCosts(w http.ResponseWriter, r *http.Request) {
	days := aggregate.DefaultDailyWindow
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxDailyWindow {
			writeError(w, http.StatusBadRequest, "invalid_parameter", "days must be an integer between 1 and 365")
			return
		}
		days = n
	}

	daily, err := s.api.DailyCosts(r.Context(), days)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, daily)
}

func (s *Server) handleAPIExperiments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := aggregate.ExperimentFilter{Name: q.Get("name"), ProjectID: q.Get("project_id")}
	experiments, err := s.explorer.ExperimentSummaries(r.Context(), filter)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, experiments)
}

// withID parses {id} and answers 400 when it is not an integer.
func withID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "id must be an integer")
		return 0, false
	}
	return id, true
}

func (s *Server) handleAPIExperiment(w http.ResponseWriter, r *http.Request) {
	id, ok := withID(w, r)
	if !ok {
		return
	}
	detail, err := s.explorer.ExperimentDetail(r.Context(), id)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleAPIExperimentTrials(w http.ResponseWriter, r *http.Request) {
	id, ok := withID(w, r)
	if !ok {
		return
	}
	trials, err := s.explorer.ExperimentTrials(r.Context(), id, r.URL.Query().Get("status"))
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trials)
}

func (s *Server) handleAPIAccuracyCurve(w http.ResponseWriter, r *http.Request) {
	id, ok := withID(w, r)
	if !ok {
		return
	}
	points, err := s.api.AccuracyCurve(r.Context(), id)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleAPITrial(w http.ResponseWriter, r *http.Request) {
	id, ok := withID(w, r)
	if !ok {
		return
	}
	detail, err := s.explorer.TrialDetail(r.Context(), id)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

type trialRunsResponse struct {
	Runs  []domain.RunView  `json:"runs"`
	Stats domain.TrialStats `json:"stats"`
}

func (s *Server) handleAPITrialRuns(w http.ResponseWriter, r *http.Request) {
	id, ok := withID(w, r)
	if !ok {
		return
	}
	runs, err := s.explorer.TrialRuns(r.Context(), id)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	stats, err := s.explorer.TrialStats(r.Context(), id)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trialRunsResponse{Runs: runs, Stats: stats})
}

func (s *Server) handleAPITrialStats(w http.ResponseWriter, r *http.Request) {
	id, ok := withID(w, r)
	if !ok {
		return
	}
	stats, err := s.explorer.TrialStats(r.Context(), id)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAPIPerformance(w http.ResponseWriter, r *http.Request) {
	perf, err := s.explorer.Performance(r.Context())
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, perf)
}

func (s *Server) handleAPIAnomalies(w http.ResponseWriter, r *http.Request) {
	anomalies, err := s.explorer.Anomalies(r.Context())
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, anomalies)
}

func (s *Server) handleAPITrends(w http.ResponseWriter, r *http.Request) {
	trends, err := s.explorer.Trends(r.Context())
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trends)
}

func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.explorer.Summary(r.Context())
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleAPIHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"loaded": s.reloader.Status().Loaded,
	})
}

func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.reloader.Status())
}

func (s *Server) handleAPIReload(w http.ResponseWriter, r *http.Request) {
	stats, err := s.reloader.Reload(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "reload_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "reloaded", "stats": stats})
}
