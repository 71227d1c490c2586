package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/emiliopalmerini/trialscope/internal/chart"
	"github.com/emiliopalmerini/trialscope/internal/config"
	"github.com/emiliopalmerini/trialscope/internal/dataset"
	"github.com/emiliopalmerini/trialscope/internal/domain"
	"github.com/emiliopalmerini/trialscope/internal/ports"
	"github.com/emiliopalmerini/trialscope/internal/recordset"
	"github.com/emiliopalmerini/trialscope/internal/view"
)

//go:embed static/*
var staticFiles embed.FS

// Reloader rebuilds the served records and reports their state.
type Reloader interface {
	Reload(ctx context.Context) (recordset.Stats, error)
	Status() dataset.Status
}

// ScopedStats computes headline rollups for a single experiment.
type ScopedStats interface {
	ExperimentStats(ctx context.Context, id int64) (domain.DashboardStats, error)
}

type Server struct {
	router   *http.ServeMux
	cfg      config.Server
	charts   config.Charts
	mode     chart.Mode
	api      ports.DashboardAPI
	scoped   ScopedStats
	explorer ports.RecordExplorer
	reloader Reloader
	metrics  ports.MetricsExporter
}

func NewServer(
	cfg config.Config,
	api ports.DashboardAPI,
	scoped ScopedStats,
	explorer ports.RecordExplorer,
	reloader Reloader,
	metrics ports.MetricsExporter,
) *Server {
	s := &Server{
		router:   http.NewServeMux(),
		cfg:      cfg.Server,
		charts:   cfg.Charts,
		mode:     cfg.ChartMode(),
		api:      api,
		scoped:   scoped,
		explorer: explorer,
		reloader: reloader,
		metrics:  metrics,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Static files
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(fmt.Sprintf("failed to create static filesystem: %v", err))
	}
	s.router.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// Health check
	s.router.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Pages
	s.router.HandleFunc("GET /{$}", s.handleDashboard)
	s.router.HandleFunc("GET /experiments/{id}", s.handleExperimentDetail)
	s.router.HandleFunc("GET /trials/{id}", s.handleTrialDetail)

	// Chart interactions and static exports
	s.router.HandleFunc("GET /click/{chart}/{key}", s.handleClick)
	s.router.HandleFunc("GET /charts/{file}", s.handleChartExport)

	// Dashboard API
	s.router.HandleFunc("GET /api/v1/dashboard/stats", s.handleAPIStats)
	s.router.HandleFunc("GET /api/v1/dashboard/cost-breakdown", s.handleAPICostBreakdown)
	s.router.HandleFunc("GET /api/v1/dashboard/daily-costs", s.handleAPIDailyCosts)
	s.router.HandleFunc("GET /api/v1/experiments", s.handleAPIExperiments)
	s.router.HandleFunc("GET /api/v1/experiments/{id}", s.handleAPIExperiment)
	s.router.HandleFunc("GET /api/v1/experiments/{id}/trials", s.handleAPIExperimentTrials)
	s.router.HandleFunc("GET /api/v1/experiments/{id}/accuracy-curve", s.handleAPIAccuracyCurve)
	s.router.HandleFunc("GET /api/v1/trials/{id}", s.handleAPITrial)
	s.router.HandleFunc("GET /api/v1/trials/{id}/runs", s.handleAPITrialRuns)
	s.router.HandleFunc("GET /api/v1/trials/{id}/stats", s.handleAPITrialStats)
	s.router.HandleFunc("GET /api/v1/metrics/performance", s.handleAPIPerformance)
	s.router.HandleFunc("GET /api/v1/metrics/anomalies", s.handleAPIAnomalies)
	s.router.HandleFunc("GET /api/v1/metrics/trends", s.handleAPITrends)
	s.router.HandleFunc("GET /api/v1/summary", s.handleAPISummary)

	// Operations
	s.router.HandleFunc("GET /api/v1/health", s.handleAPIHealth)
	s.router.HandleFunc("GET /api/v1/status", s.handleAPIStatus)
	s.router.HandleFunc("POST /api/v1/reload", s.handleAPIReload)
}

// Handler returns the router wrapped in the request middleware.
func (s *Server) Handler() http.Handler {
	return s.withRequestLog(s.router)
}

// dashboardOptions applies the chart settings to per-request dashboard options.
func (s *Server) dashboardOptions(opts view.Options) view.Options {
	opts.Days = s.charts.DailyWindow
	opts.TopN = s.charts.DonutTopN
	opts.Window = s.charts.TrendWindow
	opts.Width = s.charts.Width
	opts.Height = s.charts.Height
	opts.Chart = chart.Options{Mode: s.mode}
	return opts
}

func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	log.WithField("addr", s.cfg.Addr).Info("starting server")

	// Handle graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("server shutdown error")
		}
	}()

	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil // Graceful shutdown
	}
	return err
}
