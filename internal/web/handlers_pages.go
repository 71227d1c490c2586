package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/emiliopalmerini/trialscope/internal/aggregate"
	"github.com/emiliopalmerini/trialscope/internal/bridge"
	"github.com/emiliopalmerini/trialscope/internal/domain"
	"github.com/emiliopalmerini/trialscope/internal/view"
	"github.com/emiliopalmerini/trialscope/internal/web/templates"
)

// routeNavigator remembers the route of the last navigation so the handler
// can redirect to it.
type routeNavigator struct {
	route bridge.Route
	set   bool
}

func (n *routeNavigator) Navigate(_ context.Context, route bridge.Route) error {
	n.route, n.set = route, true
	return nil
}

// activeDay returns the ?day= filter when it is a calendar date.
func activeDay(r *http.Request) string {
	day := r.URL.Query().Get("day")
	if _, err := time.Parse(domain.DateLayout, day); err != nil {
		return ""
	}
	return day
}

// chartForKey maps an element key to the chart that renders it.
func chartForKey(key string) (view.ChartName, bool) {
	prefix, _, ok := strings.Cut(key, ":")
	if !ok {
		return "", false
	}
	switch prefix {
	case "exp":
		return view.ChartCost, true
	case "day":
		return view.ChartDaily, true
	case "trial":
		return view.ChartAccuracy, true
	}
	return "", false
}

// mountDashboard fetches the charts, applies ?hover= and settles transitions
// so the frame written is the final one.
func (s *Server) mountDashboard(r *http.Request, opts view.Options) (*view.Dashboard, string) {
	d := view.New(s.api, &routeNavigator{}, s.dashboardOptions(opts))
	_ = d.Mount(r.Context())

	var tooltip string
	if key := r.URL.Query().Get("hover"); key != "" {
		if name, ok := chartForKey(key); ok && d.Hover(name, key, 0, 0) == nil {
			tooltip = hoverText(d, name)
		}
	}
	d.Settle()
	return d, tooltip
}

func hoverText(d *view.Dashboard, name view.ChartName) string {
	switch name {
	case view.ChartCost:
		if t, ok := d.Cost().Tooltip(); ok {
			return t.Text
		}
	case view.ChartDaily:
		if t, ok := d.Daily().Tooltip(); ok {
			return t.Text
		}
	case view.ChartAccuracy:
		if c := d.Accuracy(); c != nil {
			if t, ok := c.Tooltip(); ok {
				return t.Text
			}
		}
	}
	return ""
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	day := activeDay(r)

	var (
		summaries []domain.ExperimentSummary
		daily     []domain.DailyCost
		trends    domain.Trends
		anomalies []domain.Anomaly
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summaries, err = s.explorer.ExperimentSummaries(gctx, aggregate.ExperimentFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		daily, err = s.api.DailyCosts(gctx, s.charts.DailyWindow)
		return err
	})
	g.Go(func() error {
		var err error
		trends, err = s.explorer.Trends(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		anomalies, err = s.explorer.Anomalies(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		pageError(w, r, "Dashboard", err)
		return
	}

	d, tooltip := s.mountDashboard(r, view.Options{ActiveDay: day, Links: true})
	table := d.Table()

	page := templates.DashboardPage{
		Stats:      d.Stats(),
		Trends:     trends,
		Message:    d.Message(),
		CostChart:  templates.Chart(d.Cost().SVG, chartTooltip(tooltip, view.ChartCost, r)),
		DailyChart: templates.Chart(d.Daily().SVG, chartTooltip(tooltip, view.ChartDaily, r)),
		ActiveDay:  day,
		Anomalies:  len(anomalies),
	}
	for _, e := range summaries {
		page.Experiments = append(page.Experiments, templates.ExperimentRow{
			ExperimentSummary: e,
			Highlighted:       table.Highlighted() == strconv.FormatInt(e.ID, 10),
		})
	}
	for _, dc := range daily {
		if !table.Shows("date", dc.Date) {
			continue
		}
		page.Days = append(page.Days, templates.DayRow{
			DailyCost:   dc,
			Highlighted: table.Highlighted() == dc.Date,
		})
	}

	renderPage(w, r, templates.Dashboard(page))
}

// chartTooltip returns tooltip only for the chart the ?hover= key belongs to.
func chartTooltip(tooltip string, name view.ChartName, r *http.Request) string {
	if got, ok := chartForKey(r.URL.Query().Get("hover")); ok && got == name {
		return tooltip
	}
	return ""
}

func (s *Server) handleExperimentDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		renderErrorPage(w, r, http.StatusBadRequest, "Invalid experiment id", r.PathValue("id"))
		return
	}

	detail, err := s.explorer.ExperimentDetail(ctx, id)
	if err != nil {
		pageError(w, r, "Experiment", err)
		return
	}
	stats, err := s.scoped.ExperimentStats(ctx, id)
	if err != nil {
		pageError(w, r, "Experiment", err)
		return
	}
	trials, err := s.explorer.ExperimentTrials(ctx, id, r.URL.Query().Get("status"))
	if err != nil {
		pageError(w, r, "Experiment", err)
		return
	}

	d, tooltip := s.mountDashboard(r, view.Options{ExperimentID: id, Links: true})
	highlighted := d.Table().Highlighted()

	page := templates.ExperimentPage{
		Detail:        detail,
		Stats:         stats,
		Message:       d.Message(),
		AccuracyChart: templates.Chart(d.Accuracy().SVG, chartTooltip(tooltip, view.ChartAccuracy, r)),
	}
	for _, t := range trials {
		page.Trials = append(page.Trials, templates.TrialRow{
			TrialSummary: t,
			Highlighted:  highlighted == strconv.FormatInt(t.ID, 10),
		})
	}

	renderPage(w, r, templates.ExperimentDetail(page))
}

func (s *Server) handleTrialDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		renderErrorPage(w, r, http.StatusBadRequest, "Invalid trial id", r.PathValue("id"))
		return
	}

	detail, err := s.explorer.TrialDetail(ctx, id)
	if err != nil {
		pageError(w, r, "Trial", err)
		return
	}
	runs, err := s.explorer.TrialRuns(ctx, id)
	if err != nil {
		pageError(w, r, "Trial", err)
		return
	}

	renderPage(w, r, templates.TrialDetail(templates.TrialPage{Detail: detail, Runs: runs}))
}

// handleClick replays a click on a chart element through the bridge and
// redirects to wherever it navigated. Day clicks toggle the ?day= filter.
func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name, err := view.ParseChartName(r.PathValue("chart"))
	if err != nil {
		renderErrorPage(w, r, http.StatusNotFound, "Unknown chart", err.Error())
		return
	}
	key := r.PathValue("key")

	opts := view.Options{ActiveDay: activeDay(r)}
	if exp := r.URL.Query().Get("experiment"); exp != "" {
		id, err := strconv.ParseInt(exp, 10, 64)
		if err != nil {
			renderErrorPage(w, r, http.StatusBadRequest, "Invalid experiment id", exp)
			return
		}
		opts.ExperimentID = id
	}

	nav := &routeNavigator{}
	d := view.New(s.api, nav, s.dashboardOptions(opts))
	defer d.Unmount()
	if err := d.Mount(ctx); err != nil {
		renderErrorPage(w, r, http.StatusServiceUnavailable, "Dashboard unavailable", view.LoadFailedMessage)
		return
	}

	navigated, err := d.Click(ctx, name, key)
	switch {
	case errors.Is(err, view.ErrNoEntity), errors.Is(err, view.ErrNoChart):
		renderErrorPage(w, r, http.StatusNotFound, "Nothing to open", err.Error())
		return
	case err != nil:
		pageError(w, r, "Chart", err)
		return
	}

	target := "/"
	switch {
	case name == view.ChartDaily:
		if f := d.Selection().Filter; !f.IsZero() {
			target = "/?day=" + f.Value
		}
	case navigated && nav.set:
		target = nav.route.Path()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
