// Package view mounts the dashboard charts over a DashboardAPI and routes
// their interactions through the bridge.
package view

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/emiliopalmerini/trialscope/internal/aggregate"
	"github.com/emiliopalmerini/trialscope/internal/bridge"
	"github.com/emiliopalmerini/trialscope/internal/chart"
	"github.com/emiliopalmerini/trialscope/internal/domain"
	"github.com/emiliopalmerini/trialscope/internal/ports"
)

// ChartName identifies one chart of the dashboard.
type ChartName string

const (
	ChartCost     ChartName = "cost"
	ChartDaily    ChartName = "daily"
	ChartAccuracy ChartName = "accuracy"
)

// ParseChartName validates a chart name.
func ParseChartName(s string) (ChartName, error) {
	switch n := ChartName(s); n {
	case ChartCost, ChartDaily, ChartAccuracy:
		return n, nil
	default:
		return "", fmt.Errorf("unknown chart %q", s)
	}
}

// LoadFailedMessage is shown when a fetch fails. Charts keep their last data.
const LoadFailedMessage = "Dashboard data could not be loaded. Showing the last loaded values."

var (
	// ErrStale is returned when a newer Mount or an Unmount superseded a fetch.
	ErrStale = errors.New("fetch superseded")
	// ErrNoEntity is returned when a clicked element has no entity behind it.
	ErrNoEntity = errors.New("element is not clickable")
	// ErrNoChart is returned for interactions with a chart that is not shown.
	ErrNoChart = errors.New("chart not shown")
)

// Options configure a Dashboard.
type Options struct {
	// Days is the daily cost window; zero selects aggregate.DefaultDailyWindow.
	Days int
	// ExperimentID adds the accuracy chart for that experiment when non-zero.
	ExperimentID int64
	TopN         int
	Window       int
	Width        int
	Height       int
	Chart        chart.Options
	// ActiveDay seeds the day filter, so clicking the same day clears it.
	ActiveDay string
	// Links makes chart elements link to /click/{chart}/{key}.
	Links bool
}

// Dashboard is one mounted instance of the charts. It is owned by a single
// page or request; Mount may run concurrently with Unmount.
type Dashboard struct {
	api    ports.DashboardAPI
	bridge *bridge.Bridge
	table  *TableState
	opts   Options

	mu      sync.Mutex
	gen     uint64
	mounted bool
	loaded  bool
	stats   domain.DashboardStats
	message string

	cost     *chart.DonutChart
	daily    *chart.TrendBarChart
	accuracy *chart.SeriesLineChart

	clickCtx context.Context
	clickErr error
	clickNav bool
}

// New builds the charts with no data. nav receives click navigations.
func New(api ports.DashboardAPI, nav bridge.Navigator, opts Options) *Dashboard {
	if opts.Days == 0 {
		opts.Days = aggregate.DefaultDailyWindow
	}
	d := &Dashboard{api: api, table: &TableState{}, opts: opts, clickCtx: context.Background()}
	d.bridge = bridge.New(nav, d.table, bridge.Options{})
	if opts.ActiveDay != "" {
		d.bridge.DayClicked(opts.ActiveDay)
	}

	d.cost = chart.NewDonutChart(chart.Props[domain.CostByExperiment, int64]{
		OnElementClick: func(id int64) {
			d.clickNav, d.clickErr = d.bridge.ExperimentClicked(d.clickCtx, id)
		},
		OnElementHover: func(id int64, active bool) {
			d.bridge.Hovered(strconv.FormatInt(id, 10), active)
		},
		Href:   clickHref(opts, ChartCost, func(id int64) string { return "exp:" + strconv.FormatInt(id, 10) }),
		Width:  opts.Width,
		Height: opts.Height,
	}, chart.DonutOptions{Options: opts.Chart, TopN: opts.TopN})

	d.daily = chart.NewTrendBarChart(chart.Props[domain.DailyCost, string]{
		OnElementClick: func(date string) {
			d.bridge.DayClicked(date)
		},
		OnElementHover: func(date string, active bool) {
			d.bridge.Hovered(date, active)
		},
		Href:   clickHref(opts, ChartDaily, func(date string) string { return "day:" + date }),
		Width:  opts.Width,
		Height: opts.Height,
	}, chart.TrendBarOptions{Options: opts.Chart, Window: opts.Window})

	if opts.ExperimentID != 0 {
		d.accuracy = chart.NewSeriesLineChart(chart.Props[domain.AccuracyPoint, int64]{
			OnElementClick: func(id int64) {
				d.clickNav, d.clickErr = d.bridge.TrialClicked(d.clickCtx, id)
			},
			OnElementHover: func(id int64, active bool) {
				d.bridge.Hovered(strconv.FormatInt(id, 10), active)
			},
			Href:   clickHref(opts, ChartAccuracy, func(id int64) string { return "trial:" + strconv.FormatInt(id, 10) }),
			Width:  opts.Width,
			Height: opts.Height,
		}, chart.SeriesLineOptions{Options: opts.Chart})
	}
	return d
}

// clickHref links elements to the click endpoint of their chart.
func clickHref[ID any](opts Options, name ChartName, key func(ID) string) func(ID) string {
	if !opts.Links {
		return nil
	}
	return func(id ID) string {
		href := "/click/" + string(name) + "/" + url.PathEscape(key(id))
		q := url.Values{}
		if opts.ActiveDay != "" {
			q.Set("day", opts.ActiveDay)
		}
		if opts.ExperimentID != 0 {
			q.Set("experiment", strconv.FormatInt(opts.ExperimentID, 10))
		}
		if len(q) > 0 {
			href += "?" + q.Encode()
		}
		return href
	}
}

// Mount fetches every payload concurrently and commits them together. If ctx
// is cancelled, or the dashboard is unmounted or remounted meanwhile, the
// results are discarded. On failure the charts keep their last data and
// Message reports the problem.
func (d *Dashboard) Mount(ctx context.Context) error {
	d.mu.Lock()
	d.gen++
	gen := d.gen
	d.mounted = true
	d.mu.Unlock()

	var (
		stats  domain.DashboardStats
		costs  []domain.CostByExperiment
		daily  []domain.DailyCost
		points []domain.AccuracyPoint
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = d.api.DashboardStats(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		costs, err = d.api.CostBreakdown(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		daily, err = d.api.DailyCosts(gctx, d.opts.Days)
		return err
	})
	if d.accuracy != nil {
		g.Go(func() error {
			var err error
			points, err = d.api.AccuracyCurve(gctx, d.opts.ExperimentID)
			return err
		})
	}
	err := g.Wait()

	d.mu.Lock()
	defer d.mu.Unlock()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if gen != d.gen || !d.mounted {
		return ErrStale
	}
	if err != nil {
		d.message = LoadFailedMessage
		log.WithError(err).Warn("dashboard fetch failed, keeping last known data")
		return fmt.Errorf("failed to fetch dashboard data: %w", err)
	}

	d.stats = stats
	d.cost.SetData(costs)
	d.daily.SetData(daily)
	if d.accuracy != nil {
		d.accuracy.SetData(points)
	}
	d.loaded = true
	d.message = ""
	return nil
}

// Unmount discards in-flight fetches and stops all transitions.
func (d *Dashboard) Unmount() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	d.mounted = false
	d.settle()
}

// Settle snaps every chart to the end of its transitions.
func (d *Dashboard) Settle() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.settle()
}

func (d *Dashboard) settle() {
	d.cost.Cancel()
	d.daily.Cancel()
	if d.accuracy != nil {
		d.accuracy.Cancel()
	}
}

// Stats returns the last committed headline numbers.
func (d *Dashboard) Stats() domain.DashboardStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Loaded reports whether any fetch has been committed.
func (d *Dashboard) Loaded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loaded
}

// Message returns the human-readable error of the last fetch, if any.
func (d *Dashboard) Message() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.message
}

func (d *Dashboard) Cost() *chart.DonutChart          { return d.cost }
func (d *Dashboard) Daily() *chart.TrendBarChart      { return d.daily }
func (d *Dashboard) Accuracy() *chart.SeriesLineChart { return d.accuracy }
func (d *Dashboard) Table() *TableState               { return d.table }
func (d *Dashboard) Selection() bridge.Selection      { return d.bridge.Selection() }

// interactive is the part of a chart the dashboard drives.
type interactive interface {
	Click(key string) bool
	PointerEnter(key string, x, y float64)
	PointerLeave(key string)
	Highlight(key string)
	ClearHighlight()
}

func (d *Dashboard) chart(name ChartName) (interactive, error) {
	switch name {
	case ChartCost:
		return d.cost, nil
	case ChartDaily:
		return d.daily, nil
	case ChartAccuracy:
		if d.accuracy != nil {
			return d.accuracy, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoChart, name)
}

// Click forwards a click on key to the named chart. It reports whether a
// navigation was performed; day clicks filter the table instead.
func (d *Dashboard) Click(ctx context.Context, name ChartName, key string) (bool, error) {
	c, err := d.chart(name)
	if err != nil {
		return false, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.clickCtx, d.clickErr, d.clickNav = ctx, nil, false
	defer func() { d.clickCtx = context.Background() }()

	if !c.Click(key) {
		return false, ErrNoEntity
	}
	return d.clickNav, d.clickErr
}

// Hover moves the pointer onto key: the chart shows its tooltip, dims the
// other elements and highlights the matching table row.
func (d *Dashboard) Hover(name ChartName, key string, x, y float64) error {
	c, err := d.chart(name)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	c.PointerEnter(key, x, y)
	c.Highlight(key)
	return nil
}

// Leave moves the pointer off key.
func (d *Dashboard) Leave(name ChartName, key string) error {
	c, err := d.chart(name)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	c.PointerLeave(key)
	c.ClearHighlight()
	return nil
}
