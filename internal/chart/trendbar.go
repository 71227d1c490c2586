package chart

import (
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/emiliopalmerini/trialscope/internal/aggregate"
	"github.com/emiliopalmerini/trialscope/internal/domain"
	"github.com/emiliopalmerini/trialscope/internal/scene"
	"github.com/emiliopalmerini/trialscope/internal/util"
)

// DefaultTrendWindow is the default moving-average window in days.
const DefaultTrendWindow = 7

// TrendKey is the element key of the moving-average line.
const TrendKey = "trend"

// plot margins shared by the cartesian charts
const (
	marginTop    = 16
	marginRight  = 16
	marginBottom = 28
	marginLeft   = 52
	yTickCount   = 4
)

// TrendBarOptions configure a TrendBarChart.
type TrendBarOptions struct {
	Options
	// Window is the moving-average window; zero selects DefaultTrendWindow.
	Window int
}

type dayBar struct {
	key     string
	day     domain.DailyCost
	average float64
}

type axisTick struct {
	key   string
	label string
	y     float64
}

// TrendBarChart renders the dense daily cost series as bars with a
// moving-average line over them.
type TrendBarChart struct {
	base[string]
	props    Props[domain.DailyCost, string]
	window   int
	averages []float64
	lay      trendLayout

	ticks *scene.Binder[axisTick]
	bars  *scene.Binder[dayBar]
	trend *scene.Binder[[]scene.Point]
}

// NewTrendBarChart builds and renders a trend bar chart.
func NewTrendBarChart(props Props[domain.DailyCost, string], opts TrendBarOptions) *TrendBarChart {
	window := opts.Window
	if window <= 0 {
		window = DefaultTrendWindow
	}
	c := &TrendBarChart{
		base:   newBase("trend-bar-chart", props, opts.Options),
		props:  props,
		window: window,
	}
	sceneOpts := opts.sceneOptions()

	c.ticks = scene.NewBinder(scene.KindText, func(t axisTick) string { return t.key }, scene.Hooks[axisTick]{
		Enter: func(el *scene.Element, t axisTick, _ int) {
			el.Set("x", marginLeft-6)
			el.Set("y", t.y)
			el.Set("opacity", 0)
			el.To("opacity", 1)
			el.Text = t.label
			el.Class = "axis-tick"
		},
		Update: func(el *scene.Element, t axisTick, _ int) {
			el.To("x", marginLeft-6)
			el.To("y", t.y)
			el.To("opacity", 1)
			el.Text = t.label
		},
	}, sceneOpts)

	c.bars = scene.NewBinder(scene.KindBar, func(b dayBar) string { return b.key }, scene.Hooks[dayBar]{
		Enter: func(el *scene.Element, b dayBar, i int) {
			x, w, y, h := c.barGeometry(b)
			el.Set("x", x)
			el.Set("width", w)
			el.Set("y", y+h)
			el.Set("height", 0)
			el.To("y", y)
			el.To("height", h)
			el.Set("opacity", 1)
			c.decorateBar(el, b)
		},
		Update: func(el *scene.Element, b dayBar, i int) {
			x, w, y, h := c.barGeometry(b)
			el.To("x", x)
			el.To("width", w)
			el.To("y", y)
			el.To("height", h)
			el.To("opacity", 1)
			c.decorateBar(el, b)
		},
	}, sceneOpts)

	c.trend = scene.NewBinder(scene.KindPath, func([]scene.Point) string { return TrendKey }, scene.Hooks[[]scene.Point]{
		Enter: func(el *scene.Element, pts []scene.Point, _ int) {
			el.SetPoints(pts)
			el.Set("opacity", 0)
			el.To("opacity", 1)
			el.Stroke = "#e15759"
			el.Class = "trend-line"
			el.Title = fmt.Sprintf("%d-day moving average", c.window)
		},
		Update: func(el *scene.Element, pts []scene.Point, _ int) {
			el.PointsTo(pts)
			el.To("opacity", 1)
		},
	}, sceneOpts)

	c.layers = []layer{c.ticks, c.bars, c.trend}
	c.render()
	return c
}

// SetData rebinds the chart to a new daily series.
func (c *TrendBarChart) SetData(data []domain.DailyCost) {
	c.props.Data = data
	c.render()
}

// Resize re-lays out the chart when the measured size changed.
func (c *TrendBarChart) Resize(width, height int) {
	if c.resize(width, height) {
		c.render()
	}
}

// Window returns the moving-average window.
func (c *TrendBarChart) Window() int {
	return c.window
}

// Averages returns the moving average aligned with the bound days.
func (c *TrendBarChart) Averages() []float64 {
	return slices.Clone(c.averages)
}

// trendLayout holds the scales of one render.
type trendLayout struct {
	band scene.Band
	y    scene.Linear
}

func (c *TrendBarChart) layout() trendLayout {
	keys := make([]string, len(c.props.Data))
	maxV := 0.0
	for i, d := range c.props.Data {
		keys[i] = d.Date
		maxV = math.Max(maxV, d.TotalCost)
	}
	for _, v := range c.averages {
		maxV = math.Max(maxV, v)
	}
	plotBottom := float64(c.height - marginBottom)
	return trendLayout{
		band: scene.NewBand(keys, marginLeft, float64(c.width-marginRight), 0.2, 0.1),
		y:    scene.NewLinear(0, maxV, plotBottom, marginTop).Nice(yTickCount),
	}
}

func (c *TrendBarChart) barGeometry(b dayBar) (x, w, y, h float64) {
	l := c.lay
	x, _ = l.band.Position(b.day.Date)
	w = l.band.Bandwidth()
	base := l.y.Scale(0)
	y = l.y.Scale(b.day.TotalCost)
	return x, w, y, base - y
}

func (c *TrendBarChart) decorateBar(el *scene.Element, b dayBar) {
	el.Fill = "#4e79a7"
	el.Title = barTitle(b, c.window)
	el.Href = ""
	if c.props.Href != nil {
		el.Href = c.props.Href(b.day.Date)
	}
}

func (c *TrendBarChart) render() {
	costs := make([]float64, len(c.props.Data))
	for i, d := range c.props.Data {
		costs[i] = d.TotalCost
	}
	c.averages = aggregate.MovingAverage(costs, c.window)

	c.lay = c.layout()
	l := c.lay
	c.resetIndex()

	bars := make([]dayBar, len(c.props.Data))
	for i, d := range c.props.Data {
		bars[i] = dayBar{key: "day:" + d.Date, day: d, average: c.averages[i]}
		c.texts[bars[i].key] = barTitle(bars[i], c.window)
		c.ids[bars[i].key] = d.Date
	}

	var lines [][]scene.Point
	if len(bars) > 0 {
		pts := make([]scene.Point, len(bars))
		half := l.band.Bandwidth() / 2
		for i, d := range c.props.Data {
			x, _ := l.band.Position(d.Date)
			pts[i] = scene.Point{X: x + half, Y: l.y.Scale(c.averages[i])}
		}
		lines = append(lines, pts)
		c.texts[TrendKey] = fmt.Sprintf("%d-day moving average", c.window)
	}

	var ticks []axisTick
	if len(bars) > 0 {
		for _, v := range l.y.Ticks(yTickCount) {
			label := util.FormatCost(v)
			ticks = append(ticks, axisTick{key: "tick:" + strconv.FormatFloat(v, 'f', -1, 64), label: label, y: l.y.Scale(v)})
		}
	}

	c.ticks.Bind(ticks)
	c.bars.Bind(bars)
	c.trend.Bind(lines)
	c.afterBind()
}

func barTitle(b dayBar, window int) string {
	return fmt.Sprintf("%s: %s, %d runs, %d experiments, %d-day avg %s",
		b.day.Date, util.FormatCost(b.day.TotalCost), b.day.RunCount, b.day.ExperimentCount,
		window, util.FormatCost(b.average))
}
