package chart

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/emiliopalmerini/trialscope/internal/domain"
	"github.com/emiliopalmerini/trialscope/internal/scene"
	"github.com/emiliopalmerini/trialscope/internal/util"
)

// CurveKey is the element key of the line connecting the points.
const CurveKey = "curve"

const pointRadius = 4

var statusColors = map[domain.TrialStatus]string{
	domain.TrialFinished: "#59a14f",
	domain.TrialFailed:   "#e15759",
	domain.TrialRunning:  "#f28e2b",
	domain.TrialPending:  "#bab0ac",
	domain.TrialInvalid:  "#9c755f",
}

// SeriesLineOptions configure a SeriesLineChart.
type SeriesLineOptions struct {
	Options
}

type seriesPoint struct {
	key   string
	point domain.AccuracyPoint
	x, y  float64
}

// SeriesLineChart renders trial accuracy over time. Hovering a point shows
// its readout; clicking it navigates. The two never trigger each other.
type SeriesLineChart struct {
	base[int64]
	props  Props[domain.AccuracyPoint, int64]
	points []seriesPoint

	line *scene.Binder[[]scene.Point]
	dots *scene.Binder[seriesPoint]
}

// NewSeriesLineChart builds and renders a series line chart.
func NewSeriesLineChart(props Props[domain.AccuracyPoint, int64], opts SeriesLineOptions) *SeriesLineChart {
	c := &SeriesLineChart{
		base:  newBase("series-line-chart", props, opts.Options),
		props: props,
	}
	sceneOpts := opts.sceneOptions()

	c.line = scene.NewBinder(scene.KindPath, func([]scene.Point) string { return CurveKey }, scene.Hooks[[]scene.Point]{
		Enter: func(el *scene.Element, pts []scene.Point, _ int) {
			el.SetPoints(pts)
			el.Set("opacity", 0)
			el.To("opacity", 1)
			el.Stroke = "#4e79a7"
			el.Class = "accuracy-line"
		},
		Update: func(el *scene.Element, pts []scene.Point, _ int) {
			el.PointsTo(pts)
			el.To("opacity", 1)
		},
	}, sceneOpts)

	c.dots = scene.NewBinder(scene.KindPoint, func(p seriesPoint) string { return p.key }, scene.Hooks[seriesPoint]{
		Enter: func(el *scene.Element, p seriesPoint, _ int) {
			el.Set("cx", p.x)
			el.Set("cy", p.y)
			el.Set("r", 0)
			el.To("r", pointRadius)
			el.Set("opacity", 1)
			c.decoratePoint(el, p)
		},
		Update: func(el *scene.Element, p seriesPoint, _ int) {
			el.To("cx", p.x)
			el.To("cy", p.y)
			el.To("r", pointRadius)
			el.To("opacity", 1)
			c.decoratePoint(el, p)
		},
	}, sceneOpts)

	c.layers = []layer{c.line, c.dots}
	c.render()
	return c
}

// SetData rebinds the chart to a new accuracy curve.
func (c *SeriesLineChart) SetData(data []domain.AccuracyPoint) {
	c.props.Data = data
	c.render()
}

// Resize re-lays out the chart when the measured size changed.
func (c *SeriesLineChart) Resize(width, height int) {
	if c.resize(width, height) {
		c.render()
	}
}

// Order returns the trial ids in rendered order.
func (c *SeriesLineChart) Order() []int64 {
	ids := make([]int64, len(c.points))
	for i, p := range c.points {
		ids[i] = p.point.TrialID
	}
	return ids
}

func (c *SeriesLineChart) decoratePoint(el *scene.Element, p seriesPoint) {
	el.Fill = statusColors[p.point.Status]
	el.Title = pointTitle(p.point)
	el.Href = ""
	if c.props.Href != nil {
		el.Href = c.props.Href(p.point.TrialID)
	}
}

func (c *SeriesLineChart) render() {
	data := slices.Clone(c.props.Data)
	slices.SortStableFunc(data, func(a, b domain.AccuracyPoint) int {
		if d := a.Timestamp.Compare(b.Timestamp); d != 0 {
			return d
		}
		return cmp.Compare(a.TrialID, b.TrialID)
	})

	c.points = c.points[:0]
	c.resetIndex()

	if len(data) > 0 {
		times := make([]time.Time, len(data))
		lo, hi := data[0].Accuracy, data[0].Accuracy
		for i, p := range data {
			times[i] = p.Timestamp
			lo, hi = math.Min(lo, p.Accuracy), math.Max(hi, p.Accuracy)
		}
		if lo == hi {
			lo, hi = math.Max(0, lo-0.05), math.Min(1, hi+0.05)
		}
		t0, t1 := scene.Extent(times)
		xs := scene.NewTime(t0, t1, marginLeft, float64(c.width-marginRight))
		ys := scene.NewLinear(lo, hi, float64(c.height-marginBottom), marginTop)

		for _, p := range data {
			sp := seriesPoint{
				key:   "trial:" + strconv.FormatInt(p.TrialID, 10),
				point: p,
				x:     xs.Scale(p.Timestamp),
				y:     ys.Scale(p.Accuracy),
			}
			if _, dup := c.ids[sp.key]; dup {
				continue
			}
			c.points = append(c.points, sp)
			c.ids[sp.key] = p.TrialID
			c.texts[sp.key] = pointTitle(p)
		}
	}

	var lines [][]scene.Point
	if len(c.points) > 1 {
		pts := make([]scene.Point, len(c.points))
		for i, p := range c.points {
			pts[i] = scene.Point{X: p.x, Y: p.y}
		}
		lines = append(lines, pts)
	}

	c.line.Bind(lines)
	c.dots.Bind(c.points)
	c.afterBind()
}

func pointTitle(p domain.AccuracyPoint) string {
	ts := p.Timestamp
	return fmt.Sprintf("Trial %d: %s (%s), %s", p.TrialID, util.FormatPercent(p.Accuracy*100), p.Status, util.FormatDate(&ts))
}
