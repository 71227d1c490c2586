package chart

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/emiliopalmerini/trialscope/internal/domain"
	"github.com/emiliopalmerini/trialscope/internal/scene"
	"github.com/emiliopalmerini/trialscope/internal/util"
)

// DonutRatio is the inner radius as a fraction of the outer radius.
const DonutRatio = 0.6

// OtherKey is the element key of the slice that collects the tail.
const OtherKey = "other"

const donutMargin = 8

// Slice is one rendered donut segment.
type Slice struct {
	Key          string
	ExperimentID int64
	Name         string
	Cost         float64
	RunCount     int
	// Percentage is the share of the currently rendered total.
	Percentage float64
	Other      bool
	StartAngle float64
	EndAngle   float64
	Color      string
}

// DonutOptions configure a DonutChart.
type DonutOptions struct {
	Options
	// TopN collapses all but the TopN most expensive experiments into an
	// "Other" slice. Zero shows every experiment.
	TopN int
}

// DonutChart renders cost per experiment as a ring.
type DonutChart struct {
	base[int64]
	props  Props[domain.CostByExperiment, int64]
	topN   int
	slices []Slice
	arcs   *scene.Binder[Slice]
}

// NewDonutChart builds and renders a donut chart.
func NewDonutChart(props Props[domain.CostByExperiment, int64], opts DonutOptions) *DonutChart {
	c := &DonutChart{
		base:  newBase("donut-chart", props, opts.Options),
		props: props,
		topN:  opts.TopN,
	}
	c.arcs = scene.NewBinder(scene.KindArc, func(s Slice) string { return s.Key }, scene.Hooks[Slice]{
		Enter: func(el *scene.Element, s Slice, _ int) {
			c.place(el, s, true)
		},
		Update: func(el *scene.Element, s Slice, _ int) {
			c.place(el, s, false)
		},
	}, opts.sceneOptions())
	c.layers = []layer{c.arcs}
	c.render()
	return c
}

// SetData rebinds the chart to a new cost breakdown.
func (c *DonutChart) SetData(data []domain.CostByExperiment) {
	c.props.Data = data
	c.render()
}

// Resize re-lays out the chart when the measured size changed.
func (c *DonutChart) Resize(width, height int) {
	if c.resize(width, height) {
		c.render()
	}
}

// Slices returns the rendered slices in drawing order.
func (c *DonutChart) Slices() []Slice {
	return slices.Clone(c.slices)
}

func (c *DonutChart) render() {
	c.slices = layoutSlices(c.props.Data, c.topN)
	c.resetIndex()
	for _, s := range c.slices {
		c.texts[s.Key] = sliceTitle(s)
		if !s.Other {
			c.ids[s.Key] = s.ExperimentID
		}
	}
	c.arcs.Bind(c.slices)
	c.afterBind()
}

func (c *DonutChart) place(el *scene.Element, s Slice, entering bool) {
	cx, cy := float64(c.width)/2, float64(c.height)/2
	outer := math.Max(0, math.Min(cx, cy)-donutMargin)

	if entering {
		el.Set("cx", cx)
		el.Set("cy", cy)
		el.Set("innerRadius", outer*DonutRatio)
		el.Set("outerRadius", outer)
		el.Set("startAngle", s.StartAngle)
		el.Set("endAngle", s.StartAngle)
		el.Set("opacity", 0)
	}
	el.To("cx", cx)
	el.To("cy", cy)
	el.To("innerRadius", outer*DonutRatio)
	el.To("outerRadius", outer)
	el.To("startAngle", s.StartAngle)
	el.To("endAngle", s.EndAngle)
	el.To("opacity", 1)

	el.Fill = s.Color
	el.Title = sliceTitle(s)
	el.Href = ""
	if !s.Other && c.props.Href != nil {
		el.Href = c.props.Href(s.ExperimentID)
	}
}

// layoutSlices orders slices by cost descending, collapses the tail beyond
// topN, and derives percentages and angles from the rendered set.
func layoutSlices(data []domain.CostByExperiment, topN int) []Slice {
	rows := slices.Clone(data)
	slices.SortStableFunc(rows, func(a, b domain.CostByExperiment) int {
		if c := cmp.Compare(b.TotalCost, a.TotalCost); c != 0 {
			return c
		}
		return cmp.Compare(a.ExperimentID, b.ExperimentID)
	})

	var out []Slice
	for i, r := range rows {
		if topN > 0 && i >= topN {
			break
		}
		out = append(out, Slice{
			Key:          "exp:" + strconv.FormatInt(r.ExperimentID, 10),
			ExperimentID: r.ExperimentID,
			Name:         r.ExperimentName,
			Cost:         math.Max(0, r.TotalCost),
			RunCount:     r.RunCount,
			Color:        colorAt(i),
		})
	}
	if topN > 0 && len(rows) > topN {
		other := Slice{Key: OtherKey, Name: "Other", Other: true, Color: otherColor}
		for _, r := range rows[topN:] {
			other.Cost += math.Max(0, r.TotalCost)
			other.RunCount += r.RunCount
		}
		out = append(out, other)
	}

	var total float64
	for _, s := range out {
		total += s.Cost
	}
	angle := 0.0
	for i := range out {
		if total > 0 {
			out[i].Percentage = out[i].Cost / total * 100
		}
		out[i].StartAngle = angle
		angle += out[i].Percentage / 100 * 2 * math.Pi
		out[i].EndAngle = angle
	}
	return out
}

func sliceTitle(s Slice) string {
	return fmt.Sprintf("%s: %s (%s), %d runs", s.Name, util.FormatCost(s.Cost), util.FormatPercent(s.Percentage), s.RunCount)
}
