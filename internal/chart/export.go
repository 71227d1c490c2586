package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/emiliopalmerini/trialscope/internal/domain"
)

// Format is a static export format.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("no data to render")

// ParseFormat validates an export format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatPNG, FormatSVG:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q (expected png or svg)", s)
	}
}

func (f Format) provider() gochart.RendererProvider {
	if f == FormatSVG {
		return gochart.SVG
	}
	return gochart.PNG
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// Export renders the rendered slices as a static pie image.
func (c *DonutChart) Export(w io.Writer, format Format) error {
	var values []gochart.Value
	for _, s := range c.slices {
		if s.Cost <= 0 {
			continue
		}
		values = append(values, gochart.Value{
			Label: fmt.Sprintf("%s %.1f%%", s.Name, s.Percentage),
			Value: s.Cost,
			Style: gochart.Style{FillColor: drawing.ColorFromHex(s.Color[1:])},
		})
	}
	if len(values) == 0 {
		return ErrNoData
	}
	pie := gochart.PieChart{
		Title:  "Cost by experiment",
		Width:  c.width,
		Height: c.height,
		Values: values,
	}
	if err := pie.Render(format.provider(), w); err != nil {
		return fmt.Errorf("failed to render cost breakdown: %w", err)
	}
	return nil
}

// Export renders daily cost and its moving average as a static image.
func (c *TrendBarChart) Export(w io.Writer, format Format) error {
	if len(c.props.Data) == 0 {
		return ErrNoData
	}
	days := make([]time.Time, 0, len(c.props.Data))
	costs := make([]float64, 0, len(c.props.Data))
	maxV := 0.0
	for i, d := range c.props.Data {
		day, err := time.Parse(domain.DateLayout, d.Date)
		if err != nil {
			return fmt.Errorf("failed to parse day %q: %w", d.Date, err)
		}
		days = append(days, day)
		costs = append(costs, d.TotalCost)
		maxV = math.Max(maxV, math.Max(d.TotalCost, c.averages[i]))
	}
	averages := c.Averages()
	// a single day has no x range
	if len(days) == 1 {
		days = append(days, days[0].AddDate(0, 0, 1))
		costs = append(costs, costs[0])
		averages = append(averages, averages[0])
	}

	ch := gochart.Chart{
		Title:      "Daily cost",
		Width:      c.width,
		Height:     c.height,
		Background: gochart.Style{Padding: gochart.Box{Top: 20, Left: 16, Right: 12, Bottom: 12}},
		YAxis: gochart.YAxis{
			Name:  "USD",
			Range: &gochart.ContinuousRange{Min: 0, Max: math.Max(maxV*1.1, 0.01)},
		},
		Series: []gochart.Series{
			gochart.TimeSeries{
				Name:    "Cost",
				XValues: days,
				YValues: costs,
				Style: gochart.Style{
					StrokeColor: drawing.ColorFromHex("4e79a7"),
					FillColor:   drawing.ColorFromHex("4e79a7").WithAlpha(64),
				},
			},
			gochart.TimeSeries{
				Name:    fmt.Sprintf("%d-day average", c.window),
				XValues: days,
				YValues: averages,
				Style: gochart.Style{
					StrokeColor: drawing.ColorFromHex("e15759"),
					StrokeWidth: 2,
				},
			},
		},
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}
	if err := ch.Render(format.provider(), w); err != nil {
		return fmt.Errorf("failed to render daily costs: %w", err)
	}
	return nil
}

// Export renders the accuracy curve as a static image.
func (c *SeriesLineChart) Export(w io.Writer, format Format) error {
	if len(c.points) == 0 {
		return ErrNoData
	}
	times := make([]time.Time, 0, len(c.points))
	values := make([]float64, 0, len(c.points))
	for _, p := range c.points {
		times = append(times, p.point.Timestamp)
		values = append(values, p.point.Accuracy)
	}
	if len(times) == 1 || times[0].Equal(times[len(times)-1]) {
		times = append(times, times[len(times)-1].Add(time.Hour))
		values = append(values, values[len(values)-1])
	}

	ch := gochart.Chart{
		Title:      "Accuracy",
		Width:      c.width,
		Height:     c.height,
		Background: gochart.Style{Padding: gochart.Box{Top: 20, Left: 16, Right: 12, Bottom: 12}},
		YAxis: gochart.YAxis{
			Name:  "accuracy",
			Range: &gochart.ContinuousRange{Min: 0, Max: 1},
		},
		Series: []gochart.Series{
			gochart.TimeSeries{
				Name:    "Accuracy",
				XValues: times,
				YValues: values,
				Style: gochart.Style{
					StrokeColor: drawing.ColorFromHex("4e79a7"),
					StrokeWidth: 2,
					DotWidth:    pointRadius,
					DotColor:    drawing.ColorFromHex("59a14f"),
				},
			},
		},
	}
	if err := ch.Render(format.provider(), w); err != nil {
		return fmt.Errorf("failed to render accuracy curve: %w", err)
	}
	return nil
}
