package chart

import (
	"bytes"
	"fmt"
	"math"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/emiliopalmerini/trialscope/internal/domain"
	"github.com/emiliopalmerini/trialscope/internal/scene"
)

func testOptions() Options {
	return Options{Mode: ModeDevelopment, Clock: scene.NewManualClock(time.Unix(0, 0))}
}

func costs() []domain.CostByExperiment {
	return []domain.CostByExperiment{
		{ExperimentID: 3, ExperimentName: "small", TotalCost: 10, Percentage: 10, RunCount: 1},
		{ExperimentID: 7, ExperimentName: "big", TotalCost: 60, Percentage: 60, RunCount: 6},
		{ExperimentID: 5, ExperimentName: "mid", TotalCost: 30, Percentage: 30, RunCount: 3},
	}
}

func TestResolveSize(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"defaults", 0, 0, DefaultWidth, DefaultHeight},
		{"explicit", 800, 400, 800, 400},
		{"below minimum", 10, 10, MinWidth, MinHeight},
		{"negative clamps", -5, 300, MinWidth, 300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := ResolveSize(ModeProduction, tt.w, tt.h)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("ResolveSize(%d, %d) = %d, %d; want %d, %d", tt.w, tt.h, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestResolveSize_DevelopmentPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for negative width in development mode")
		}
	}()
	ResolveSize(ModeDevelopment, -1, 100)
}

func TestDonut_SlicesDescending(t *testing.T) {
	c := NewDonutChart(Props[domain.CostByExperiment, int64]{Data: costs()}, DonutOptions{Options: testOptions()})

	got := c.Slices()
	var ids []int64
	for _, s := range got {
		ids = append(ids, s.ExperimentID)
	}
	if !slices.Equal(ids, []int64{7, 5, 3}) {
		t.Errorf("slice order = %v, want [7 5 3]", ids)
	}
	if got[len(got)-1].EndAngle < 2*math.Pi-1e-9 {
		t.Errorf("slices should close the ring, last end = %f", got[len(got)-1].EndAngle)
	}
}

func TestDonut_TopNRecomputesPercentage(t *testing.T) {
	c := NewDonutChart(Props[domain.CostByExperiment, int64]{Data: costs()}, DonutOptions{Options: testOptions(), TopN: 1})

	got := c.Slices()
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (top slice + other)", len(got))
	}
	if !got[1].Other || got[1].Key != OtherKey || got[1].Cost != 40 {
		t.Errorf("other slice = %+v", got[1])
	}
	if got[0].Percentage != 60 || got[1].Percentage != 40 {
		t.Errorf("percentages = %f, %f; want 60, 40", got[0].Percentage, got[1].Percentage)
	}

	c.SetData(costs()[1:2])
	only := c.Slices()
	if len(only) != 1 || only[0].Percentage != 100 {
		t.Errorf("single rendered slice should be 100%%, got %+v", only)
	}
}

func TestDonut_ZeroTotal(t *testing.T) {
	data := []domain.CostByExperiment{{ExperimentID: 1, ExperimentName: "a"}, {ExperimentID: 2, ExperimentName: "b"}}
	c := NewDonutChart(Props[domain.CostByExperiment, int64]{Data: data}, DonutOptions{Options: testOptions()})
	for _, s := range c.Slices() {
		if s.Percentage != 0 || math.IsNaN(s.EndAngle) {
			t.Errorf("slice = %+v, want 0%% and finite angles", s)
		}
	}
	if err := c.Export(&bytes.Buffer{}, FormatPNG); err != ErrNoData {
		t.Errorf("Export err = %v, want ErrNoData", err)
	}
}

func TestDonut_ClickInvokesCallbackOnce(t *testing.T) {
	var clicks []int64
	c := NewDonutChart(Props[domain.CostByExperiment, int64]{
		Data:           costs(),
		OnElementClick: func(id int64) { clicks = append(clicks, id) },
	}, DonutOptions{Options: testOptions(), TopN: 2})

	if !c.Click("exp:7") {
		t.Error("Click on a slice should be handled")
	}
	if !slices.Equal(clicks, []int64{7}) {
		t.Errorf("clicks = %v, want [7]", clicks)
	}

	if c.Click(OtherKey) {
		t.Error("the other slice has no entity and should not be clickable")
	}
	if c.Click("exp:404") {
		t.Error("unknown key should not be clickable")
	}
	if len(clicks) != 1 {
		t.Errorf("clicks = %v, want exactly one", clicks)
	}
}

func TestDonut_HoverLifecycle(t *testing.T) {
	type event struct {
		id     int64
		active bool
	}
	var events []event
	c := NewDonutChart(Props[domain.CostByExperiment, int64]{
		Data:           costs(),
		OnElementHover: func(id int64, active bool) { events = append(events, event{id, active}) },
	}, DonutOptions{Options: testOptions()})

	c.PointerEnter("exp:5", 100, 50)
	tip, ok := c.Tooltip()
	if !ok {
		t.Fatal("expected a tooltip")
	}
	if tip.X != 100+TooltipOffset || tip.Y != 50+TooltipOffset {
		t.Errorf("tooltip anchor = (%f, %f)", tip.X, tip.Y)
	}
	if !strings.Contains(tip.Text, "mid") || !strings.Contains(tip.Text, "30.0%") {
		t.Errorf("tooltip text = %q", tip.Text)
	}

	c.PointerEnter("exp:7", 10, 10)
	c.PointerLeave("exp:5")
	if tip, _ := c.Tooltip(); tip.Key != "exp:7" {
		t.Errorf("stale leave cleared the active tooltip: %+v", tip)
	}
	c.PointerLeave("exp:7")
	if _, ok := c.Tooltip(); ok {
		t.Error("tooltip should clear on leave")
	}

	want := []event{{5, true}, {5, false}, {7, true}, {7, false}}
	if !slices.Equal(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestDonut_RebindClearsRemovedHover(t *testing.T) {
	left := false
	c := NewDonutChart(Props[domain.CostByExperiment, int64]{
		Data: costs(),
		OnElementHover: func(id int64, active bool) {
			if id == 3 && !active {
				left = true
			}
		},
	}, DonutOptions{Options: testOptions()})

	c.PointerEnter("exp:3", 0, 0)
	c.SetData(costs()[1:])
	if _, ok := c.Tooltip(); ok {
		t.Error("tooltip for a removed slice should clear")
	}
	if !left {
		t.Error("hover callback should report the removed element as inactive")
	}
}

func TestDonut_HighlightDimsOthers(t *testing.T) {
	c := NewDonutChart(Props[domain.CostByExperiment, int64]{Data: costs()}, DonutOptions{Options: testOptions()})
	c.Cancel()

	c.Highlight("exp:5")
	for _, el := range c.Elements() {
		want := scene.DimOpacity
		if el.Key == "exp:5" {
			want = 1
		}
		if math.Abs(el.Opacity()-want) > 1e-9 {
			t.Errorf("%s opacity = %f, want %f", el.Key, el.Opacity(), want)
		}
	}
	if c.Animating() {
		t.Error("highlight should not start transitions")
	}

	c.ClearHighlight()
	for _, el := range c.Elements() {
		if el.Opacity() != 1 {
			t.Errorf("%s opacity = %f after clear", el.Key, el.Opacity())
		}
	}
}

func TestDonut_IdenticalRebindIsNoop(t *testing.T) {
	c := NewDonutChart(Props[domain.CostByExperiment, int64]{Data: costs()}, DonutOptions{Options: testOptions()})
	c.Cancel()
	before := len(c.Elements())

	c.SetData(costs())
	if c.Animating() {
		t.Error("identical data should not animate")
	}
	if len(c.Elements()) != before {
		t.Errorf("elements = %d, want %d", len(c.Elements()), before)
	}
}

func TestDonut_SVGAndHref(t *testing.T) {
	c := NewDonutChart(Props[domain.CostByExperiment, int64]{
		Data: costs(),
		Href: func(id int64) string { return fmt.Sprintf("/experiments/%d", id) },
	}, DonutOptions{Options: testOptions()})
	c.Cancel()

	var buf bytes.Buffer
	if err := c.SVG(&buf); err != nil {
		t.Fatalf("SVG: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`class="donut-chart"`, `data-key="exp:7"`, `<a href="/experiments/7">`} {
		if !strings.Contains(out, want) {
			t.Errorf("svg missing %q", want)
		}
	}
}

func dailySeries() []domain.DailyCost {
	return []domain.DailyCost{
		{Date: "2024-06-01", TotalCost: 2, RunCount: 1, ExperimentCount: 1},
		{Date: "2024-06-02", TotalCost: 0},
		{Date: "2024-06-03", TotalCost: 4, RunCount: 2, ExperimentCount: 1},
		{Date: "2024-06-04", TotalCost: 6, RunCount: 3, ExperimentCount: 2},
	}
}

func TestTrendBar_MovingAverage(t *testing.T) {
	c := NewTrendBarChart(Props[domain.DailyCost, string]{Data: dailySeries()}, TrendBarOptions{Options: testOptions(), Window: 3})

	got := c.Averages()
	want := []float64{2, 1, 2, 10.0 / 3.0}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("average[%d] = %f, want %f", i, got[i], want[i])
		}
	}

	def := NewTrendBarChart(Props[domain.DailyCost, string]{Data: dailySeries()}, TrendBarOptions{Options: testOptions()})
	if def.Window() != DefaultTrendWindow {
		t.Errorf("default window = %d", def.Window())
	}
}

func TestTrendBar_ClickDay(t *testing.T) {
	var days []string
	c := NewTrendBarChart(Props[domain.DailyCost, string]{
		Data:           dailySeries(),
		OnElementClick: func(day string) { days = append(days, day) },
	}, TrendBarOptions{Options: testOptions()})

	c.Click("day:2024-06-03")
	c.Click(TrendKey)
	if !slices.Equal(days, []string{"2024-06-03"}) {
		t.Errorf("clicks = %v", days)
	}
}

func TestTrendBar_ResizeRelayouts(t *testing.T) {
	clock := scene.NewManualClock(time.Unix(0, 0))
	c := NewTrendBarChart(Props[domain.DailyCost, string]{Data: dailySeries(), Width: 400, Height: 200},
		TrendBarOptions{Options: Options{Clock: clock}})
	c.Cancel()

	bar := func() *scene.Element {
		for _, el := range c.Elements() {
			if el.Key == "day:2024-06-04" {
				return el
			}
		}
		t.Fatal("bar not found")
		return nil
	}
	narrow := bar().Attr("width")

	c.Resize(400, 200)
	if c.Animating() {
		t.Error("resize to the same size should not re-render")
	}

	c.Resize(800, 200)
	if !c.Animating() {
		t.Fatal("resize should start a re-layout")
	}
	clock.Advance(100 * time.Millisecond)
	c.Resize(1000, 200)
	c.Cancel()
	if w := bar().Attr("width"); w <= narrow*2 {
		t.Errorf("bar width after resize = %f, narrow was %f", w, narrow)
	}
	if w, h := c.Size(); w != 1000 || h != 200 {
		t.Errorf("Size = %d x %d", w, h)
	}
}

func TestTrendBar_EmptySeries(t *testing.T) {
	c := NewTrendBarChart(Props[domain.DailyCost, string]{}, TrendBarOptions{Options: testOptions()})
	if len(c.Elements()) != 0 {
		t.Errorf("empty series rendered %d elements", len(c.Elements()))
	}
	if err := c.Export(&bytes.Buffer{}, FormatPNG); err != ErrNoData {
		t.Errorf("Export err = %v, want ErrNoData", err)
	}
}

func TestTrendBar_ExportPNG(t *testing.T) {
	c := NewTrendBarChart(Props[domain.DailyCost, string]{Data: dailySeries()}, TrendBarOptions{Options: testOptions()})
	var buf bytes.Buffer
	if err := c.Export(&buf, FormatPNG); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}
}

func accuracyPoints() []domain.AccuracyPoint {
	t0 := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	return []domain.AccuracyPoint{
		{TrialID: 9, Timestamp: t0.Add(time.Hour), Accuracy: 0.8, Status: domain.TrialFinished},
		{TrialID: 4, Timestamp: t0, Accuracy: 0.6, Status: domain.TrialFailed},
		{TrialID: 2, Timestamp: t0, Accuracy: 0.7, Status: domain.TrialFinished},
	}
}

func TestSeriesLine_OrdersByTimestampThenID(t *testing.T) {
	c := NewSeriesLineChart(Props[domain.AccuracyPoint, int64]{Data: accuracyPoints()}, SeriesLineOptions{Options: testOptions()})
	if got := c.Order(); !slices.Equal(got, []int64{2, 4, 9}) {
		t.Errorf("Order = %v, want [2 4 9]", got)
	}
}

func TestSeriesLine_HoverAndClickIndependent(t *testing.T) {
	var clicks, hovers int
	c := NewSeriesLineChart(Props[domain.AccuracyPoint, int64]{
		Data:           accuracyPoints(),
		OnElementClick: func(int64) { clicks++ },
		OnElementHover: func(int64, bool) { hovers++ },
	}, SeriesLineOptions{Options: testOptions()})

	c.PointerEnter("trial:9", 5, 5)
	if clicks != 0 {
		t.Error("hover must not navigate")
	}
	if id, ok := c.EntityID("trial:9"); !ok || id != 9 {
		t.Errorf("EntityID = %d, %v", id, ok)
	}

	c.PointerLeave("trial:9")
	c.Click("trial:4")
	if _, ok := c.Tooltip(); ok {
		t.Error("click must not open a tooltip")
	}
	if clicks != 1 || hovers != 2 {
		t.Errorf("clicks = %d, hovers = %d; want 1, 2", clicks, hovers)
	}
	if c.Click(CurveKey) {
		t.Error("the connecting line is not clickable")
	}
}

func TestSeriesLine_SinglePoint(t *testing.T) {
	c := NewSeriesLineChart(Props[domain.AccuracyPoint, int64]{Data: accuracyPoints()[:1]}, SeriesLineOptions{Options: testOptions()})
	c.Cancel()
	els := c.Elements()
	if len(els) != 1 || els[0].Kind != scene.KindPoint {
		t.Fatalf("elements = %d, want a single point", len(els))
	}
	if cx := els[0].Attr("cx"); math.IsNaN(cx) {
		t.Error("single point x is NaN")
	}
}
