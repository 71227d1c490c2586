package templates

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/emiliopalmerini/trialscope/internal/util"
)

// Dashboard renders the overview page.
func Dashboard(p DashboardPage) templ.Component {
	return Layout("Dashboard", templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		message(w, p.Message)

		w.raw(`<section class="stats">`)
		w.stat("Experiments", formatInt(p.Stats.TotalExperiments))
		w.stat("Trials", formatInt(p.Stats.TotalTrials))
		w.stat("Runs", formatInt(p.Stats.TotalRuns))
		w.stat("Total cost", util.FormatCost(p.Stats.TotalCost))
		w.stat("Avg accuracy", formatAccuracy(p.Stats.AvgAccuracy))
		w.stat("Avg latency", util.FormatOptional(p.Stats.AvgLatencyMs, "%.0f ms"))
		w.stat("Active trials", formatInt(p.Stats.ActiveTrials))
		w.stat("Success rate", formatSuccessRate(p.Stats.SuccessRate))
		w.raw("</section>")

		w.raw(`<section class="insights">`)
		w.stat("Accuracy", formatImproving(p.Trends.AccuracyImproving))
		w.stat("Cost trend", p.Trends.CostTrend)
		w.stat("Experiments / day", fmt.Sprintf("%.2f", p.Trends.ExperimentVelocity))
		w.stat("Anomalies", formatInt(p.Anomalies))
		w.raw("</section>")

		w.raw(`<section class="charts"><div class="panel"><h2>Cost by experiment</h2>`)
		renderChart(ctx, w, "cost", p.CostChart)
		w.raw(`<a class="export" href="`)
		w.text(string(chartExportURL("cost", "")))
		w.raw(`">PNG</a></div><div class="panel"><h2>Daily cost</h2>`)
		renderChart(ctx, w, "daily", p.DailyChart)
		w.raw(`<a class="export" href="`)
		w.text(string(chartExportURL("daily", "")))
		w.raw(`">PNG</a></div></section>`)

		w.raw(`<section class="panel"><h2>Experiments</h2><table class="experiments"><thead><tr>`)
		w.raw("<th></th><th>Name</th><th>Project</th><th>Trials</th><th>Runs</th><th>Cost</th><th>Avg accuracy</th><th>Created</th>")
		w.raw("</tr></thead><tbody>")
		for _, e := range p.Experiments {
			w.raw("<tr")
			w.attr("class", rowClass(e.Highlighted))
			w.attr("data-id", strconv.FormatInt(e.ID, 10))
			w.raw(`><td class="hover">`)
			w.link(hoverURL("/", "exp:"+strconv.FormatInt(e.ID, 10)), "●")
			w.raw("</td><td>")
			w.link(experimentURL(e.ID), e.Name)
			w.raw("</td>")
			w.cell(e.ProjectID)
			w.cell(formatInt(e.TotalTrials))
			w.cell(formatInt(e.TotalRuns))
			w.cell(util.FormatCost(e.TotalCost))
			w.cell(formatAccuracy(e.AvgAccuracy))
			w.cell(util.FormatDate(e.CreatedAt))
			w.raw("</tr>")
		}
		w.raw("</tbody></table></section>")

		w.raw(`<section class="panel"><h2>Days`)
		if p.ActiveDay != "" {
			w.raw(` <small>filtered to `)
			w.text(p.ActiveDay)
			w.raw(` · <a href="/">clear</a></small>`)
		}
		w.raw(`</h2><table class="days"><thead><tr><th>Date</th><th>Cost</th><th>Runs</th><th>Experiments</th></tr></thead><tbody>`)
		for _, d := range p.Days {
			w.raw("<tr")
			w.attr("class", rowClass(d.Highlighted))
			w.attr("data-date", d.Date)
			w.raw("><td>")
			w.link(templ.SafeURL("/?day="+url.QueryEscape(d.Date)), d.Date)
			w.raw("</td>")
			w.cell(util.FormatCost(d.TotalCost))
			w.cell(formatInt(d.RunCount))
			w.cell(formatInt(d.ExperimentCount))
			w.raw("</tr>")
		}
		w.raw("</tbody></table></section>")
		return w.err
	}))
}

// ExperimentDetail renders one experiment with its accuracy curve and trials.
func ExperimentDetail(p ExperimentPage) templ.Component {
	return Layout(p.Detail.Name, templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		message(w, p.Message)

		w.raw("<h1>")
		w.text(p.Detail.Name)
		w.raw(`</h1><p class="meta">`)
		w.text(p.Detail.ProjectID + " · created " + util.FormatDate(p.Detail.CreatedAt))
		w.raw("</p>")

		w.raw(`<section class="stats">`)
		w.stat("Trials", formatInt(p.Detail.TotalTrials))
		w.stat("Finished", formatInt(p.Detail.FinishedTrials))
		w.stat("Failed", formatInt(p.Detail.FailedTrials))
		w.stat("Active", formatInt(p.Detail.ActiveTrials))
		w.stat("Runs", formatInt(p.Stats.TotalRuns))
		w.stat("Cost", util.FormatCost(p.Stats.TotalCost))
		w.stat("Avg accuracy", formatAccuracy(p.Stats.AvgAccuracy))
		w.stat("Success rate", formatSuccessRate(p.Stats.SuccessRate))
		w.raw("</section>")

		w.raw(`<section class="panel"><h2>Accuracy</h2>`)
		renderChart(ctx, w, "accuracy", p.AccuracyChart)
		w.raw(`<a class="export" href="`)
		w.text(string(chartExportURL("accuracy", "experiment="+strconv.FormatInt(p.Detail.ID, 10))))
		w.raw(`">PNG</a></section>`)

		w.raw(`<section class="panel"><h2>Trials</h2><table class="trials"><thead><tr>`)
		w.raw("<th>Trial</th><th>Status</th><th>Accuracy</th><th>Duration</th><th>Runs</th><th>Cost</th><th>Created</th>")
		w.raw("</tr></thead><tbody>")
		for _, t := range p.Trials {
			w.raw("<tr")
			w.attr("class", rowClass(t.Highlighted))
			w.attr("data-id", strconv.FormatInt(t.ID, 10))
			w.raw("><td>")
			w.link(trialURL(t.ID), "#"+strconv.FormatInt(t.ID, 10))
			w.raw("</td><td")
			w.attr("class", statusClass(t.Status))
			w.raw(">")
			w.text(string(t.Status))
			w.raw("</td>")
			w.cell(formatAccuracy(t.Accuracy))
			w.cell(formatDuration(t.DurationSeconds))
			w.cell(formatInt(t.RunCount))
			w.cell(util.FormatCost(t.TotalCost))
			w.cell(util.FormatDate(t.CreatedAt))
			w.raw("</tr>")
		}
		w.raw("</tbody></table></section>")
		return w.err
	}))
}

// TrialDetail renders one trial and its runs.
func TrialDetail(p TrialPage) templ.Component {
	title := "Trial " + strconv.FormatInt(p.Detail.ID, 10)
	return Layout(title, templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}

		w.raw("<h1>")
		w.text(title)
		w.raw(`</h1><p class="meta">`)
		w.link(experimentURL(p.Detail.ExperimentID), p.Detail.ExperimentName)
		w.raw(" · <span")
		w.attr("class", statusClass(p.Detail.Status))
		w.raw(">")
		w.text(string(p.Detail.Status))
		w.raw("</span></p>")

		s := p.Detail.Stats
		w.raw(`<section class="stats">`)
		w.stat("Accuracy", formatAccuracy(p.Detail.Accuracy))
		w.stat("Duration", formatDuration(p.Detail.DurationSeconds))
		w.stat("Runs", formatInt(s.TotalRuns))
		w.stat("Cost", util.FormatCost(s.TotalCost))
		w.stat("Tokens", util.FormatNumber(s.TotalTokens))
		w.stat("Avg latency", util.FormatOptional(s.AvgLatency, "%.0f ms"))
		w.stat("Min latency", formatLatency(s.MinLatency))
		w.stat("Max latency", formatLatency(s.MaxLatency))
		w.raw("</section>")

		w.raw(`<section class="panel"><h2>Runs</h2><table class="runs"><thead><tr>`)
		w.raw("<th>Run</th><th>Tokens</th><th>Cost</th><th>Latency</th><th>Cost / token</th><th>Created</th>")
		w.raw("</tr></thead><tbody>")
		for _, r := range p.Runs {
			w.raw("<tr")
			w.attr("data-id", strconv.FormatInt(r.ID, 10))
			w.raw(">")
			w.cell("#" + strconv.FormatInt(r.ID, 10))
			w.cell(formatTokens(r.Tokens))
			w.cell(formatOptionalCost(r.Cost))
			w.cell(formatLatency(r.LatencyMs))
			w.cell(fmt.Sprintf("$%.6f", r.CostPerToken))
			w.cell(util.FormatDate(r.CreatedAt))
			w.raw("</tr>")
		}
		w.raw("</tbody></table></section>")
		return w.err
	}))
}
