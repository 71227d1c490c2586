package templates

import (
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/emiliopalmerini/trialscope/internal/domain"
	"github.com/emiliopalmerini/trialscope/internal/util"
)

func experimentURL(id int64) templ.SafeURL {
	return templ.SafeURL(fmt.Sprintf("/experiments/%d", id))
}

func trialURL(id int64) templ.SafeURL {
	return templ.SafeURL(fmt.Sprintf("/trials/%d", id))
}

func hoverURL(base, key string) templ.SafeURL {
	return templ.SafeURL(base + "?hover=" + key)
}

func chartExportURL(name string, query string) templ.SafeURL {
	u := "/charts/" + name + ".png"
	if query != "" {
		u += "?" + query
	}
	return templ.SafeURL(u)
}

func formatInt(n int) string {
	return strconv.Itoa(n)
}

func formatTokens(t *int64) string {
	if t == nil {
		return "-"
	}
	return util.FormatNumber(*t)
}

func formatLatency(l *int64) string {
	if l == nil {
		return "-"
	}
	return fmt.Sprintf("%d ms", *l)
}

func formatOptionalCost(c *float64) string {
	if c == nil {
		return "-"
	}
	return util.FormatCost(*c)
}

func formatDuration(s *float64) string {
	if s == nil {
		return "-"
	}
	return fmt.Sprintf("%.0fs", *s)
}

func formatAccuracy(a *float64) string {
	return util.FormatRatio(a)
}

func formatSuccessRate(r *float64) string {
	return util.FormatRatio(r)
}

func formatImproving(b *bool) string {
	switch {
	case b == nil:
		return "not enough data"
	case *b:
		return "improving"
	default:
		return "not improving"
	}
}

func statusClass(s domain.TrialStatus) string {
	return "status status-" + string(s)
}

func rowClass(highlighted bool) string {
	if highlighted {
		return "highlighted"
	}
	return ""
}

// writer collects the first write error so page bodies read straight through.
type writer struct {
	w   io.Writer
	err error
}

func (w *writer) raw(s string) {
	if w.err == nil {
		_, w.err = io.WriteString(w.w, s)
	}
}

// text writes s HTML-escaped.
func (w *writer) text(s string) {
	w.raw(templ.EscapeString(s))
}

func (w *writer) attr(name, value string) {
	w.raw(" " + name + `="` + templ.EscapeString(value) + `"`)
}

func (w *writer) link(href templ.SafeURL, label string) {
	w.raw(`<a href="` + templ.EscapeString(string(href)) + `">`)
	w.text(label)
	w.raw("</a>")
}

func (w *writer) cell(s string) {
	w.raw("<td>")
	w.text(s)
	w.raw("</td>")
}

func (w *writer) stat(label, value string) {
	w.raw(`<div class="stat"><span class="stat-label">`)
	w.text(label)
	w.raw(`</span><span class="stat-value">`)
	w.text(value)
	w.raw("</span></div>")
}
