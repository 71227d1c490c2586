package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Layout wraps body in the page shell.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		w.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		w.raw("<title>")
		w.text(title)
		w.raw(` · trialscope</title><link rel="stylesheet" href="/static/style.css"></head><body>`)
		w.raw(`<nav class="topbar"><a class="brand" href="/">trialscope</a></nav><main>`)
		if w.err != nil {
			return w.err
		}
		if err := body.Render(ctx, out); err != nil {
			return err
		}
		w.raw("</main></body></html>")
		return w.err
	})
}

// Chart embeds an SVG frame with an optional tooltip readout beneath it.
func Chart(svg func(io.Writer) error, tooltip string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		if err := svg(out); err != nil {
			return err
		}
		if tooltip == "" {
			return nil
		}
		w := &writer{w: out}
		w.raw(`<figcaption class="tooltip">`)
		w.text(tooltip)
		w.raw("</figcaption>")
		return w.err
	})
}

// renderChart embeds a chart or a placeholder when there is none.
func renderChart(ctx context.Context, w *writer, class string, c templ.Component) {
	w.raw(`<figure class="chart ` + class + `">`)
	if c == nil {
		w.raw(`<p class="empty">No data</p>`)
	} else if w.err == nil {
		w.err = c.Render(ctx, w.w)
	}
	w.raw("</figure>")
}

func message(w *writer, msg string) {
	if msg == "" {
		return
	}
	w.raw(`<div class="alert" role="alert">`)
	w.text(msg)
	w.raw("</div>")
}

// Error renders a standalone error page.
func Error(p ErrorPage) templ.Component {
	return Layout(p.Title, templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<section class="error"><h1>`)
		w.text(p.Title)
		w.raw("</h1><p>")
		w.text(p.Message)
		w.raw(`</p><p><a href="/">Back to dashboard</a></p></section>`)
		return w.err
	}))
}
