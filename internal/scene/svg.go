package scene

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"math"
	"strconv"
	"strings"
)

// WriteSVG serialises elements into a standalone SVG document. Each element
// carries a data-key attribute; elements with a Title get a <title> tooltip
// and elements with an Href are wrapped in a link.
func WriteSVG(w io.Writer, width, height int, class string, elements []*Element) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" class="%s">`,
		width, height, width, height, html.EscapeString(class))
	for _, el := range elements {
		writeElement(bw, el)
	}
	bw.WriteString("</svg>")
	return bw.Flush()
}

func writeElement(w *bufio.Writer, el *Element) {
	if el.Href != "" {
		fmt.Fprintf(w, `<a href="%s">`, html.EscapeString(el.Href))
	}

	common := commonAttrs(el)
	title := ""
	if el.Title != "" {
		title = "<title>" + html.EscapeString(el.Title) + "</title>"
	}

	switch el.Kind {
	case KindArc:
		fmt.Fprintf(w, `<path d="%s"%s>%s</path>`, ArcPath(
			el.Attr("cx"), el.Attr("cy"),
			el.Attr("innerRadius"), el.Attr("outerRadius"),
			el.Attr("startAngle"), el.Attr("endAngle"),
		), common, title)
	case KindBar:
		fmt.Fprintf(w, `<rect x="%s" y="%s" width="%s" height="%s"%s>%s</rect>`,
			num(el.Attr("x")), num(el.Attr("y")),
			num(math.Max(0, el.Attr("width"))), num(math.Max(0, el.Attr("height"))),
			common, title)
	case KindPoint:
		fmt.Fprintf(w, `<circle cx="%s" cy="%s" r="%s"%s>%s</circle>`,
			num(el.Attr("cx")), num(el.Attr("cy")), num(math.Max(0, el.Attr("r"))), common, title)
	case KindPath:
		fmt.Fprintf(w, `<path d="%s" fill="none"%s>%s</path>`, LinePath(el.Points), common, title)
	case KindText:
		fmt.Fprintf(w, `<text x="%s" y="%s"%s>%s%s</text>`,
			num(el.Attr("x")), num(el.Attr("y")), common, html.EscapeString(el.Text), title)
	case KindRule:
		fmt.Fprintf(w, `<line x1="%s" y1="%s" x2="%s" y2="%s"%s>%s</line>`,
			num(el.Attr("x1")), num(el.Attr("y1")), num(el.Attr("x2")), num(el.Attr("y2")), common, title)
	}

	if el.Href != "" {
		w.WriteString("</a>")
	}
}

func commonAttrs(el *Element) string {
	var b strings.Builder
	fmt.Fprintf(&b, ` data-key="%s"`, html.EscapeString(el.Key))
	if el.Class != "" {
		fmt.Fprintf(&b, ` class="%s"`, html.EscapeString(el.Class))
	}
	if el.Fill != "" && el.Kind != KindPath {
		fmt.Fprintf(&b, ` fill="%s"`, html.EscapeString(el.Fill))
	}
	if el.Stroke != "" {
		fmt.Fprintf(&b, ` stroke="%s"`, html.EscapeString(el.Stroke))
	}
	if o := el.Opacity(); o != 1 {
		fmt.Fprintf(&b, ` opacity="%s"`, num(o))
	}
	return b.String()
}

// ArcPath returns the SVG path of an annular sector centred on (cx, cy).
// Angles are radians clockwise from 12 o'clock.
func ArcPath(cx, cy, r0, r1, a0, a1 float64) string {
	if a1 < a0 {
		a0, a1 = a1, a0
	}
	sweep := a1 - a0
	if sweep <= 0 || r1 <= 0 {
		return ""
	}
	// a full circle cannot be drawn as a single arc
	if sweep >= 2*math.Pi-1e-9 {
		a1 = a0 + 2*math.Pi - 1e-4
		sweep = a1 - a0
	}
	large := 0
	if sweep > math.Pi {
		large = 1
	}

	x := func(r, a float64) string { return num(cx + r*math.Sin(a)) }
	y := func(r, a float64) string { return num(cy - r*math.Cos(a)) }

	var b strings.Builder
	fmt.Fprintf(&b, "M%s,%s", x(r1, a0), y(r1, a0))
	fmt.Fprintf(&b, "A%s,%s 0 %d 1 %s,%s", num(r1), num(r1), large, x(r1, a1), y(r1, a1))
	if r0 > 0 {
		fmt.Fprintf(&b, "L%s,%s", x(r0, a1), y(r0, a1))
		fmt.Fprintf(&b, "A%s,%s 0 %d 0 %s,%s", num(r0), num(r0), large, x(r0, a0), y(r0, a0))
	} else {
		fmt.Fprintf(&b, "L%s,%s", num(cx), num(cy))
	}
	b.WriteString("Z")
	return b.String()
}

// LinePath returns an SVG polyline path through pts.
func LinePath(pts []Point) string {
	var b strings.Builder
	for i, p := range pts {
		if i == 0 {
			b.WriteString("M")
		} else {
			b.WriteString("L")
		}
		b.WriteString(num(p.X))
		b.WriteString(",")
		b.WriteString(num(p.Y))
	}
	return b.String()
}

func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
