// Package scene maintains keyed visual elements and animates them between
// states. A Binder reconciles a data array against the elements it bound
// last time; charts build on it and serialise the result to SVG.
package scene

import (
	"time"
)

// Kind is the visual primitive an element renders as.
type Kind string

const (
	KindArc   Kind = "arc"
	KindBar   Kind = "bar"
	KindPoint Kind = "point"
	KindPath  Kind = "path"
	KindText  Kind = "text"
	KindRule  Kind = "rule"
)

// Attrs are the numeric, animatable attributes of an element.
type Attrs map[string]float64

// Point is a vertex of a path element.
type Point struct {
	X, Y float64
}

// Element is one keyed visual mark.
type Element struct {
	Key   string
	Kind  Kind
	Attrs Attrs
	// Points holds path vertices for KindPath elements.
	Points []Point

	Text   string
	Title  string
	Class  string
	Fill   string
	Stroke string
	Href   string
	Datum  any
	// Dimmed renders the element at reduced opacity without touching Attrs.
	Dimmed bool

	target    Attrs
	targetPts []Point
	hasPts    bool
	exiting   bool
	tr        *transition
}

func newElement(key string, kind Kind) *Element {
	return &Element{
		Key:    key,
		Kind:   kind,
		Attrs:  Attrs{},
		target: Attrs{},
	}
}

// Set assigns a current attribute value immediately.
func (e *Element) Set(name string, v float64) {
	e.Attrs[name] = v
}

// To requests that an attribute animate to v.
func (e *Element) To(name string, v float64) {
	e.target[name] = v
}

// SetPoints assigns path vertices immediately.
func (e *Element) SetPoints(pts []Point) {
	e.Points = append([]Point(nil), pts...)
}

// PointsTo requests that the path animate to pts.
func (e *Element) PointsTo(pts []Point) {
	e.targetPts = append([]Point(nil), pts...)
	e.hasPts = true
}

// Attr returns the current value of an attribute, or 0.
func (e *Element) Attr(name string) float64 {
	return e.Attrs[name]
}

// Opacity returns the effective rendered opacity.
func (e *Element) Opacity() float64 {
	o, ok := e.Attrs["opacity"]
	if !ok {
		o = 1
	}
	if e.Dimmed {
		o *= DimOpacity
	}
	return o
}

// Exiting reports whether the element is animating out.
func (e *Element) Exiting() bool {
	return e.exiting
}

// Animating reports whether a transition is in flight.
func (e *Element) Animating() bool {
	return e.tr != nil
}

// DimOpacity is the opacity multiplier applied to dimmed elements.
const DimOpacity = 0.3

// EaseFunc maps linear progress in [0,1] to eased progress.
type EaseFunc func(float64) float64

// EaseCubicInOut accelerates then decelerates.
func EaseCubicInOut(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	f := 2*t - 2
	return 0.5*f*f*f + 1
}

// EaseLinear is the identity easing.
func EaseLinear(t float64) float64 { return t }

type transition struct {
	from, to       Attrs
	fromPts, toPts []Point
	start          time.Time
	delay          time.Duration
	duration       time.Duration
	ease           EaseFunc
}

// progress returns eased progress at now and whether the transition is done.
func (t *transition) progress(now time.Time) (float64, bool) {
	elapsed := now.Sub(t.start) - t.delay
	if elapsed <= 0 {
		return 0, false
	}
	if elapsed >= t.duration {
		return 1, true
	}
	return t.ease(float64(elapsed) / float64(t.duration)), false
}

// heading reports whether the transition already ends in the requested
// state. Requested attributes it does not animate must already hold their value.
func (t *transition) heading(e *Element, to Attrs, pts []Point, hasPts bool) bool {
	for k, v := range to {
		if tv, ok := t.to[k]; ok {
			if tv != v {
				return false
			}
		} else if cur, ok := e.Attrs[k]; !ok || cur != v {
			return false
		}
	}
	if !hasPts {
		return true
	}
	if t.toPts != nil {
		return pointsEqual(t.toPts, pts)
	}
	return pointsEqual(e.Points, pts)
}

// apply writes the interpolated state at progress p into e.
func (t *transition) apply(e *Element, p float64) {
	for k, to := range t.to {
		from, ok := t.from[k]
		if !ok {
			from = to
		}
		e.Attrs[k] = from + (to-from)*p
	}
	if t.toPts == nil {
		return
	}
	if p >= 1 || len(t.fromPts) != len(t.toPts) {
		if p >= 1 {
			e.Points = append([]Point(nil), t.toPts...)
		}
		return
	}
	pts := make([]Point, len(t.toPts))
	for i := range pts {
		pts[i] = Point{
			X: t.fromPts[i].X + (t.toPts[i].X-t.fromPts[i].X)*p,
			Y: t.fromPts[i].Y + (t.toPts[i].Y-t.fromPts[i].Y)*p,
		}
	}
	e.Points = pts
}

func pointsEqual(a, b []Point) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
