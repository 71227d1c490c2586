// Package chart implements the interactive charts of the dashboard: a cost
// donut, a daily cost bar chart with a moving-average trend, and an accuracy
// series. Each instance owns its scene, tooltip and highlight state and is
// not safe for concurrent use.
package chart

import (
	"fmt"
	"io"
	"time"

	"github.com/emiliopalmerini/trialscope/internal/scene"
)

// Mode selects how size contract violations are handled.
type Mode int

const (
	// ModeProduction clamps invalid sizes to the minimum viable size.
	ModeProduction Mode = iota
	// ModeDevelopment panics on invalid sizes.
	ModeDevelopment
)

// Size defaults and minimums in pixels.
const (
	DefaultWidth  = 640
	DefaultHeight = 320
	MinWidth      = 160
	MinHeight     = 120
)

// TooltipOffset is the distance between the pointer and the tooltip anchor.
const TooltipOffset = 12

// Props is the input contract shared by all charts.
type Props[T any, ID comparable] struct {
	Data []T
	// OnElementClick receives the entity id of a clicked element.
	OnElementClick func(id ID)
	// OnElementHover receives the hovered entity id with active=true, and
	// the same id with active=false when the pointer leaves.
	OnElementHover func(id ID, active bool)
	// Href, when set, links rendered elements to a page for their entity.
	Href   func(id ID) string
	Width  int
	Height int
}

// Options configure behaviour common to all charts.
type Options struct {
	Mode     Mode
	Clock    scene.Clock
	Duration time.Duration
	Stagger  time.Duration
}

func (o Options) sceneOptions() scene.Options {
	return scene.Options{Duration: o.Duration, Stagger: o.Stagger, Clock: o.Clock}
}

// Tooltip is the hover readout of one element.
type Tooltip struct {
	Key  string
	Text string
	X    float64
	Y    float64
}

// ResolveSize applies the size contract: zero selects the default, negative
// sizes panic in development and clamp in production, and positive sizes are
// raised to the minimum.
func ResolveSize(mode Mode, width, height int) (int, int) {
	if width < 0 || height < 0 {
		if mode == ModeDevelopment {
			panic(fmt.Sprintf("chart: invalid size %dx%d", width, height))
		}
	}
	return resolveDim(width, DefaultWidth, MinWidth), resolveDim(height, DefaultHeight, MinHeight)
}

func resolveDim(v, def, minimum int) int {
	switch {
	case v == 0:
		return def
	case v < minimum:
		return minimum
	default:
		return v
	}
}

// layer is one scene binder of a chart.
type layer interface {
	Elements() []*scene.Element
	Tick(now time.Time) bool
	Cancel()
	Active() bool
}

// base holds the interaction state every chart shares.
type base[ID comparable] struct {
	class   string
	mode    Mode
	width   int
	height  int
	layers  []layer
	onClick func(ID)
	onHover func(ID, bool)

	// ids maps element keys to entity ids; keys without an entity are not clickable.
	ids   map[string]ID
	texts map[string]string

	tooltip     *Tooltip
	hoverID     ID
	hoverEntity bool
	highlighted string
}

func newBase[T any, ID comparable](class string, props Props[T, ID], opts Options) base[ID] {
	w, h := ResolveSize(opts.Mode, props.Width, props.Height)
	return base[ID]{
		class:   class,
		mode:    opts.Mode,
		width:   w,
		height:  h,
		onClick: props.OnElementClick,
		onHover: props.OnElementHover,
		ids:     make(map[string]ID),
		texts:   make(map[string]string),
	}
}

// Size returns the current rendered size.
func (b *base[ID]) Size() (int, int) {
	return b.width, b.height
}

// resize applies a new measured size and reports whether a re-render is
// needed. In-flight transitions are cancelled before the new layout binds.
func (b *base[ID]) resize(width, height int) bool {
	w, h := ResolveSize(b.mode, width, height)
	if w == b.width && h == b.height {
		return false
	}
	b.Cancel()
	b.width, b.height = w, h
	return true
}

// resetIndex clears the key indexes before a render repopulates them.
func (b *base[ID]) resetIndex() {
	clear(b.ids)
	clear(b.texts)
}

// afterBind drops hover state for keys that no longer exist and reapplies
// the highlight to the new element set.
func (b *base[ID]) afterBind() {
	if b.tooltip != nil {
		if _, ok := b.texts[b.tooltip.Key]; !ok {
			b.PointerLeave(b.tooltip.Key)
		}
	}
	if b.highlighted != "" {
		if _, ok := b.texts[b.highlighted]; !ok {
			b.highlighted = ""
		}
	}
	b.applyHighlight()
}

// PointerEnter shows the tooltip for key anchored next to the pointer at
// (x, y). Unknown keys are ignored.
func (b *base[ID]) PointerEnter(key string, x, y float64) {
	text, ok := b.texts[key]
	if !ok {
		return
	}
	if b.tooltip != nil && b.tooltip.Key != key {
		b.PointerLeave(b.tooltip.Key)
	}
	b.tooltip = &Tooltip{Key: key, Text: text, X: x + TooltipOffset, Y: y + TooltipOffset}
	b.hoverID, b.hoverEntity = b.ids[key]
	if b.hoverEntity && b.onHover != nil {
		b.onHover(b.hoverID, true)
	}
}

// PointerLeave clears the tooltip if it belongs to key.
func (b *base[ID]) PointerLeave(key string) {
	if b.tooltip == nil || b.tooltip.Key != key {
		return
	}
	b.tooltip = nil
	// the key may already be gone from the index after a rebind
	if b.hoverEntity && b.onHover != nil {
		b.onHover(b.hoverID, false)
	}
	b.hoverEntity = false
}

// Tooltip returns the active tooltip.
func (b *base[ID]) Tooltip() (Tooltip, bool) {
	if b.tooltip == nil {
		return Tooltip{}, false
	}
	return *b.tooltip, true
}

// Click invokes the click callback once with the entity id behind key.
// Elements without an entity are ignored.
func (b *base[ID]) Click(key string) bool {
	id, ok := b.ids[key]
	if !ok || b.onClick == nil {
		return false
	}
	b.onClick(id)
	return true
}

// EntityID returns the entity id rendered under key.
func (b *base[ID]) EntityID(key string) (ID, bool) {
	id, ok := b.ids[key]
	return id, ok
}

// Highlight dims every other interactive element without rebinding data.
func (b *base[ID]) Highlight(key string) {
	if _, ok := b.texts[key]; !ok {
		return
	}
	b.highlighted = key
	b.applyHighlight()
}

// ClearHighlight restores full opacity.
func (b *base[ID]) ClearHighlight() {
	b.highlighted = ""
	b.applyHighlight()
}

// Highlighted returns the highlighted key, if any.
func (b *base[ID]) Highlighted() string {
	return b.highlighted
}

func (b *base[ID]) applyHighlight() {
	for _, el := range b.Elements() {
		_, interactive := b.texts[el.Key]
		el.Dimmed = b.highlighted != "" && interactive && el.Key != b.highlighted
	}
}

// Elements returns every element of every layer in paint order.
func (b *base[ID]) Elements() []*scene.Element {
	var out []*scene.Element
	for _, l := range b.layers {
		out = append(out, l.Elements()...)
	}
	return out
}

// Tick advances transitions to now and reports whether any remain.
func (b *base[ID]) Tick(now time.Time) bool {
	active := false
	for _, l := range b.layers {
		if l.Tick(now) {
			active = true
		}
	}
	return active
}

// Cancel snaps all transitions to their end state.
func (b *base[ID]) Cancel() {
	for _, l := range b.layers {
		l.Cancel()
	}
}

// Animating reports whether any transition is in flight.
func (b *base[ID]) Animating() bool {
	for _, l := range b.layers {
		if l.Active() {
			return true
		}
	}
	return false
}

// SVG writes the current frame as an SVG document.
func (b *base[ID]) SVG(w io.Writer) error {
	return scene.WriteSVG(w, b.width, b.height, b.class, b.Elements())
}

// palette colours categorical elements in order.
var palette = []string{
	"#4e79a7", "#f28e2b", "#e15759", "#76b7b2", "#59a14f",
	"#edc948", "#b07aa1", "#ff9da7", "#9c755f", "#bab0ac",
}

const otherColor = "#cccccc"

func colorAt(i int) string {
	return palette[i%len(palette)]
}
