package scene

import (
	"maps"
	"time"
)

// Transition duration bounds.
const (
	MinDuration     = 400 * time.Millisecond
	MaxDuration     = 800 * time.Millisecond
	DefaultDuration = 600 * time.Millisecond
)

// Hooks describe how elements enter, update, and exit.
// Enter sets the starting state with Set and the resting state with To.
// Update sets the new resting state with To. Exit sets the final state of a
// departing element; when nil the element fades out.
type Hooks[T any] struct {
	Enter  func(el *Element, d T, i int)
	Update func(el *Element, d T, i int)
	Exit   func(el *Element)
}

// Options tune transitions.
type Options struct {
	Duration time.Duration
	// Stagger delays the i-th element's transition by i*Stagger.
	Stagger time.Duration
	Ease    EaseFunc
	Clock   Clock
}

// Delta reports the keys of one Bind call, partitioned by operation.
type Delta struct {
	Enter  []string
	Update []string
	Exit   []string
}

// Binder reconciles data arrays with keyed elements. Not safe for
// concurrent use.
type Binder[T any] struct {
	kind  Kind
	key   func(T) string
	hooks Hooks[T]
	opts  Options

	byKey   map[string]*Element
	live    []*Element
	exiting []*Element
}

// NewBinder creates a Binder producing elements of kind, identified by key.
func NewBinder[T any](kind Kind, key func(T) string, hooks Hooks[T], opts Options) *Binder[T] {
	if opts.Duration == 0 {
		opts.Duration = DefaultDuration
	}
	opts.Duration = min(max(opts.Duration, MinDuration), MaxDuration)
	if opts.Ease == nil {
		opts.Ease = EaseCubicInOut
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	return &Binder[T]{
		kind:  kind,
		key:   key,
		hooks: hooks,
		opts:  opts,
		byKey: make(map[string]*Element),
	}
}

// Duration returns the effective transition duration.
func (b *Binder[T]) Duration() time.Duration {
	return b.opts.Duration
}

// Bind reconciles data against the previously bound array. Duplicate keys
// keep their first occurrence. Binding identical data twice produces no
// enter or exit and schedules no new transition.
func (b *Binder[T]) Bind(data []T) Delta {
	now := b.opts.Clock.Now()
	b.Tick(now)

	var delta Delta
	seen := make(map[string]bool, len(data))
	live := make([]*Element, 0, len(data))

	for i, d := range data {
		k := b.key(d)
		if seen[k] {
			continue
		}
		seen[k] = true

		el, ok := b.byKey[k]
		if ok {
			el.exiting = false
			clear(el.target)
			el.targetPts, el.hasPts = nil, false
			if b.hooks.Update != nil {
				b.hooks.Update(el, d, i)
			}
			delta.Update = append(delta.Update, k)
		} else {
			el = newElement(k, b.kind)
			if b.hooks.Enter != nil {
				b.hooks.Enter(el, d, i)
			}
			b.byKey[k] = el
			delta.Enter = append(delta.Enter, k)
		}
		el.Datum = d
		b.schedule(el, now, i)
		live = append(live, el)
	}

	var exiting []*Element
	for _, el := range b.exiting {
		if !seen[el.Key] {
			exiting = append(exiting, el)
		}
	}
	for _, el := range b.live {
		if seen[el.Key] {
			continue
		}
		el.exiting = true
		clear(el.target)
		el.targetPts, el.hasPts = nil, false
		if b.hooks.Exit != nil {
			b.hooks.Exit(el)
		} else {
			el.To("opacity", 0)
		}
		b.schedule(el, now, 0)
		exiting = append(exiting, el)
		delta.Exit = append(delta.Exit, el.Key)
	}

	b.live = live
	b.exiting = exiting
	b.prune()
	return delta
}

// schedule starts a transition toward the element's requested target unless
// it is already there or already heading there.
func (b *Binder[T]) schedule(el *Element, now time.Time, i int) {
	to := maps.Clone(el.target)
	var toPts []Point
	if el.hasPts {
		toPts = el.targetPts
	}

	if el.tr != nil && el.tr.heading(el, to, toPts, el.hasPts) {
		return
	}

	changed := false
	for k, v := range to {
		if cur, ok := el.Attrs[k]; !ok || cur != v {
			changed = true
			break
		}
	}
	if el.hasPts && !pointsEqual(el.Points, toPts) {
		changed = true
	}
	if !changed {
		el.tr = nil
		return
	}

	el.tr = &transition{
		from:     maps.Clone(el.Attrs),
		to:       to,
		fromPts:  append([]Point(nil), el.Points...),
		toPts:    toPts,
		start:    now,
		delay:    time.Duration(i) * b.opts.Stagger,
		duration: b.opts.Duration,
		ease:     b.opts.Ease,
	}
}

// Tick advances every transition to now and detaches exited elements.
// It reports whether any transition is still in flight.
func (b *Binder[T]) Tick(now time.Time) bool {
	active := false
	for _, el := range b.all() {
		if el.tr == nil {
			continue
		}
		p, done := el.tr.progress(now)
		el.tr.apply(el, p)
		if done {
			el.tr = nil
		} else {
			active = true
		}
	}
	b.prune()
	return active
}

// Cancel jumps every in-flight transition to its end state and detaches
// exiting elements immediately.
func (b *Binder[T]) Cancel() {
	for _, el := range b.all() {
		if el.tr != nil {
			el.tr.apply(el, 1)
			el.tr = nil
		}
	}
	b.prune()
}

// Settle runs all transitions to completion. Equivalent to Cancel, named
// for callers that render a final frame.
func (b *Binder[T]) Settle() {
	b.Cancel()
}

// Active reports whether any transition is in flight.
func (b *Binder[T]) Active() bool {
	for _, el := range b.all() {
		if el.tr != nil {
			return true
		}
	}
	return false
}

// Elements returns live elements in data order followed by exiting ones.
func (b *Binder[T]) Elements() []*Element {
	return b.all()
}

// Live returns the elements bound to the current data, in data order.
func (b *Binder[T]) Live() []*Element {
	return append([]*Element(nil), b.live...)
}

// Lookup returns the live element for key.
func (b *Binder[T]) Lookup(key string) (*Element, bool) {
	el, ok := b.byKey[key]
	if !ok || el.exiting {
		return nil, false
	}
	return el, true
}

func (b *Binder[T]) all() []*Element {
	out := make([]*Element, 0, len(b.live)+len(b.exiting))
	out = append(out, b.live...)
	return append(out, b.exiting...)
}

// prune detaches exiting elements whose exit transition has finished.
func (b *Binder[T]) prune() {
	kept := b.exiting[:0]
	for _, el := range b.exiting {
		if el.tr == nil {
			delete(b.byKey, el.Key)
			continue
		}
		kept = append(kept, el)
	}
	for i := len(kept); i < len(b.exiting); i++ {
		b.exiting[i] = nil
	}
	b.exiting = kept
}
