package scene

import (
	"math"
	"time"
)

// Band maps categorical keys to evenly spaced bands within a range.
type Band struct {
	index     map[string]int
	start     float64
	step      float64
	bandwidth float64
}

// NewBand lays out keys across [r0, r1]. paddingInner is the fraction of a
// step left empty between bands; paddingOuter the fraction before the first
// and after the last band.
func NewBand(keys []string, r0, r1, paddingInner, paddingOuter float64) Band {
	b := Band{index: make(map[string]int, len(keys))}
	for _, k := range keys {
		if _, ok := b.index[k]; !ok {
			b.index[k] = len(b.index)
		}
	}
	n := float64(len(b.index))
	if n == 0 {
		return b
	}
	b.step = (r1 - r0) / math.Max(1, n-paddingInner+2*paddingOuter)
	b.bandwidth = b.step * (1 - paddingInner)
	b.start = r0 + b.step*paddingOuter
	return b
}

// Position returns the start of key's band.
func (b Band) Position(key string) (float64, bool) {
	i, ok := b.index[key]
	if !ok {
		return 0, false
	}
	return b.start + float64(i)*b.step, true
}

// Bandwidth returns the width of each band.
func (b Band) Bandwidth() float64 {
	return b.bandwidth
}

// Linear maps a continuous domain onto a range.
type Linear struct {
	d0, d1 float64
	r0, r1 float64
}

// NewLinear maps [d0, d1] onto [r0, r1].
func NewLinear(d0, d1, r0, r1 float64) Linear {
	return Linear{d0: d0, d1: d1, r0: r0, r1: r1}
}

// Scale maps v into the range. A zero-span domain maps everything to r0.
func (l Linear) Scale(v float64) float64 {
	if l.d1 == l.d0 {
		return l.r0
	}
	return l.r0 + (v-l.d0)/(l.d1-l.d0)*(l.r1-l.r0)
}

// Domain returns the domain bounds.
func (l Linear) Domain() (float64, float64) {
	return l.d0, l.d1
}

// Nice extends the domain to round tick boundaries for roughly n ticks.
func (l Linear) Nice(n int) Linear {
	step := tickStep(l.d0, l.d1, n)
	if step == 0 {
		return l
	}
	l.d0 = math.Floor(l.d0/step) * step
	l.d1 = math.Ceil(l.d1/step) * step
	return l
}

// Ticks returns roughly n round values spanning the domain.
func (l Linear) Ticks(n int) []float64 {
	step := tickStep(l.d0, l.d1, n)
	if step == 0 {
		return []float64{l.d0}
	}
	lo, hi := math.Min(l.d0, l.d1), math.Max(l.d0, l.d1)
	// fractional steps divide by the inverse so 3*0.2 comes out as 0.6
	if step < 1 {
		inv := math.Round(1 / step)
		var ticks []float64
		for k := math.Ceil(lo * inv); k <= math.Floor(hi*inv); k++ {
			ticks = append(ticks, k/inv)
		}
		return ticks
	}
	var ticks []float64
	for k := math.Ceil(lo / step); k <= math.Floor(hi/step); k++ {
		ticks = append(ticks, k*step)
	}
	return ticks
}

func tickStep(d0, d1 float64, n int) float64 {
	span := math.Abs(d1 - d0)
	if span == 0 || n <= 0 {
		return 0
	}
	raw := span / float64(n)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	switch norm := raw / mag; {
	case norm < 1.5:
		return mag
	case norm < 3:
		return 2 * mag
	case norm < 7:
		return 5 * mag
	default:
		return 10 * mag
	}
}

// Time maps timestamps onto a range.
type Time struct {
	t0, t1 time.Time
	r0, r1 float64
}

// NewTime maps [t0, t1] onto [r0, r1].
func NewTime(t0, t1 time.Time, r0, r1 float64) Time {
	return Time{t0: t0, t1: t1, r0: r0, r1: r1}
}

// Scale maps t into the range. A zero-span domain maps to the range midpoint.
func (s Time) Scale(t time.Time) float64 {
	span := s.t1.Sub(s.t0)
	if span == 0 {
		return (s.r0 + s.r1) / 2
	}
	return s.r0 + float64(t.Sub(s.t0))/float64(span)*(s.r1-s.r0)
}

// Extent returns the earliest and latest of ts.
func Extent(ts []time.Time) (time.Time, time.Time) {
	if len(ts) == 0 {
		return time.Time{}, time.Time{}
	}
	lo, hi := ts[0], ts[0]
	for _, t := range ts[1:] {
		if t.Before(lo) {
			lo = t
		}
		if t.After(hi) {
			hi = t
		}
	}
	return lo, hi
}
