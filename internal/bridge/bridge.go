// Package bridge turns chart interactions into navigation, table filters and
// row highlights. Hover sync runs from charts to tables only.
package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultCooldown is how long a repeated click on the same route is ignored.
const DefaultCooldown = 300 * time.Millisecond

// RouteKind is the kind of page a route points at.
type RouteKind string

const (
	RouteHome       RouteKind = "home"
	RouteExperiment RouteKind = "experiment"
	RouteTrial      RouteKind = "trial"
)

// Route identifies a navigation target.
type Route struct {
	Kind RouteKind
	ID   int64
}

// ExperimentRoute returns the detail route of an experiment.
func ExperimentRoute(id int64) Route { return Route{Kind: RouteExperiment, ID: id} }

// TrialRoute returns the detail route of a trial.
func TrialRoute(id int64) Route { return Route{Kind: RouteTrial, ID: id} }

// Path returns the URL path of the route.
func (r Route) Path() string {
	switch r.Kind {
	case RouteExperiment:
		return fmt.Sprintf("/experiments/%d", r.ID)
	case RouteTrial:
		return fmt.Sprintf("/trials/%d", r.ID)
	default:
		return "/"
	}
}

// Filter is a predicate applied to an already rendered table.
type Filter struct {
	Field string
	Value string
}

// IsZero reports whether the filter is empty.
func (f Filter) IsZero() bool {
	return f.Field == ""
}

// Navigator performs route changes.
type Navigator interface {
	Navigate(ctx context.Context, route Route) error
}

// Table is a rendered table the bridge can drive.
type Table interface {
	HighlightRow(id string)
	ClearHighlight()
	ApplyFilter(f Filter)
}

// Selection is the interaction state shared between charts and tables.
type Selection struct {
	Hovered string
	Filter  Filter
	Last    Route
}

// Options configure a Bridge.
type Options struct {
	Cooldown time.Duration
	Now      func() time.Time
}

// Bridge routes chart events. It is safe for concurrent use.
type Bridge struct {
	nav   Navigator
	table Table
	opts  Options

	mu        sync.Mutex
	pending   bool
	lastRoute Route
	lastAt    time.Time
	selection Selection
}

// New creates a Bridge. table may be nil when no table is on the page.
func New(nav Navigator, table Table, opts Options) *Bridge {
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Bridge{nav: nav, table: table, opts: opts}
}

// ExperimentClicked navigates to the experiment's detail page.
func (b *Bridge) ExperimentClicked(ctx context.Context, id int64) (bool, error) {
	return b.navigate(ctx, ExperimentRoute(id))
}

// TrialClicked navigates to the trial's detail page.
func (b *Bridge) TrialClicked(ctx context.Context, id int64) (bool, error) {
	return b.navigate(ctx, TrialRoute(id))
}

// navigate runs at most one navigation at a time. Clicks arriving while one
// is in flight, or repeating the last route within the cooldown, are dropped.
// It reports whether the navigation was performed.
func (b *Bridge) navigate(ctx context.Context, route Route) (bool, error) {
	b.mu.Lock()
	now := b.opts.Now()
	if b.pending || (route == b.lastRoute && !b.lastAt.IsZero() && now.Sub(b.lastAt) < b.opts.Cooldown) {
		b.mu.Unlock()
		return false, nil
	}
	b.pending = true
	b.mu.Unlock()

	err := b.nav.Navigate(ctx, route)

	b.mu.Lock()
	b.pending = false
	if err == nil {
		b.lastRoute = route
		b.lastAt = b.opts.Now()
		b.selection.Last = route
	}
	b.mu.Unlock()

	if err != nil {
		return false, fmt.Errorf("failed to navigate to %s: %w", route.Path(), err)
	}
	return true, nil
}

// DayClicked filters the table to runs of one calendar day. Clicking the
// active day again clears the filter.
func (b *Bridge) DayClicked(date string) Filter {
	b.mu.Lock()
	f := Filter{Field: "date", Value: date}
	if b.selection.Filter == f {
		f = Filter{}
	}
	b.selection.Filter = f
	b.mu.Unlock()

	if b.table != nil {
		b.table.ApplyFilter(f)
	}
	return f
}

// Hovered mirrors a chart hover onto the table row with the same entity id.
func (b *Bridge) Hovered(id string, active bool) {
	b.mu.Lock()
	if active {
		b.selection.Hovered = id
	} else if b.selection.Hovered == id {
		b.selection.Hovered = ""
	} else {
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	if b.table == nil {
		return
	}
	if active {
		b.table.HighlightRow(id)
	} else {
		b.table.ClearHighlight()
	}
}

// Selection returns a copy of the current selection.
func (b *Bridge) Selection() Selection {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selection
}
