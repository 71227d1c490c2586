package view

import (
	"sync"

	"github.com/emiliopalmerini/trialscope/internal/bridge"
)

// TableState is the row highlight and filter of the tables rendered next to
// the charts. It implements bridge.Table.
type TableState struct {
	mu          sync.Mutex
	highlighted string
	filter      bridge.Filter
}

func (t *TableState) HighlightRow(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.highlighted = id
}

func (t *TableState) ClearHighlight() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.highlighted = ""
}

func (t *TableState) ApplyFilter(f bridge.Filter) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.filter = f
}

// Highlighted returns the highlighted row id.
func (t *TableState) Highlighted() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.highlighted
}

// Filter returns the active filter.
func (t *TableState) Filter() bridge.Filter {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.filter
}

// Shows reports whether a row with value in field passes the filter.
func (t *TableState) Shows(field, value string) bool {
	f := t.Filter()
	return f.IsZero() || f.Field != field || f.Value == value
}
