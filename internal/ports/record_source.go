package ports

import (
	"context"

	"github.com/emiliopalmerini/trialscope/internal/domain"
)

// RecordSource loads the raw experiment, trial and run tables.
type RecordSource interface {
	// Load reads every raw record. Malformed fields are passed through as
	// text; normalisation happens when the RecordSet is built.
	Load(ctx context.Context) (domain.RawData, error)
	// Describe returns a human-readable location of the source.
	Describe() string
}

// WatchableSource is a RecordSource that can report changes.
type WatchableSource interface {
	RecordSource
	// Watch calls onChange after the underlying data changed, until ctx is done.
	Watch(ctx context.Context, onChange func()) error
}
