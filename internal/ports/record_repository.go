package ports

import (
	"context"

	"github.com/emiliopalmerini/trialscope/internal/domain"
)

// RecordRepository persists raw records in the database.
type RecordRepository interface {
	RecordSource
	// ReplaceAll swaps the stored tables for raw in one transaction.
	ReplaceAll(ctx context.Context, raw domain.RawData) error
	// Counts returns the number of stored experiments, trials and runs.
	Counts(ctx context.Context) (experiments, trials, runs int64, err error)
}
