package otel

import (
	"context"

	"github.com/emiliopalmerini/trialscope/internal/ports"
)

// NoOpExporter is a metrics exporter that does nothing.
type NoOpExporter struct{}

// NewNoOpExporter creates a new no-op exporter for graceful degradation.
func NewNoOpExporter() *NoOpExporter {
	return &NoOpExporter{}
}

func (e *NoOpExporter) RecordRequest(ctx context.Context, m ports.RequestMetrics) {}

func (e *NoOpExporter) RecordReload(ctx context.Context, m ports.ReloadMetrics) {}

func (e *NoOpExporter) Close(ctx context.Context) error {
	return nil
}
