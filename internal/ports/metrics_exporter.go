package ports

import (
	"context"
	"time"
)

// MetricsExporter exports service metrics to an external observability system.
type MetricsExporter interface {
	// RecordRequest records one served HTTP request.
	RecordRequest(ctx context.Context, m RequestMetrics)
	// RecordReload records one rebuild of the in-memory record set.
	RecordReload(ctx context.Context, m ReloadMetrics)
	// Close shuts down the exporter and flushes any pending metrics.
	Close(ctx context.Context) error
}

// RequestMetrics describes a served HTTP request.
type RequestMetrics struct {
	Route    string
	Method   string
	Status   int
	Duration time.Duration
}

// ReloadMetrics describes a record set rebuild.
type ReloadMetrics struct {
	Source      string
	Experiments int
	Trials      int
	Runs        int
	Dropped     int
	Invalid     int
	Duration    time.Duration
	Err         error
}
