// Package dataset holds the current RecordSet and rebuilds it from a source.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/emiliopalmerini/trialscope/internal/adapters/otel"
	"github.com/emiliopalmerini/trialscope/internal/ports"
	"github.com/emiliopalmerini/trialscope/internal/recordset"
)

// Status describes the last reload.
type Status struct {
	Source   string          `json:"source"`
	Loaded   bool            `json:"loaded"`
	LoadedAt *time.Time      `json:"loaded_at"`
	Stats    recordset.Stats `json:"stats"`
	Dropped  int             `json:"dropped"`
	Error    string          `json:"error,omitempty"`
}

// Store swaps whole RecordSets atomically; readers never see a partial one.
type Store struct {
	source  ports.RecordSource
	metrics ports.MetricsExporter
	now     func() time.Time

	current atomic.Pointer[recordset.RecordSet]

	reloadMu sync.Mutex
	statusMu sync.RWMutex
	status   Status
}

// Option configures a Store.
type Option func(*Store)

// WithMetrics records every reload on m.
func WithMetrics(m ports.MetricsExporter) Option {
	return func(s *Store) { s.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a Store serving an empty RecordSet until the first Reload.
func NewStore(source ports.RecordSource, opts ...Option) *Store {
	s := &Store{
		source:  source,
		metrics: otel.NewNoOpExporter(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(recordset.Empty())
	s.status.Source = source.Describe()
	return s
}

// Current returns the RecordSet in effect.
func (s *Store) Current() *recordset.RecordSet {
	return s.current.Load()
}

// Status returns a copy of the last reload status.
func (s *Store) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// Reload rebuilds the RecordSet from the source. On failure the previous set
// stays in effect.
func (s *Store) Reload(ctx context.Context) (recordset.Stats, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := s.now()
	raw, err := s.source.Load(ctx)
	if err != nil {
		err = fmt.Errorf("failed to load records from %s: %w", s.source.Describe(), err)
		s.statusMu.Lock()
		s.status.Error = err.Error()
		s.statusMu.Unlock()
		s.metrics.RecordReload(ctx, ports.ReloadMetrics{Source: s.source.Describe(), Duration: s.now().Sub(start), Err: err})
		return recordset.Stats{}, err
	}

	rs := recordset.Build(raw)
	s.current.Store(rs)
	stats := rs.Stats()
	loadedAt := s.now()

	s.statusMu.Lock()
	s.status = Status{
		Source:   s.source.Describe(),
		Loaded:   true,
		LoadedAt: &loadedAt,
		Stats:    stats,
		Dropped:  stats.Dropped(),
	}
	s.statusMu.Unlock()

	s.metrics.RecordReload(ctx, ports.ReloadMetrics{
		Source:      s.source.Describe(),
		Experiments: stats.Experiments,
		Trials:      stats.Trials,
		Runs:        stats.Runs,
		Dropped:     stats.Dropped(),
		Invalid:     stats.Invalid,
		Duration:    loadedAt.Sub(start),
	})

	log.WithFields(log.Fields{
		"source":      s.source.Describe(),
		"experiments": stats.Experiments,
		"trials":      stats.Trials,
		"runs":        stats.Runs,
		"dropped":     stats.Dropped(),
		"invalid":     stats.Invalid,
		"duration":    loadedAt.Sub(start).String(),
	}).Info("record set loaded")

	return stats, nil
}

// Watch reloads whenever the source reports a change, until ctx is done.
// It returns immediately when the source cannot be watched.
func (s *Store) Watch(ctx context.Context) error {
	ws, ok := s.source.(ports.WatchableSource)
	if !ok {
		return nil
	}
	err := ws.Watch(ctx, func() {
		if _, err := s.Reload(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Warn("reload after change failed, keeping previous records")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.source.Describe(), err)
	}
	return nil
}
