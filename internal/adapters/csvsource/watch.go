package csvsource

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// DefaultDebounce collapses the burst of events an editor or exporter
// produces when rewriting a file.
const DefaultDebounce = 250 * time.Millisecond

// Watch calls onChange once per burst of writes to any of the three files,
// until ctx is done.
func (s *Source) Watch(ctx context.Context, onChange func()) error {
	return s.WatchWithDelay(ctx, DefaultDebounce, onChange)
}

// WatchWithDelay is Watch with an explicit debounce delay.
func (s *Source) WatchWithDelay(ctx context.Context, delay time.Duration, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory so files replaced by rename are still seen.
	if err := watcher.Add(s.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.Dir, err)
	}

	debounced := debounce.New(delay)
	watched := map[string]bool{ExperimentsFile: true, TrialsFile: true, RunsFile: true}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Base(ev.Name)] {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
				log.WithFields(log.Fields{"file": ev.Name, "op": ev.Op.String()}).Debug("data file changed")
				debounced(onChange)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("file watcher error")
		}
	}
}
