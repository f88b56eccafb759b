package ipc

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"launcher/internal/logx"
)

const watchDebounce = 200 * time.Millisecond

// Watch calls onChange whenever entries are created, removed or renamed in
// dir, coalescing bursts. It blocks until ctx is done.
func Watch(ctx context.Context, dir string, logger logx.Logger, onChange func()) error {
	logger = logx.OrDiscard(logger)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("prepare %s: %w", dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			logger.Printf("watch %s: %s", dir, ev)
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			timerC = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Printf("watch %s: %v", dir, err)
		case <-timerC:
			timerC = nil
			onChange()
		}
	}
}

// WatchLocalApps broadcasts EventLocalAppsChanged when the local apps
// directory changes.
func (s *Server) WatchLocalApps(ctx context.Context, dir string) error {
	return Watch(ctx, dir, s.Logger, func() {
		s.Broadcast(EventLocalAppsChanged, nil)
	})
}
