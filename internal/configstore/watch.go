package configstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/zeebo/xxh3"

	"sheetpipe/internal/config"
)

// DefaultDebounce coalesces the bursts of filesystem events editors and
// atomic saves produce for a single logical change.
const DefaultDebounce = 250 * time.Millisecond

// Watch delivers a freshly loaded pipeline each time the named document
// changes on disk, until ctx is canceled.
//
// Events are debounced, and the file content is hashed so a rewrite with
// identical bytes does not re-fire. A change that fails to load (torn
// write, invalid JSON) is logged and skipped; the previous configuration
// stays in effect. The channel is closed on ctx cancellation.
func (s *Store) Watch(ctx context.Context, name string, debounce time.Duration, log *slog.Logger) (<-chan config.Pipeline, error) {
	if _, err := s.Path(name); err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = slog.Default()
	}

	// Baseline hash is taken before the watch starts: a save landing after
	// Watch returns must hash differently from the baseline, or its event
	// would be dropped as a same-bytes rewrite.
	var lastHash uint64
	if raw, err := os.ReadFile(mustPath(s, name)); err == nil {
		lastHash = xxh3.Hash(raw)
	}

	// Watch the directory, not the file: atomic saves replace the inode.
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("configstore: watcher: %w", err)
	}
	if err := w.Add(s.root); err != nil {
		w.Close()
		return nil, fmt.Errorf("configstore: watch %s: %w", s.root, err)
	}

	out := make(chan config.Pipeline, 1)
	go func() {
		defer close(out)
		defer w.Close()

		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Name != mustPath(s, name) {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(debounce)
					fire = timer.C
				} else {
					timer.Reset(debounce)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("config watch error", "doc", name, "err", err)
			case <-fire:
				timer = nil
				fire = nil
				raw, err := os.ReadFile(mustPath(s, name))
				if err != nil {
					log.Warn("config reload skipped", "doc", name, "err", err)
					continue
				}
				h := xxh3.Hash(raw)
				if h == lastHash {
					continue
				}
				p, err := s.Load(name)
				if err != nil {
					log.Warn("config reload skipped", "doc", name, "err", err)
					continue
				}
				lastHash = h
				log.Info("config reloaded", "doc", name)
				select {
				case out <- p:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// mustPath is safe after the Path check in Watch.
func mustPath(s *Store, name string) string {
	p, _ := s.Path(name)
	return p
}
