package schema

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc is called after every debounced reload attempt.
type ReloadFunc func(err error)

// Watcher reloads a Registry when files under a schemas directory change.
type Watcher struct {
	dir      string
	registry *Registry
	delay    time.Duration
	logger   *slog.Logger
	onReload ReloadFunc
}

// NewWatcher prepares a watcher for dir. A zero delay defaults to 250ms.
func NewWatcher(dir string, registry *Registry, delay time.Duration, logger *slog.Logger, onReload ReloadFunc) *Watcher {
	if delay <= 0 {
		delay = 250 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{dir: dir, registry: registry, delay: delay, logger: logger, onReload: onReload}
}

// Run blocks until ctx is cancelled, reloading the registry after each burst
// of file system events.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("schema: create watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addTree(fsw); err != nil {
		return err
	}

	var (
		timer   *time.Timer
		trigger <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ignored(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = fsw.Add(event.Name)
				}
			}
			if timer == nil {
				timer = time.NewTimer(w.delay)
			} else {
				timer.Reset(w.delay)
			}
			trigger = timer.C
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("schema watcher error", "error", err)
		case <-trigger:
			trigger = nil
			w.registry.Invalidate()
			reloadErr := w.registry.Reload(ctx)
			if reloadErr != nil {
				w.logger.Error("schema reload failed", "dir", w.dir, "error", reloadErr)
			} else {
				w.logger.Info("schemas reloaded", "dir", w.dir, "sections", len(w.registry.Summaries()))
			}
			if w.onReload != nil {
				w.onReload(reloadErr)
			}
		}
	}
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher) error {
	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("schema: watch %s: %w", w.dir, err)
	}
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("schema: read %s: %w", w.dir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if err := fsw.Add(filepath.Join(w.dir, entry.Name())); err != nil {
			return fmt.Errorf("schema: watch %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func ignored(name string) bool {
	base := filepath.Base(name)
	return strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp")
}
