// Package watch re-triggers analysis when source files change. Events
// are debounced so editor save bursts collapse into one run.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"covimpact/internal/callgraph"
	"covimpact/internal/logging"
)

// Config controls the watcher.
type Config struct {
	// Root is the tree to watch
	Root string

	// Language narrows events to files the analysis would read
	Language callgraph.Language

	// Debounce is the quiet window before a change fires. Default 500ms.
	Debounce time.Duration

	// IgnoreDirs are directory names never descended into
	IgnoreDirs []string
}

// DefaultIgnoreDirs skips trees that churn without affecting analysis.
var DefaultIgnoreDirs = []string{".git", ".covimpact", "node_modules", "__pycache__", "vendor"}

// Watcher drives an on-change callback from filesystem events.
type Watcher struct {
	cfg    Config
	logger *logging.Logger
	fsw    *fsnotify.Watcher
}

// New creates a watcher over every directory under the root.
func New(cfg Config, logger *logging.Logger) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	if cfg.IgnoreDirs == nil {
		cfg.IgnoreDirs = DefaultIgnoreDirs
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{cfg: cfg, logger: logger, fsw: fsw}
	if err := w.addRecursive(cfg.Root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Close releases the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		for _, ignore := range w.cfg.IgnoreDirs {
			if d.Name() == ignore {
				return filepath.SkipDir
			}
		}
		return w.fsw.Add(p)
	})
}

// relevant filters events down to source files of the active language.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	ext := filepath.Ext(event.Name)
	for _, e := range w.cfg.Language.Extensions() {
		if ext == e {
			return true
		}
	}
	return false
}

// Run blocks, invoking onChange after each debounced burst of relevant
// events, until the context is cancelled.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			// New directories need watches of their own.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.addRecursive(event.Name)
					continue
				}
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("change detected", map[string]interface{}{
				"path": event.Name,
				"op":   event.Op.String(),
			})
			if timer == nil {
				timer = time.NewTimer(w.cfg.Debounce)
				timerC = timer.C
			} else {
				// Drain a tick that fired between the event arriving and
				// the Reset, or the stale tick would end the quiet window
				// early and fire onChange twice.
				if !timer.Stop() {
					select {
					case <-timerC:
					default:
					}
				}
				timer.Reset(w.cfg.Debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", map[string]interface{}{"error": err.Error()})

		case <-timerC:
			timer = nil
			timerC = nil
			onChange()
		}
	}
}
