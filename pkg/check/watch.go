package check

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/macropower/presubmit/pkg/log"
	"github.com/macropower/presubmit/pkg/rule"
)

// DefaultDebounce is how long [Runner.Watch] waits for events to settle
// before re-running.
const DefaultDebounce = 200 * time.Millisecond

// ReportFunc receives the outcome of each run started by [Runner.Watch].
type ReportFunc func(report *Report, err error)

// WatchOpt configures [Runner.Watch].
type WatchOpt func(*watchOptions)

type watchOptions struct {
	debounce time.Duration
}

// WithDebounce sets the quiet period between the last event and a re-run.
func WithDebounce(d time.Duration) WatchOpt {
	return func(o *watchOptions) {
		o.debounce = d
	}
}

// Watch runs the checks on the directory root, then re-runs them whenever a
// file under root changes, until ctx is done. Every run checks the whole tree.
// Directories exempt from every rule are not watched.
func (r *Runner) Watch(ctx context.Context, root string, fn ReportFunc, opts ...WatchOpt) error {
	options := &watchOptions{debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(options)
	}

	logger := log.WithContext(ctx)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	defer func() {
		err := w.Close()
		if err != nil {
			logger.Error("close watcher", slog.Any("error", err))
		}
	}()

	err = addTree(w, root)
	if err != nil {
		return err
	}

	fsys := os.DirFS(root)

	fn(r.Run(ctx, fsys))

	timer := time.NewTimer(options.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}

			logger.Debug("file event",
				slog.String("path", event.Name),
				slog.String("op", event.Op.String()),
			)

			if event.Has(fsnotify.Create) {
				info, statErr := os.Stat(event.Name)
				if statErr == nil && info.IsDir() {
					err := addTree(w, root, event.Name)
					if err != nil {
						logger.Warn("watch new directory", slog.Any("error", err))
					}
				}
			}

			timer.Reset(options.debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}

			logger.Warn("watch error", slog.Any("error", err))

		case <-timer.C:
			fn(r.Run(ctx, fsys))
		}
	}
}

// addTree adds every directory under start (default root) to w, skipping
// directories that match the baseline exemptions.
func addTree(w *fsnotify.Watcher, root string, start ...string) error {
	dir := root
	if len(start) > 0 {
		dir = start[0]
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}

			return err
		}

		if !d.IsDir() {
			return nil
		}

		if path != root && exemptDir(root, path) {
			return fs.SkipDir
		}

		return w.Add(path) //nolint:wrapcheck // Wrapped below.
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	return nil
}

func exemptDir(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}

	match := rule.MatchPath(filepath.ToSlash(rel)) + "/"
	for _, ex := range rule.BaselineExemptions() {
		if strings.Contains(match, ex) {
			return true
		}
	}

	return false
}
