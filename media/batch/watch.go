package batch

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/leeforge/thumbkit/errors"
	"github.com/leeforge/thumbkit/logging"
	"github.com/leeforge/thumbkit/media/processor"
)

// DefaultDebounce is the quiet period after the last change before a re-run.
const DefaultDebounce = 2 * time.Second

// RunFunc is one full pass. Errors are logged by the watcher and do not stop it.
type RunFunc func(ctx context.Context) error

// Watcher re-runs a pass whenever images in a directory change. Runs never
// overlap: events arriving during a run start a new quiet period afterwards.
type Watcher struct {
	dir      string
	debounce time.Duration
	run      RunFunc
	logger   logging.Logger

	// RunOnStart triggers a pass before the first event.
	RunOnStart bool
}

func NewWatcher(dir string, debounce time.Duration, run RunFunc, logger logging.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Watcher{
		dir:        dir,
		debounce:   debounce,
		run:        run,
		logger:     logger,
		RunOnStart: true,
	}
}

// Watch blocks until ctx is done. It returns nil on cancellation.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.NewInternal("failed to create watcher").WithInnerError(err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return errors.NewIO(w.dir, err)
	}
	w.logger.Info("watching", zap.String("dir", w.dir), zap.Duration("debounce", w.debounce))

	if w.RunOnStart {
		w.pass(ctx)
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			w.logger.Debug("change detected", zap.String("file", filepath.Base(event.Name)), zap.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))

		case <-fire:
			fire = nil
			w.pass(ctx)
		}
	}
}

func (w *Watcher) pass(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := w.run(ctx); err != nil {
		w.logger.Error("run failed", zap.Error(err))
	}
}

// relevant reports whether event may change the set of outputs.
func relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod || strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}
	return processor.IsSupported(event.Name)
}
