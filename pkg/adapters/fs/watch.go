package fs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/sprintboard/pkg/core"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 250 * time.Millisecond

// Watch emits a trigger whenever one of files is written or re-created.
// Parent directories are watched so that editors replacing the file by
// rename are noticed. The channel is closed when ctx is done.
func Watch(ctx context.Context, files []string, debounce time.Duration, logger *slog.Logger) (<-chan core.Trigger, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	targets := make(map[string]bool, len(files))
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			_ = watcher.Close()
			return nil, err
		}
		targets[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	out := make(chan core.Trigger)
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(out)
		defer watcher.Close()
		return watchLoop(ctx, watcher, targets, debounce, logger, out)
	}, lifecycle.WithErrorHandler(func(err error) {
		logger.Error("watcher stopped", "error", err)
	}))
	return out, nil
}

func watchLoop(ctx context.Context, w *fsnotify.Watcher, targets map[string]bool, debounce time.Duration, logger *slog.Logger, out chan<- core.Trigger) error {
	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending string
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

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || !targets[name] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			logger.Debug("watched file changed", "path", name, "op", event.Op.String())
			pending = name
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			select {
			case out <- core.Trigger{Reason: "file changed", Path: pending, At: time.Now()}:
			case <-ctx.Done():
				return nil
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("fsnotify error", "error", err)
		}
	}
}
