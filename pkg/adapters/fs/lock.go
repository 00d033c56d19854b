package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/sprintboard/pkg/core"
)

const lockPoll = 10 * time.Millisecond

// lockPath returns the lock file guarding a document: ".<name>.lock" in the
// document's directory.
func lockPath(full string) string {
	return filepath.Join(filepath.Dir(full), "."+filepath.Base(full)+".lock")
}

// Lock acquires the document's lock file. It blocks until the lock is held,
// the lock timeout elapses or ctx is done. A lock file older than the stale
// threshold is taken over.
func (s *Store) Lock(ctx context.Context, name string) (func(), error) {
	full, err := s.resolve("lock board", name)
	if err != nil {
		return nil, err
	}
	if s.config.ReadOnly {
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return nil, core.NewError(core.KindIO, "lock board", err)
	}
	lp := lockPath(full)

	ctx, cancel := context.WithTimeout(ctx, s.config.LockTimeout)
	defer cancel()

	for {
		f, err := os.OpenFile(lp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			s.trackLock(name, true)
			return func() {
				_ = os.Remove(lp)
				s.trackLock(name, false)
			}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, core.NewError(core.KindIO, "lock board", fmt.Errorf("failed to acquire lock: %w", err))
		}

		if info, statErr := os.Stat(lp); statErr == nil && time.Since(info.ModTime()) > s.config.StaleLock {
			s.logger.Warn("removing stale lock", "path", lp, "age", time.Since(info.ModTime()))
			_ = os.Remove(lp)
			continue
		}

		select {
		case <-ctx.Done():
			return nil, core.NewError(core.KindIO, "lock board", fmt.Errorf("%s is locked by another sync: %w", name, ctx.Err()))
		case <-time.After(lockPoll):
		}
	}
}

func (s *Store) trackLock(name string, held bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if held {
		s.heldLocks[name] = time.Now()
	} else {
		delete(s.heldLocks, name)
	}
}
