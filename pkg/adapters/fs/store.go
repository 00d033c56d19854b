// Package fs stores board documents on the local filesystem, below a vault
// root. Writes are atomic, syncs of one document are guarded by a lock file
// next to it, and a board can be committed when the vault is a git repository.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/sprintboard/pkg/core"
	"github.com/aretw0/sprintboard/pkg/git"
)

const (
	// DefaultLockTimeout bounds how long Lock waits for another process.
	DefaultLockTimeout = 30 * time.Second
	// DefaultStaleLock is the age after which a lock file is considered abandoned.
	DefaultStaleLock = 5 * time.Minute
)

// Config holds the configuration for the filesystem store.
type Config struct {
	Root        string
	ReadOnly    bool
	MustExist   bool
	LockTimeout time.Duration
	StaleLock   time.Duration
	Logger      *slog.Logger
}

// Store implements core.Store, core.Locker, core.Committer and core.Lister.
type Store struct {
	root   string
	git    *git.Client
	config Config
	logger *slog.Logger

	mu        sync.RWMutex
	reads     int
	writes    int
	commits   int
	heldLocks map[string]time.Time
	lastWrite *time.Time
}

var (
	_ core.Store     = (*Store)(nil)
	_ core.Locker    = (*Store)(nil)
	_ core.Committer = (*Store)(nil)
	_ core.Lister    = (*Store)(nil)
)

// NewStore creates a filesystem store rooted at cfg.Root.
func NewStore(cfg Config) *Store {
	if cfg.Root == "" {
		cfg.Root = "."
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = DefaultLockTimeout
	}
	if cfg.StaleLock <= 0 {
		cfg.StaleLock = DefaultStaleLock
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		root:      cfg.Root,
		git:       git.NewClient(cfg.Root, logger),
		config:    cfg,
		logger:    logger,
		heldLocks: make(map[string]time.Time),
	}
}

// Root returns the vault root directory.
func (s *Store) Root() string {
	return s.root
}

// Initialize checks or creates the vault directory.
func (s *Store) Initialize(ctx context.Context) error {
	if s.config.MustExist {
		info, err := os.Stat(s.root)
		if os.IsNotExist(err) {
			return core.Errorf(core.KindNotFound, "open vault", "vault path does not exist: %s", s.root)
		}
		if err != nil {
			return core.NewError(core.KindIO, "open vault", err)
		}
		if !info.IsDir() {
			return core.Errorf(core.KindIO, "open vault", "vault path is not a directory: %s", s.root)
		}
		return nil
	}
	if s.config.ReadOnly {
		return nil
	}
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return core.NewError(core.KindIO, "open vault", fmt.Errorf("failed to create vault directory: %w", err))
	}
	return nil
}

// resolve maps a slash path onto the vault, refusing paths that escape it.
func (s *Store) resolve(op, name string) (string, error) {
	clean := path.Clean("/" + filepath.ToSlash(name))
	if clean == "/" {
		return "", core.Errorf(core.KindIO, op, "empty document path")
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// Read returns the document text.
func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	full, err := s.resolve("read board", name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, core.NewError(core.KindIO, "read board", err)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, core.NewError(core.KindNotFound, "read board", err)
		}
		return nil, core.NewError(core.KindIO, "read board", err)
	}
	s.mu.Lock()
	s.reads++
	s.mu.Unlock()
	return data, nil
}

// Write replaces the document text atomically.
func (s *Store) Write(ctx context.Context, name string, data []byte) error {
	if s.config.ReadOnly {
		return core.NewError(core.KindIO, "write board", core.ErrReadOnly)
	}
	full, err := s.resolve("write board", name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return core.NewError(core.KindIO, "write board", err)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return core.NewError(core.KindIO, "write board", fmt.Errorf("failed to create directories: %w", err))
	}
	if err := writeFileAtomic(full, data, 0644); err != nil {
		return core.NewError(core.KindIO, "write board", err)
	}

	now := time.Now()
	s.mu.Lock()
	s.writes++
	s.lastWrite = &now
	s.mu.Unlock()
	s.logger.Debug("board written", "path", name, "bytes", len(data))
	return nil
}

// Commit records the document in git when the vault is a repository.
func (s *Store) Commit(ctx context.Context, name, message string) error {
	if !git.IsInstalled() {
		return core.Errorf(core.KindIO, "commit board", "git is not installed")
	}
	if !s.git.IsRepo(ctx) {
		return core.Errorf(core.KindIO, "commit board", "vault is not a git repository: %s", s.root)
	}
	if _, err := s.resolve("commit board", name); err != nil {
		return err
	}
	rel := strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(name)), "/")
	committed, err := s.git.CommitFiles(ctx, message, filepath.FromSlash(rel))
	if err != nil {
		return core.NewError(core.KindIO, "commit board", err)
	}
	if committed {
		s.mu.Lock()
		s.commits++
		s.mu.Unlock()
	}
	return nil
}

// List returns the slash paths of documents matching a doublestar pattern,
// skipping hidden files and directories.
func (s *Store) List(ctx context.Context, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, core.Errorf(core.KindIO, "list boards", "invalid pattern %q", pattern)
	}
	var out []string
	err := doublestar.GlobWalk(os.DirFS(s.root), pattern, func(p string, d fs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || isHidden(p) {
			return nil
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, core.NewError(core.KindIO, "list boards", err)
	}
	return out, nil
}

func isHidden(p string) bool {
	for _, part := range strings.Split(p, "/") {
		if strings.HasPrefix(part, ".") || strings.HasPrefix(part, TempFilePrefix) {
			return true
		}
	}
	return false
}
