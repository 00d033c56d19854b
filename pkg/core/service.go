package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/google/uuid"
)

// Report summarises one sync run.
type Report struct {
	RunID    string        `json:"run_id"`
	Backend  string        `json:"backend"`
	Path     string        `json:"path"`
	Sprint   string        `json:"sprint"`
	Items    int           `json:"items"`
	Stats    Stats         `json:"stats"`
	Created  bool          `json:"created"`
	Written  bool          `json:"written"`
	DryRun   bool          `json:"dry_run"`
	Duration time.Duration `json:"duration"`
	Document []byte        `json:"-"`
}

// Service is the sync orchestrator: it resolves the backend, fetches the
// current sprint, reconciles it into the board document and writes it back.
//
// At most one sync per document runs at a time; a second call for the same
// document waits for the first to finish.
type Service struct {
	registry *Registry
	store    Store
	codec    Codec
	logger   *slog.Logger

	locks sync.Map // document path -> *sync.Mutex

	mu       sync.RWMutex
	inFlight int
	runs     int
	last     *RunSummary
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the service logger.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a Service.
func NewService(registry *Registry, store Store, codec Codec, opts ...ServiceOption) *Service {
	s := &Service{
		registry: registry,
		store:    store,
		codec:    codec,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the backend registry the service resolves drivers from.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Store returns the document store the service writes boards to.
func (s *Service) Store() Store {
	return s.store
}

// RunSync performs one sync. On any failure the document on disk is left
// untouched.
func (s *Service) RunSync(ctx context.Context, settings Settings) (*Report, error) {
	return s.run(ctx, settings, false)
}

// Preview computes the board a sync would write without writing it.
// The rendered text is returned in Report.Document.
func (s *Service) Preview(ctx context.Context, settings Settings) (*Report, error) {
	return s.run(ctx, settings, true)
}

// Result is delivered by RunSyncAsync.
type Result struct {
	Report *Report
	Err    error
}

// RunSyncAsync starts a sync and delivers its outcome on the returned channel,
// which receives exactly one value.
func (s *Service) RunSyncAsync(ctx context.Context, settings Settings) <-chan Result {
	out := make(chan Result, 1)
	var once sync.Once
	deliver := func(r Result) {
		once.Do(func() { out <- r })
	}

	lifecycle.Go(ctx, func(ctx context.Context) (err error) {
		defer func() {
			if recovered := recover(); recovered != nil {
				err = fmt.Errorf("sync panic: %v", recovered)
				deliver(Result{Err: err})
			}
		}()
		report, err := s.RunSync(ctx, settings)
		deliver(Result{Report: report, Err: err})
		return err
	}, lifecycle.WithErrorHandler(func(err error) {
		s.logger.Error("async sync failed", "error", err)
		deliver(Result{Err: err})
	}))

	return out
}

// Load reads and parses the current board document for the settings.
// A missing document yields an empty board.
func (s *Service) Load(ctx context.Context, settings Settings) (*Board, error) {
	path := BoardPath(settings)
	data, err := s.store.Read(ctx, path)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return NewBoard(), nil
		}
		return nil, err
	}
	return s.codec.Parse(data)
}

func (s *Service) run(ctx context.Context, settings Settings, dryRun bool) (report *Report, err error) {
	started := time.Now()
	report = &Report{
		RunID:   uuid.NewString(),
		Backend: settings.Backend,
		Path:    BoardPath(settings),
		DryRun:  dryRun,
	}
	logger := s.logger.With("run_id", report.RunID, "backend", settings.Backend, "path", report.Path)

	s.begin()
	defer func() {
		report.Duration = time.Since(started)
		s.finish(report, err)
		if err != nil {
			logger.Error("sync failed", "kind", KindOf(err), "error", err)
		}
	}()

	backend, err := s.registry.Lookup(settings.Backend)
	if err != nil {
		return report, err
	}
	if err := ValidateSettings(backend.Name(), backend.DescribeSettings(), settings); err != nil {
		return report, err
	}

	unlock, err := s.lock(ctx, report.Path)
	if err != nil {
		return report, err
	}
	defer unlock()

	logger.Debug("reading board")
	prevText, err := s.store.Read(ctx, report.Path)
	switch {
	case errors.Is(err, ErrNotFound):
		report.Created = true
		prevText = nil
	case err != nil:
		return report, err
	}

	logger.Debug("fetching current sprint")
	sprint, err := backend.FetchCurrentSprint(ctx, settings)
	if err != nil {
		return report, err
	}
	report.Sprint = sprint.Name
	report.Items = len(sprint.Items)

	prev, err := s.codec.Parse(prevText)
	if err != nil {
		return report, err
	}

	next, stats := Reconcile(prev, sprint)
	report.Stats = stats

	text, err := s.codec.Serialize(next)
	if err != nil {
		return report, NewError(KindIO, "serialize board", err)
	}
	report.Document = text

	if dryRun {
		logger.Info("sync previewed", "sprint", sprint.Name, "items", len(sprint.Items))
		return report, nil
	}

	if !report.Created && bytes.Equal(prevText, text) {
		logger.Info("board already up to date", "sprint", sprint.Name, "items", len(sprint.Items))
		return report, nil
	}

	if err := s.store.Write(ctx, report.Path, text); err != nil {
		return report, err
	}
	report.Written = true

	if settings.Commit {
		if c, ok := s.store.(Committer); ok {
			if err := c.Commit(ctx, report.Path, CommitMessage(report.Path, sprint.Name, stats)); err != nil {
				logger.Warn("board written but not committed", "error", err)
			}
		}
	}

	logger.Info("sync completed",
		"sprint", sprint.Name,
		"items", len(sprint.Items),
		"added", stats.Added,
		"moved", stats.Moved,
		"removed", stats.Removed,
	)
	return report, nil
}

// lock serialises syncs of one document, in-process and, when the store
// supports it, across processes.
func (s *Service) lock(ctx context.Context, path string) (func(), error) {
	v, _ := s.locks.LoadOrStore(path, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()

	locker, ok := s.store.(Locker)
	if !ok {
		return mu.Unlock, nil
	}
	release, err := locker.Lock(ctx, path)
	if err != nil {
		mu.Unlock()
		return nil, err
	}
	return func() {
		release()
		mu.Unlock()
	}, nil
}

// RunSummary is the last outcome kept for introspection.
type RunSummary struct {
	RunID    string    `json:"run_id"`
	Backend  string    `json:"backend"`
	Path     string    `json:"path"`
	Sprint   string    `json:"sprint,omitempty"`
	Written  bool      `json:"written"`
	Kind     Kind      `json:"error_kind,omitempty"`
	Error    string    `json:"error,omitempty"`
	Finished time.Time `json:"finished"`
}

func (s *Service) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight++
}

func (s *Service) finish(r *Report, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
	s.runs++
	sum := &RunSummary{
		RunID:    r.RunID,
		Backend:  r.Backend,
		Path:     r.Path,
		Sprint:   r.Sprint,
		Written:  r.Written,
		Finished: time.Now(),
	}
	if err != nil {
		sum.Kind = KindOf(err)
		sum.Error = err.Error()
	}
	s.last = sum
}
