// Package reporting persists sync run outcomes.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-slug"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-cms-sync/internal/identity"
	"github.com/goliatone/go-cms-sync/internal/logging"
	"github.com/goliatone/go-cms-sync/pkg/interfaces"
)

var ErrDatabaseRequired = errors.New("reporting: database not configured")

const defaultRunName = "sync run"

// Store records runs and their per-item results.
type Store struct {
	db      *bun.DB
	runs    repository.Repository[*RunRecord]
	results repository.Repository[*ResultRecord]
	now     func() time.Time
	logger  interfaces.Logger
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger overrides the store logger.
func WithLogger(logger interfaces.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore builds a Store on db.
func NewStore(db *bun.DB, opts ...StoreOption) *Store {
	s := &Store{
		db:     db,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logging.NoOp(),
	}
	if db != nil {
		s.runs = NewRunRepository(db)
		s.results = NewResultRepository(db)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// EnsureSchema creates the report tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s.db == nil {
		return ErrDatabaseRequired
	}
	for _, model := range []any{(*RunRecord)(nil), (*ResultRecord)(nil)} {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("reporting: create table: %w", err)
		}
	}
	return nil
}

// Start opens a run named name. The returned Run observes results as the
// orchestrator produces them.
func (s *Store) Start(ctx context.Context, name string) (*Run, error) {
	if s.db == nil {
		return nil, ErrDatabaseRequired
	}
	if strings.TrimSpace(name) == "" {
		name = defaultRunName
	}
	started := s.now()
	key := RunKey(name, started)
	record := &RunRecord{
		ID:        identity.RunUUID(key),
		Key:       key,
		Name:      name,
		Status:    StatusRunning,
		StartedAt: started,
	}
	created, err := s.runs.Create(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("reporting: create run: %w", err)
	}
	s.logger.Info("reporting.run.started", "run_id", created.ID, "run_key", key)
	return &Run{store: s, record: created}, nil
}

// Runs lists stored runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]*RunRecord, error) {
	if s.db == nil {
		return nil, ErrDatabaseRequired
	}
	records, _, err := s.runs.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("?TableAlias.started_at DESC")
		}),
	)
	return records, err
}

// Run fetches a run by id.
func (s *Store) Run(ctx context.Context, id uuid.UUID) (*RunRecord, error) {
	if s.db == nil {
		return nil, ErrDatabaseRequired
	}
	return s.runs.GetByID(ctx, id.String())
}

// Results lists the stored results of runID in the order they were observed.
func (s *Store) Results(ctx context.Context, runID uuid.UUID) ([]*ResultRecord, error) {
	if s.db == nil {
		return nil, ErrDatabaseRequired
	}
	records, _, err := s.results.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.run_id = ?", runID).
				OrderExpr("?TableAlias.position ASC")
		}),
	)
	return records, err
}

// RunKey derives the human readable key of a run from its name and start
// time, e.g. "nightly-import-20240314-150926".
func RunKey(name string, started time.Time) string {
	base, err := slug.Normalize(name)
	if err != nil || base == "" {
		base, _ = slug.Normalize(defaultRunName)
	}
	return base + "-" + started.UTC().Format("20060102-150405")
}

// Run is an open report. It is safe for concurrent use.
type Run struct {
	store    *Store
	record   *RunRecord
	mu       sync.Mutex
	position int
	summary  interfaces.SyncSummary
	lastErr  error
}

// ID returns the run id.
func (r *Run) ID() uuid.UUID {
	return r.record.ID
}

// Key returns the run key.
func (r *Run) Key() string {
	return r.record.Key
}

// ObserveResult stores result. Storage failures are logged and surfaced by
// Finish; they never interrupt the run. Results observed after cancellation
// are still written.
func (r *Run) ObserveResult(ctx context.Context, result interfaces.SyncResult) {
	ctx = context.WithoutCancel(ctx)
	r.mu.Lock()
	defer r.mu.Unlock()

	position := r.position
	r.position++
	r.summary.Total++
	if result.Success {
		r.summary.Succeeded++
	} else {
		r.summary.Failed++
	}

	record := &ResultRecord{
		ID:         identity.RunResultUUID(r.record.ID, position),
		RunID:      r.record.ID,
		Position:   position,
		SourcePath: result.SourcePath,
		TargetPath: result.TargetPath,
		Success:    result.Success,
		Message:    result.Message,
		Errors:     result.Errors,
		RecordedAt: r.store.now(),
	}
	if _, err := r.store.results.Create(ctx, record); err != nil {
		r.lastErr = err
		r.store.logger.Warn("reporting.result.store_failed", "run_id", r.record.ID, "source_path", result.SourcePath, "error", err)
	}
}

// Finish closes the run with the counts observed so far. runErr is the error
// SyncAll returned, if any. The record is written even when ctx is already
// cancelled.
func (r *Run) Finish(ctx context.Context, runErr error) (*RunRecord, error) {
	ctx = context.WithoutCancel(ctx)
	r.mu.Lock()
	defer r.mu.Unlock()

	finished := r.store.now()
	r.record.FinishedAt = &finished
	r.record.Total = r.summary.Total
	r.record.Succeeded = r.summary.Succeeded
	r.record.Failed = r.summary.Failed
	switch {
	case runErr == nil:
		r.record.Status = StatusCompleted
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		r.record.Status = StatusCancelled
		r.record.Error = runErr.Error()
	default:
		r.record.Status = StatusFailed
		r.record.Error = runErr.Error()
	}

	updated, err := r.store.runs.Update(ctx, r.record)
	if err != nil {
		return nil, fmt.Errorf("reporting: finish run: %w", err)
	}
	r.store.logger.Info("reporting.run.finished",
		"run_id", r.record.ID,
		"status", r.record.Status,
		"total", r.record.Total,
		"failed", r.record.Failed,
	)
	if r.lastErr != nil {
		return updated, fmt.Errorf("reporting: some results were not stored: %w", r.lastErr)
	}
	return updated, nil
}
