package reporting

import (
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RunRecord summarises one sync run.
type RunRecord struct {
	bun.BaseModel `bun:"table:sync_runs,alias:sr"`

	ID         uuid.UUID  `bun:",pk,type:uuid" json:"id"`
	Key        string     `bun:"key,notnull,unique" json:"key"`
	Name       string     `bun:"name" json:"name"`
	Status     string     `bun:"status,notnull" json:"status"`
	Total      int        `bun:"total" json:"total"`
	Succeeded  int        `bun:"succeeded" json:"succeeded"`
	Failed     int        `bun:"failed" json:"failed"`
	Error      string     `bun:"error" json:"error,omitempty"`
	StartedAt  time.Time  `bun:"started_at,notnull" json:"started_at"`
	FinishedAt *time.Time `bun:"finished_at" json:"finished_at,omitempty"`
}

// ResultRecord stores one item outcome of a run.
type ResultRecord struct {
	bun.BaseModel `bun:"table:sync_run_results,alias:srr"`

	ID         uuid.UUID `bun:",pk,type:uuid" json:"id"`
	RunID      uuid.UUID `bun:"run_id,notnull,type:uuid" json:"run_id"`
	Position   int       `bun:"position,notnull" json:"position"`
	SourcePath string    `bun:"source_path,notnull" json:"source_path"`
	TargetPath string    `bun:"target_path" json:"target_path,omitempty"`
	Success    bool      `bun:"success,notnull" json:"success"`
	Message    string    `bun:"message" json:"message,omitempty"`
	Errors     []string  `bun:"errors,type:jsonb,nullzero" json:"errors,omitempty"`
	RecordedAt time.Time `bun:"recorded_at,notnull" json:"recorded_at"`
}

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// NewRunRepository builds the go-repository-bun repository for runs.
func NewRunRepository(db *bun.DB) repository.Repository[*RunRecord] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*RunRecord]{
		NewRecord: func() *RunRecord { return &RunRecord{} },
		GetID: func(r *RunRecord) uuid.UUID {
			return r.ID
		},
		SetID: func(r *RunRecord, id uuid.UUID) {
			r.ID = id
		},
		GetIdentifier: func() string {
			return "key"
		},
		GetIdentifierValue: func(r *RunRecord) string {
			return r.Key
		},
	})
}

// NewResultRepository builds the go-repository-bun repository for run results.
func NewResultRepository(db *bun.DB) repository.Repository[*ResultRecord] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*ResultRecord]{
		NewRecord: func() *ResultRecord { return &ResultRecord{} },
		GetID: func(r *ResultRecord) uuid.UUID {
			return r.ID
		},
		SetID: func(r *ResultRecord, id uuid.UUID) {
			r.ID = id
		},
		GetIdentifier: func() string {
			return "source_path"
		},
		GetIdentifierValue: func(r *ResultRecord) string {
			return r.SourcePath
		},
	})
}
