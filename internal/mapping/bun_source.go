package mapping

import (
	"context"
	"errors"
	"fmt"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	repositorycache "github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-cms-sync/internal/identity"
	"github.com/goliatone/go-cms-sync/pkg/interfaces"
)

var ErrDatabaseRequired = errors.New("mapping: database not configured")

// Record is the stored form of a mapping row. Position preserves the order
// rows were imported in so first-occurrence dedup stays stable.
type Record struct {
	bun.BaseModel `bun:"table:sync_mappings,alias:sm"`

	ID         uuid.UUID `bun:",pk,type:uuid" json:"id"`
	Position   int       `bun:"position,notnull" json:"position"`
	SourcePath string    `bun:"source_path,notnull" json:"source_path"`
	TargetPath string    `bun:"target_path,notnull" json:"target_path"`
	TemplateID string    `bun:"template_id" json:"template_id,omitempty"`
	CreatedAt  time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
}

// NewRecordRepository builds the go-repository-bun repository for mapping rows.
func NewRecordRepository(db *bun.DB) repository.Repository[*Record] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Record]{
		NewRecord: func() *Record { return &Record{} },
		GetID: func(r *Record) uuid.UUID {
			return r.ID
		},
		SetID: func(r *Record, id uuid.UUID) {
			r.ID = id
		},
		GetIdentifier: func() string {
			return "source_path"
		},
		GetIdentifierValue: func(r *Record) string {
			return r.SourcePath
		},
	})
}

// BunSource stores mapping rows in a database table.
type BunSource struct {
	db   *bun.DB
	repo repository.Repository[*Record]
}

var _ interfaces.MappingSource = (*BunSource)(nil)

// NewBunSource constructs a BunSource without caching.
func NewBunSource(db *bun.DB) *BunSource {
	return NewBunSourceWithCache(db, nil, nil)
}

// NewBunSourceWithCache constructs a BunSource whose reads go through
// go-repository-cache when both cache arguments are provided.
func NewBunSourceWithCache(db *bun.DB, cacheService cache.CacheService, keySerializer cache.KeySerializer) *BunSource {
	return &BunSource{
		db:   db,
		repo: wrapWithCache(NewRecordRepository(db), cacheService, keySerializer),
	}
}

// EnsureSchema creates the mapping table when it does not exist.
func (s *BunSource) EnsureSchema(ctx context.Context) error {
	if s.db == nil {
		return ErrDatabaseRequired
	}
	_, err := s.db.NewCreateTable().Model((*Record)(nil)).IfNotExists().Exec(ctx)
	return err
}

// LoadMappings returns every stored row ordered by import position.
func (s *BunSource) LoadMappings(ctx context.Context) ([]interfaces.Mapping, error) {
	records, _, err := s.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("position ASC")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("mapping repository error: %w", err)
	}
	out := make([]interfaces.Mapping, 0, len(records))
	for _, record := range records {
		out = append(out, interfaces.Mapping{
			SourcePath: record.SourcePath,
			TargetPath: record.TargetPath,
			TemplateID: record.TemplateID,
		})
	}
	return out, nil
}

// Replace swaps the stored rows for rows inside one transaction. Duplicates
// are stored as given; the index decides which occurrence wins.
func (s *BunSource) Replace(ctx context.Context, rows []interfaces.Mapping) error {
	if s.db == nil {
		return ErrDatabaseRequired
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*Record)(nil)).
			Where("1 = 1").
			Exec(ctx); err != nil {
			return fmt.Errorf("delete mappings: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}

		now := time.Now().UTC()
		records := make([]*Record, 0, len(rows))
		for i, row := range rows {
			records = append(records, &Record{
				ID:         identity.MappingUUID(i, row.SourcePath),
				Position:   i,
				SourcePath: row.SourcePath,
				TargetPath: row.TargetPath,
				TemplateID: row.TemplateID,
				CreatedAt:  now,
			})
		}
		if _, err := tx.NewInsert().Model(&records).Exec(ctx); err != nil {
			return fmt.Errorf("insert mappings: %w", err)
		}
		return nil
	})
}

func wrapWithCache[T any](base repository.Repository[T], cacheService cache.CacheService, keySerializer cache.KeySerializer) repository.Repository[T] {
	if cacheService == nil || keySerializer == nil {
		return base
	}
	return repositorycache.New(base, cacheService, keySerializer)
}
