package mapping

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-cms-sync/internal/logging"
	"github.com/goliatone/go-cms-sync/internal/paths"
	"github.com/goliatone/go-cms-sync/pkg/interfaces"
)

var ErrSourceRequired = errors.New("mapping: source is required")

// Loader reads rows from a MappingSource, normalizes both sides of every
// row and builds an Index.
type Loader struct {
	source  interfaces.MappingSource
	sources *paths.Normalizer
	targets *paths.Normalizer
	logger  interfaces.Logger
}

// LoaderOption customises a Loader.
type LoaderOption func(*Loader)

// WithSourceNormalizer normalizes legacy source paths before indexing.
func WithSourceNormalizer(n *paths.Normalizer) LoaderOption {
	return func(l *Loader) {
		l.sources = n
	}
}

// WithTargetNormalizer normalizes destination paths before indexing.
func WithTargetNormalizer(n *paths.Normalizer) LoaderOption {
	return func(l *Loader) {
		l.targets = n
	}
}

// WithLogger overrides the loader logger.
func WithLogger(logger interfaces.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader builds a Loader over source.
func NewLoader(source interfaces.MappingSource, opts ...LoaderOption) *Loader {
	l := &Loader{
		source: source,
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads every row and returns the resulting index.
func (l *Loader) Load(ctx context.Context) (*Index, error) {
	if l == nil || l.source == nil {
		return nil, ErrSourceRequired
	}
	started := time.Now()

	rows, err := l.source.LoadMappings(ctx)
	if err != nil {
		l.logger.Error("mapping.load.failed", "error", err)
		return nil, err
	}

	normalized := make([]interfaces.Mapping, 0, len(rows))
	for _, row := range rows {
		normalized = append(normalized, l.normalize(row))
	}

	idx := Build(normalized)
	stats := idx.Stats()
	l.logger.Info("mapping.load.completed",
		"input", stats.Input,
		"kept", stats.Kept,
		"blank", stats.Blank,
		"duplicates", stats.Duplicates,
		"elapsed", time.Since(started),
	)
	for _, source := range stats.DuplicateSources {
		l.logger.Warn("mapping.load.duplicate_source", "source_path", source)
	}
	return idx, nil
}

func (l *Loader) normalize(row interfaces.Mapping) interfaces.Mapping {
	if l.sources != nil {
		row.SourcePath = l.sources.Normalize(row.SourcePath, row.TemplateID)
	}
	if l.targets != nil {
		row.TargetPath = l.targets.Normalize(row.TargetPath, row.TemplateID)
	}
	return row
}
