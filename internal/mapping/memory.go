package mapping

import (
	"context"
	"slices"
	"sync"

	"github.com/goliatone/go-cms-sync/pkg/interfaces"
)

// MemorySource serves mapping rows held in memory.
type MemorySource struct {
	mu   sync.RWMutex
	rows []interfaces.Mapping
}

var _ interfaces.MappingSource = (*MemorySource)(nil)

// NewMemorySource copies rows into a new source.
func NewMemorySource(rows ...interfaces.Mapping) *MemorySource {
	return &MemorySource{rows: slices.Clone(rows)}
}

// Append adds rows after the existing ones.
func (s *MemorySource) Append(rows ...interfaces.Mapping) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
}

// LoadMappings returns a copy of the stored rows in insertion order.
func (s *MemorySource) LoadMappings(ctx context.Context) ([]interfaces.Mapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.rows), nil
}
