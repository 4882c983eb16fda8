package cmssync

import (
	"context"

	"github.com/goliatone/go-cms-sync/internal/di"
	"github.com/goliatone/go-cms-sync/internal/mapping"
	"github.com/goliatone/go-cms-sync/pkg/interfaces"
)

// SyncRequest describes one run.
type SyncRequest = interfaces.SyncRequest

// SyncReport is the outcome of a run.
type SyncReport = interfaces.SyncReport

// SyncResult is the outcome of one item.
type SyncResult = interfaces.SyncResult

// SyncOptions toggles hierarchy creation and component sync.
type SyncOptions = interfaces.SyncOptions

// MappingStats reports what the mapping index kept and dropped.
type MappingStats = mapping.BuildStats

// RemoteClient exports the destination content API contract.
type RemoteClient = interfaces.RemoteContentClient

// Module is the top level sync runtime façade.
type Module struct {
	container *di.Container
}

// New constructs a sync module using the provided configuration and optional DI overrides.
func New(cfg Config, opts ...di.Option) (*Module, error) {
	container, err := di.NewContainer(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// Sync runs the migration described by req.
func (m *Module) Sync(ctx context.Context, req SyncRequest) (SyncReport, error) {
	return m.container.Run(ctx, req)
}

// ValidateMappings loads the mapping table and reports index statistics.
func (m *Module) ValidateMappings(ctx context.Context) (MappingStats, error) {
	return m.container.ValidateMappings(ctx)
}

// Remote returns the configured content client.
func (m *Module) Remote() RemoteClient {
	return m.container.RemoteClient()
}

// Close releases resources the module opened.
func (m *Module) Close() error {
	return m.container.Close()
}
