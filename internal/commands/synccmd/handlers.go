package synccmd

import (
	"context"
	"errors"
	"fmt"

	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-cms-sync/internal/commands"
	"github.com/goliatone/go-cms-sync/internal/logging"
	"github.com/goliatone/go-cms-sync/internal/mapping"
	"github.com/goliatone/go-cms-sync/pkg/interfaces"
)

const (
	syncOperation             = "sync.run"
	validateMappingsOperation = "mappings.validate"
)

var (
	// ErrItemsFailed is returned when FailOnItemErrors is set and a run has failed items.
	ErrItemsFailed = errors.New("sync command: some items failed")
	// ErrMappingsRejected is returned by strict validation when rows were dropped.
	ErrMappingsRejected = errors.New("mappings command: table has blank or duplicate rows")
)

var (
	_ command.Commander[SyncCommand]             = (*SyncHandler)(nil)
	_ command.Commander[ValidateMappingsCommand] = (*ValidateMappingsHandler)(nil)
)

// Runner executes a sync run.
type Runner interface {
	Run(ctx context.Context, req interfaces.SyncRequest) (interfaces.SyncReport, error)
}

// MappingValidator loads the mapping table and reports index statistics.
type MappingValidator interface {
	ValidateMappings(ctx context.Context) (mapping.BuildStats, error)
}

// SyncHandler runs SyncCommand through the shared handler.
type SyncHandler struct {
	inner *commands.Handler[SyncCommand]
}

// NewSyncHandler binds runner. onReport, when set, receives every report,
// including partial ones from cancelled runs.
func NewSyncHandler(runner Runner, logger interfaces.Logger, onReport func(interfaces.SyncReport), opts ...commands.HandlerOption[SyncCommand]) *SyncHandler {
	if logger == nil {
		logger = logging.NoOp()
	}
	exec := func(ctx context.Context, msg SyncCommand) error {
		report, err := runner.Run(ctx, interfaces.SyncRequest{
			RootPath: msg.RootPath,
			RunName:  msg.RunName,
			Options: interfaces.SyncOptions{
				CreateMissing:  msg.CreateMissing,
				SyncComponents: msg.SyncComponents,
			},
		})
		if onReport != nil {
			onReport(report)
		}
		if err != nil {
			return err
		}
		logger.Info("sync.command.completed",
			"run_key", report.RunKey,
			"total", report.Summary.Total,
			"succeeded", report.Summary.Succeeded,
			"failed", report.Summary.Failed,
		)
		if msg.FailOnItemErrors && report.Summary.Failed > 0 {
			return fmt.Errorf("%w: %d of %d", ErrItemsFailed, report.Summary.Failed, report.Summary.Total)
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[SyncCommand]{
		commands.WithLogger[SyncCommand](logger),
		commands.WithOperation[SyncCommand](syncOperation),
		commands.WithTimeout[SyncCommand](0),
		commands.WithMessageFields(func(msg SyncCommand) map[string]any {
			return map[string]any{
				"root_path":       msg.RootPath,
				"create_missing":  msg.CreateMissing,
				"sync_components": msg.SyncComponents,
			}
		}),
	}
	handlerOpts = append(handlerOpts, opts...)
	return &SyncHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[SyncCommand].
func (h *SyncHandler) Execute(ctx context.Context, msg SyncCommand) error {
	return h.inner.Execute(ctx, msg)
}

// ValidateMappingsHandler runs ValidateMappingsCommand through the shared handler.
type ValidateMappingsHandler struct {
	inner *commands.Handler[ValidateMappingsCommand]
}

// NewValidateMappingsHandler binds validator. onStats, when set, receives the
// index statistics.
func NewValidateMappingsHandler(validator MappingValidator, logger interfaces.Logger, onStats func(mapping.BuildStats), opts ...commands.HandlerOption[ValidateMappingsCommand]) *ValidateMappingsHandler {
	if logger == nil {
		logger = logging.NoOp()
	}
	exec := func(ctx context.Context, msg ValidateMappingsCommand) error {
		stats, err := validator.ValidateMappings(ctx)
		if err != nil {
			return err
		}
		if onStats != nil {
			onStats(stats)
		}
		logger.Info("mappings.command.validated",
			"input", stats.Input,
			"kept", stats.Kept,
			"blank", stats.Blank,
			"duplicates", stats.Duplicates,
		)
		if msg.Strict && (stats.Blank > 0 || stats.Duplicates > 0) {
			return fmt.Errorf("%w: %d blank, %d duplicate", ErrMappingsRejected, stats.Blank, stats.Duplicates)
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[ValidateMappingsCommand]{
		commands.WithLogger[ValidateMappingsCommand](logger),
		commands.WithOperation[ValidateMappingsCommand](validateMappingsOperation),
	}
	handlerOpts = append(handlerOpts, opts...)
	return &ValidateMappingsHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[ValidateMappingsCommand].
func (h *ValidateMappingsHandler) Execute(ctx context.Context, msg ValidateMappingsCommand) error {
	return h.inner.Execute(ctx, msg)
}
