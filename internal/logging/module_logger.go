package logging

import (
	"context"

	"github.com/goliatone/go-cms-sync/pkg/interfaces"
)

const (
	rootModule      = "cmssync"
	remoteModule    = "cmssync.remote"
	hierarchyModule = "cmssync.hierarchy"
	syncerModule    = "cmssync.syncer"
	mappingModule   = "cmssync.mapping"
	sourcesModule   = "cmssync.sources"
	reportingModule = "cmssync.reporting"
)

// ModuleLogger returns a module-scoped logger, defaulting to a no-op
// implementation when no provider is supplied. The module identifier is
// attached as a structured field.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	return WithFields(logger, map[string]any{"module": module})
}

// RemoteLogger returns the logger namespace reserved for the remote content client.
func RemoteLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, remoteModule)
}

// HierarchyLogger returns the logger namespace reserved for path creation.
func HierarchyLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, hierarchyModule)
}

// SyncerLogger returns the logger namespace reserved for the orchestrator.
func SyncerLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, syncerModule)
}

// MappingLogger returns the logger namespace reserved for mapping loaders.
func MappingLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, mappingModule)
}

// SourcesLogger returns the logger namespace reserved for source item providers.
func SourcesLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, sourcesModule)
}

// ReportingLogger returns the logger namespace reserved for run reports.
func ReportingLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, reportingModule)
}

// NoOp returns a logger that drops every log entry. It satisfies the Logger
// contract so components can operate when logging is disabled.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) interfaces.Logger {
	return n
}
