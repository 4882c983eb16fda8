package logging

import (
	"context"
	"maps"
	"strings"

	"github.com/goliatone/go-cms-sync/pkg/interfaces"
)

const (
	fieldSourcePath = "source_path"
	fieldTargetPath = "target_path"
	fieldRunKey     = "run_key"
)

type runFieldsKey struct{}

// WithFields attaches fields when logger implements interfaces.FieldsLogger
// and returns logger unchanged otherwise.
func WithFields(logger interfaces.Logger, fields map[string]any) interfaces.Logger {
	if logger == nil || len(fields) == 0 {
		return logger
	}
	fieldsLogger, ok := logger.(interfaces.FieldsLogger)
	if !ok {
		return logger
	}
	return fieldsLogger.WithFields(maps.Clone(fields))
}

// WithItemContext enriches logger with the source and target paths of the
// item being synced. Empty values are ignored.
func WithItemContext(logger interfaces.Logger, sourcePath, targetPath string) interfaces.Logger {
	fields := map[string]any{}
	if trimmed := strings.TrimSpace(sourcePath); trimmed != "" {
		fields[fieldSourcePath] = trimmed
	}
	if trimmed := strings.TrimSpace(targetPath); trimmed != "" {
		fields[fieldTargetPath] = trimmed
	}
	return WithFields(logger, fields)
}

// ContextWithRun tags ctx with the key of the sync run it belongs to.
// Loggers bound through WithContext add it to every entry.
func ContextWithRun(ctx context.Context, runKey string) context.Context {
	runKey = strings.TrimSpace(runKey)
	if ctx == nil || runKey == "" {
		return ctx
	}
	return ContextWithFields(ctx, map[string]any{fieldRunKey: runKey})
}

// RunKey reports the run key stored by ContextWithRun.
func RunKey(ctx context.Context) string {
	key, _ := ContextFields(ctx)[fieldRunKey].(string)
	return key
}

// ContextWithFields merges fields into the logging fields carried by ctx.
func ContextWithFields(ctx context.Context, fields map[string]any) context.Context {
	if ctx == nil || len(fields) == 0 {
		return ctx
	}
	merged := ContextFields(ctx)
	if merged == nil {
		merged = make(map[string]any, len(fields))
	}
	maps.Copy(merged, fields)
	return context.WithValue(ctx, runFieldsKey{}, merged)
}

// ContextFields returns a copy of the logging fields carried by ctx.
func ContextFields(ctx context.Context) map[string]any {
	if ctx == nil {
		return nil
	}
	fields, ok := ctx.Value(runFieldsKey{}).(map[string]any)
	if !ok || len(fields) == 0 {
		return nil
	}
	return maps.Clone(fields)
}
