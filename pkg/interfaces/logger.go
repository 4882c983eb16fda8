package interfaces

import "context"

// Logger is the leveled, key/value logger every sync component writes to.
// Its method set matches github.com/goliatone/go-logger.
type Logger interface {
	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Fatal(msg string, args ...any)
	// WithContext binds ctx, including the run key it may carry.
	WithContext(ctx context.Context) Logger
}

// LoggerProvider hands out loggers named after sync modules such as
// "cmssync.remote" or "cmssync.syncer".
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// FieldsLogger is implemented by loggers that can carry persistent fields.
type FieldsLogger interface {
	WithFields(fields map[string]any) Logger
}
