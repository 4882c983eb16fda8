package commands

import (
	"context"
	"time"

	command "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-cms-sync/internal/logging"
	"github.com/goliatone/go-cms-sync/pkg/interfaces"
)

// TelemetryStatus is the outcome bucket of one command execution.
type TelemetryStatus string

const (
	TelemetryStatusSuccess      TelemetryStatus = "success"
	TelemetryStatusFailed       TelemetryStatus = "failed"
	TelemetryStatusContextError TelemetryStatus = "context_error"
)

// TelemetryInfo is handed to telemetry callbacks after every execution.
// Logger already carries the command fields and the run key, if any.
type TelemetryInfo struct {
	Command   string
	Operation string
	RunKey    string
	Fields    map[string]any
	Duration  time.Duration
	Error     error
	Status    TelemetryStatus
	Logger    interfaces.Logger
}

// Telemetry is invoked once per execution in place of the default outcome
// log line.
type Telemetry[T command.Message] func(ctx context.Context, msg T, info TelemetryInfo)

// DefaultTelemetry logs the outcome with its duration. Failures carry the
// go-errors text code when the error has one.
func DefaultTelemetry[T command.Message]() Telemetry[T] {
	return func(_ context.Context, _ T, info TelemetryInfo) {
		logOutcome(info)
	}
}

func logOutcome(info TelemetryInfo) {
	logger := info.Logger
	if logger == nil {
		logger = logging.NoOp()
	}
	args := []any{"duration_ms", info.Duration.Milliseconds()}
	switch info.Status {
	case TelemetryStatusSuccess:
		logger.Info("command.execute.success", args...)
	case TelemetryStatusContextError:
		logger.Error("command.execute.context_error", append(args, "error", info.Error)...)
	default:
		args = append(args, "error", info.Error)
		if code := textCode(info.Error); code != "" {
			args = append(args, "text_code", code)
		}
		logger.Error("command.execute.failed", args...)
	}
}

func textCode(err error) string {
	var typed *goerrors.Error
	if goerrors.As(err, &typed) {
		return typed.TextCode
	}
	return ""
}
