package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-cms-sync/internal/logging"
)

type probeMessage struct {
	Target string
}

func (probeMessage) Type() string { return "cmssync.test.probe" }

func (probeMessage) Validate() error { return nil }

type invalidMessage struct{}

func (invalidMessage) Type() string { return "cmssync.test.invalid" }

func (invalidMessage) Validate() error {
	return errors.New("invalid")
}

func TestHandlerExecuteSuccess(t *testing.T) {
	var got string
	h := NewHandler(func(ctx context.Context, msg probeMessage) error {
		got = msg.Target
		return nil
	})

	if err := h.Execute(context.Background(), probeMessage{Target: "/home"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got != "/home" {
		t.Fatalf("expected handler to receive the message, got %q", got)
	}
}

func TestHandlerValidationShortCircuitsExecution(t *testing.T) {
	called := false
	h := NewHandler(func(ctx context.Context, msg invalidMessage) error {
		called = true
		return nil
	})

	err := h.Execute(context.Background(), invalidMessage{})
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation category, got %v", err)
	}
	if called {
		t.Fatal("expected handler not to run when validation fails")
	}
}

func TestHandlerContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	h := NewHandler(func(ctx context.Context, msg probeMessage) error {
		called = true
		return nil
	})

	err := h.Execute(ctx, probeMessage{})
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}
	if called {
		t.Fatal("expected handler not to run when context is cancelled")
	}
}

func TestHandlerWrapsExecutionError(t *testing.T) {
	h := NewHandler(func(ctx context.Context, msg probeMessage) error {
		return errors.New("boom")
	})

	err := h.Execute(context.Background(), probeMessage{})
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}
}

func TestHandlerKeepsCategorisedErrors(t *testing.T) {
	original := goerrors.New("no mapping", goerrors.CategoryNotFound).WithTextCode("MAPPING_MISSING")
	h := NewHandler(func(ctx context.Context, msg probeMessage) error {
		return original
	})

	err := h.Execute(context.Background(), probeMessage{})
	if !goerrors.IsCategory(err, goerrors.CategoryNotFound) {
		t.Fatalf("expected the original category to survive, got %v", err)
	}
}

func TestHandlerHonoursTimeoutOption(t *testing.T) {
	h := NewHandler(func(ctx context.Context, msg probeMessage) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
			return nil
		}
	}, WithTimeout[probeMessage](5*time.Millisecond))

	err := h.Execute(context.Background(), probeMessage{})
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category for timeout, got %v", err)
	}
	var typed *goerrors.Error
	if !goerrors.As(err, &typed) || typed.TextCode != TextCodeTimedOut {
		t.Fatalf("expected %s text code, got %v", TextCodeTimedOut, err)
	}
}

func TestHandlerTelemetryReceivesFields(t *testing.T) {
	var info TelemetryInfo
	h := NewHandler(func(ctx context.Context, msg probeMessage) error {
		return nil
	},
		WithOperation[probeMessage]("sync.run"),
		WithMessageFields(func(msg probeMessage) map[string]any {
			return map[string]any{"target": msg.Target}
		}),
		WithTelemetry(func(ctx context.Context, msg probeMessage, got TelemetryInfo) {
			info = got
		}),
	)

	if err := h.Execute(context.Background(), probeMessage{Target: "/x"}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if info.Status != TelemetryStatusSuccess || info.Operation != "sync.run" || info.Command != "cmssync.test.probe" {
		t.Fatalf("unexpected telemetry %+v", info)
	}
	if info.Fields["target"] != "/x" || info.Fields["operation"] != "sync.run" {
		t.Fatalf("unexpected telemetry fields %+v", info.Fields)
	}
}

func TestHandlerTelemetryReportsFailures(t *testing.T) {
	var info TelemetryInfo
	h := NewHandler(func(ctx context.Context, msg probeMessage) error {
		return errors.New("remote down")
	}, WithTelemetry(func(ctx context.Context, msg probeMessage, got TelemetryInfo) {
		info = got
	}))

	err := h.Execute(context.Background(), probeMessage{})
	if err == nil || info.Status != TelemetryStatusFailed || !errors.Is(info.Error, err) {
		t.Fatalf("unexpected telemetry %+v for %v", info, err)
	}
}

func TestHandlerTelemetryCarriesRunKeyAndTimeoutStatus(t *testing.T) {
	var info TelemetryInfo
	h := NewHandler(func(ctx context.Context, msg probeMessage) error {
		<-ctx.Done()
		return ctx.Err()
	},
		WithTimeout[probeMessage](5*time.Millisecond),
		WithTelemetry(func(ctx context.Context, msg probeMessage, got TelemetryInfo) {
			info = got
		}),
	)

	ctx := logging.ContextWithRun(context.Background(), "nightly-20240314")
	if err := h.Execute(ctx, probeMessage{}); err == nil {
		t.Fatal("expected timeout error")
	}
	if info.RunKey != "nightly-20240314" {
		t.Fatalf("expected run key in telemetry, got %q", info.RunKey)
	}
	if info.Status != TelemetryStatusContextError {
		t.Fatalf("expected context error status, got %s", info.Status)
	}
	if textCode(info.Error) != TextCodeTimedOut {
		t.Fatalf("expected %s, got %q", TextCodeTimedOut, textCode(info.Error))
	}
}
