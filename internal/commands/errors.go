package commands

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCommand = "SYNC_COMMAND_INVALID"
	TextCodeCancelled      = "SYNC_COMMAND_CANCELLED"
	TextCodeTimedOut       = "SYNC_COMMAND_TIMED_OUT"
	TextCodeContext        = "SYNC_COMMAND_CONTEXT"
	TextCodeFailed         = "SYNC_COMMAND_FAILED"
)

// Errors already categorised by the sync packages pass through untouched so
// their text codes reach the caller.

func wrapValidationError(err error) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid sync command").
		WithTextCode(TextCodeInvalidCommand)
}

func wrapContextError(err error) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return goerrors.Wrap(err, goerrors.CategoryCommand, "sync command cancelled").
			WithTextCode(TextCodeCancelled)
	case errors.Is(err, context.DeadlineExceeded):
		return goerrors.Wrap(err, goerrors.CategoryCommand, "sync command timed out").
			WithTextCode(TextCodeTimedOut)
	default:
		return goerrors.Wrap(err, goerrors.CategoryCommand, "sync command context error").
			WithTextCode(TextCodeContext)
	}
}

func wrapExecuteError(err error) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}
	if isContextError(err) {
		return wrapContextError(err)
	}
	return goerrors.Wrap(err, goerrors.CategoryCommand, "sync command failed").
		WithTextCode(TextCodeFailed)
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
