// Package syncerr holds the error taxonomy shared by the sync components.
package syncerr

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeMappingMissing          = "MAPPING_MISSING"
	TextCodeHierarchyCreationFailed = "HIERARCHY_CREATION_FAILED"
	TextCodeValidationFailed        = "SYNC_VALIDATION_FAILED"
	TextCodeTransportFailed         = "REMOTE_TRANSPORT_FAILED"
	TextCodeRemoteRejected          = "REMOTE_REQUEST_REJECTED"
)

// MappingMissing reports that no mapping provides a template for path.
func MappingMissing(path string) *goerrors.Error {
	return goerrors.New("no mapping found for path "+strings.TrimSpace(path), goerrors.CategoryNotFound).
		WithTextCode(TextCodeMappingMissing).
		WithMetadata(map[string]any{"path": path})
}

// HierarchyCreationFailed reports that a path segment could not be created.
// cause stays reachable through errors.Unwrap.
func HierarchyCreationFailed(path string, cause error) *goerrors.Error {
	return withSource(
		goerrors.New("could not create path "+strings.TrimSpace(path), goerrors.CategoryOperation).
			WithTextCode(TextCodeHierarchyCreationFailed).
			WithMetadata(map[string]any{"path": path}),
		cause,
	)
}

// Validation reports invalid input to a sync operation.
func Validation(message string, metadata map[string]any) *goerrors.Error {
	err := goerrors.New(message, goerrors.CategoryValidation).WithTextCode(TextCodeValidationFailed)
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

// HasTextCode walks the error chain looking for a go-errors value carrying code.
func HasTextCode(err error, code string) bool {
	for err != nil {
		var typed *goerrors.Error
		if !errors.As(err, &typed) {
			return false
		}
		if typed.TextCode == code {
			return true
		}
		err = typed.Source
	}
	return false
}

// IsMappingMissing reports whether err carries a MappingMissing error.
func IsMappingMissing(err error) bool {
	return HasTextCode(err, TextCodeMappingMissing)
}

// IsHierarchyCreationFailed reports whether err carries a HierarchyCreationFailed error.
func IsHierarchyCreationFailed(err error) bool {
	return HasTextCode(err, TextCodeHierarchyCreationFailed)
}

// IsValidation reports whether err carries a sync validation error.
func IsValidation(err error) bool {
	return HasTextCode(err, TextCodeValidationFailed)
}

func withSource(err *goerrors.Error, cause error) *goerrors.Error {
	if cause != nil {
		err.Source = cause
	}
	return err
}
