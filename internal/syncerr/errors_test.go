package syncerr

import (
	"errors"
	"fmt"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestHierarchyCreationFailedKeepsCause(t *testing.T) {
	cause := MappingMissing("/x")
	err := HierarchyCreationFailed("/x", cause)

	if !IsHierarchyCreationFailed(err) {
		t.Fatalf("expected hierarchy creation code, got %v", err)
	}
	if !IsMappingMissing(err) {
		t.Fatalf("expected mapping missing in chain, got %v", err)
	}
	if !goerrors.IsCategory(err, goerrors.CategoryOperation) {
		t.Fatalf("expected operation category on outer error")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to reach the cause")
	}
}

func TestHasTextCodeThroughFmtWrapping(t *testing.T) {
	err := fmt.Errorf("sync item: %w", Validation("target path is empty", nil))
	if !IsValidation(err) {
		t.Fatalf("expected validation code through fmt wrapping")
	}
	if IsMappingMissing(err) {
		t.Fatalf("did not expect mapping missing")
	}
	if HasTextCode(errors.New("plain"), TextCodeValidationFailed) {
		t.Fatalf("plain errors carry no text code")
	}
}
