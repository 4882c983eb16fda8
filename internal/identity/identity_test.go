package identity

import (
	"testing"

	"github.com/google/uuid"
)

func TestUUIDIsDeterministic(t *testing.T) {
	t.Parallel()

	first := UUID("cms-sync:test:key")
	second := UUID("cms-sync:test:key")
	if first == uuid.Nil {
		t.Fatalf("expected non-nil uuid")
	}
	if first != second {
		t.Fatalf("expected stable uuid, got %s and %s", first, second)
	}
	if UUID("   ") != uuid.Nil {
		t.Fatalf("expected nil uuid for blank key")
	}
}

func TestMappingUUIDDistinguishesPositions(t *testing.T) {
	t.Parallel()

	a := MappingUUID(0, "/Health/Heart")
	b := MappingUUID(1, "/Health/Heart")
	if a == b {
		t.Fatalf("expected different ids for different positions")
	}
	if MappingUUID(0, "/health/heart") != a {
		t.Fatalf("expected case-insensitive source key")
	}
}

func TestFormatGUID(t *testing.T) {
	t.Parallel()

	id := uuid.MustParse("39ebed3f-5965-4a68-9a4c-45e7d29043c8")
	got := FormatGUID(id)
	if got != "{39EBED3F-5965-4A68-9A4C-45E7D29043C8}" {
		t.Fatalf("unexpected guid %q", got)
	}
	if NodeUUID("/X/Y") != NodeUUID("/x/y") {
		t.Fatalf("expected case-insensitive node ids")
	}
}
