package validation

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

const rowsSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["source"],
    "properties": {"source": {"type": "string"}}
  }
}`

func TestSchemaValidateJSON(t *testing.T) {
	schema, err := Compile("rows.json", []byte(rowsSchema))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	if err := schema.ValidateJSON([]byte(`[{"source": "/a"}]`)); err != nil {
		t.Fatalf("expected valid document, got %v", err)
	}

	err = schema.ValidateJSON([]byte(`[{"source": "/a"}, {"source": 3}, {}]`))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.Is(err, ErrDocument) {
		t.Fatalf("expected ErrDocument, got %v", err)
	}
	if issues := Issues(err); len(issues) < 2 {
		t.Fatalf("expected an issue per invalid row, got %+v", issues)
	}
	if !strings.HasPrefix(err.Error(), "rows.json: ") || !strings.Contains(err.Error(), "#/1") {
		t.Fatalf("expected schema name and pointer in message, got %s", err.Error())
	}

	var docErr *DocumentError
	if !errors.As(err, &docErr) {
		t.Fatalf("expected *DocumentError, got %T", err)
	}
	if rows := docErr.Rows(); !slices.Equal(rows, []int{1, 2}) {
		t.Fatalf("expected rows [1 2], got %v", rows)
	}
}

func TestIssueRowHandlesWrappedDocuments(t *testing.T) {
	cases := map[string]int{
		"/mappings/3/target_path": 3,
		"/0":                      0,
		"/12/source":              12,
	}
	for pointer, want := range cases {
		got, ok := Issue{Pointer: pointer}.Row()
		if !ok || got != want {
			t.Fatalf("Row(%q) = %d, %v; want %d", pointer, got, ok, want)
		}
	}
	if _, ok := (Issue{Pointer: ""}).Row(); ok {
		t.Fatal("expected no row for the document root")
	}
}

func TestSchemaValidateJSONRejectsMalformedInput(t *testing.T) {
	schema := MustCompile("rows.json", []byte(rowsSchema))
	err := schema.ValidateJSON([]byte(`[{`))
	if err == nil || !strings.Contains(err.Error(), "malformed json") {
		t.Fatalf("expected malformed json issue, got %v", err)
	}
	if !errors.Is(err, ErrDocument) {
		t.Fatalf("expected ErrDocument, got %v", err)
	}
}

func TestCompileRejectsBrokenSchema(t *testing.T) {
	if _, err := Compile("", []byte(`{"type": 12}`)); !errors.Is(err, ErrSchemaInvalid) {
		t.Fatalf("expected ErrSchemaInvalid, got %v", err)
	}
}
