package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	ErrSchemaInvalid = errors.New("schema invalid")
	ErrDocument      = errors.New("document rejected by schema")
)

// Issue is one schema violation. Pointer is the JSON pointer of the offending
// value, "" for the document root.
type Issue struct {
	Pointer string `json:"pointer"`
	Message string `json:"message"`
}

// Row reports the index of the top-level array element the issue sits in.
// Documents wrapping their rows in an object ("/mappings/3/...") are
// handled too.
func (i Issue) Row() (int, bool) {
	segments := strings.Split(strings.Trim(i.Pointer, "/"), "/")
	for _, segment := range segments {
		if n, err := strconv.Atoi(segment); err == nil && n >= 0 {
			return n, true
		}
	}
	return 0, false
}

// DocumentError lists every issue found in one document.
type DocumentError struct {
	Schema string
	Issues []Issue
	cause  error
}

func (e *DocumentError) Error() string {
	if len(e.Issues) == 0 {
		return e.Schema + ": " + ErrDocument.Error()
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		pointer := "#" + issue.Pointer
		if issue.Message == "" {
			parts = append(parts, pointer)
			continue
		}
		parts = append(parts, pointer+": "+issue.Message)
	}
	return e.Schema + ": " + strings.Join(parts, "; ")
}

func (e *DocumentError) Unwrap() []error {
	if e.cause == nil {
		return []error{ErrDocument}
	}
	return []error{ErrDocument, e.cause}
}

// Rows returns the sorted, distinct row indexes named by the issues.
func (e *DocumentError) Rows() []int {
	var rows []int
	for _, issue := range e.Issues {
		if row, ok := issue.Row(); ok && !slices.Contains(rows, row) {
			rows = append(rows, row)
		}
	}
	slices.Sort(rows)
	return rows
}

// Issues extracts the issues carried by err. Errors that are not schema
// failures become a single root issue.
func Issues(err error) []Issue {
	if err == nil {
		return nil
	}
	var docErr *DocumentError
	if errors.As(err, &docErr) {
		return slices.Clone(docErr.Issues)
	}
	var schemaErr *jsonschema.ValidationError
	if errors.As(err, &schemaErr) {
		return leafIssues(schemaErr)
	}
	return []Issue{{Message: err.Error()}}
}

// Schema is a compiled draft 2020-12 JSON Schema.
type Schema struct {
	name     string
	compiled *jsonschema.Schema
}

// Compile parses raw as a JSON Schema registered under name.
func Compile(name string, raw []byte) (*Schema, error) {
	if name = strings.TrimSpace(name); name == "" {
		name = "schema.json"
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(name, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSchemaInvalid, name, err)
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSchemaInvalid, name, err)
	}
	return &Schema{name: name, compiled: compiled}, nil
}

// MustCompile is Compile for embedded schemas.
func MustCompile(name string, raw []byte) *Schema {
	schema, err := Compile(name, raw)
	if err != nil {
		panic(err)
	}
	return schema
}

// Name returns the resource name the schema was compiled under.
func (s *Schema) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

// ValidateJSON decodes document and validates it. Malformed JSON is reported
// as a root issue.
func (s *Schema) ValidateJSON(document []byte) error {
	var value any
	decoder := json.NewDecoder(bytes.NewReader(document))
	decoder.UseNumber()
	if err := decoder.Decode(&value); err != nil {
		return &DocumentError{
			Schema: s.Name(),
			Issues: []Issue{{Message: "malformed json: " + err.Error()}},
			cause:  err,
		}
	}
	return s.Validate(value)
}

// Validate checks an already decoded JSON value.
func (s *Schema) Validate(value any) error {
	if s == nil || s.compiled == nil {
		return nil
	}
	err := s.compiled.Validate(value)
	if err == nil {
		return nil
	}
	return &DocumentError{Schema: s.name, Issues: Issues(err), cause: err}
}

func leafIssues(root *jsonschema.ValidationError) []Issue {
	var issues []Issue
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if len(node.Causes) == 0 {
			issues = append(issues, Issue{
				Pointer: strings.TrimSpace(node.InstanceLocation),
				Message: strings.TrimSpace(node.Message),
			})
			return
		}
		for _, cause := range node.Causes {
			walk(cause)
		}
	}
	walk(root)
	return issues
}
