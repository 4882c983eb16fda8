package mapping

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/goliatone/go-cms-sync/internal/validation"
	"github.com/goliatone/go-cms-sync/pkg/interfaces"
)

//go:embed schema/mappings.schema.json
var mappingsSchemaJSON []byte

var mappingsSchema = validation.MustCompile("mappings.schema.json", mappingsSchemaJSON)

// FileSource reads mapping rows from a JSON document. The document is either
// an array of rows or an object with a "mappings" array. Rows use snake_case
// keys or the legacy spreadsheet headers CURRENTURL, NEWURLPATH and
// PAGETEMPLATEID.
type FileSource struct {
	fsys fs.FS
	name string
}

var _ interfaces.MappingSource = (*FileSource)(nil)

// NewFileSource reads name from fsys.
func NewFileSource(fsys fs.FS, name string) *FileSource {
	return &FileSource{fsys: fsys, name: name}
}

// NewOSFileSource reads the document at path on the local filesystem.
func NewOSFileSource(path string) *FileSource {
	return NewFileSource(os.DirFS(filepath.Dir(path)), filepath.Base(path))
}

// LoadMappings validates the document and returns its rows in file order.
func (s *FileSource) LoadMappings(ctx context.Context) ([]interfaces.Mapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := fs.ReadFile(s.fsys, s.name)
	if err != nil {
		return nil, fmt.Errorf("mapping: read %s: %w", s.name, err)
	}
	return ParseDocument(raw)
}

// ParseDocument validates raw against the mapping document schema and
// extracts its rows.
func ParseDocument(raw []byte) ([]interfaces.Mapping, error) {
	if err := mappingsSchema.ValidateJSON(raw); err != nil {
		var docErr *validation.DocumentError
		if errors.As(err, &docErr) && len(docErr.Rows()) > 0 {
			return nil, fmt.Errorf("mapping: invalid document, rows %v: %w", docErr.Rows(), err)
		}
		return nil, fmt.Errorf("mapping: invalid document: %w", err)
	}

	doc := gjson.ParseBytes(raw)
	rows := doc
	if doc.IsObject() {
		rows = doc.Get("mappings")
	}

	out := make([]interfaces.Mapping, 0, len(rows.Array()))
	rows.ForEach(func(_, row gjson.Result) bool {
		out = append(out, interfaces.Mapping{
			SourcePath: firstString(row, "source_path", "CURRENTURL"),
			TargetPath: firstString(row, "target_path", "NEWURLPATH"),
			TemplateID: firstString(row, "template_id", "PAGETEMPLATEID"),
		})
		return true
	})
	return out, nil
}

func firstString(row gjson.Result, keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(row.Get(key).String()); value != "" {
			return value
		}
	}
	return ""
}
