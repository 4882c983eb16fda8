package sources

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/goliatone/go-cms-sync/internal/fields"
	"github.com/goliatone/go-cms-sync/internal/logging"
	"github.com/goliatone/go-cms-sync/pkg/interfaces"
)

var ErrInvalidExport = errors.New("sources: invalid item export")

// ExportProvider reads legacy items from a JSON export. The document is
// either an array of items or an object with an "items" array. Each item
// carries id, path, template_id, fields, renderings and datasources; a field
// is {"name", "type", "value"} where value is a string or a list of ids.
type ExportProvider struct {
	fsys   fs.FS
	name   string
	logger interfaces.Logger
}

var _ interfaces.SourceItemProvider = (*ExportProvider)(nil)

// NewExportProvider reads name from fsys on every ListItems call.
func NewExportProvider(fsys fs.FS, name string, logger interfaces.Logger) *ExportProvider {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &ExportProvider{fsys: fsys, name: name, logger: logger}
}

// NewOSExportProvider reads the export at path on the local filesystem.
func NewOSExportProvider(path string, logger interfaces.Logger) *ExportProvider {
	return NewExportProvider(os.DirFS(filepath.Dir(path)), filepath.Base(path), logger)
}

// ListItems returns the exported items at or below rootPath. An empty
// rootPath returns every item.
func (p *ExportProvider) ListItems(ctx context.Context, rootPath string) ([]interfaces.SourceItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := fs.ReadFile(p.fsys, p.name)
	if err != nil {
		return nil, fmt.Errorf("sources: read export %s: %w", p.name, err)
	}
	items, err := ParseExport(raw)
	if err != nil {
		return nil, err
	}

	out := make([]interfaces.SourceItem, 0, len(items))
	for _, item := range items {
		if underRoot(item.Path, rootPath) {
			out = append(out, item)
		}
	}
	p.logger.Info("sources.export.loaded", "file", p.name, "items", len(items), "selected", len(out), "root", rootPath)
	return out, nil
}

// ParseExport decodes an export document. Items without a path are skipped.
func ParseExport(raw []byte) ([]interfaces.SourceItem, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: malformed json", ErrInvalidExport)
	}
	doc := gjson.ParseBytes(raw)
	if doc.IsObject() {
		doc = doc.Get("items")
	}
	if !doc.IsArray() {
		return nil, fmt.Errorf("%w: expected an array of items", ErrInvalidExport)
	}

	var items []interfaces.SourceItem
	doc.ForEach(func(_, value gjson.Result) bool {
		item := interfaces.SourceItem{
			ID:         strings.TrimSpace(value.Get("id").String()),
			Path:       strings.TrimSpace(value.Get("path").String()),
			TemplateID: strings.TrimSpace(value.Get("template_id").String()),
			Fields:     parseFields(value.Get("fields")),
		}
		if item.Path == "" {
			return true
		}
		value.Get("renderings").ForEach(func(_, rendering gjson.Result) bool {
			item.Renderings = append(item.Renderings, interfaces.Rendering{
				Name:         rendering.Get("name").String(),
				DatasourceID: rendering.Get("datasource").String(),
			})
			return true
		})
		value.Get("datasources").ForEach(func(_, ds gjson.Result) bool {
			item.Datasources = append(item.Datasources, interfaces.Datasource{
				ID:     ds.Get("id").String(),
				Name:   ds.Get("name").String(),
				Path:   ds.Get("path").String(),
				Fields: parseFields(ds.Get("fields")),
			})
			return true
		})
		items = append(items, item)
		return true
	})
	return items, nil
}

func parseFields(list gjson.Result) []interfaces.FieldValue {
	var out []interfaces.FieldValue
	list.ForEach(func(_, field gjson.Result) bool {
		name := strings.TrimSpace(field.Get("name").String())
		if name == "" {
			return true
		}
		typeName := field.Get("type").String()
		value := field.Get("value")
		if value.IsArray() {
			var ids []string
			for _, id := range value.Array() {
				ids = append(ids, id.String())
			}
			out = append(out, fields.References(name, ids...))
			return true
		}
		out = append(out, fields.FromRaw(name, typeName, value.String()))
		return true
	})
	return out
}

// underRoot reports whether path equals root or sits below it, ignoring case.
func underRoot(path, root string) bool {
	root = strings.ToLower(strings.TrimRight(strings.TrimSpace(root), "/"))
	if root == "" {
		return true
	}
	path = strings.ToLower(strings.TrimSpace(path))
	return path == root || strings.HasPrefix(path, root+"/")
}
