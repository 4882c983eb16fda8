package interfaces

import "context"

// FieldKind tags the semantic type of a source field value. The kind is
// resolved once when an item is extracted so downstream code switches on the
// tag instead of re-reading legacy type names.
type FieldKind uint8

const (
	// FieldKindText carries a plain string value.
	FieldKindText FieldKind = iota
	// FieldKindReferenceList carries an ordered list of item identifiers.
	FieldKindReferenceList
	// FieldKindRichText carries an HTML fragment.
	FieldKindRichText
)

// String renders the kind label used in logs and exports.
func (k FieldKind) String() string {
	switch k {
	case FieldKindReferenceList:
		return "reference-list"
	case FieldKindRichText:
		return "rich-text"
	default:
		return "text"
	}
}

// FieldValue is one named value captured from a legacy item.
type FieldValue struct {
	Name string
	Kind FieldKind
	// Text holds the value for text and rich-text kinds.
	Text string
	// References holds item identifiers for the reference-list kind.
	References []string
}

// Rendering references a component placed on a legacy page together with the
// datasource item that feeds it.
type Rendering struct {
	Name         string
	DatasourceID string
}

// Datasource is a nested, separately addressable content unit referenced by a
// rendering.
type Datasource struct {
	ID     string
	Name   string
	Path   string
	Fields []FieldValue
}

// SourceItem is an immutable snapshot of one legacy item captured before the
// migration starts.
type SourceItem struct {
	ID          string
	Path        string
	TemplateID  string
	Fields      []FieldValue
	Renderings  []Rendering
	Datasources []Datasource
}

// Field returns the first field with the supplied name.
func (s SourceItem) Field(name string) (FieldValue, bool) {
	for _, field := range s.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return FieldValue{}, false
}

// Mapping pairs a legacy source path with its destination path and the
// template used when the destination has to be created.
type Mapping struct {
	SourcePath string `json:"source_path" yaml:"source_path"`
	TargetPath string `json:"target_path" yaml:"target_path"`
	TemplateID string `json:"template_id" yaml:"template_id"`
}

// MappingSource loads the raw mapping table. Implementations are origin
// agnostic (spreadsheet export, database table, JSON file).
type MappingSource interface {
	LoadMappings(ctx context.Context) ([]Mapping, error)
}

// SourceItemProvider lists the legacy items rooted at rootPath.
type SourceItemProvider interface {
	ListItems(ctx context.Context, rootPath string) ([]SourceItem, error)
}

// FieldMappingPolicy converts a source item into the field inputs written to
// the destination item. Rules are pluggable per target template.
type FieldMappingPolicy interface {
	MapFields(ctx context.Context, item SourceItem, targetTemplateID string) ([]FieldInput, error)
}
