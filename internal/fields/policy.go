package fields

import (
	"context"
	"strings"

	"github.com/goliatone/go-cms-sync/pkg/interfaces"
)

// DefaultSkipPrefix marks system fields that are never copied.
const DefaultSkipPrefix = "__"

// PolicyConfig configures DefaultPolicy.
type PolicyConfig struct {
	// Renames maps a target template id to source→target field names.
	Renames map[string]map[string]string
	// Exclude lists field names never copied, compared case-insensitively.
	Exclude []string
	// SkipPrefixes drops fields whose name starts with any prefix. Nil uses
	// DefaultSkipPrefix.
	SkipPrefixes []string
}

// DefaultPolicy copies every source field by name, applying renames for the
// target template. Reference lists are written as pipe-joined braced GUIDs.
type DefaultPolicy struct {
	renames  map[string]map[string]string
	exclude  map[string]struct{}
	prefixes []string
}

var _ interfaces.FieldMappingPolicy = (*DefaultPolicy)(nil)

// NewDefaultPolicy builds a DefaultPolicy from cfg.
func NewDefaultPolicy(cfg PolicyConfig) *DefaultPolicy {
	p := &DefaultPolicy{
		renames:  make(map[string]map[string]string, len(cfg.Renames)),
		exclude:  make(map[string]struct{}, len(cfg.Exclude)),
		prefixes: cfg.SkipPrefixes,
	}
	if p.prefixes == nil {
		p.prefixes = []string{DefaultSkipPrefix}
	}
	for template, names := range cfg.Renames {
		folded := make(map[string]string, len(names))
		for from, to := range names {
			folded[strings.ToLower(strings.TrimSpace(from))] = strings.TrimSpace(to)
		}
		p.renames[templateKey(template)] = folded
	}
	for _, name := range cfg.Exclude {
		p.exclude[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}
	return p
}

// MapFields converts item's fields into inputs for targetTemplateID. The
// first field wins when two map to the same target name.
func (p *DefaultPolicy) MapFields(ctx context.Context, item interfaces.SourceItem, targetTemplateID string) ([]interfaces.FieldInput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	renames := p.renames[templateKey(targetTemplateID)]
	seen := make(map[string]struct{}, len(item.Fields))
	out := make([]interfaces.FieldInput, 0, len(item.Fields))
	for _, field := range item.Fields {
		name := strings.TrimSpace(field.Name)
		if name == "" || p.skipped(name) {
			continue
		}
		if renamed, ok := renames[strings.ToLower(name)]; ok {
			if renamed == "" {
				continue
			}
			name = renamed
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, interfaces.FieldInput{Name: name, Value: Render(field)})
	}
	return out, nil
}

func (p *DefaultPolicy) skipped(name string) bool {
	if _, ok := p.exclude[strings.ToLower(name)]; ok {
		return true
	}
	for _, prefix := range p.prefixes {
		if prefix != "" && strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// Render produces the string written to the destination for field.
func Render(field interfaces.FieldValue) string {
	switch field.Kind {
	case interfaces.FieldKindReferenceList:
		ids := make([]string, 0, len(field.References))
		for _, ref := range field.References {
			if formatted := FormatGUID(ref); formatted != "" {
				ids = append(ids, formatted)
			}
		}
		return strings.Join(ids, "|")
	default:
		return field.Text
	}
}

func templateKey(id string) string {
	return strings.ToUpper(strings.Trim(strings.TrimSpace(id), "{}"))
}
