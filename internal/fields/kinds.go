package fields

import (
	"strings"

	"github.com/goliatone/go-cms-sync/pkg/interfaces"
)

// RichTextType is the legacy type name of HTML fields.
const RichTextType = "Rich Text"

var referenceListTypes = map[string]struct{}{
	"checklist":             {},
	"droplink":              {},
	"droptree":              {},
	"multilist":             {},
	"multilist with search": {},
	"treelist":              {},
	"treelistex":            {},
	"tree list":             {},
}

// KindFromType resolves a legacy field type name into its FieldKind.
// Unknown types are treated as text.
func KindFromType(typeName string) interfaces.FieldKind {
	key := strings.ToLower(strings.TrimSpace(typeName))
	if key == strings.ToLower(RichTextType) {
		return interfaces.FieldKindRichText
	}
	if _, ok := referenceListTypes[key]; ok {
		return interfaces.FieldKindReferenceList
	}
	return interfaces.FieldKindText
}

// Text builds a plain text field value.
func Text(name, value string) interfaces.FieldValue {
	return interfaces.FieldValue{Name: name, Kind: interfaces.FieldKindText, Text: value}
}

// RichText builds an HTML field value.
func RichText(name, html string) interfaces.FieldValue {
	return interfaces.FieldValue{Name: name, Kind: interfaces.FieldKindRichText, Text: html}
}

// References builds a reference-list field value.
func References(name string, ids ...string) interfaces.FieldValue {
	return interfaces.FieldValue{Name: name, Kind: interfaces.FieldKindReferenceList, References: ids}
}

// FromRaw builds a field value from its legacy type name and raw string.
// Reference lists are split on '|'.
func FromRaw(name, typeName, raw string) interfaces.FieldValue {
	switch kind := KindFromType(typeName); kind {
	case interfaces.FieldKindReferenceList:
		return References(name, SplitReferences(raw)...)
	case interfaces.FieldKindRichText:
		return RichText(name, raw)
	default:
		return Text(name, raw)
	}
}

// SplitReferences splits a pipe-delimited id list, dropping empty entries.
func SplitReferences(raw string) []string {
	parts := strings.Split(raw, "|")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// FormatGUID renders a 32 digit hex identifier, with or without dashes and
// braces, as {XXXXXXXX-XXXX-XXXX-XXXX-XXXXXXXXXXXX}. Other values are
// returned trimmed and unchanged.
func FormatGUID(id string) string {
	trimmed := strings.TrimSpace(id)
	compact := strings.NewReplacer("{", "", "}", "", "-", "").Replace(trimmed)
	if len(compact) != 32 || !isHex(compact) {
		return trimmed
	}
	upper := strings.ToUpper(compact)
	return "{" + upper[0:8] + "-" + upper[8:12] + "-" + upper[12:16] + "-" + upper[16:20] + "-" + upper[20:32] + "}"
}

func isHex(value string) bool {
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
