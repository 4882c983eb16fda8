package remote

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-cms-sync/pkg/interfaces"
)

// Escape makes value safe inside a double-quoted GraphQL string literal.
// Control characters without a short escape are written as \uXXXX.
func Escape(value string) string {
	if !strings.ContainsFunc(value, needsEscape) {
		return value
	}
	var b strings.Builder
	b.Grow(len(value) + 16)
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch c {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if c < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, c)
				continue
			}
			b.WriteByte(c)
		}
	}
	return b.String()
}

func needsEscape(r rune) bool {
	return r < 0x20 || r == '\\' || r == '"'
}

func quote(value string) string {
	return `"` + Escape(value) + `"`
}

const nodeSelection = `itemId path itemName:name template{templateId}`

const createdSelection = `item{itemId name path language{name} fields(ownFields:true,excludeStandardFields:true){nodes{name value}}}`

func itemQuery(database, path string) string {
	var b strings.Builder
	b.WriteString(`query{item(where:{database:`)
	b.WriteString(quote(database))
	b.WriteString(`,path:`)
	b.WriteString(quote(path))
	b.WriteString(`}){`)
	b.WriteString(nodeSelection)
	b.WriteString(`}}`)
	return b.String()
}

func childrenQuery(database, parentPath, cursor string, pageSize int, opts interfaces.ListOptions) string {
	var b strings.Builder
	b.WriteString(`query{item(where:{database:`)
	b.WriteString(quote(database))
	b.WriteString(`,path:`)
	b.WriteString(quote(parentPath))
	b.WriteString(`}){children(first:`)
	b.WriteString(strconv.Itoa(pageSize))
	if cursor != "" {
		b.WriteString(`,after:`)
		b.WriteString(quote(cursor))
	}
	if len(opts.IncludeTemplateIDs) > 0 {
		b.WriteString(`,includeTemplateIDs:`)
		writeStringList(&b, opts.IncludeTemplateIDs)
	}
	if len(opts.ExcludeTemplateIDs) > 0 {
		b.WriteString(`,excludeTemplateIDs:`)
		writeStringList(&b, opts.ExcludeTemplateIDs)
	}
	b.WriteString(`){pageInfo{endCursor hasNextPage} edges{node{`)
	b.WriteString(nodeSelection)
	b.WriteString(`}}}}}`)
	return b.String()
}

func createMutation(items []interfaces.CreateItemInput, language string) string {
	var b strings.Builder
	b.WriteString(`mutation{`)
	for i, item := range items {
		b.WriteString(alias(i))
		b.WriteString(`:createItem(input:{name:`)
		b.WriteString(quote(item.Name))
		b.WriteString(`,templateId:`)
		b.WriteString(quote(item.TemplateID))
		b.WriteString(`,parent:`)
		b.WriteString(quote(item.ParentID))
		b.WriteString(`,language:`)
		b.WriteString(quote(languageOr(item.Language, language)))
		b.WriteString(`,fields:`)
		writeFields(&b, item.Fields)
		b.WriteString(`}){`)
		b.WriteString(createdSelection)
		b.WriteString(`}`)
	}
	b.WriteString(`}`)
	return b.String()
}

func updateMutation(items []interfaces.UpdateItemInput, language string) string {
	var b strings.Builder
	b.WriteString(`mutation{`)
	for i, item := range items {
		b.WriteString(alias(i))
		b.WriteString(`:updateItem(input:{itemId:`)
		b.WriteString(quote(item.ItemID))
		b.WriteString(`,language:`)
		b.WriteString(quote(languageOr(item.Language, language)))
		b.WriteString(`,fields:`)
		writeFields(&b, item.Fields)
		b.WriteString(`}){item{itemId}}`)
	}
	b.WriteString(`}`)
	return b.String()
}

func alias(i int) string {
	return "item" + strconv.Itoa(i)
}

// writeFields renders the field list, dropping fields without a name.
func writeFields(b *strings.Builder, fields []interfaces.FieldInput) {
	b.WriteByte('[')
	first := true
	for _, field := range fields {
		if strings.TrimSpace(field.Name) == "" {
			continue
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(`{name:`)
		b.WriteString(quote(field.Name))
		b.WriteString(`,value:`)
		b.WriteString(quote(field.Value))
		b.WriteByte('}')
	}
	b.WriteByte(']')
}

func writeStringList(b *strings.Builder, values []string) {
	b.WriteByte('[')
	for i, value := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(quote(value))
	}
	b.WriteByte(']')
}

func languageOr(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
