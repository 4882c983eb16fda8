package paths

import (
	"slices"
	"strings"
	"unicode"
)

// maxNameLength matches the destination's item name limit.
const maxNameLength = 100

var minorWords = map[string]struct{}{
	// articles
	"a": {}, "an": {}, "the": {},
	// coordinating conjunctions
	"and": {}, "but": {}, "for": {}, "nor": {}, "or": {}, "so": {}, "yet": {},
	// subordinating conjunctions
	"as": {}, "because": {}, "if": {}, "than": {}, "that": {}, "till": {}, "when": {}, "where": {}, "while": {},
	// prepositions
	"at": {}, "by": {}, "down": {}, "from": {}, "in": {}, "into": {}, "like": {}, "near": {}, "of": {}, "off": {},
	"on": {}, "onto": {}, "out": {}, "over": {}, "past": {}, "to": {}, "under": {}, "up": {}, "upon": {}, "with": {}, "within": {},
}

// FormatName turns a path segment into a display name. Words are title-cased
// except minor words, which stay lower-case unless they open or close the
// name. The result is passed through ProposeValidName.
func FormatName(segment string) string {
	words := strings.Fields(strings.ToLower(segment))
	if len(words) == 0 {
		return ""
	}
	last := len(words) - 1
	for i, word := range words {
		if _, minor := minorWords[word]; minor && i != 0 && i != last {
			continue
		}
		words[i] = titleWord(word)
	}
	return ProposeValidName(strings.Join(words, " "))
}

// titleWord upper-cases every letter that starts a run of letters, so
// "brown-ish" becomes "Brown-Ish".
func titleWord(word string) string {
	runes := []rune(word)
	prev := rune(0)
	for i, r := range runes {
		if unicode.IsLetter(r) && !continuesWord(prev) {
			runes[i] = unicode.ToTitle(r)
		}
		prev = r
	}
	return string(runes)
}

func continuesWord(prev rune) bool {
	return unicode.IsLetter(prev) || unicode.IsDigit(prev) || prev == '\''
}

// ProposeValidName strips characters the destination rejects in item names,
// removes invalid leading characters, collapses whitespace and enforces the
// maximum name length.
func ProposeValidName(name string) string {
	var builder strings.Builder
	builder.Grow(len(name))
	leading := true
	for _, r := range name {
		if !validNameRune(r) {
			continue
		}
		if leading && !validLeadingRune(r) {
			continue
		}
		leading = false
		builder.WriteRune(r)
	}

	cleaned := strings.Join(strings.Fields(builder.String()), " ")
	runes := []rune(cleaned)
	if len(runes) > maxNameLength {
		cleaned = strings.TrimSpace(string(runes[:maxNameLength]))
	}
	return cleaned
}

func validNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
		return true
	}
	switch r {
	case '_', '-', '$', '*', '(', ')':
		return true
	}
	return false
}

func validLeadingRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$' || r == '*'
}

// NameVariants lists the paths an item addressed by path may live at: as
// written, with its last segment passed through FormatName, and with every
// segment passed through FormatName. Variants that share a Key are listed
// once, and a variant is skipped when FormatName empties one of its segments.
func NameVariants(path string) []string {
	written := strings.TrimSpace(path)
	segments := Segments(written)
	if len(segments) == 0 {
		return nil
	}

	renamed := make([]string, len(segments))
	for i, segment := range segments {
		renamed[i] = FormatName(segment)
	}
	last := len(segments) - 1
	lastRenamed := slices.Clone(segments)
	lastRenamed[last] = renamed[last]

	candidates := []string{written}
	if renamed[last] != "" {
		candidates = append(candidates, Join(lastRenamed...))
	}
	if !slices.Contains(renamed, "") {
		candidates = append(candidates, Join(renamed...))
	}

	seen := make(map[string]struct{}, len(candidates))
	out := candidates[:0]
	for _, candidate := range candidates {
		key := Key(candidate)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, candidate)
	}
	return out
}
