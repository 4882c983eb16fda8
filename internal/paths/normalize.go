package paths

import (
	"net/url"
	"strings"
	"unicode"
)

// NormalizerConfig configures how raw legacy addresses become canonical paths.
type NormalizerConfig struct {
	// RootPrefix is prepended to every non-empty result.
	RootPrefix string
	// PreserveDashTemplates lists template ids whose paths keep '-' verbatim.
	PreserveDashTemplates []string
}

// Normalizer turns URLs and loose path strings into canonical hierarchical
// addresses. It is safe for concurrent use.
type Normalizer struct {
	rootPrefix string
	preserve   map[string]struct{}
}

// NewNormalizer builds a Normalizer from cfg.
func NewNormalizer(cfg NormalizerConfig) *Normalizer {
	preserve := make(map[string]struct{}, len(cfg.PreserveDashTemplates))
	for _, id := range cfg.PreserveDashTemplates {
		if key := templateKey(id); key != "" {
			preserve[key] = struct{}{}
		}
	}
	return &Normalizer{
		rootPrefix: strings.TrimSpace(cfg.RootPrefix),
		preserve:   preserve,
	}
}

// Normalize converts raw into a canonical path. Absolute http(s) URLs are
// reduced to their decoded path component, dashes become spaces unless
// templateID preserves them and leading slashes are trimmed. The steps repeat
// until none applies, so normalizing a result again leaves it unchanged.
// Blank input yields an empty string, which callers treat as unresolvable.
func (n *Normalizer) Normalize(raw, templateID string) string {
	value := strings.TrimSpace(raw)
	keepDashes := n.preservesDashes(templateID)
	for {
		value = strings.TrimLeftFunc(value, func(r rune) bool {
			return r == '/' || unicode.IsSpace(r)
		})
		if path, ok := urlPath(value); ok {
			value = path
			continue
		}
		if keepDashes || !strings.Contains(value, "-") {
			break
		}
		value = strings.ReplaceAll(value, "-", " ")
	}
	value = strings.TrimRightFunc(value, unicode.IsSpace)
	if value == "" {
		return ""
	}

	if n.rootPrefix == "" {
		return value
	}
	return strings.TrimRight(n.rootPrefix, "/") + "/" + value
}

func (n *Normalizer) preservesDashes(templateID string) bool {
	if n == nil || len(n.preserve) == 0 {
		return false
	}
	_, ok := n.preserve[templateKey(templateID)]
	return ok
}

// urlPath returns the decoded path of an absolute http(s) URL.
func urlPath(value string) (string, bool) {
	if !isAbsoluteURL(value) {
		return "", false
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return "", false
	}
	return parsed.Path, true
}

func isAbsoluteURL(value string) bool {
	lower := strings.ToLower(value)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func templateKey(id string) string {
	trimmed := strings.TrimSpace(id)
	trimmed = strings.TrimPrefix(trimmed, "{")
	trimmed = strings.TrimSuffix(trimmed, "}")
	return strings.ToUpper(trimmed)
}
