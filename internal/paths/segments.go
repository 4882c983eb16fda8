package paths

import "strings"

// Segments splits a '/'-delimited path into its non-empty segments.
func Segments(path string) []string {
	parts := strings.Split(strings.TrimSpace(path), "/")
	out := parts[:0]
	for _, part := range parts {
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// SegmentCount reports how many segments path contains.
func SegmentCount(path string) int {
	return len(Segments(path))
}

// Join builds a '/'-rooted path from segments.
func Join(segments ...string) string {
	if len(segments) == 0 {
		return ""
	}
	return "/" + strings.Join(segments, "/")
}

// Clean returns path in canonical '/'-rooted form without empty segments.
func Clean(path string) string {
	return Join(Segments(path)...)
}

// AncestorPrefixes lists every prefix of path from the first segment down to
// path itself. The list has one entry per segment and each entry extends the
// previous one by exactly one segment.
func AncestorPrefixes(path string) []string {
	segments := Segments(path)
	prefixes := make([]string, 0, len(segments))
	for i := 1; i <= len(segments); i++ {
		prefixes = append(prefixes, Join(segments[:i]...))
	}
	return prefixes
}

// ParentPath returns the path without its last segment, or "" for top-level
// and empty paths.
func ParentPath(path string) string {
	segments := Segments(path)
	if len(segments) <= 1 {
		return ""
	}
	return Join(segments[:len(segments)-1]...)
}

// LastSegment returns the final segment of path.
func LastSegment(path string) string {
	segments := Segments(path)
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}

// Key folds path into the lookup key used for case-insensitive matching.
func Key(path string) string {
	return strings.ToLower(Clean(path))
}

// Compare orders two paths segment by segment ignoring case. A path that is a
// prefix of the other sorts first.
func Compare(a, b string) int {
	left := Segments(a)
	right := Segments(b)
	limit := min(len(left), len(right))
	for i := 0; i < limit; i++ {
		if c := strings.Compare(strings.ToLower(left[i]), strings.ToLower(right[i])); c != 0 {
			return c
		}
	}
	switch {
	case len(left) < len(right):
		return -1
	case len(left) > len(right):
		return 1
	default:
		return 0
	}
}
