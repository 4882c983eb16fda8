package mapping

import (
	"slices"
	"strings"

	"github.com/goliatone/go-cms-sync/internal/paths"
	"github.com/goliatone/go-cms-sync/pkg/interfaces"
)

// BuildStats reports what Build discarded.
type BuildStats struct {
	Input      int `json:"input"`
	Kept       int `json:"kept"`
	Blank      int `json:"blank"`
	Duplicates int `json:"duplicates"`
	// DuplicateSources lists the source paths that appeared more than once.
	DuplicateSources []string `json:"duplicate_sources,omitempty"`
}

// Index is the ordered, immutable mapping table for one run. Entries are
// sorted so that shallower targets come before deeper ones.
type Index struct {
	entries  []interfaces.Mapping
	bySource map[string]int
	byTarget map[string]int
	stats    BuildStats
}

// Build deduplicates raw by source path (first occurrence wins), drops rows
// without a source or target and sorts the survivors by target depth, then
// by a case-insensitive segment-wise comparison of the target paths.
func Build(raw []interfaces.Mapping) *Index {
	idx := &Index{
		bySource: make(map[string]int, len(raw)),
		byTarget: make(map[string]int, len(raw)),
		stats:    BuildStats{Input: len(raw)},
	}

	seen := make(map[string]struct{}, len(raw))
	entries := make([]interfaces.Mapping, 0, len(raw))
	for _, row := range raw {
		entry := interfaces.Mapping{
			SourcePath: strings.TrimSpace(row.SourcePath),
			TargetPath: strings.TrimSpace(row.TargetPath),
			TemplateID: strings.TrimSpace(row.TemplateID),
		}
		if entry.SourcePath == "" || entry.TargetPath == "" {
			idx.stats.Blank++
			continue
		}
		key := sourceKey(entry.SourcePath)
		if _, dup := seen[key]; dup {
			idx.stats.Duplicates++
			idx.stats.DuplicateSources = append(idx.stats.DuplicateSources, entry.SourcePath)
			continue
		}
		seen[key] = struct{}{}
		entries = append(entries, entry)
	}

	slices.SortFunc(entries, compareEntries)

	for i, entry := range entries {
		idx.bySource[sourceKey(entry.SourcePath)] = i
		if entry.TemplateID == "" {
			continue
		}
		targetKey := paths.Key(entry.TargetPath)
		if _, exists := idx.byTarget[targetKey]; !exists {
			idx.byTarget[targetKey] = i
		}
	}

	idx.entries = entries
	idx.stats.Kept = len(entries)
	return idx
}

// Lookup finds the entry whose source path matches sourcePath exactly,
// ignoring case.
func (idx *Index) Lookup(sourcePath string) (interfaces.Mapping, bool) {
	if idx == nil {
		return interfaces.Mapping{}, false
	}
	pos, ok := idx.bySource[sourceKey(sourcePath)]
	if !ok {
		return interfaces.Mapping{}, false
	}
	return idx.entries[pos], true
}

// LookupTarget finds the first entry targeting targetPath that carries a
// template id.
func (idx *Index) LookupTarget(targetPath string) (interfaces.Mapping, bool) {
	if idx == nil {
		return interfaces.Mapping{}, false
	}
	pos, ok := idx.byTarget[paths.Key(targetPath)]
	if !ok {
		return interfaces.Mapping{}, false
	}
	return idx.entries[pos], true
}

// Rank reports the position of sourcePath's entry in the sorted table.
func (idx *Index) Rank(sourcePath string) (int, bool) {
	if idx == nil {
		return 0, false
	}
	pos, ok := idx.bySource[sourceKey(sourcePath)]
	return pos, ok
}

// Entries returns a copy of the sorted table.
func (idx *Index) Entries() []interfaces.Mapping {
	if idx == nil {
		return nil
	}
	return slices.Clone(idx.entries)
}

// Len reports the number of entries kept.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.entries)
}

// Stats reports what Build kept and discarded.
func (idx *Index) Stats() BuildStats {
	if idx == nil {
		return BuildStats{}
	}
	stats := idx.stats
	stats.DuplicateSources = slices.Clone(stats.DuplicateSources)
	return stats
}

func sourceKey(path string) string {
	return strings.ToLower(strings.TrimSpace(path))
}

func compareEntries(a, b interfaces.Mapping) int {
	if da, db := paths.SegmentCount(a.TargetPath), paths.SegmentCount(b.TargetPath); da != db {
		if da < db {
			return -1
		}
		return 1
	}
	if c := paths.Compare(a.TargetPath, b.TargetPath); c != 0 {
		return c
	}
	if c := strings.Compare(sourceKey(a.SourcePath), sourceKey(b.SourcePath)); c != 0 {
		return c
	}
	if c := strings.Compare(a.TargetPath, b.TargetPath); c != 0 {
		return c
	}
	return strings.Compare(a.TemplateID, b.TemplateID)
}
