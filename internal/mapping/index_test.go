package mapping

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/goliatone/go-cms-sync/pkg/interfaces"
)

func row(source, target, template string) interfaces.Mapping {
	return interfaces.Mapping{SourcePath: source, TargetPath: target, TemplateID: template}
}

func TestBuildSortsByDepthThenSegments(t *testing.T) {
	idx := Build([]interfaces.Mapping{
		row("/old/deep/item", "/new/section/item", "T3"),
		row("/old/section", "/new/section", "T2"),
		row("/old/b", "/new/B", "T1"),
		row("/old/a", "/new/a", "T1"),
		row("/old/root", "/new", "T0"),
	})

	var targets []string
	for _, entry := range idx.Entries() {
		targets = append(targets, entry.TargetPath)
	}
	want := []string{"/new", "/new/a", "/new/B", "/new/section", "/new/section/item"}
	if !reflect.DeepEqual(targets, want) {
		t.Fatalf("unexpected order\nwant %v\ngot  %v", want, targets)
	}
}

func TestBuildReverseOrderedInputProcessesShallowFirst(t *testing.T) {
	idx := Build([]interfaces.Mapping{
		row("/legacy/section/page", "/new/section/page", "T2"),
		row("/legacy/section", "/new/section", "T1"),
	})

	first := idx.Entries()[0]
	if first.TargetPath != "/new/section" {
		t.Fatalf("expected /new/section first, got %s", first.TargetPath)
	}
	rank, ok := idx.Rank("/legacy/section")
	if !ok || rank != 0 {
		t.Fatalf("expected rank 0 for /legacy/section, got %d (%v)", rank, ok)
	}
}

func TestBuildFirstDuplicateWins(t *testing.T) {
	idx := Build([]interfaces.Mapping{
		row("/Old/Page", "/new/first", "T1"),
		row("/old/page", "/new/second", "T2"),
	})

	if idx.Len() != 1 {
		t.Fatalf("expected a single entry, got %d", idx.Len())
	}
	entry, ok := idx.Lookup("/OLD/PAGE")
	if !ok {
		t.Fatal("expected case-insensitive lookup to succeed")
	}
	if entry.TargetPath != "/new/first" {
		t.Fatalf("expected first occurrence to win, got %s", entry.TargetPath)
	}
	stats := idx.Stats()
	if stats.Duplicates != 1 || len(stats.DuplicateSources) != 1 || stats.DuplicateSources[0] != "/old/page" {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestBuildDropsBlankRows(t *testing.T) {
	idx := Build([]interfaces.Mapping{
		row("", "/new/a", "T"),
		row("/old/b", "  ", "T"),
		row("/old/c", "/new/c", ""),
	})

	if idx.Len() != 1 {
		t.Fatalf("expected one entry, got %d", idx.Len())
	}
	if stats := idx.Stats(); stats.Blank != 2 || stats.Input != 3 || stats.Kept != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestBuildIsDeterministicUnderPermutation(t *testing.T) {
	rows := []interfaces.Mapping{
		row("/s/1", "/x/y/z", "A"),
		row("/s/2", "/x", "B"),
		row("/s/3", "/X/y", "C"),
		row("/s/4", "/x/Y", "D"),
		row("/s/5", "/a/b", "E"),
		row("/s/6", "/x/y", "F"),
		row("/s/7", "/b", "G"),
	}
	want := Build(rows).Entries()

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 25; i++ {
		shuffled := append([]interfaces.Mapping(nil), rows...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		if got := Build(shuffled).Entries(); !reflect.DeepEqual(got, want) {
			t.Fatalf("permutation %d produced a different order\nwant %v\ngot  %v", i, want, got)
		}
	}
}

func TestLookupTargetSkipsEntriesWithoutTemplate(t *testing.T) {
	idx := Build([]interfaces.Mapping{
		row("/old/a", "/new/a", ""),
		row("/old/b", "/NEW/A/", "T-A"),
	})

	entry, ok := idx.LookupTarget("/new/a")
	if !ok || entry.TemplateID != "T-A" {
		t.Fatalf("expected templated entry, got %+v (%v)", entry, ok)
	}
	if _, ok := idx.LookupTarget("/new/missing"); ok {
		t.Fatal("expected no entry for unknown target")
	}
}

func TestNilIndexIsEmpty(t *testing.T) {
	var idx *Index
	if idx.Len() != 0 || idx.Entries() != nil {
		t.Fatal("expected nil index to be empty")
	}
	if _, ok := idx.Lookup("/x"); ok {
		t.Fatal("expected nil index lookup to miss")
	}
}
