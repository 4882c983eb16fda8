package reporting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-cms-sync/internal/mapping"
	"github.com/goliatone/go-cms-sync/internal/remote"
	"github.com/goliatone/go-cms-sync/internal/syncer"
	"github.com/goliatone/go-cms-sync/pkg/interfaces"
	"github.com/goliatone/go-cms-sync/pkg/storage"
)

func newTestStore(t *testing.T, name string, now func() time.Time) (*Store, *bun.DB) {
	t.Helper()
	db, err := storage.Open(context.Background(), storage.Config{
		Driver: storage.DriverSQLite,
		DSN:    "file:" + name + "?mode=memory&cache=shared",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := NewStore(db, WithClock(now))
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return store, db
}

func fixedClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func TestRunKey(t *testing.T) {
	started := time.Date(2024, 3, 14, 15, 9, 26, 0, time.UTC)
	if got := RunKey("Nightly Import", started); got != "nightly-import-20240314-150926" {
		t.Fatalf("unexpected run key %q", got)
	}
	if got := RunKey("", started); !strings.HasSuffix(got, "-20240314-150926") || !strings.HasPrefix(got, "sync") {
		t.Fatalf("unexpected fallback run key %q", got)
	}
}

func TestStoreRecordsRunResults(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, "reporting_results", fixedClock(time.Date(2024, 3, 14, 15, 9, 25, 0, time.UTC)))

	run, err := store.Start(ctx, "Nightly Import")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if run.Key() != "nightly-import-20240314-150926" {
		t.Fatalf("unexpected key %q", run.Key())
	}

	run.ObserveResult(ctx, interfaces.SyncResult{SourcePath: "/a", TargetPath: "/x", Success: true, Message: "item synced: /x"})
	run.ObserveResult(ctx, interfaces.SyncResult{SourcePath: "/b", Message: "mapping not found for this item", Errors: []string{"no mapping"}})

	record, err := run.Finish(ctx, nil)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if record.Status != StatusCompleted || record.Total != 2 || record.Succeeded != 1 || record.Failed != 1 || record.FinishedAt == nil {
		t.Fatalf("unexpected run record %+v", record)
	}

	results, err := store.Results(ctx, run.ID())
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(results) != 2 || results[0].SourcePath != "/a" || results[1].SourcePath != "/b" {
		t.Fatalf("unexpected results %+v", results)
	}
	if len(results[1].Errors) != 1 || results[1].Errors[0] != "no mapping" {
		t.Fatalf("expected stored errors, got %+v", results[1].Errors)
	}

	stored, err := store.Run(ctx, run.ID())
	if err != nil || stored.Status != StatusCompleted {
		t.Fatalf("expected stored completed run, got %+v, %v", stored, err)
	}
}

func TestStoreObservesOrchestratorAndCancellation(t *testing.T) {
	store, _ := newTestStore(t, "reporting_orchestrator", fixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	client := remote.NewMemoryClient()
	var rows []interfaces.Mapping
	var items []interfaces.SourceItem
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		client.Seed("/site/"+name, "{PAGE}")
		rows = append(rows, interfaces.Mapping{SourcePath: "/old/" + name, TargetPath: "/site/" + name})
		items = append(items, interfaces.SourceItem{Path: "/old/" + name})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	run, err := store.Start(ctx, "partial")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	seen := 0
	orchestrator := syncer.NewOrchestrator(client, nil, nil,
		syncer.WithObserver(run),
		syncer.WithObserver(syncer.ObserverFunc(func(context.Context, interfaces.SyncResult) {
			seen++
			if seen == syncer.DefaultBatchSize {
				cancel()
			}
		})),
	)

	_, runErr := orchestrator.SyncAll(ctx, items, mapping.Build(rows))
	if !errors.Is(runErr, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", runErr)
	}
	record, err := run.Finish(ctx, runErr)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if record.Status != StatusCancelled || record.Total != syncer.DefaultBatchSize || record.Error == "" {
		t.Fatalf("unexpected run record %+v", record)
	}

	runs, err := store.Runs(context.Background())
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected one run, got %d, %v", len(runs), err)
	}
}

func TestStoreWithoutDatabase(t *testing.T) {
	store := NewStore(nil)
	if _, err := store.Start(context.Background(), "x"); !errors.Is(err, ErrDatabaseRequired) {
		t.Fatalf("expected ErrDatabaseRequired, got %v", err)
	}
	if err := store.EnsureSchema(context.Background()); !errors.Is(err, ErrDatabaseRequired) {
		t.Fatalf("expected ErrDatabaseRequired, got %v", err)
	}
}
