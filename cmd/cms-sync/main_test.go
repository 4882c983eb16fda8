package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	cmssync "github.com/goliatone/go-cms-sync"
	"github.com/goliatone/go-cms-sync/internal/commands/synccmd"
	"github.com/goliatone/go-cms-sync/internal/di"
	"github.com/goliatone/go-cms-sync/internal/mapping"
	"github.com/goliatone/go-cms-sync/internal/remote"
	"github.com/goliatone/go-cms-sync/internal/sources"
	"github.com/goliatone/go-cms-sync/pkg/interfaces"
)

const cliExport = `[
  {"path": "/legacy/services", "fields": [{"name": "Title", "type": "Single-Line Text", "value": "Services"}]},
  {"path": "/legacy/unmapped", "fields": [{"name": "Title", "type": "Single-Line Text", "value": "Nobody maps me"}]}
]`

func stubBuilder(t *testing.T, client *remote.MemoryClient, rows ...interfaces.Mapping) *cmssync.Config {
	t.Helper()
	var seen cmssync.Config
	original := moduleBuilder
	t.Cleanup(func() { moduleBuilder = original })

	moduleBuilder = func(cfg cmssync.Config) (*di.Container, error) {
		seen = cfg
		cfg.Paths.SourceRootPrefix = "/legacy"
		cfg.Paths.RootPrefix = "/Site/Home"
		fsys := fstest.MapFS{"export.json": &fstest.MapFile{Data: []byte(cliExport)}}
		return di.NewContainer(cfg,
			di.WithRemoteClient(client),
			di.WithMappingSource(mapping.NewMemorySource(rows...)),
			di.WithSourceProvider(sources.NewExportProvider(fsys, "export.json", nil)),
		)
	}
	return &seen
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSyncCommandPrintsFailures(t *testing.T) {
	client := remote.NewMemoryClient()
	client.Seed("/Site/Home/services", "{PAGE}")
	seen := stubBuilder(t, client, interfaces.Mapping{SourcePath: "/services", TargetPath: "/services", TemplateID: "{PAGE}"})

	out, err := runCLI(t, "sync", "--dry-run", "--root", "/legacy")
	if err != nil {
		t.Fatalf("sync returned error: %v\n%s", err, out)
	}
	if !seen.Features.DryRun {
		t.Fatalf("expected --dry-run to reach the config")
	}
	if !strings.Contains(out, "FAIL /legacy/unmapped") || !strings.Contains(out, "mapping not found for this item") {
		t.Fatalf("expected unmapped failure in output:\n%s", out)
	}
	if strings.Contains(out, "ok   /legacy/services") {
		t.Fatalf("successful items should be hidden by default:\n%s", out)
	}
	if !strings.Contains(out, "total: 2 succeeded: 1 failed: 1") {
		t.Fatalf("expected summary line:\n%s", out)
	}

	fields := client.Fields(mustNode(t, client, "/Site/Home/services").ID)
	if len(fields) != 1 || fields[0].Value != "Services" {
		t.Fatalf("unexpected written fields %+v", fields)
	}
}

func TestSyncCommandFailOnErrors(t *testing.T) {
	client := remote.NewMemoryClient()
	stubBuilder(t, client)

	out, err := runCLI(t, "sync", "--fail-on-errors", "--show-success")
	if !errors.Is(err, synccmd.ErrItemsFailed) {
		t.Fatalf("expected ErrItemsFailed, got %v\n%s", err, out)
	}
}

func TestSyncCommandJSON(t *testing.T) {
	client := remote.NewMemoryClient()
	client.Seed("/Site/Home/services", "{PAGE}")
	stubBuilder(t, client, interfaces.Mapping{SourcePath: "/services", TargetPath: "/services", TemplateID: "{PAGE}"})

	out, err := runCLI(t, "sync", "--json")
	if err != nil {
		t.Fatalf("sync returned error: %v", err)
	}
	if !strings.Contains(out, `"source_path": "/legacy/services"`) || !strings.Contains(out, `"succeeded": 1`) {
		t.Fatalf("unexpected JSON report:\n%s", out)
	}
}

func TestChildrenCommand(t *testing.T) {
	client := remote.NewMemoryClient()
	client.Seed("/Site/Home/About Us", "{PAGE}")
	client.Seed("/Site/Home/Data", "{FOLDER}")
	stubBuilder(t, client)

	out, err := runCLI(t, "children", "/Site/Home", "--exclude-template", "{FOLDER}")
	if err != nil {
		t.Fatalf("children returned error: %v", err)
	}
	if !strings.Contains(out, "About Us") || strings.Contains(out, "Data") {
		t.Fatalf("unexpected listing:\n%s", out)
	}
	if !strings.Contains(out, "1 children") {
		t.Fatalf("expected child count:\n%s", out)
	}
}

func TestMappingsValidateCommand(t *testing.T) {
	client := remote.NewMemoryClient()
	stubBuilder(t, client,
		interfaces.Mapping{SourcePath: "/services", TargetPath: "/services", TemplateID: "{PAGE}"},
		interfaces.Mapping{SourcePath: "/services", TargetPath: "/other", TemplateID: "{PAGE}"},
		interfaces.Mapping{SourcePath: "/blank"},
	)

	out, err := runCLI(t, "mappings", "validate")
	if err != nil {
		t.Fatalf("validate returned error: %v", err)
	}
	if !strings.Contains(out, "rows: 3 kept: 1 blank: 1 duplicates: 1") {
		t.Fatalf("unexpected stats output:\n%s", out)
	}

	_, err = runCLI(t, "mappings", "validate", "--strict")
	if !errors.Is(err, synccmd.ErrMappingsRejected) {
		t.Fatalf("expected ErrMappingsRejected, got %v", err)
	}
}

func mustNode(t *testing.T, client *remote.MemoryClient, path string) interfaces.RemoteNode {
	t.Helper()
	node, ok := client.Node(path)
	if !ok {
		t.Fatalf("expected node at %s", path)
	}
	return node
}
