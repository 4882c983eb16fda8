package syncer

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-cms-sync/internal/fields"
	"github.com/goliatone/go-cms-sync/internal/mapping"
	"github.com/goliatone/go-cms-sync/internal/remote"
	"github.com/goliatone/go-cms-sync/internal/syncerr"
	"github.com/goliatone/go-cms-sync/pkg/interfaces"
)

const (
	heroID  = "0f6b3c1a9d2e4f5a8b7c6d5e4f3a2b1c"
	promoID = "{11111111-2222-3333-4444-555555555555}"
)

func componentItem() interfaces.SourceItem {
	return interfaces.SourceItem{
		Path:   "/legacy/home",
		Fields: []interfaces.FieldValue{fields.Text("Title", "Home")},
		Renderings: []interfaces.Rendering{
			{Name: "Hero", DatasourceID: heroID},
			{Name: "Hero Again", DatasourceID: "{0F6B3C1A-9D2E-4F5A-8B7C-6D5E4F3A2B1C}"},
			{Name: "Promo", DatasourceID: promoID},
			{Name: "Orphan", DatasourceID: "{99999999-2222-3333-4444-555555555555}"},
			{Name: "Static"},
		},
		Datasources: []interfaces.Datasource{
			{
				ID:   "{" + heroID + "}",
				Name: "Hero!",
				Fields: []interfaces.FieldValue{
					fields.RichText("Body", "<p>one</p>"),
					fields.Text("Heading", "ignored"),
					fields.RichText("Footer", "<p>two</p>"),
				},
			},
			{
				ID:     promoID,
				Name:   "Promo Banner",
				Fields: []interfaces.FieldValue{fields.RichText("Body", "<p>promo</p>")},
			},
		},
	}
}

func componentConfig() ComponentConfig {
	return ComponentConfig{DataFolderTemplate: "{DATA}", RichTextTemplate: "{RTE}"}
}

func TestComponentSyncCreatesDataFolderAndRichTextChildren(t *testing.T) {
	client := remote.NewMemoryClient()
	client.Seed("/site/home", "{PAGE}")
	target, _ := client.Node("/site/home")

	created, err := NewComponentSyncer(client, componentConfig(), nil).Sync(context.Background(), componentItem(), target)
	if err != nil {
		t.Fatalf("sync components: %v", err)
	}
	if created != 3 {
		t.Fatalf("expected 3 components, got %d", created)
	}

	data, ok := client.Node("/site/home/Data")
	if !ok || data.TemplateID != "{DATA}" {
		t.Fatalf("expected data folder, got %+v (found %v)", data, ok)
	}
	for path, html := range map[string]string{
		"/site/home/Data/Hero-1":       "<p>one</p>",
		"/site/home/Data/Hero-2":       "<p>two</p>",
		"/site/home/Data/Promo Banner": "<p>promo</p>",
	} {
		node, ok := client.Node(path)
		if !ok || node.TemplateID != "{RTE}" {
			t.Fatalf("expected %s, got %+v (found %v)", path, node, ok)
		}
		values := client.Fields(node.ID)
		if len(values) != 1 || values[0].Name != DefaultRichTextField || values[0].Value != html {
			t.Fatalf("unexpected fields on %s: %+v", path, values)
		}
	}

	calls := client.CreateCalls()
	if len(calls) != 2 || len(calls[1]) != 3 {
		t.Fatalf("expected folder create then one batch of 3, got %+v", calls)
	}
}

func TestComponentSyncSkipsExistingChildren(t *testing.T) {
	client := remote.NewMemoryClient()
	client.Seed("/site/home", "{PAGE}")
	client.Seed("/site/home/Data/Promo Banner", "{RTE}")
	target, _ := client.Node("/site/home")

	created, err := NewComponentSyncer(client, componentConfig(), nil).Sync(context.Background(), componentItem(), target)
	if err != nil {
		t.Fatalf("sync components: %v", err)
	}
	if created != 2 {
		t.Fatalf("expected only hero children to be created, got %d", created)
	}
	calls := client.CreateCalls()
	if len(calls) != 1 {
		t.Fatalf("expected existing data folder to be reused, got %d creates", len(calls))
	}

	again, err := NewComponentSyncer(client, componentConfig(), nil).Sync(context.Background(), componentItem(), target)
	if err != nil || again != 0 {
		t.Fatalf("expected second run to be a no-op, got %d, %v", again, err)
	}
}

func TestComponentSyncBatchesCreates(t *testing.T) {
	client := remote.NewMemoryClient()
	client.Seed("/site/home", "{PAGE}")
	target, _ := client.Node("/site/home")

	cfg := componentConfig()
	cfg.BatchSize = 2
	if _, err := NewComponentSyncer(client, cfg, nil).Sync(context.Background(), componentItem(), target); err != nil {
		t.Fatalf("sync components: %v", err)
	}
	calls := client.CreateCalls()
	if len(calls) != 3 || len(calls[1]) != 2 || len(calls[2]) != 1 {
		t.Fatalf("expected chunks of 2 and 1 after the folder, got %+v", calls)
	}
}

func TestComponentSyncRequiresTemplates(t *testing.T) {
	client := remote.NewMemoryClient()
	_, err := NewComponentSyncer(client, ComponentConfig{}, nil).Sync(context.Background(), componentItem(), interfaces.RemoteNode{Path: "/x"})
	if !syncerr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSyncAllComponentFailureFailsItem(t *testing.T) {
	client := remote.NewMemoryClient()
	client.Seed("/site/home", "{PAGE}")
	client.FailCreate = func(int, []interfaces.CreateItemInput) error {
		return errors.New("create rejected")
	}
	index := mapping.Build([]interfaces.Mapping{{SourcePath: "/legacy/home", TargetPath: "/site/home"}})

	orchestrator := NewOrchestrator(client, nil, defaultPolicy(),
		WithSyncOptions(interfaces.SyncOptions{SyncComponents: true}),
		WithComponents(NewComponentSyncer(client, componentConfig(), nil)),
	)
	results, err := orchestrator.SyncAll(context.Background(), []interfaces.SourceItem{componentItem()}, index)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	got := results[0]
	if got.Success || got.Message != MessageComponentFailed || len(got.Errors) != 1 {
		t.Fatalf("unexpected result %+v", got)
	}
	target, _ := client.Node("/site/home")
	if values := client.Fields(target.ID); len(values) != 1 || values[0].Value != "Home" {
		t.Fatalf("expected page fields to be written before components, got %+v", values)
	}
}
