package syncer

import (
	"context"
	"strconv"
	"strings"

	"github.com/goliatone/go-cms-sync/internal/fields"
	"github.com/goliatone/go-cms-sync/internal/logging"
	"github.com/goliatone/go-cms-sync/internal/paths"
	"github.com/goliatone/go-cms-sync/internal/syncerr"
	"github.com/goliatone/go-cms-sync/pkg/interfaces"
)

const (
	DefaultDataFolderName     = "Data"
	DefaultRichTextField      = "Text"
	DefaultComponentBatchSize = 10
)

// ComponentConfig configures datasource mirroring.
type ComponentConfig struct {
	DataFolderName     string
	DataFolderTemplate string
	RichTextTemplate   string
	RichTextField      string
	BatchSize          int
	Language           string
}

// ComponentSyncer mirrors the rich-text datasources referenced by a page's
// renderings into a data folder beneath the target item.
type ComponentSyncer struct {
	client interfaces.RemoteContentClient
	cfg    ComponentConfig
	logger interfaces.Logger
}

// NewComponentSyncer builds a ComponentSyncer, filling unset config values
// with defaults.
func NewComponentSyncer(client interfaces.RemoteContentClient, cfg ComponentConfig, logger interfaces.Logger) *ComponentSyncer {
	if strings.TrimSpace(cfg.DataFolderName) == "" {
		cfg.DataFolderName = DefaultDataFolderName
	}
	if strings.TrimSpace(cfg.RichTextField) == "" {
		cfg.RichTextField = DefaultRichTextField
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultComponentBatchSize
	}
	if logger == nil {
		logger = logging.NoOp()
	}
	return &ComponentSyncer{client: client, cfg: cfg, logger: logger}
}

// Sync ensures the data folder exists under target and creates one child per
// rich-text datasource field that is not there yet. It returns the number of
// items created.
func (c *ComponentSyncer) Sync(ctx context.Context, item interfaces.SourceItem, target interfaces.RemoteNode) (int, error) {
	if c.cfg.DataFolderTemplate == "" || c.cfg.RichTextTemplate == "" {
		return 0, syncerr.Validation("component templates are not configured", nil)
	}

	candidates := c.candidates(item)
	if len(candidates) == 0 {
		return 0, nil
	}

	dataPath := paths.Clean(target.Path + "/" + c.cfg.DataFolderName)
	dataID, err := c.ensureDataFolder(ctx, dataPath, target.ID)
	if err != nil {
		return 0, err
	}

	pending := make([]interfaces.CreateItemInput, 0, len(candidates))
	for _, candidate := range candidates {
		existing, err := c.client.GetByPath(ctx, dataPath+"/"+candidate.name)
		if err != nil {
			return 0, err
		}
		if existing != nil {
			continue
		}
		pending = append(pending, interfaces.CreateItemInput{
			Name:       candidate.name,
			TemplateID: c.cfg.RichTextTemplate,
			ParentID:   dataID,
			Language:   c.cfg.Language,
			Fields:     []interfaces.FieldInput{{Name: c.cfg.RichTextField, Value: candidate.html}},
		})
	}
	if len(pending) == 0 {
		return 0, nil
	}

	created, err := c.client.CreateBatch(ctx, pending, c.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	c.logger.Info("syncer.components.created", "data_path", dataPath, "count", len(created))
	return len(created), nil
}

func (c *ComponentSyncer) ensureDataFolder(ctx context.Context, dataPath, parentID string) (string, error) {
	existing, err := c.client.GetByPath(ctx, dataPath)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return existing.ID, nil
	}
	created, err := c.client.CreateBatch(ctx, []interfaces.CreateItemInput{{
		Name:       c.cfg.DataFolderName,
		TemplateID: c.cfg.DataFolderTemplate,
		ParentID:   parentID,
		Language:   c.cfg.Language,
	}}, 1)
	if err != nil {
		return "", err
	}
	if len(created) == 0 {
		return "", syncerr.HierarchyCreationFailed(dataPath, nil)
	}
	return created[0].ID, nil
}

type componentCandidate struct {
	name string
	html string
}

// candidates lists one entry per rich-text field of each distinct datasource
// referenced by item's renderings. A datasource with several rich-text
// fields yields "<name>-1", "<name>-2" and so on.
func (c *ComponentSyncer) candidates(item interfaces.SourceItem) []componentCandidate {
	byID := make(map[string]interfaces.Datasource, len(item.Datasources))
	for _, ds := range item.Datasources {
		byID[fields.FormatGUID(ds.ID)] = ds
	}

	seen := map[string]struct{}{}
	var out []componentCandidate
	for _, rendering := range item.Renderings {
		key := fields.FormatGUID(rendering.DatasourceID)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		ds, ok := byID[key]
		if !ok {
			c.logger.Debug("syncer.components.datasource_missing", "datasource_id", key, "rendering", rendering.Name)
			continue
		}
		var richText []interfaces.FieldValue
		for _, field := range ds.Fields {
			if field.Kind == interfaces.FieldKindRichText && strings.TrimSpace(field.Text) != "" {
				richText = append(richText, field)
			}
		}
		base := paths.ProposeValidName(ds.Name)
		if base == "" {
			continue
		}
		for i, field := range richText {
			name := base
			if len(richText) > 1 {
				name = base + "-" + strconv.Itoa(i+1)
			}
			out = append(out, componentCandidate{name: name, html: field.Text})
		}
	}
	return out
}
