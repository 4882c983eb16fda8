package sources

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"maps"
	"path"
	"slices"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/goliatone/go-cms-sync/internal/fields"
	"github.com/goliatone/go-cms-sync/internal/logging"
	"github.com/goliatone/go-cms-sync/pkg/interfaces"
)

const (
	DefaultBodyField  = "Body"
	DefaultTitleField = "Title"
)

// MarkdownConfig configures MarkdownProvider.
type MarkdownConfig struct {
	// BaseDir is the directory inside the filesystem holding the documents.
	BaseDir string
	// BodyField names the rich-text field that receives the rendered body.
	BodyField string
	// TitleField names the text field that receives the frontmatter title.
	TitleField string
}

// MarkdownProvider exposes a tree of Markdown documents as legacy items. A
// document's path is its location relative to BaseDir without the extension;
// index.md stands for its directory. Frontmatter may override the path and
// supply the id, template and extra fields.
type MarkdownProvider struct {
	fsys   fs.FS
	cfg    MarkdownConfig
	engine goldmark.Markdown
	logger interfaces.Logger
}

var _ interfaces.SourceItemProvider = (*MarkdownProvider)(nil)

type markdownFrontMatter struct {
	ID         string              `yaml:"id"`
	Path       string              `yaml:"path"`
	Template   string              `yaml:"template"`
	Title      string              `yaml:"title"`
	Fields     map[string]string   `yaml:"fields"`
	References map[string][]string `yaml:"references"`
}

// NewMarkdownProvider builds a provider reading from fsys.
func NewMarkdownProvider(fsys fs.FS, cfg MarkdownConfig, logger interfaces.Logger) *MarkdownProvider {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		cfg.BaseDir = "."
	}
	if cfg.BodyField == "" {
		cfg.BodyField = DefaultBodyField
	}
	if cfg.TitleField == "" {
		cfg.TitleField = DefaultTitleField
	}
	if logger == nil {
		logger = logging.NoOp()
	}
	return &MarkdownProvider{
		fsys: fsys,
		cfg:  cfg,
		engine: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
		logger: logger,
	}
}

// ListItems parses every Markdown document and returns those at or below
// rootPath, ordered by path.
func (p *MarkdownProvider) ListItems(ctx context.Context, rootPath string) ([]interfaces.SourceItem, error) {
	base := path.Clean(p.cfg.BaseDir)
	var items []interfaces.SourceItem
	err := fs.WalkDir(p.fsys, base, func(name string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(path.Ext(name), ".md") {
			return nil
		}
		item, err := p.loadDocument(base, name)
		if err != nil {
			return err
		}
		if underRoot(item.Path, rootPath) {
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(items, func(a, b interfaces.SourceItem) int {
		return strings.Compare(strings.ToLower(a.Path), strings.ToLower(b.Path))
	})
	p.logger.Info("sources.markdown.loaded", "dir", base, "items", len(items), "root", rootPath)
	return items, nil
}

func (p *MarkdownProvider) loadDocument(base, name string) (interfaces.SourceItem, error) {
	raw, err := fs.ReadFile(p.fsys, name)
	if err != nil {
		return interfaces.SourceItem{}, fmt.Errorf("sources: read %s: %w", name, err)
	}

	var meta markdownFrontMatter
	body, err := frontmatter.Parse(bytes.NewReader(raw), &meta)
	if err != nil {
		return interfaces.SourceItem{}, fmt.Errorf("sources: parse frontmatter %s: %w", name, err)
	}

	item := interfaces.SourceItem{
		ID:         strings.TrimSpace(meta.ID),
		Path:       strings.TrimSpace(meta.Path),
		TemplateID: strings.TrimSpace(meta.Template),
	}
	if item.Path == "" {
		item.Path = documentPath(base, name)
	}

	if title := strings.TrimSpace(meta.Title); title != "" {
		item.Fields = append(item.Fields, fields.Text(p.cfg.TitleField, title))
	}
	for _, key := range slices.Sorted(maps.Keys(meta.Fields)) {
		item.Fields = append(item.Fields, fields.Text(key, meta.Fields[key]))
	}
	for _, key := range slices.Sorted(maps.Keys(meta.References)) {
		item.Fields = append(item.Fields, fields.References(key, meta.References[key]...))
	}

	if len(bytes.TrimSpace(body)) > 0 {
		var rendered bytes.Buffer
		if err := p.engine.Convert(body, &rendered); err != nil {
			return interfaces.SourceItem{}, fmt.Errorf("sources: render %s: %w", name, err)
		}
		item.Fields = append(item.Fields, fields.RichText(p.cfg.BodyField, rendered.String()))
	}
	return item, nil
}

// documentPath derives the legacy path of the document at name.
func documentPath(base, name string) string {
	rel := strings.TrimPrefix(name, base)
	if base == "." {
		rel = name
	}
	rel = strings.TrimSuffix(strings.Trim(rel, "/"), path.Ext(rel))
	if strings.EqualFold(path.Base(rel), "index") {
		rel = path.Dir(rel)
		if rel == "." {
			rel = ""
		}
	}
	return "/" + rel
}
