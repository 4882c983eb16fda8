package hierarchy

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-cms-sync/internal/logging"
	"github.com/goliatone/go-cms-sync/internal/paths"
	"github.com/goliatone/go-cms-sync/internal/syncerr"
	"github.com/goliatone/go-cms-sync/pkg/interfaces"
)

var ErrNoItemCreated = errors.New("hierarchy: remote returned no created item")

// TemplateLookup resolves the template used to create a target path.
type TemplateLookup interface {
	LookupTarget(targetPath string) (interfaces.Mapping, bool)
}

// Ensurer makes sure every segment of a target path exists remotely,
// creating missing segments top-down.
type Ensurer struct {
	client           interfaces.RemoteContentClient
	templates        TemplateLookup
	fallbackTemplate string
	rootID           string
	language         string
	logger           interfaces.Logger
	flights          singleflight.Group
}

// Option customises an Ensurer.
type Option func(*Ensurer)

// WithFallbackTemplate sets the template used for segments no mapping
// covers. Without it such segments fail with MappingMissing.
func WithFallbackTemplate(templateID string) Option {
	return func(e *Ensurer) {
		e.fallbackTemplate = strings.TrimSpace(templateID)
	}
}

// WithRootID sets the parent id used when no ancestor of the path exists.
func WithRootID(id string) Option {
	return func(e *Ensurer) {
		e.rootID = strings.TrimSpace(id)
	}
}

// WithLanguage sets the language of created items.
func WithLanguage(language string) Option {
	return func(e *Ensurer) {
		e.language = strings.TrimSpace(language)
	}
}

// WithLogger overrides the ensurer logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(e *Ensurer) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEnsurer builds an Ensurer that creates through client and resolves
// templates through templates.
func NewEnsurer(client interfaces.RemoteContentClient, templates TemplateLookup, opts ...Option) *Ensurer {
	e := &Ensurer{
		client:    client,
		templates: templates,
		logger:    logging.NoOp(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EnsurePath returns the id of the item at targetPath, creating it and any
// missing ancestors. The nearest existing ancestor is found deepest-first;
// missing segments are then created in order, each parented to the one
// before it. Segments are also looked up under the name FormatName gives
// them on creation, so a path is created at most once even when its
// segments are renamed. Concurrent calls that need the same segment share
// one create.
func (e *Ensurer) EnsurePath(ctx context.Context, targetPath string) (string, error) {
	prefixes := paths.AncestorPrefixes(targetPath)
	if len(prefixes) == 0 {
		return "", syncerr.Validation("target path is empty", map[string]any{"path": targetPath})
	}

	parent := located{id: e.rootID}
	start := 0
	for i := len(prefixes) - 1; i >= 0; i-- {
		found, ok, err := e.lookup(ctx, paths.NameVariants(prefixes[i]))
		if err != nil {
			return "", syncerr.HierarchyCreationFailed(prefixes[i], err)
		}
		if ok {
			parent = found
			start = i + 1
			break
		}
	}

	for _, prefix := range prefixes[start:] {
		next, err := e.createSegment(ctx, prefix, parent)
		if err != nil {
			return "", syncerr.HierarchyCreationFailed(prefix, err)
		}
		parent = next
	}
	return parent.id, nil
}

// located is a remote item together with the path it lives at.
type located struct {
	id   string
	path string
}

func (e *Ensurer) lookup(ctx context.Context, candidates []string) (located, bool, error) {
	for _, candidate := range candidates {
		node, err := e.client.GetByPath(ctx, candidate)
		if err != nil {
			return located{}, false, err
		}
		if node == nil {
			continue
		}
		path := node.Path
		if path == "" {
			path = candidate
		}
		return located{id: node.ID, path: path}, true, nil
	}
	return located{}, false, nil
}

func (e *Ensurer) createSegment(ctx context.Context, prefix string, parent located) (located, error) {
	segment := paths.LastSegment(prefix)
	name := paths.FormatName(segment)
	if name == "" {
		return located{}, syncerr.Validation("segment has no valid item name", map[string]any{"path": prefix})
	}
	childPath := paths.Clean(parent.path + "/" + name)
	candidates := []string{paths.Clean(parent.path + "/" + segment)}
	if paths.Key(childPath) != paths.Key(candidates[0]) {
		candidates = append(candidates, childPath)
	}

	value, err, shared := e.flights.Do(parent.id+"|"+paths.Key(childPath), func() (any, error) {
		existing, ok, err := e.lookup(ctx, candidates)
		if err != nil {
			return located{}, err
		}
		if ok {
			return existing, nil
		}

		templateID, err := e.templateFor(prefix)
		if err != nil {
			return located{}, err
		}
		created, err := e.client.CreateBatch(ctx, []interfaces.CreateItemInput{{
			Name:       name,
			TemplateID: templateID,
			ParentID:   parent.id,
			Language:   e.language,
		}}, 1)
		if err != nil {
			return located{}, err
		}
		if len(created) == 0 || created[0].ID == "" {
			return located{}, ErrNoItemCreated
		}
		path := created[0].Path
		if path == "" {
			path = childPath
		}
		e.logger.Info("hierarchy.segment.created",
			"path", prefix,
			"name", name,
			"item_path", path,
			"item_id", created[0].ID,
			"template_id", templateID,
		)
		return located{id: created[0].ID, path: path}, nil
	})
	if err != nil {
		return located{}, err
	}
	if shared {
		e.logger.Debug("hierarchy.segment.shared", "path", prefix)
	}
	return value.(located), nil
}

func (e *Ensurer) templateFor(prefix string) (string, error) {
	if e.templates != nil {
		if entry, ok := e.templates.LookupTarget(prefix); ok && entry.TemplateID != "" {
			return entry.TemplateID, nil
		}
	}
	if e.fallbackTemplate != "" {
		return e.fallbackTemplate, nil
	}
	return "", syncerr.MappingMissing(prefix)
}
