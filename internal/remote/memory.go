package remote

import (
	"context"
	"errors"
	"iter"
	"slices"
	"strings"
	"sync"

	"github.com/goliatone/go-cms-sync/internal/identity"
	"github.com/goliatone/go-cms-sync/internal/paths"
	"github.com/goliatone/go-cms-sync/pkg/interfaces"
)

var ErrParentNotFound = errors.New("remote: parent item not found")

// MemoryClient is an in-process RemoteContentClient. It backs dry runs and
// tests, records every call and can inject failures.
type MemoryClient struct {
	mu        sync.Mutex
	byPath    map[string]*memoryNode
	byID      map[string]*memoryNode
	batchSize int

	gets    []string
	creates [][]interfaces.CreateItemInput
	updates [][]interfaces.UpdateItemInput

	// FailCreate, when set, is consulted before each create chunk with the
	// 1-based chunk number of the call. A non-nil error fails that chunk.
	FailCreate func(chunk int, items []interfaces.CreateItemInput) error
	// FailUpdate is the update counterpart of FailCreate.
	FailUpdate func(chunk int, items []interfaces.UpdateItemInput) error
	// FailGet fails GetByPath for matching paths.
	FailGet func(path string) error
}

type memoryNode struct {
	node     interfaces.RemoteNode
	parentID string
	fields   map[string]interfaces.FieldInput
	order    []string
}

var _ interfaces.RemoteContentClient = (*MemoryClient)(nil)

// NewMemoryClient returns an empty in-memory remote.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		byPath:    map[string]*memoryNode{},
		byID:      map[string]*memoryNode{},
		batchSize: DefaultBatchSize,
	}
}

// Seed creates path and any missing ancestors with templateID and returns
// the id of the deepest node.
func (m *MemoryClient) Seed(path, templateID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	parentID := ""
	var last *memoryNode
	for _, prefix := range paths.AncestorPrefixes(path) {
		if existing, ok := m.byPath[paths.Key(prefix)]; ok {
			last = existing
			parentID = existing.node.ID
			continue
		}
		last = m.insert(prefix, paths.LastSegment(prefix), templateID, parentID)
		parentID = last.node.ID
	}
	if last == nil {
		return ""
	}
	return last.node.ID
}

// Node returns the stored node at path.
func (m *MemoryClient) Node(path string) (interfaces.RemoteNode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byPath[paths.Key(path)]
	if !ok {
		return interfaces.RemoteNode{}, false
	}
	return stored.node, true
}

// Fields returns the current field values of the node with id.
func (m *MemoryClient) Fields(id string) []interfaces.FieldInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byID[id]
	if !ok {
		return nil
	}
	out := make([]interfaces.FieldInput, 0, len(stored.order))
	for _, key := range stored.order {
		out = append(out, stored.fields[key])
	}
	return out
}

// GetCalls lists the paths passed to GetByPath.
func (m *MemoryClient) GetCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.gets)
}

// CreateCalls lists every create chunk sent, in order.
func (m *MemoryClient) CreateCalls() [][]interfaces.CreateItemInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.creates)
}

// UpdateCalls lists every update chunk sent, in order.
func (m *MemoryClient) UpdateCalls() [][]interfaces.UpdateItemInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.updates)
}

func (m *MemoryClient) GetByPath(ctx context.Context, path string) (*interfaces.RemoteNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets = append(m.gets, path)
	if m.FailGet != nil {
		if err := m.FailGet(path); err != nil {
			return nil, err
		}
	}
	stored, ok := m.byPath[paths.Key(path)]
	if !ok {
		return nil, nil
	}
	node := stored.node
	return &node, nil
}

func (m *MemoryClient) ListChildren(ctx context.Context, parentPath string, opts interfaces.ListOptions) iter.Seq2[interfaces.RemoteNode, error] {
	return func(yield func(interfaces.RemoteNode, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(interfaces.RemoteNode{}, err)
			return
		}
		for _, child := range m.children(parentPath, opts) {
			if !yield(child, nil) {
				return
			}
		}
	}
}

func (m *MemoryClient) children(parentPath string, opts interfaces.ListOptions) []interfaces.RemoteNode {
	m.mu.Lock()
	defer m.mu.Unlock()
	parent, ok := m.byPath[paths.Key(parentPath)]
	if !ok {
		return nil
	}
	include := templateSet(opts.IncludeTemplateIDs)
	exclude := templateSet(opts.ExcludeTemplateIDs)
	var out []interfaces.RemoteNode
	for _, stored := range m.byPath {
		if stored.parentID != parent.node.ID {
			continue
		}
		key := strings.ToUpper(stored.node.TemplateID)
		if len(include) > 0 {
			if _, ok := include[key]; !ok {
				continue
			}
		}
		if _, ok := exclude[key]; ok {
			continue
		}
		out = append(out, stored.node)
	}
	slices.SortFunc(out, func(a, b interfaces.RemoteNode) int {
		return paths.Compare(a.Path, b.Path)
	})
	return out
}

func (m *MemoryClient) CreateBatch(ctx context.Context, items []interfaces.CreateItemInput, batchSize int) ([]interfaces.CreatedNode, error) {
	size := batchSize
	if size <= 0 {
		size = m.batchSize
	}
	created := make([]interfaces.CreatedNode, 0, len(items))
	number := 0
	for chunk := range slices.Chunk(items, size) {
		number++
		if err := m.createChunk(ctx, number, chunk, &created); err != nil {
			return nil, &BatchTransportError{Op: "create", Completed: len(created), Err: err}
		}
	}
	return created, nil
}

func (m *MemoryClient) createChunk(ctx context.Context, number int, chunk []interfaces.CreateItemInput, created *[]interfaces.CreatedNode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates = append(m.creates, slices.Clone(chunk))
	if m.FailCreate != nil {
		if err := m.FailCreate(number, chunk); err != nil {
			return err
		}
	}
	results := make([]interfaces.CreatedNode, 0, len(chunk))
	for _, item := range chunk {
		parentPath := ""
		if item.ParentID != "" {
			parent, ok := m.byID[item.ParentID]
			if !ok {
				return ErrParentNotFound
			}
			parentPath = parent.node.Path
		}
		path := strings.TrimRight(parentPath, "/") + "/" + item.Name
		stored, exists := m.byPath[paths.Key(path)]
		if !exists {
			stored = m.insert(path, item.Name, item.TemplateID, item.ParentID)
		}
		stored.setFields(item.Fields)
		results = append(results, interfaces.CreatedNode{
			ID:       stored.node.ID,
			Name:     stored.node.Name,
			Path:     stored.node.Path,
			Language: languageOr(item.Language, DefaultLanguage),
			Fields:   slices.Clone(item.Fields),
		})
	}
	*created = append(*created, results...)
	return nil
}

func (m *MemoryClient) UpdateBatch(ctx context.Context, items []interfaces.UpdateItemInput, batchSize int) bool {
	size := batchSize
	if size <= 0 {
		size = m.batchSize
	}
	number := 0
	for chunk := range slices.Chunk(items, size) {
		number++
		if !m.updateChunk(ctx, number, chunk) {
			return false
		}
	}
	return true
}

func (m *MemoryClient) updateChunk(ctx context.Context, number int, chunk []interfaces.UpdateItemInput) bool {
	if ctx.Err() != nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, slices.Clone(chunk))
	if m.FailUpdate != nil && m.FailUpdate(number, chunk) != nil {
		return false
	}
	for _, item := range chunk {
		stored, ok := m.byID[item.ItemID]
		if !ok {
			return false
		}
		stored.setFields(item.Fields)
	}
	return true
}

func (m *MemoryClient) insert(path, name, templateID, parentID string) *memoryNode {
	clean := paths.Clean(path)
	stored := &memoryNode{
		node: interfaces.RemoteNode{
			ID:         identity.FormatGUID(identity.NodeUUID(clean)),
			Path:       clean,
			Name:       name,
			TemplateID: templateID,
		},
		parentID: parentID,
		fields:   map[string]interfaces.FieldInput{},
	}
	m.byPath[paths.Key(clean)] = stored
	m.byID[stored.node.ID] = stored
	return stored
}

func (n *memoryNode) setFields(fields []interfaces.FieldInput) {
	for _, field := range fields {
		if strings.TrimSpace(field.Name) == "" {
			continue
		}
		key := strings.ToLower(field.Name)
		if _, ok := n.fields[key]; !ok {
			n.order = append(n.order, key)
		}
		n.fields[key] = field
	}
}

func templateSet(ids []string) map[string]struct{} {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[strings.ToUpper(strings.TrimSpace(id))] = struct{}{}
	}
	return set
}
