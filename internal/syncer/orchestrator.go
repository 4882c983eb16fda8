package syncer

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-cms-sync/internal/logging"
	"github.com/goliatone/go-cms-sync/internal/mapping"
	"github.com/goliatone/go-cms-sync/internal/paths"
	"github.com/goliatone/go-cms-sync/internal/syncerr"
	"github.com/goliatone/go-cms-sync/pkg/interfaces"
)

const (
	DefaultBatchSize       = 5
	DefaultUpdateBatchSize = 50
)

const (
	MessageMappingNotFound = "mapping not found for this item"
	MessageTargetMissing   = "target item not found or could not be created"
	MessageUpdateFailed    = "field update failed"
	MessageComponentFailed = "component sync failed"
	MessageInvalidMapping  = "mapping has no target path"
	MessageInternalError   = "internal error while syncing item"
	messageSyncedPrefix    = "item synced: "
)

// PathEnsurer creates any missing nodes along a target path.
type PathEnsurer interface {
	EnsurePath(ctx context.Context, targetPath string) (string, error)
}

// ResultObserver is notified once per finished item, in result order.
type ResultObserver interface {
	ObserveResult(ctx context.Context, result interfaces.SyncResult)
}

// ObserverFunc adapts a function to ResultObserver.
type ObserverFunc func(ctx context.Context, result interfaces.SyncResult)

func (f ObserverFunc) ObserveResult(ctx context.Context, result interfaces.SyncResult) {
	f(ctx, result)
}

// Config tunes the orchestrator.
type Config struct {
	// BatchSize is the number of items started per pacing round.
	BatchSize int
	// Concurrency bounds in-flight items inside one batch. Values below 2
	// process items sequentially.
	Concurrency int
	// UpdateBatchSize is forwarded to RemoteContentClient.UpdateBatch.
	UpdateBatchSize int
	Language        string
	Options         interfaces.SyncOptions
}

// Option mutates an Orchestrator during construction.
type Option func(*Orchestrator)

// WithConfig replaces the orchestrator configuration.
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) {
		o.cfg = cfg
	}
}

// WithSyncOptions toggles hierarchy creation and component sync.
func WithSyncOptions(opts interfaces.SyncOptions) Option {
	return func(o *Orchestrator) {
		o.cfg.Options = opts
	}
}

// WithComponents enables datasource mirroring through syncer.
func WithComponents(syncer *ComponentSyncer) Option {
	return func(o *Orchestrator) {
		o.components = syncer
	}
}

// WithObserver registers a result observer.
func WithObserver(observer ResultObserver) Option {
	return func(o *Orchestrator) {
		if observer != nil {
			o.observers = append(o.observers, observer)
		}
	}
}

// WithLogger overrides the orchestrator logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Orchestrator drives a migration run: for every source item it resolves
// the mapping, locates or creates the destination item and writes fields.
type Orchestrator struct {
	client     interfaces.RemoteContentClient
	ensurer    PathEnsurer
	policy     interfaces.FieldMappingPolicy
	components *ComponentSyncer
	observers  []ResultObserver
	cfg        Config
	logger     interfaces.Logger
}

// NewOrchestrator wires an orchestrator. ensurer may be nil when missing
// targets are never created.
func NewOrchestrator(client interfaces.RemoteContentClient, ensurer PathEnsurer, policy interfaces.FieldMappingPolicy, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:  client,
		ensurer: ensurer,
		policy:  policy,
		logger:  logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.cfg.BatchSize <= 0 {
		o.cfg.BatchSize = DefaultBatchSize
	}
	if o.cfg.UpdateBatchSize <= 0 {
		o.cfg.UpdateBatchSize = DefaultUpdateBatchSize
	}
	return o
}

// SyncAll migrates items in batches. Items whose mapping sorts earlier in
// index are processed first so parents exist before their children. The
// context is checked between batches; on cancellation the results gathered
// so far are returned together with the context error.
func (o *Orchestrator) SyncAll(ctx context.Context, items []interfaces.SourceItem, index *mapping.Index) ([]interfaces.SyncResult, error) {
	ordered := orderItems(items, index)
	results := make([]interfaces.SyncResult, 0, len(ordered))
	logger := o.logger.WithContext(ctx)

	logger.Info("sync.run.started", "items", len(ordered), "mappings", index.Len(), "batch_size", o.cfg.BatchSize)

	batch := 0
	for chunk := range slices.Chunk(ordered, o.cfg.BatchSize) {
		if err := ctx.Err(); err != nil {
			logger.Warn("sync.run.cancelled", "processed", len(results), "remaining", len(ordered)-len(results), "error", err)
			return results, err
		}
		batch++
		done := o.runBatch(ctx, chunk, index)
		for _, result := range done {
			o.notify(ctx, result)
		}
		results = append(results, done...)
		logger.Debug("sync.batch.completed", "batch", batch, "items", len(done))
	}

	summary := interfaces.Summarize(results)
	logger.Info("sync.run.completed", "total", summary.Total, "succeeded", summary.Succeeded, "failed", summary.Failed)
	return results, nil
}

func (o *Orchestrator) runBatch(ctx context.Context, chunk []interfaces.SourceItem, index *mapping.Index) []interfaces.SyncResult {
	out := make([]interfaces.SyncResult, 0, len(chunk))
	if o.cfg.Concurrency < 2 || len(chunk) < 2 {
		for _, item := range chunk {
			out = append(out, o.SyncItem(ctx, item, index))
		}
		return out
	}

	var (
		mu    sync.Mutex
		group errgroup.Group
	)
	group.SetLimit(o.cfg.Concurrency)
	for _, item := range chunk {
		group.Go(func() error {
			result := o.SyncItem(ctx, item, index)
			mu.Lock()
			out = append(out, result)
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()
	return out
}

// SyncItem migrates a single item. Every failure, including a panic, is
// reported through the returned result.
func (o *Orchestrator) SyncItem(ctx context.Context, item interfaces.SourceItem, index *mapping.Index) (result interfaces.SyncResult) {
	result = interfaces.SyncResult{SourcePath: item.Path}
	defer func() {
		if recovered := recover(); recovered != nil {
			o.logger.Error("sync.item.panic", "source_path", item.Path, "panic", recovered)
			result = failed(result, MessageInternalError, fmt.Errorf("panic: %v", recovered))
		}
	}()

	entry, ok := index.Lookup(item.Path)
	if !ok {
		return failed(result, MessageMappingNotFound, syncerr.MappingMissing(item.Path))
	}
	result.TargetPath = entry.TargetPath
	logger := logging.WithItemContext(o.logger.WithContext(ctx), item.Path, entry.TargetPath)

	if strings.TrimSpace(entry.TargetPath) == "" {
		return failed(result, MessageInvalidMapping, syncerr.Validation(MessageInvalidMapping, map[string]any{"source_path": item.Path}))
	}

	node, err := o.resolveTarget(ctx, entry.TargetPath)
	if err != nil {
		logger.Warn("sync.item.target_failed", "error", err)
		return failed(result, MessageTargetMissing, err)
	}
	if node == nil {
		return failed(result, MessageTargetMissing, nil)
	}

	templateID := node.TemplateID
	if templateID == "" {
		templateID = entry.TemplateID
	}
	inputs, err := o.mapFields(ctx, item, templateID)
	if err != nil {
		return failed(result, MessageUpdateFailed, err)
	}
	if len(inputs) > 0 {
		update := interfaces.UpdateItemInput{ItemID: node.ID, Language: o.cfg.Language, Fields: inputs}
		if !o.client.UpdateBatch(ctx, []interfaces.UpdateItemInput{update}, o.cfg.UpdateBatchSize) {
			logger.Warn("sync.item.update_failed", "item_id", node.ID)
			return failed(result, MessageUpdateFailed, nil)
		}
	}

	if o.cfg.Options.SyncComponents && o.components != nil {
		created, err := o.components.Sync(ctx, item, *node)
		if err != nil {
			logger.Warn("sync.item.components_failed", "error", err)
			return failed(result, MessageComponentFailed, err)
		}
		if created > 0 {
			logger.Debug("sync.item.components_created", "count", created)
		}
	}

	logger.Info("sync.item.completed", "item_id", node.ID, "fields", len(inputs))
	result.Success = true
	result.Message = messageSyncedPrefix + entry.TargetPath
	return result
}

// resolveTarget returns the destination node, creating its hierarchy when
// enabled. A created node that no lookup can see is still returned by id.
func (o *Orchestrator) resolveTarget(ctx context.Context, targetPath string) (*interfaces.RemoteNode, error) {
	node, err := o.lookupTarget(ctx, targetPath)
	if err != nil || node != nil {
		return node, err
	}
	if !o.cfg.Options.CreateMissing || o.ensurer == nil {
		return nil, nil
	}

	id, err := o.ensurer.EnsurePath(ctx, targetPath)
	if err != nil {
		return nil, err
	}
	node, err = o.lookupTarget(ctx, targetPath)
	if err != nil {
		return nil, err
	}
	if node == nil && id != "" {
		node = &interfaces.RemoteNode{ID: id, Path: targetPath}
	}
	return node, nil
}

// lookupTarget tries targetPath as written and then under the item names
// hierarchy creation gives its segments.
func (o *Orchestrator) lookupTarget(ctx context.Context, targetPath string) (*interfaces.RemoteNode, error) {
	for _, candidate := range paths.NameVariants(targetPath) {
		node, err := o.client.GetByPath(ctx, candidate)
		if err != nil || node != nil {
			return node, err
		}
	}
	return nil, nil
}

func (o *Orchestrator) mapFields(ctx context.Context, item interfaces.SourceItem, templateID string) ([]interfaces.FieldInput, error) {
	if o.policy == nil {
		return nil, nil
	}
	return o.policy.MapFields(ctx, item, templateID)
}

func (o *Orchestrator) notify(ctx context.Context, result interfaces.SyncResult) {
	for _, observer := range o.observers {
		observer.ObserveResult(ctx, result)
	}
}

func failed(result interfaces.SyncResult, message string, err error) interfaces.SyncResult {
	result.Success = false
	result.Message = message
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
	}
	return result
}

// orderItems sorts mapped items by their rank in index and appends unmapped
// items in input order.
func orderItems(items []interfaces.SourceItem, index *mapping.Index) []interfaces.SourceItem {
	type ranked struct {
		item interfaces.SourceItem
		rank int
		pos  int
	}
	mapped := make([]ranked, 0, len(items))
	var unmapped []interfaces.SourceItem
	for pos, item := range items {
		rank, ok := index.Rank(item.Path)
		if !ok {
			unmapped = append(unmapped, item)
			continue
		}
		mapped = append(mapped, ranked{item: item, rank: rank, pos: pos})
	}
	slices.SortStableFunc(mapped, func(a, b ranked) int {
		if a.rank != b.rank {
			return a.rank - b.rank
		}
		return a.pos - b.pos
	})

	ordered := make([]interfaces.SourceItem, 0, len(items))
	for _, entry := range mapped {
		ordered = append(ordered, entry.item)
	}
	return append(ordered, unmapped...)
}
