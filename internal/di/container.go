package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	repocache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-cms-sync/internal/commands"
	"github.com/goliatone/go-cms-sync/internal/commands/synccmd"
	"github.com/goliatone/go-cms-sync/internal/fields"
	"github.com/goliatone/go-cms-sync/internal/hierarchy"
	"github.com/goliatone/go-cms-sync/internal/logging"
	"github.com/goliatone/go-cms-sync/internal/logging/console"
	"github.com/goliatone/go-cms-sync/internal/logging/gologger"
	"github.com/goliatone/go-cms-sync/internal/mapping"
	"github.com/goliatone/go-cms-sync/internal/paths"
	"github.com/goliatone/go-cms-sync/internal/remote"
	"github.com/goliatone/go-cms-sync/internal/reporting"
	"github.com/goliatone/go-cms-sync/internal/runtimeconfig"
	"github.com/goliatone/go-cms-sync/internal/sources"
	"github.com/goliatone/go-cms-sync/internal/syncer"
	"github.com/goliatone/go-cms-sync/pkg/interfaces"
	"github.com/goliatone/go-cms-sync/pkg/storage"
)

var ErrSourceProviderRequired = errors.New("di: source item provider is required")

// Container wires the sync pipeline from a runtime configuration.
type Container struct {
	Config runtimeconfig.Config

	loggerProvider interfaces.LoggerProvider
	logger         interfaces.Logger

	bunDB         *bun.DB
	ownsDB        bool
	cacheService  repocache.CacheService
	keySerializer repocache.KeySerializer

	httpClient *http.Client
	tokens     interfaces.TokenSource

	sourceNormalizer *paths.Normalizer
	targetNormalizer *paths.Normalizer

	mappingSource interfaces.MappingSource
	bunMappings   *mapping.BunSource
	items         interfaces.SourceItemProvider
	client        interfaces.RemoteContentClient
	policy        interfaces.FieldMappingPolicy
	reports       *reporting.Store
	observers     []syncer.ResultObserver
	now           func() time.Time
}

// Option mutates the container before it is finalised.
type Option func(*Container)

// WithLoggerProvider overrides the provider built from Config.Logging.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		c.loggerProvider = provider
	}
}

// WithBunDB supplies the database used by the mapping table and run reports.
// The container does not close a supplied database.
func WithBunDB(db *bun.DB) Option {
	return func(c *Container) {
		c.bunDB = db
	}
}

// WithCache overrides the cache wrapped around the mapping repository.
func WithCache(service repocache.CacheService, serializer repocache.KeySerializer) Option {
	return func(c *Container) {
		c.cacheService = service
		c.keySerializer = serializer
	}
}

// WithHTTPClient overrides the client used for the content API and token requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Container) {
		c.httpClient = client
	}
}

// WithTokenSource overrides the token source built from Config.Auth.
func WithTokenSource(tokens interfaces.TokenSource) Option {
	return func(c *Container) {
		c.tokens = tokens
	}
}

// WithMappingSource overrides the mapping source built from Config.Mapping.
func WithMappingSource(source interfaces.MappingSource) Option {
	return func(c *Container) {
		c.mappingSource = source
	}
}

// WithSourceProvider overrides the legacy item provider built from Config.Sources.
func WithSourceProvider(provider interfaces.SourceItemProvider) Option {
	return func(c *Container) {
		c.items = provider
	}
}

// WithRemoteClient overrides the remote content client.
func WithRemoteClient(client interfaces.RemoteContentClient) Option {
	return func(c *Container) {
		c.client = client
	}
}

// WithFieldPolicy overrides the default field mapping policy.
func WithFieldPolicy(policy interfaces.FieldMappingPolicy) Option {
	return func(c *Container) {
		c.policy = policy
	}
}

// WithResultObserver registers an observer attached to every run.
func WithResultObserver(observer syncer.ResultObserver) Option {
	return func(c *Container) {
		if observer != nil {
			c.observers = append(c.observers, observer)
		}
	}
}

// WithClock overrides the clock used for run reports.
func WithClock(now func() time.Time) Option {
	return func(c *Container) {
		c.now = now
	}
}

// NewContainer validates cfg and wires every collaborator it names. Options
// replace individual collaborators; the configuration sections they would
// have been built from are then ignored.
func NewContainer(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	c := &Container{Config: cfg, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if err := c.validate(); err != nil {
		return nil, err
	}

	if err := c.configureLoggerProvider(); err != nil {
		return nil, err
	}
	c.logger = logging.ModuleLogger(c.loggerProvider, "cmssync.di")

	if err := c.configureDatabase(); err != nil {
		return nil, err
	}
	c.configureCacheDefaults()
	c.configureNormalizers()
	if err := c.configureMappingSource(); err != nil {
		c.closeOwned()
		return nil, err
	}
	if err := c.configureSourceProvider(); err != nil {
		c.closeOwned()
		return nil, err
	}
	if err := c.configureRemote(); err != nil {
		c.closeOwned()
		return nil, err
	}
	c.configurePolicy()
	c.configureReporting()

	c.logger.Debug("container.configured",
		"dry_run", c.Config.Features.DryRun,
		"mapping_source", c.Config.Mapping.Source,
		"source_kind", c.Config.Sources.Kind,
		"reporting", c.reports != nil,
	)
	return c, nil
}

// validate runs the config checks for every section no option replaced.
func (c *Container) validate() error {
	cfg := c.Config
	if c.client != nil {
		cfg.Features.DryRun = true
	}
	if c.mappingSource != nil {
		cfg.Mapping.Source = runtimeconfig.MappingSourceFile
		if strings.TrimSpace(cfg.Mapping.File) == "" {
			cfg.Mapping.File = "-"
		}
	}
	if c.items != nil {
		cfg.Sources.Kind = runtimeconfig.SourceKindExport
		if strings.TrimSpace(cfg.Sources.ExportFile) == "" {
			cfg.Sources.ExportFile = "-"
		}
	}
	if c.bunDB != nil && strings.TrimSpace(cfg.Database.DSN) == "" {
		cfg.Database.DSN = "-"
	}
	return cfg.Validate()
}

func (c *Container) configureLoggerProvider() error {
	if c.loggerProvider != nil {
		return nil
	}
	if !c.Config.Features.Logger {
		return nil
	}
	logCfg := c.Config.Logging
	switch strings.ToLower(strings.TrimSpace(logCfg.Provider)) {
	case "gologger":
		provider, err := gologger.NewProvider(gologger.Config{
			Level:     logCfg.Level,
			Format:    logCfg.Format,
			AddSource: logCfg.AddSource,
			Focus:     logCfg.Focus,
		})
		if err != nil {
			return err
		}
		c.loggerProvider = provider
	default:
		opts := console.Options{}
		if level, ok := console.ParseLevel(logCfg.Level); ok {
			opts.MinLevel = &level
		}
		c.loggerProvider = console.NewProvider(opts)
	}
	return nil
}

func (c *Container) configureDatabase() error {
	if c.bunDB != nil {
		return nil
	}
	needsDB := c.Config.Reporting.Enabled ||
		(c.mappingSource == nil && strings.EqualFold(strings.TrimSpace(c.Config.Mapping.Source), runtimeconfig.MappingSourceDatabase))
	if !needsDB {
		return nil
	}
	db, err := storage.Open(context.Background(), c.Config.Database)
	if err != nil {
		return err
	}
	c.bunDB = db
	c.ownsDB = true
	c.logger.Debug("storage.opened", "driver", storage.NormalizeDriver(c.Config.Database.Driver))
	return nil
}

func (c *Container) configureCacheDefaults() {
	if !c.Config.Mapping.Cache.Enabled {
		return
	}
	if c.cacheService == nil {
		cfg := repocache.DefaultConfig()
		if ttl := c.Config.Mapping.Cache.TTL; ttl > 0 {
			cfg.TTL = ttl
		}
		service, err := repocache.NewCacheService(cfg)
		if err != nil {
			c.logger.Warn("mapping.cache.disabled", "error", err)
			return
		}
		c.cacheService = service
	}
	if c.cacheService != nil && c.keySerializer == nil {
		c.keySerializer = repocache.NewDefaultKeySerializer()
	}
}

func (c *Container) configureNormalizers() {
	preserve := c.Config.Paths.PreserveDashTemplates
	c.sourceNormalizer = paths.NewNormalizer(paths.NormalizerConfig{
		RootPrefix:            c.Config.Paths.SourceRootPrefix,
		PreserveDashTemplates: preserve,
	})
	c.targetNormalizer = paths.NewNormalizer(paths.NormalizerConfig{
		RootPrefix:            c.Config.Paths.RootPrefix,
		PreserveDashTemplates: preserve,
	})
}

func (c *Container) configureMappingSource() error {
	if c.mappingSource != nil {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(c.Config.Mapping.Source)) {
	case runtimeconfig.MappingSourceDatabase:
		c.bunMappings = mapping.NewBunSourceWithCache(c.bunDB, c.cacheService, c.keySerializer)
		c.mappingSource = c.bunMappings
	default:
		c.mappingSource = mapping.NewOSFileSource(c.Config.Mapping.File)
	}
	return nil
}

func (c *Container) configureSourceProvider() error {
	if c.items != nil {
		return nil
	}
	logger := logging.SourcesLogger(c.loggerProvider)
	switch strings.ToLower(strings.TrimSpace(c.Config.Sources.Kind)) {
	case runtimeconfig.SourceKindMarkdown:
		dir := strings.TrimSpace(c.Config.Sources.MarkdownDir)
		if dir == "" {
			return ErrSourceProviderRequired
		}
		c.items = sources.NewMarkdownProvider(os.DirFS(dir), sources.MarkdownConfig{
			BodyField: c.Config.Sources.BodyField,
		}, logger)
	default:
		file := strings.TrimSpace(c.Config.Sources.ExportFile)
		if file == "" {
			return ErrSourceProviderRequired
		}
		c.items = sources.NewOSExportProvider(file, logger)
	}
	return nil
}

func (c *Container) configureRemote() error {
	if c.client != nil {
		return nil
	}
	logger := logging.RemoteLogger(c.loggerProvider)
	if c.Config.Features.DryRun {
		logger.Info("remote.dry_run", "backend", "memory")
		c.client = remote.NewMemoryClient()
		return nil
	}

	tokens, err := c.tokenSource()
	if err != nil {
		return err
	}
	remoteCfg := c.Config.Remote
	endpoint := strings.TrimSpace(remoteCfg.Endpoint)
	if endpoint == "" {
		endpoint = remote.AuthoringEndpoint(remoteCfg.Host)
	}
	transport, err := remote.NewHTTPTransport(remote.HTTPTransportConfig{
		Endpoint:          endpoint,
		Tokens:            tokens,
		Client:            c.httpClient,
		RequestsPerSecond: remoteCfg.RequestsPerSecond,
		Burst:             remoteCfg.Burst,
		Timeout:           remoteCfg.Timeout,
		Logger:            logger,
	})
	if err != nil {
		return err
	}

	var client interfaces.RemoteContentClient = remote.NewClient(transport,
		remote.WithDatabase(remoteCfg.Database),
		remote.WithLanguage(remoteCfg.Language),
		remote.WithPageSize(remoteCfg.PageSize),
		remote.WithBatchSize(remoteCfg.BatchSize),
		remote.WithLogger(logger),
	)
	if remoteCfg.Retry.Enabled {
		client = remote.NewRetryingClient(client, remote.RetryConfig{
			MaxTries:        remoteCfg.Retry.MaxTries,
			InitialInterval: remoteCfg.Retry.InitialInterval,
			MaxInterval:     remoteCfg.Retry.MaxInterval,
			MaxElapsedTime:  remoteCfg.Retry.MaxElapsedTime,
		}, logger)
	}
	c.client = client
	return nil
}

func (c *Container) tokenSource() (interfaces.TokenSource, error) {
	if c.tokens != nil {
		return c.tokens, nil
	}
	auth := c.Config.Auth
	if strings.EqualFold(strings.TrimSpace(auth.Mode), runtimeconfig.AuthModeStatic) {
		return remote.StaticToken(strings.TrimSpace(auth.Token)), nil
	}
	return remote.NewClientCredentials(remote.ClientCredentialsConfig{
		URL:          auth.URL,
		ClientID:     auth.ClientID,
		ClientSecret: auth.ClientSecret,
		Audience:     auth.Audience,
		Client:       c.httpClient,
	})
}

func (c *Container) configurePolicy() {
	if c.policy != nil {
		return
	}
	c.policy = fields.NewDefaultPolicy(fields.PolicyConfig{
		Renames:      c.Config.Fields.Renames,
		Exclude:      c.Config.Fields.Exclude,
		SkipPrefixes: c.Config.Fields.SkipPrefixes,
	})
}

func (c *Container) configureReporting() {
	if !c.Config.Reporting.Enabled || c.bunDB == nil {
		return
	}
	c.reports = reporting.NewStore(c.bunDB,
		reporting.WithClock(c.now),
		reporting.WithLogger(logging.ReportingLogger(c.loggerProvider)),
	)
}

// LoggerProvider returns the configured provider, nil when logging is off.
func (c *Container) LoggerProvider() interfaces.LoggerProvider {
	return c.loggerProvider
}

// RemoteClient returns the content client used by runs.
func (c *Container) RemoteClient() interfaces.RemoteContentClient {
	return c.client
}

// MappingSource returns the configured mapping source.
func (c *Container) MappingSource() interfaces.MappingSource {
	return c.mappingSource
}

// SourceProvider returns the configured legacy item provider.
func (c *Container) SourceProvider() interfaces.SourceItemProvider {
	return c.items
}

// Reports returns the run report store, nil when reporting is disabled.
func (c *Container) Reports() *reporting.Store {
	return c.reports
}

// DB returns the database handle, nil when nothing needs one.
func (c *Container) DB() *bun.DB {
	return c.bunDB
}

// EnsureSchema creates the mapping and report tables the configuration uses.
func (c *Container) EnsureSchema(ctx context.Context) error {
	if c.bunMappings != nil {
		if err := c.bunMappings.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("di: mapping schema: %w", err)
		}
	}
	if c.reports != nil {
		if err := c.reports.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("di: report schema: %w", err)
		}
	}
	return nil
}

// LoadIndex reads and normalizes the mapping table.
func (c *Container) LoadIndex(ctx context.Context) (*mapping.Index, error) {
	loader := mapping.NewLoader(c.mappingSource,
		mapping.WithSourceNormalizer(c.sourceNormalizer),
		mapping.WithTargetNormalizer(c.targetNormalizer),
		mapping.WithLogger(logging.MappingLogger(c.loggerProvider)),
	)
	return loader.Load(ctx)
}

// ValidateMappings loads the mapping table and reports what the index kept.
func (c *Container) ValidateMappings(ctx context.Context) (mapping.BuildStats, error) {
	if err := c.EnsureSchema(ctx); err != nil {
		return mapping.BuildStats{}, err
	}
	idx, err := c.LoadIndex(ctx)
	if err != nil {
		return mapping.BuildStats{}, err
	}
	return idx.Stats(), nil
}

// Orchestrator builds an orchestrator bound to index.
func (c *Container) Orchestrator(index *mapping.Index, opts interfaces.SyncOptions) *syncer.Orchestrator {
	language := c.Config.Remote.Language
	ensurer := hierarchy.NewEnsurer(c.client, index,
		hierarchy.WithFallbackTemplate(c.Config.Paths.FallbackTemplate),
		hierarchy.WithRootID(c.Config.Paths.RootID),
		hierarchy.WithLanguage(language),
		hierarchy.WithLogger(logging.HierarchyLogger(c.loggerProvider)),
	)

	syncLogger := logging.SyncerLogger(c.loggerProvider)
	orchestratorOpts := []syncer.Option{
		syncer.WithConfig(syncer.Config{
			BatchSize:       c.Config.Sync.BatchSize,
			Concurrency:     c.Config.Sync.Concurrency,
			UpdateBatchSize: c.Config.Sync.UpdateBatchSize,
			Language:        language,
		}),
		syncer.WithSyncOptions(opts),
		syncer.WithLogger(syncLogger),
	}
	if opts.SyncComponents {
		components := syncer.NewComponentSyncer(c.client, syncer.ComponentConfig{
			DataFolderName:     c.Config.Components.DataFolderName,
			DataFolderTemplate: c.Config.Components.DataFolderTemplate,
			RichTextTemplate:   c.Config.Components.RichTextTemplate,
			RichTextField:      c.Config.Components.RichTextField,
			BatchSize:          c.Config.Components.BatchSize,
			Language:           language,
		}, syncLogger)
		orchestratorOpts = append(orchestratorOpts, syncer.WithComponents(components))
	}
	for _, observer := range c.observers {
		orchestratorOpts = append(orchestratorOpts, syncer.WithObserver(observer))
	}
	return syncer.NewOrchestrator(c.client, ensurer, c.policy, orchestratorOpts...)
}

// Run executes one sync run. Request flags are OR-ed with the configured
// defaults and an empty root path falls back to Config.Sources.RootPath.
// When reporting is enabled the run and every result are persisted; a
// cancelled run still returns the results gathered so far.
func (c *Container) Run(ctx context.Context, req interfaces.SyncRequest) (interfaces.SyncReport, error) {
	if err := c.EnsureSchema(ctx); err != nil {
		return interfaces.SyncReport{}, err
	}
	index, err := c.LoadIndex(ctx)
	if err != nil {
		return interfaces.SyncReport{}, err
	}

	root := strings.TrimSpace(req.RootPath)
	if root == "" {
		root = strings.TrimSpace(c.Config.Sources.RootPath)
	}
	items, err := c.items.ListItems(ctx, root)
	if err != nil {
		return interfaces.SyncReport{}, err
	}

	opts := interfaces.SyncOptions{
		CreateMissing:  req.Options.CreateMissing || c.Config.Sync.CreateMissing,
		SyncComponents: req.Options.SyncComponents || c.Config.Sync.SyncComponents,
	}
	orchestrator := c.Orchestrator(index, opts)

	var run *reporting.Run
	if c.reports != nil {
		name := strings.TrimSpace(req.RunName)
		if name == "" {
			name = c.Config.Reporting.RunName
		}
		run, err = c.reports.Start(ctx, name)
		if err != nil {
			return interfaces.SyncReport{}, err
		}
		ctx = logging.ContextWithRun(ctx, run.Key())
		syncer.WithObserver(run)(orchestrator)
	}

	results, runErr := orchestrator.SyncAll(ctx, items, index)
	report := interfaces.SyncReport{
		Results: results,
		Summary: interfaces.Summarize(results),
	}
	if run != nil {
		report.RunKey = run.Key()
		if _, finishErr := run.Finish(ctx, runErr); finishErr != nil {
			c.logger.Warn("report.finish.failed", "run_key", run.Key(), "error", finishErr)
		}
	}
	return report, runErr
}

// SyncHandler returns the go-command handler for SyncCommand.
func (c *Container) SyncHandler(onReport func(interfaces.SyncReport)) *synccmd.SyncHandler {
	return synccmd.NewSyncHandler(c, commands.CommandLogger(c.loggerProvider, "sync"), onReport)
}

// ValidateMappingsHandler returns the go-command handler for ValidateMappingsCommand.
func (c *Container) ValidateMappingsHandler(onStats func(mapping.BuildStats)) *synccmd.ValidateMappingsHandler {
	return synccmd.NewValidateMappingsHandler(c, commands.CommandLogger(c.loggerProvider, "mappings"), onStats)
}

// Close releases the database the container opened itself.
func (c *Container) Close() error {
	return c.closeOwned()
}

func (c *Container) closeOwned() error {
	if !c.ownsDB || c.bunDB == nil {
		return nil
	}
	err := c.bunDB.Close()
	c.bunDB = nil
	c.ownsDB = false
	return err
}
