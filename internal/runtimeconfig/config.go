package runtimeconfig

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-cms-sync/pkg/storage"
)

var (
	ErrRemoteEndpointRequired     = errors.New("sync config: remote host or endpoint is required")
	ErrRemoteBatchSizeInvalid     = errors.New("sync config: remote batch and page sizes must be zero or positive")
	ErrAuthModeUnknown            = errors.New("sync config: auth mode is invalid")
	ErrAuthTokenRequired          = errors.New("sync config: static auth requires a token")
	ErrAuthCredentialsRequired    = errors.New("sync config: client credentials auth requires client id and secret")
	ErrMappingSourceUnknown       = errors.New("sync config: mapping source is invalid")
	ErrMappingFileRequired        = errors.New("sync config: mapping file is required for the file source")
	ErrDatabaseRequired           = errors.New("sync config: database dsn is required")
	ErrDatabaseDriverUnknown      = errors.New("sync config: database driver is invalid")
	ErrSourceKindUnknown          = errors.New("sync config: source kind is invalid")
	ErrSourceLocationRequired     = errors.New("sync config: source export file or markdown directory is required")
	ErrSyncBatchSizeInvalid       = errors.New("sync config: sync batch size must be positive")
	ErrSyncConcurrencyInvalid     = errors.New("sync config: sync concurrency must be zero or positive")
	ErrComponentTemplatesRequired = errors.New("sync config: component sync requires data folder and rich text templates")
	ErrReportingRequiresDatabase  = errors.New("sync config: reporting requires a database")
	ErrLoggingProviderRequired    = errors.New("sync config: logging provider is required when logging feature is enabled")
	ErrLoggingProviderUnknown     = errors.New("sync config: logging provider is invalid")
	ErrLoggingLevelInvalid        = errors.New("sync config: logging level is invalid")
	ErrLoggingFormatInvalid       = errors.New("sync config: logging format is invalid")
	ErrRetryMaxTriesInvalid       = errors.New("sync config: retry max tries must be positive when retries are enabled")
	ErrRemoteRateInvalid          = errors.New("sync config: remote requests per second must be zero or positive")
)

const (
	AuthModeStatic            = "static"
	AuthModeClientCredentials = "client_credentials"

	MappingSourceFile     = "file"
	MappingSourceDatabase = "database"

	SourceKindExport   = "export"
	SourceKindMarkdown = "markdown"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvClientID     = "CMS_SYNC_CLIENT_ID"
	EnvClientSecret = "CMS_SYNC_CLIENT_SECRET"
	EnvToken        = "CMS_SYNC_TOKEN"
	EnvDatabaseDSN  = "CMS_SYNC_DATABASE_DSN"
)

// Config aggregates everything a sync run needs.
type Config struct {
	Remote     RemoteConfig     `yaml:"remote"`
	Auth       AuthConfig       `yaml:"auth"`
	Paths      PathsConfig      `yaml:"paths"`
	Mapping    MappingConfig    `yaml:"mapping"`
	Sources    SourcesConfig    `yaml:"sources"`
	Sync       SyncConfig       `yaml:"sync"`
	Fields     FieldsConfig     `yaml:"fields"`
	Components ComponentsConfig `yaml:"components"`
	Database   storage.Config   `yaml:"database"`
	Reporting  ReportingConfig  `yaml:"reporting"`
	Logging    LoggingConfig    `yaml:"logging"`
	Features   Features         `yaml:"features"`
}

// RemoteConfig describes the destination content API.
type RemoteConfig struct {
	// Host is the destination base URL; Endpoint overrides the derived
	// authoring endpoint when set.
	Host              string        `yaml:"host"`
	Endpoint          string        `yaml:"endpoint"`
	Database          string        `yaml:"database"`
	Language          string        `yaml:"language"`
	PageSize          int           `yaml:"page_size"`
	BatchSize         int           `yaml:"batch_size"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	Timeout           time.Duration `yaml:"timeout"`
	Retry             RetryConfig   `yaml:"retry"`
}

// RetryConfig tunes read retries against the remote.
type RetryConfig struct {
	Enabled         bool          `yaml:"enabled"`
	MaxTries        uint          `yaml:"max_tries"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
	MaxElapsedTime  time.Duration `yaml:"max_elapsed_time"`
}

// AuthConfig selects how bearer tokens are obtained.
type AuthConfig struct {
	Mode         string `yaml:"mode"`
	Token        string `yaml:"token"`
	URL          string `yaml:"url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Audience     string `yaml:"audience"`
}

// PathsConfig controls path normalisation and hierarchy creation.
type PathsConfig struct {
	// RootPrefix is prepended to normalized target paths.
	RootPrefix            string   `yaml:"root_prefix"`
	// SourceRootPrefix is prepended to normalized legacy source paths.
	SourceRootPrefix      string   `yaml:"source_root_prefix"`
	RootID                string   `yaml:"root_id"`
	PreserveDashTemplates []string `yaml:"preserve_dash_templates"`
	FallbackTemplate      string   `yaml:"fallback_template"`
}

// MappingConfig selects where mapping rows come from.
type MappingConfig struct {
	Source string             `yaml:"source"`
	File   string             `yaml:"file"`
	Cache  MappingCacheConfig `yaml:"cache"`
}

// MappingCacheConfig wraps database mapping reads with go-repository-cache.
type MappingCacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// SourcesConfig selects the legacy item provider.
type SourcesConfig struct {
	Kind        string `yaml:"kind"`
	ExportFile  string `yaml:"export_file"`
	MarkdownDir string `yaml:"markdown_dir"`
	RootPath    string `yaml:"root_path"`
	BodyField   string `yaml:"body_field"`
}

// SyncConfig tunes the orchestrator.
type SyncConfig struct {
	BatchSize       int  `yaml:"batch_size"`
	Concurrency     int  `yaml:"concurrency"`
	UpdateBatchSize int  `yaml:"update_batch_size"`
	CreateMissing   bool `yaml:"create_missing"`
	SyncComponents  bool `yaml:"sync_components"`
}

// FieldsConfig configures the default field mapping policy.
type FieldsConfig struct {
	Renames      map[string]map[string]string `yaml:"renames"`
	Exclude      []string                     `yaml:"exclude"`
	SkipPrefixes []string                     `yaml:"skip_prefixes"`
}

// ComponentsConfig configures datasource mirroring.
type ComponentsConfig struct {
	DataFolderName     string `yaml:"data_folder_name"`
	DataFolderTemplate string `yaml:"data_folder_template"`
	RichTextTemplate   string `yaml:"rich_text_template"`
	RichTextField      string `yaml:"rich_text_field"`
	BatchSize          int    `yaml:"batch_size"`
}

// ReportingConfig controls run report persistence.
type ReportingConfig struct {
	Enabled bool   `yaml:"enabled"`
	RunName string `yaml:"run_name"`
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string   `yaml:"provider"`
	Level     string   `yaml:"level"`
	Format    string   `yaml:"format"`
	AddSource bool     `yaml:"add_source"`
	Focus     []string `yaml:"focus"`
}

// Features toggles optional behaviour.
type Features struct {
	Logger bool `yaml:"logger"`
	// DryRun replaces the remote with an in-memory double.
	DryRun bool `yaml:"dry_run"`
}

// DefaultConfig returns the defaults used when a field is not configured.
func DefaultConfig() Config {
	return Config{
		Remote: RemoteConfig{
			Database:          "master",
			Language:          "en",
			PageSize:          50,
			BatchSize:         50,
			RequestsPerSecond: 0,
			Timeout:           30 * time.Second,
			Retry: RetryConfig{
				Enabled:         true,
				MaxTries:        4,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     10 * time.Second,
				MaxElapsedTime:  time.Minute,
			},
		},
		Auth: AuthConfig{
			Mode: AuthModeClientCredentials,
		},
		Mapping: MappingConfig{
			Source: MappingSourceFile,
			Cache: MappingCacheConfig{
				TTL: time.Minute,
			},
		},
		Sources: SourcesConfig{
			Kind:      SourceKindExport,
			BodyField: "Body",
		},
		Sync: SyncConfig{
			BatchSize:       5,
			Concurrency:     1,
			UpdateBatchSize: 50,
		},
		Components: ComponentsConfig{
			DataFolderName: "Data",
			RichTextField:  "Text",
			BatchSize:      10,
		},
		Database: storage.Config{
			Driver: storage.DriverSQLite,
		},
		Reporting: ReportingConfig{
			RunName: "sync run",
		},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
		},
	}
}

// LoadFile reads a YAML config over DefaultConfig and applies secrets from
// the environment.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("sync config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("sync config: parse %s: %w", path, err)
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// ApplyEnv fills secrets from lookup. Values already present in the config
// are overwritten.
func (cfg *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		return
	}
	if value, ok := lookup(EnvClientID); ok && value != "" {
		cfg.Auth.ClientID = value
	}
	if value, ok := lookup(EnvClientSecret); ok && value != "" {
		cfg.Auth.ClientSecret = value
	}
	if value, ok := lookup(EnvToken); ok && value != "" {
		cfg.Auth.Token = value
	}
	if value, ok := lookup(EnvDatabaseDSN); ok && value != "" {
		cfg.Database.DSN = value
	}
}

// Validate performs high-level consistency checks.
func (cfg Config) Validate() error {
	if err := cfg.validateRemote(); err != nil {
		return err
	}
	if err := cfg.validateAuth(); err != nil {
		return err
	}

	needsDatabase := cfg.Reporting.Enabled
	switch normalize(cfg.Mapping.Source) {
	case MappingSourceFile:
		if strings.TrimSpace(cfg.Mapping.File) == "" {
			return ErrMappingFileRequired
		}
	case MappingSourceDatabase:
		needsDatabase = true
	default:
		return fmt.Errorf("%w: %s", ErrMappingSourceUnknown, cfg.Mapping.Source)
	}
	if needsDatabase {
		if strings.TrimSpace(cfg.Database.DSN) == "" {
			if cfg.Reporting.Enabled {
				return fmt.Errorf("%w: %w", ErrReportingRequiresDatabase, ErrDatabaseRequired)
			}
			return ErrDatabaseRequired
		}
		switch storage.NormalizeDriver(cfg.Database.Driver) {
		case storage.DriverSQLite, storage.DriverPostgres:
		default:
			return fmt.Errorf("%w: %s", ErrDatabaseDriverUnknown, cfg.Database.Driver)
		}
	}

	switch normalize(cfg.Sources.Kind) {
	case SourceKindExport:
		if strings.TrimSpace(cfg.Sources.ExportFile) == "" {
			return fmt.Errorf("%w: export_file", ErrSourceLocationRequired)
		}
	case SourceKindMarkdown:
		if strings.TrimSpace(cfg.Sources.MarkdownDir) == "" {
			return fmt.Errorf("%w: markdown_dir", ErrSourceLocationRequired)
		}
	default:
		return fmt.Errorf("%w: %s", ErrSourceKindUnknown, cfg.Sources.Kind)
	}

	if cfg.Sync.BatchSize <= 0 {
		return ErrSyncBatchSizeInvalid
	}
	if cfg.Sync.Concurrency < 0 {
		return ErrSyncConcurrencyInvalid
	}
	if cfg.Sync.SyncComponents {
		if strings.TrimSpace(cfg.Components.DataFolderTemplate) == "" || strings.TrimSpace(cfg.Components.RichTextTemplate) == "" {
			return ErrComponentTemplatesRequired
		}
	}

	if cfg.Features.Logger {
		provider := normalize(cfg.Logging.Provider)
		if provider == "" {
			return ErrLoggingProviderRequired
		}
		if !isSupportedProvider(provider) {
			return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
		}
		if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
			return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
		}
		if provider == "gologger" {
			if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
				return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
			}
		}
	}
	return nil
}

func (cfg Config) validateRemote() error {
	if cfg.Remote.PageSize < 0 || cfg.Remote.BatchSize < 0 {
		return ErrRemoteBatchSizeInvalid
	}
	if cfg.Remote.RequestsPerSecond < 0 {
		return ErrRemoteRateInvalid
	}
	if cfg.Remote.Retry.Enabled && cfg.Remote.Retry.MaxTries == 0 {
		return ErrRetryMaxTriesInvalid
	}
	if cfg.Features.DryRun {
		return nil
	}
	if strings.TrimSpace(cfg.Remote.Host) == "" && strings.TrimSpace(cfg.Remote.Endpoint) == "" {
		return ErrRemoteEndpointRequired
	}
	return nil
}

func (cfg Config) validateAuth() error {
	if cfg.Features.DryRun {
		return nil
	}
	switch normalize(cfg.Auth.Mode) {
	case AuthModeStatic:
		if strings.TrimSpace(cfg.Auth.Token) == "" {
			return ErrAuthTokenRequired
		}
	case AuthModeClientCredentials:
		if strings.TrimSpace(cfg.Auth.ClientID) == "" || strings.TrimSpace(cfg.Auth.ClientSecret) == "" {
			return ErrAuthCredentialsRequired
		}
	default:
		return fmt.Errorf("%w: %s", ErrAuthModeUnknown, cfg.Auth.Mode)
	}
	return nil
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "console", "gologger":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
