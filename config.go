package cmssync

import "github.com/goliatone/go-cms-sync/internal/runtimeconfig"

var (
	ErrRemoteEndpointRequired     = runtimeconfig.ErrRemoteEndpointRequired
	ErrAuthTokenRequired          = runtimeconfig.ErrAuthTokenRequired
	ErrAuthCredentialsRequired    = runtimeconfig.ErrAuthCredentialsRequired
	ErrMappingFileRequired        = runtimeconfig.ErrMappingFileRequired
	ErrDatabaseRequired           = runtimeconfig.ErrDatabaseRequired
	ErrSourceLocationRequired     = runtimeconfig.ErrSourceLocationRequired
	ErrSyncBatchSizeInvalid       = runtimeconfig.ErrSyncBatchSizeInvalid
	ErrComponentTemplatesRequired = runtimeconfig.ErrComponentTemplatesRequired
	ErrReportingRequiresDatabase  = runtimeconfig.ErrReportingRequiresDatabase
	ErrLoggingProviderRequired    = runtimeconfig.ErrLoggingProviderRequired
	ErrLoggingProviderUnknown     = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid        = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid       = runtimeconfig.ErrLoggingFormatInvalid
)

type (
	Config           = runtimeconfig.Config
	RemoteConfig     = runtimeconfig.RemoteConfig
	RetryConfig      = runtimeconfig.RetryConfig
	AuthConfig       = runtimeconfig.AuthConfig
	PathsConfig      = runtimeconfig.PathsConfig
	MappingConfig    = runtimeconfig.MappingConfig
	SourcesConfig    = runtimeconfig.SourcesConfig
	SyncConfig       = runtimeconfig.SyncConfig
	FieldsConfig     = runtimeconfig.FieldsConfig
	ComponentsConfig = runtimeconfig.ComponentsConfig
	ReportingConfig  = runtimeconfig.ReportingConfig
	LoggingConfig    = runtimeconfig.LoggingConfig
	Features         = runtimeconfig.Features
)

func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}

// LoadConfig reads a YAML file over DefaultConfig and applies env overrides.
func LoadConfig(path string) (Config, error) {
	return runtimeconfig.LoadFile(path)
}
