package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// API servers.
const (
	// ProductionAPIEndpoint is the production Polar API.
	ProductionAPIEndpoint = "https://api.polar.sh"

	// SandboxAPIEndpoint is the sandbox Polar API.
	SandboxAPIEndpoint = "https://sandbox-api.polar.sh"

	// ServerProduction selects the production API.
	ServerProduction = "production"

	// ServerSandbox selects the sandbox API.
	ServerSandbox = "sandbox"

	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "polar-client-go"

	// CLIUserAgent is sent by the polar command.
	CLIUserAgent = "polar-cli"
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry limits.
const (
	// DefaultRetryMax is the default maximum number of retries.
	DefaultRetryMax = 3

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 30 * time.Second
)

// Export polling.
const (
	// DefaultPollInterval is the initial delay between export status polls.
	DefaultPollInterval = 2 * time.Second

	// MaxPollInterval caps the backed-off poll interval.
	MaxPollInterval = 10 * time.Second

	// DefaultPollBackoffFactor multiplies the poll interval after every poll.
	DefaultPollBackoffFactor = 1.5

	// DefaultExportTimeout bounds how long an export is awaited.
	DefaultExportTimeout = 60 * time.Second

	// DefaultExportFormat is used when no export format is given.
	DefaultExportFormat = "csv"

	// ExportsPath is the export job status collection.
	ExportsPath = "/v1/exports"
)

// Pagination limits.
const (
	// DefaultPageSize is the number of items requested per page when unset.
	DefaultPageSize = 10

	// MaxPageSize is the largest page size the API accepts.
	MaxPageSize = 100

	// FirstPage is the first page index for offset pagination.
	FirstPage = 1
)

// Query parameter names.
const (
	ParamPage    = "page"
	ParamCursor  = "cursor"
	ParamLimit   = "limit"
	ParamSorting = "sorting"
)

// Cache defaults.
const (
	// DefaultCacheSize is the default number of entries in the memory cache.
	DefaultCacheSize = 1000

	// DefaultCacheTTL is the default time-to-live of cached responses.
	DefaultCacheTTL = 30 * time.Second

	// DefaultNATSBucket is the default JetStream KV bucket name.
	DefaultNATSBucket = "polar_client_cache"
)

// UI and display constants.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"

	// DateTimeLayout is used for table output.
	DateTimeLayout = "2006-01-02 15:04:05"
)

// Format constants.
const (
	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// FormatTable for table output format.
	FormatTable = "table"
)

// CLI configuration.
const (
	// ConfigDirName is the configuration directory under the user's home.
	ConfigDirName = ".polar"

	// ConfigFileName is the configuration file inside ConfigDirName.
	ConfigFileName = "config.yml"
)

// Environment variables.
const (
	// EnvAccessToken holds the organization access token.
	EnvAccessToken = "POLAR_ACCESS_TOKEN"

	// EnvPrefix is the viper environment prefix.
	EnvPrefix = "POLAR"
)
