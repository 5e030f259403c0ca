package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second
)

// Retry limits.
const (
	// DefaultRetryMax is the default maximum number of retries.
	DefaultRetryMax = 3

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 500 * time.Millisecond

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second

	// ExtendedRetryWaitMax is used for operations that need longer waits.
	ExtendedRetryWaitMax = 30 * time.Second
)

// HTTPStatusBadRequest is the first status treated as an error response.
const HTTPStatusBadRequest = 400

// Request headers sent to the API.
const (
	HeaderAuthorization  = "Authorization"
	HeaderAPIVersion     = "Ten99Policy-Version"
	HeaderEnvironment    = "Ten99Policy-Environment"
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderUserAgent      = "User-Agent"
	HeaderContentType    = "Content-Type"
	HeaderAccept         = "Accept"
	HeaderETag           = "ETag"
	HeaderIfNoneMatch    = "If-None-Match"

	ContentTypeJSON = "application/json"
)

// DefaultUserAgent is sent when the configuration does not override it.
const DefaultUserAgent = "ten99policy-go"

// Cache sizes and lifetimes.
const (
	// DefaultCacheSize is the default cache size limit.
	DefaultCacheSize = 1000

	// DefaultCacheTTL is the default cache time-to-live.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultLocalCacheSize bounds the memory layer in front of a shared cache.
	DefaultLocalCacheSize = 100

	// DefaultNATSBucket is the key-value bucket used by the NATS cache.
	DefaultNATSBucket = "ten99policy-responses"
)

// CLI settings.
const (
	// EnvPrefix is the prefix of environment variables read by the CLI.
	EnvPrefix = "TEN99POLICY"

	// ConfigDirName is the directory below $HOME holding the CLI config.
	ConfigDirName = ".ten99policy"

	// ConfigFileName is the CLI config file name without extension.
	ConfigFileName = "config"

	// DefaultListLimit is the page size used by the list command.
	DefaultListLimit = 10

	// MaskedSecret replaces secrets in displayed configuration.
	MaskedSecret = "***"

	// SecretVisibleSuffix is the number of trailing secret characters shown.
	SecretVisibleSuffix = 4
)

// Format constants.
const (
	// FormatJSON selects JSON output.
	FormatJSON = "json"

	// FormatYAML selects YAML output.
	FormatYAML = "yaml"

	// FormatTable selects table output.
	FormatTable = "table"
)
