package policy

import "time"

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Environments accepted by the API.
const (
	EnvironmentProduction = "production"
	EnvironmentSandbox    = "sandbox"
)

// DefaultAPIBase is the production API endpoint.
const DefaultAPIBase = "https://api.ten99policy.com"

// Config represents client configuration for building a Requestor.
//
// # Credentials
//
// APIKey is sent as a Bearer token. Objects and resources carry their own key
// which overrides this default per request.
//
// # Timeouts, retries, and caching
//
// Per-request timeouts should generally be controlled via the context passed
// to each call. Retry behavior can be tuned via RetryMax/RetryWaitMin/
// RetryWaitMax; 5xx, 429 and connection errors are retried. When Cache is
// set, GET responses are cached and revalidated with ETags.
type Config struct {
	// APIBase: base URL for the API (e.g., "https://api.ten99policy.com").
	// policyclient.New trims a trailing slash and adds "https://" if no
	// scheme is present. Empty means DefaultAPIBase.
	APIBase string
	// APIKey: default secret key used when a request carries none.
	APIKey string
	// APIVersion: optional API version header value.
	APIVersion string
	// Environment: "production" or "sandbox".
	Environment string

	// HTTPTimeout: optional default HTTP timeout.
	HTTPTimeout time.Duration
	// RetryMax: maximum number of retries for transient failures. If 0, a
	// sensible default is used by the client.
	RetryMax int
	// RetryWaitMin: minimum backoff between retries.
	RetryWaitMin time.Duration
	// RetryWaitMax: maximum backoff between retries.
	RetryWaitMax time.Duration
	// Debug: enables verbose HTTP request/response logging when a Logger is provided.
	Debug bool
	// Logger: optional structured logger used by the HTTP layer and resources.
	Logger Logger
	// UserAgent: overrides the default User-Agent header sent by the client.
	UserAgent string
	// Cache: optional response cache configuration. Nil disables caching.
	Cache *CacheConfig
	// CacheTTL: lifetime of cached GET responses.
	CacheTTL time.Duration
}

type nopLogger struct{}

func (nopLogger) Debug(string, map[string]interface{}) {}
func (nopLogger) Info(string, map[string]interface{})  {}
func (nopLogger) Warn(string, map[string]interface{})  {}
func (nopLogger) Error(string, map[string]interface{}) {}
