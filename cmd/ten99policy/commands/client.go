package commands

import (
	"context"
	"os"

	"github.com/spf13/viper"

	"github.com/ten99policy/ten99policy-go/internal/constants"
	"github.com/ten99policy/ten99policy-go/internal/logging"
	"github.com/ten99policy/ten99policy-go/pkg/policy"
	"github.com/ten99policy/ten99policy-go/pkg/policyclient"
)

// CreateClient builds an API client from the effective CLI configuration.
func CreateClient(ctx context.Context) (*policyclient.Client, error) {
	config := loadConfig()

	if config.APIKey == "" {
		return nil, constants.ErrNoAPIKeyConfigured
	}

	level := "warn"
	if viper.GetBool("verbose") {
		level = "debug"
	}

	logger, err := logging.New(os.Stderr, level, "text")
	if err != nil {
		return nil, err
	}

	return policyclient.New(ctx, &policy.Config{
		APIBase:     config.APIBase,
		APIKey:      config.APIKey,
		APIVersion:  config.APIVersion,
		Environment: config.Environment,
		Debug:       viper.GetBool("verbose"),
		Logger:      logger,
		UserAgent:   constants.DefaultUserAgent + "-cli",
		Cache:       cacheConfig(config),
	})
}

// cacheConfig maps the cache setting onto a cache configuration. A NATS
// cache gets a local memory layer so that repeated reads within one command
// stay in process.
func cacheConfig(config *Config) *policy.CacheConfig {
	builder := policy.NewCacheBuilder()

	switch policy.CacheType(config.Cache) {
	case policy.CacheTypeMemory:
		return builder.WithMemoryConfig(constants.DefaultCacheSize).Config()
	case policy.CacheTypeNATS:
		return builder.
			WithType(policy.CacheTypeNATS).
			WithNATSConfig(&policy.NATSKVConfig{
				URL:    valueOrDefault(config.NATSURL, "nats://127.0.0.1:4222"),
				Bucket: constants.DefaultNATSBucket,
				TTL:    constants.DefaultCacheTTL,
			}).
			WithLocalLayer(constants.DefaultLocalCacheSize).
			Config()
	default:
		return nil
	}
}
