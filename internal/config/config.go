// Package config provides configuration loading and validation for
// HydraDiscovery.
//
// Configuration is loaded with the following priority (highest to lowest):
//  1. Command-line flags (not handled here, see cmd/hydradiscovery/main.go)
//  2. Environment variables (HYDRADISCOVERY_* prefix)
//  3. YAML config file (if specified with --config)
//  4. Hardcoded defaults
//
// Environment variables are mapped from HYDRADISCOVERY_CATEGORY_SETTING
// format, e.g., HYDRADISCOVERY_API_HOST maps to api.host in YAML.
//
// All configuration is validated during Load() to ensure correctness early.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hydradiscovery/hydradiscovery/internal/helpers"
	"github.com/spf13/viper"
)

// Defaults mirror spec.md §6's documented defaults where one is named, and
// otherwise pick values consistent with Eureka's own client defaults.
const (
	defaultAsyncThreadPoolSize  = 2
	defaultAsyncRefreshInterval = 30 * time.Second
	defaultAsyncWarmUpTimeout   = 5 * time.Second
	defaultReconnectInterval    = 8 * time.Minute
	defaultQuarantinePercentage = 0.66
	defaultMaxAttempts          = 3
	defaultAutoExpiration       = 180 * time.Second
	defaultUpdateInterval       = 30 * time.Second
	defaultReadWriteCapacity    = 1000
	defaultPeerUpdateInterval   = 10 * time.Minute

	// maxRetryAttemptsCeiling and maxReadWriteCapacityCeiling bound two
	// operator-tunable knobs against misconfiguration (e.g. a stray extra
	// zero in an env override), via helpers.ClampInt rather than a second
	// validation error path.
	maxRetryAttemptsCeiling     = 20
	maxReadWriteCapacityCeiling = 1_000_000
)

// initConfig sets up the config loader with defaults, env binding, and config file.
func initConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	// Environment variable binding.
	// Uses HYDRADISCOVERY_ prefix: HYDRADISCOVERY_API_HOST -> api.host
	v.SetEnvPrefix("HYDRADISCOVERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return v, nil
}

// setDefaults configures all default values.
func setDefaults(v *viper.Viper) {
	// Zone defaults
	v.SetDefault("zone.availability_zones", map[string][]string{})

	// Resolver defaults
	v.SetDefault("resolver.use_bootstrap_resolver_for_query", false)
	v.SetDefault("resolver.bootstrap_resolver_strategy", "default")
	v.SetDefault("resolver.should_fetch_registry", true)
	v.SetDefault("resolver.applications_resolver_use_ip", false)

	// Async resolver defaults
	v.SetDefault("async.executor_thread_pool_size", defaultAsyncThreadPoolSize)
	v.SetDefault("async.refresh_interval_ms", int(defaultAsyncRefreshInterval/time.Millisecond))
	v.SetDefault("async.warm_up_timeout_ms", int(defaultAsyncWarmUpTimeout/time.Millisecond))

	// Transport defaults
	v.SetDefault("transport.sessioned_client_reconnect_interval_seconds", int(defaultReconnectInterval/time.Second))
	v.SetDefault("transport.retryable_client_quarantine_refresh_percentage", defaultQuarantinePercentage)
	v.SetDefault("transport.retryable_client_max_attempts", defaultMaxAttempts)

	// Response cache defaults
	v.SetDefault("cache.auto_expiration_in_seconds", int(defaultAutoExpiration/time.Second))
	v.SetDefault("cache.update_interval_ms", int(defaultUpdateInterval/time.Millisecond))
	v.SetDefault("cache.should_use_read_only", true)
	v.SetDefault("cache.read_write_capacity", defaultReadWriteCapacity)

	// Peer defaults
	v.SetDefault("peers.node_urls", []string{})
	v.SetDefault("peers.eureka_nodes_update_interval_ms", int(defaultPeerUpdateInterval/time.Millisecond))

	// Logging defaults
	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.structured", false)
	v.SetDefault("logging.structured_format", "json")
	v.SetDefault("logging.include_pid", false)
	v.SetDefault("logging.extra_fields", map[string]string{})

	// Admin API defaults. Default to disabled and bound to localhost for
	// safety, same posture as the teacher's management API.
	v.SetDefault("api.enabled", false)
	v.SetDefault("api.host", "127.0.0.1")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.api_key", "")
	v.SetDefault("api.rate_limit.enabled", false)
	v.SetDefault("api.rate_limit.qps", 50.0)
	v.SetDefault("api.rate_limit.burst", 100)
}

// loadFromSource loads configuration from file and environment.
func loadFromSource(configPath string) (*Config, error) {
	v, err := initConfig(configPath)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}

	loadZoneConfig(v, cfg)
	loadResolverConfig(v, cfg)
	loadAsyncConfig(v, cfg)
	loadTransportConfig(v, cfg)
	loadCacheConfig(v, cfg)
	loadPeerConfig(v, cfg)
	loadLoggingConfig(v, cfg)
	loadAPIConfig(v, cfg)

	if err := normalizeConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadZoneConfig(v *viper.Viper, cfg *Config) {
	raw := v.GetStringMapStringSlice("zone.availability_zones")
	zones := make(map[string][]string, len(raw))
	for region, list := range raw {
		zones[strings.ToLower(region)] = list
	}
	cfg.Zone.AvailabilityZones = zones
}

func loadResolverConfig(v *viper.Viper, cfg *Config) {
	cfg.Resolver.UseBootstrapResolverForQuery = v.GetBool("resolver.use_bootstrap_resolver_for_query")
	cfg.Resolver.BootstrapResolverStrategy = v.GetString("resolver.bootstrap_resolver_strategy")
	cfg.Resolver.ShouldFetchRegistry = v.GetBool("resolver.should_fetch_registry")
	cfg.Resolver.ApplicationsResolverUseIP = v.GetBool("resolver.applications_resolver_use_ip")
}

func loadAsyncConfig(v *viper.Viper, cfg *Config) {
	cfg.Async.ThreadPoolSizeRaw = v.GetInt("async.executor_thread_pool_size")
	cfg.Async.ExecutorThreadPoolSize = cfg.Async.ThreadPoolSizeRaw
	if cfg.Async.ExecutorThreadPoolSize <= 0 {
		cfg.Async.ExecutorThreadPoolSize = defaultAsyncThreadPoolSize
	}

	cfg.Async.RefreshIntervalRawMs = v.GetInt("async.refresh_interval_ms")
	cfg.Async.RefreshInterval = durationFromMillis(cfg.Async.RefreshIntervalRawMs, defaultAsyncRefreshInterval)

	cfg.Async.WarmUpTimeoutRawMs = v.GetInt("async.warm_up_timeout_ms")
	cfg.Async.WarmUpTimeout = durationFromMillis(cfg.Async.WarmUpTimeoutRawMs, defaultAsyncWarmUpTimeout)
}

func loadTransportConfig(v *viper.Viper, cfg *Config) {
	cfg.Transport.ReconnectIntervalSecondsRaw = v.GetInt("transport.sessioned_client_reconnect_interval_seconds")
	cfg.Transport.SessionedClientReconnectInterval = durationFromSeconds(cfg.Transport.ReconnectIntervalSecondsRaw, defaultReconnectInterval)

	cfg.Transport.QuarantineRefreshPercentage = parsePercentage(
		v.GetFloat64("transport.retryable_client_quarantine_refresh_percentage"),
		defaultQuarantinePercentage,
	)

	cfg.Transport.MaxAttempts = v.GetInt("transport.retryable_client_max_attempts")
	if cfg.Transport.MaxAttempts <= 0 {
		cfg.Transport.MaxAttempts = defaultMaxAttempts
	}
	cfg.Transport.MaxAttempts = helpers.ClampInt(cfg.Transport.MaxAttempts, 1, maxRetryAttemptsCeiling)
}

func loadCacheConfig(v *viper.Viper, cfg *Config) {
	cfg.Cache.AutoExpirationSecsRaw = v.GetInt("cache.auto_expiration_in_seconds")
	cfg.Cache.AutoExpiration = durationFromSeconds(cfg.Cache.AutoExpirationSecsRaw, defaultAutoExpiration)

	cfg.Cache.UpdateIntervalMsRaw = v.GetInt("cache.update_interval_ms")
	cfg.Cache.UpdateInterval = durationFromMillis(cfg.Cache.UpdateIntervalMsRaw, defaultUpdateInterval)

	cfg.Cache.ShouldUseReadOnly = v.GetBool("cache.should_use_read_only")

	cfg.Cache.ReadWriteCapacity = v.GetInt("cache.read_write_capacity")
	if cfg.Cache.ReadWriteCapacity <= 0 {
		cfg.Cache.ReadWriteCapacity = defaultReadWriteCapacity
	}
	cfg.Cache.ReadWriteCapacity = helpers.ClampInt(cfg.Cache.ReadWriteCapacity, 1, maxReadWriteCapacityCeiling)
}

func loadPeerConfig(v *viper.Viper, cfg *Config) {
	cfg.Peers.NodeURLs = getStringSliceOrSplit(v, "peers.node_urls")

	cfg.Peers.UpdateIntervalMsRaw = v.GetInt("peers.eureka_nodes_update_interval_ms")
	cfg.Peers.UpdateInterval = durationFromMillis(cfg.Peers.UpdateIntervalMsRaw, defaultPeerUpdateInterval)
}

func loadLoggingConfig(v *viper.Viper, cfg *Config) {
	cfg.Logging.Level = strings.ToUpper(v.GetString("logging.level"))
	cfg.Logging.Structured = v.GetBool("logging.structured")
	cfg.Logging.StructuredFormat = v.GetString("logging.structured_format")
	cfg.Logging.IncludePID = v.GetBool("logging.include_pid")
	cfg.Logging.ExtraFields = v.GetStringMapString("logging.extra_fields")
}

func loadAPIConfig(v *viper.Viper, cfg *Config) {
	cfg.API.Enabled = v.GetBool("api.enabled")
	cfg.API.Host = v.GetString("api.host")
	cfg.API.Port = v.GetInt("api.port")
	cfg.API.APIKey = v.GetString("api.api_key")
	cfg.API.RateLimit.Enabled = v.GetBool("api.rate_limit.enabled")
	cfg.API.RateLimit.QPS = v.GetFloat64("api.rate_limit.qps")
	cfg.API.RateLimit.Burst = v.GetInt("api.rate_limit.burst")
}

// getStringSliceOrSplit handles both slice and comma-separated string values.
func getStringSliceOrSplit(v *viper.Viper, key string) []string {
	if slice := v.GetStringSlice(key); len(slice) > 0 {
		result := make([]string, 0, len(slice))
		for _, s := range slice {
			for _, p := range strings.Split(s, ",") {
				p = strings.TrimSpace(p)
				if p != "" {
					result = append(result, p)
				}
			}
		}
		return result
	}
	if s := v.GetString(key); s != "" {
		parts := strings.Split(s, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return nil
}

// normalizeConfig validates and normalizes the configuration.
func normalizeConfig(cfg *Config) error {
	if cfg.Zone.AvailabilityZones == nil {
		cfg.Zone.AvailabilityZones = map[string][]string{}
	}

	if cfg.Resolver.BootstrapResolverStrategy == "" {
		cfg.Resolver.BootstrapResolverStrategy = "default"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	if cfg.Logging.StructuredFormat == "" {
		cfg.Logging.StructuredFormat = "json"
	}
	if cfg.Logging.ExtraFields == nil {
		cfg.Logging.ExtraFields = map[string]string{}
	}

	if cfg.API.Host == "" {
		cfg.API.Host = "127.0.0.1"
	}
	if cfg.API.Enabled {
		if cfg.API.Port <= 0 || cfg.API.Port > 65535 {
			return errors.New("api.port must be 1..65535")
		}
	}
	if cfg.API.RateLimit.Enabled {
		if cfg.API.RateLimit.QPS <= 0 {
			return fmt.Errorf("api.rate_limit.qps must be > 0, got %v", cfg.API.RateLimit.QPS)
		}
		if cfg.API.RateLimit.Burst <= 0 {
			return errors.New("api.rate_limit.burst must be > 0 when rate_limit.enabled is true, got " + itoa(cfg.API.RateLimit.Burst))
		}
	}

	return nil
}
