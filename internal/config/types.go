// Package config provides configuration loading for HydraDiscovery using Viper.
// Configuration is loaded from YAML files with automatic environment variable binding.
//
// Environment variables use the HYDRADISCOVERY_ prefix and underscore-separated keys:
//   - HYDRADISCOVERY_API_PORT -> api.port
//   - HYDRADISCOVERY_CACHE_SHOULD_USE_READ_ONLY -> cache.should_use_read_only
//   - HYDRADISCOVERY_PEERS_NODE_URLS -> peers.node_urls (comma-separated)
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ZoneConfig holds the availability-zone map consumed by zonemap.Mapper and
// local-zone election (spec.md §6 "availabilityZones[region]").
type ZoneConfig struct {
	// AvailabilityZones maps region name to its ordered zone list. Keys are
	// lower-cased by loadZoneConfig; zone values are kept as configured.
	AvailabilityZones map[string][]string `yaml:"availability_zones" mapstructure:"availability_zones"`
}

// ResolverConfig controls how the bootstrap/query resolver stack is
// assembled (spec.md §6).
type ResolverConfig struct {
	UseBootstrapResolverForQuery bool   `yaml:"use_bootstrap_resolver_for_query" mapstructure:"use_bootstrap_resolver_for_query"`
	BootstrapResolverStrategy   string `yaml:"bootstrap_resolver_strategy"      mapstructure:"bootstrap_resolver_strategy"`
	ShouldFetchRegistry         bool   `yaml:"should_fetch_registry"            mapstructure:"should_fetch_registry"`
	ApplicationsResolverUseIP   bool   `yaml:"applications_resolver_use_ip"     mapstructure:"applications_resolver_use_ip"`
}

// AsyncResolverConfig controls AsyncResolver's background refresh loop.
type AsyncResolverConfig struct {
	ExecutorThreadPoolSize int           `yaml:"-" mapstructure:"-"`
	ThreadPoolSizeRaw      int           `yaml:"executor_thread_pool_size"   mapstructure:"executor_thread_pool_size"`
	RefreshInterval        time.Duration `yaml:"-" mapstructure:"-"`
	RefreshIntervalRawMs   int           `yaml:"refresh_interval_ms"         mapstructure:"refresh_interval_ms"`
	WarmUpTimeout          time.Duration `yaml:"-" mapstructure:"-"`
	WarmUpTimeoutRawMs     int           `yaml:"warm_up_timeout_ms"          mapstructure:"warm_up_timeout_ms"`
}

// TransportConfig controls SessionedClient/RetryableClient behavior.
type TransportConfig struct {
	SessionedClientReconnectInterval time.Duration `yaml:"-" mapstructure:"-"`
	ReconnectIntervalSecondsRaw      int           `yaml:"sessioned_client_reconnect_interval_seconds" mapstructure:"sessioned_client_reconnect_interval_seconds"`
	QuarantineRefreshPercentage      float64       `yaml:"retryable_client_quarantine_refresh_percentage" mapstructure:"retryable_client_quarantine_refresh_percentage"`
	MaxAttempts                      int           `yaml:"retryable_client_max_attempts" mapstructure:"retryable_client_max_attempts"`
}

// ResponseCacheConfig controls the server-side ResponseCache.
type ResponseCacheConfig struct {
	AutoExpiration         time.Duration `yaml:"-" mapstructure:"-"`
	AutoExpirationSecsRaw  int           `yaml:"auto_expiration_in_seconds" mapstructure:"auto_expiration_in_seconds"`
	UpdateInterval         time.Duration `yaml:"-" mapstructure:"-"`
	UpdateIntervalMsRaw    int           `yaml:"update_interval_ms"         mapstructure:"update_interval_ms"`
	ShouldUseReadOnly      bool          `yaml:"should_use_read_only"       mapstructure:"should_use_read_only"`
	ReadWriteCapacity      int           `yaml:"read_write_capacity"        mapstructure:"read_write_capacity"`
}

// PeerConfig controls PeerNodeSet's reconciliation loop.
type PeerConfig struct {
	NodeURLs              []string      `yaml:"node_urls"                    mapstructure:"node_urls"`
	UpdateInterval         time.Duration `yaml:"-" mapstructure:"-"`
	UpdateIntervalMsRaw    int           `yaml:"eureka_nodes_update_interval_ms" mapstructure:"eureka_nodes_update_interval_ms"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level            string            `yaml:"level"             mapstructure:"level"             json:"level"`
	Structured       bool              `yaml:"structured"        mapstructure:"structured"        json:"structured"`
	StructuredFormat string            `yaml:"structured_format" mapstructure:"structured_format" json:"structured_format"`
	IncludePID       bool              `yaml:"include_pid"       mapstructure:"include_pid"       json:"include_pid"`
	ExtraFields      map[string]string `yaml:"extra_fields"      mapstructure:"extra_fields"      json:"extra_fields,omitempty"`
}

// RateLimitConfig controls the admin API's optional rate limiter
// (golang.org/x/time/rate), keyed by requests-per-second/burst.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" mapstructure:"enabled"`
	QPS     float64 `yaml:"qps"     mapstructure:"qps"`
	Burst   int     `yaml:"burst"   mapstructure:"burst"`
}

// APIConfig contains the admin/diagnostics API's settings.
//
// Note: APIKey is intentionally treated as a secret and should not be
// returned by API endpoints.
type APIConfig struct {
	Enabled   bool            `yaml:"enabled"    mapstructure:"enabled"`
	Host      string          `yaml:"host"       mapstructure:"host"`
	Port      int             `yaml:"port"       mapstructure:"port"`
	APIKey    string          `yaml:"api_key"    mapstructure:"api_key"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// Config is the root configuration structure.
type Config struct {
	Zone      ZoneConfig          `yaml:"zone"      mapstructure:"zone"`
	Resolver  ResolverConfig      `yaml:"resolver"  mapstructure:"resolver"`
	Async     AsyncResolverConfig `yaml:"async"     mapstructure:"async"`
	Transport TransportConfig     `yaml:"transport" mapstructure:"transport"`
	Cache     ResponseCacheConfig `yaml:"cache"     mapstructure:"cache"`
	Peers     PeerConfig          `yaml:"peers"     mapstructure:"peers"`
	Logging   LoggingConfig       `yaml:"logging"   mapstructure:"logging"`
	API       APIConfig           `yaml:"api"       mapstructure:"api"`
}

// ResolveConfigPath determines the config file path from flag or environment.
func ResolveConfigPath(flagValue string) string {
	if strings.TrimSpace(flagValue) != "" {
		return flagValue
	}
	if v := strings.TrimSpace(os.Getenv("HYDRADISCOVERY_CONFIG")); v != "" {
		return v
	}
	return ""
}

// Load loads configuration from a YAML file with environment variable overrides.
// This is the main entry point for loading configuration.
//
// Configuration priority (highest to lowest):
//  1. Environment variables (HYDRADISCOVERY_*)
//  2. Config file values
//  3. Default values
func Load(path string) (*Config, error) {
	return loadFromSource(path)
}

// durationFromSeconds parses an integer-seconds field, falling back to def
// on a non-positive value.
func durationFromSeconds(n int, def time.Duration) time.Duration {
	if n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}

// durationFromMillis parses an integer-milliseconds field, falling back to
// def on a non-positive value.
func durationFromMillis(n int, def time.Duration) time.Duration {
	if n <= 0 {
		return def
	}
	return time.Duration(n) * time.Millisecond
}

// parsePercentage accepts raw when it lies in (0, 1], and otherwise
// (zero/unset, negative, or above 1) returns def — spec.md §6's
// quarantine-clear threshold.
func parsePercentage(raw, def float64) float64 {
	if raw <= 0 || raw > 1 {
		return def
	}
	return raw
}

// itoa is a small convenience used by normalizeConfig's error messages.
func itoa(n int) string { return strconv.Itoa(n) }
