// Package config loads the tagcached settings from, highest first: CLI flags,
// TAGCACHE_ environment variables, a config.yaml file and compiled defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"tagcache/cache"
	"tagcache/format"
)

var ErrUnknownExporter = errors.New("config: unknown tracing exporter")

type ConfigOption struct {
	Key         string
	Flag        string
	Default     any
	Description string
}

const (
	KeyServerAddress     = "server.address"
	KeyServerWaitTimeout = "server.wait_timeout"
	KeyLogLevel          = "log.level"
)

const (
	KeyCacheSweepInterval = "cache.sweep_interval"
	KeyCacheDefaultTTL    = "cache.default_ttl"
	KeyCacheDefaultMode   = "cache.default_mode"
)

const (
	KeyFormatIncludeMetadata      = "format.include_metadata"
	KeyFormatIncludeTimestamp     = "format.include_timestamp"
	KeyFormatIncludeErrorDetail   = "format.include_error_detail"
	KeyFormatCorrelationHeader    = "format.correlation_header"
	KeyFormatExcludedPaths        = "format.excluded_paths"
	KeyFormatExcludedContentTypes = "format.excluded_content_types"
	// KeyFormatGlobalMetadata has no flag: set it in config.yaml or as a JSON
	// object in TAGCACHE_FORMAT_GLOBAL_METADATA.
	KeyFormatGlobalMetadata       = "format.global_metadata"
)

const (
	KeyTracingExporter = "tracing.exporter"
	KeyTracingEndpoint = "tracing.endpoint"
)

const (
	ExporterNone   = "none"
	ExporterJaeger = "jaeger"
	ExporterZipkin = "zipkin"
)

var ServerOptions = []ConfigOption{
	{Key: KeyServerAddress, Flag: flag(KeyServerAddress), Default: ":8080", Description: "Server listen address"},
	{Key: KeyServerWaitTimeout, Flag: flag(KeyServerWaitTimeout), Default: 10 * time.Second, Description: "Time allowed for in-flight requests on shutdown"},
	{Key: KeyLogLevel, Flag: flag(KeyLogLevel), Default: "info", Description: "Log level"},
	{Key: KeyCacheSweepInterval, Flag: flag(KeyCacheSweepInterval), Default: cache.DefaultSweepInterval, Description: "Interval between expired entry sweeps, 0 disables sweeping"},
	{Key: KeyCacheDefaultTTL, Flag: flag(KeyCacheDefaultTTL), Default: 5 * time.Minute, Description: "TTL for writes that do not carry one"},
	{Key: KeyCacheDefaultMode, Flag: flag(KeyCacheDefaultMode), Default: cache.Absolute.String(), Description: "Expiration mode for writes that do not carry one"},
	{Key: KeyFormatIncludeMetadata, Flag: flag(KeyFormatIncludeMetadata), Default: true, Description: "Add metadata to response envelopes"},
	{Key: KeyFormatIncludeTimestamp, Flag: flag(KeyFormatIncludeTimestamp), Default: true, Description: "Add a timestamp to envelope metadata"},
	{Key: KeyFormatIncludeErrorDetail, Flag: flag(KeyFormatIncludeErrorDetail), Default: false, Description: "Expose error details in envelopes"},
	{Key: KeyFormatCorrelationHeader, Flag: flag(KeyFormatCorrelationHeader), Default: format.DefaultOptions().CorrelationHeader, Description: "Header carrying the correlation id"},
	{Key: KeyFormatExcludedPaths, Flag: flag(KeyFormatExcludedPaths), Default: []string{"/metrics"}, Description: "Path prefixes never wrapped in an envelope"},
	{Key: KeyFormatExcludedContentTypes, Flag: flag(KeyFormatExcludedContentTypes), Default: []string{}, Description: "Content types never wrapped in an envelope"},
	{Key: KeyTracingExporter, Flag: flag(KeyTracingExporter), Default: ExporterNone, Description: "Trace exporter: none, jaeger or zipkin"},
	{Key: KeyTracingEndpoint, Flag: flag(KeyTracingEndpoint), Default: "", Description: "Trace collector endpoint"},
}

type Config struct {
	v *viper.Viper
}

// New reads config.yaml from . or /etc/tagcache/ when present.
func New() (*Config, error) {
	return newConfig(".", "/etc/tagcache/")
}

func newConfig(paths ...string) (*Config, error) {
	v := viper.New()

	for _, o := range ServerOptions {
		v.SetDefault(o.Key, o.Default)
	}
	v.SetDefault(KeyFormatGlobalMetadata, map[string]any{})

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !(errors.As(err, &notFoundErr) || errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("TAGCACHE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return &Config{v: v}, nil
}

func (c *Config) BindFlags(fs *pflag.FlagSet, options []ConfigOption) error {
	for _, o := range options {
		switch v := o.Default.(type) {
		case string:
			fs.String(o.Flag, v, o.Description)
		case int:
			fs.Int(o.Flag, v, o.Description)
		case bool:
			fs.Bool(o.Flag, v, o.Description)
		case []string:
			fs.StringSlice(o.Flag, v, o.Description)
		case time.Duration:
			fs.Duration(o.Flag, v, o.Description)
		default:
			return fmt.Errorf("unsupported flag type for key: %s", o.Key)
		}

		if err := c.v.BindPFlag(o.Key, fs.Lookup(o.Flag)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", o.Flag, err)
		}
	}
	return nil
}

func (c *Config) ServerAddress() string {
	return c.v.GetString(KeyServerAddress) // TAGCACHE_SERVER_ADDRESS
}

func (c *Config) ServerWaitTimeout() time.Duration {
	return c.v.GetDuration(KeyServerWaitTimeout) // TAGCACHE_SERVER_WAIT_TIMEOUT
}

// LogLevel falls back to info on an unparsable level.
func (c *Config) LogLevel() logrus.Level {
	level, err := logrus.ParseLevel(c.v.GetString(KeyLogLevel)) // TAGCACHE_LOG_LEVEL
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

func (c *Config) CacheSweepInterval() time.Duration {
	return c.v.GetDuration(KeyCacheSweepInterval) // TAGCACHE_CACHE_SWEEP_INTERVAL
}

func (c *Config) CacheDefaultTTL() time.Duration {
	return c.v.GetDuration(KeyCacheDefaultTTL) // TAGCACHE_CACHE_DEFAULT_TTL
}

func (c *Config) CacheDefaultMode() (cache.Mode, error) {
	return cache.ParseMode(c.v.GetString(KeyCacheDefaultMode)) // TAGCACHE_CACHE_DEFAULT_MODE
}

// FormatOptions assembles the envelope formatter settings.
func (c *Config) FormatOptions() format.Options {
	return format.Options{
		IncludeMetadata:      c.v.GetBool(KeyFormatIncludeMetadata),
		IncludeTimestamp:     c.v.GetBool(KeyFormatIncludeTimestamp),
		IncludeErrorDetail:   c.v.GetBool(KeyFormatIncludeErrorDetail),
		CorrelationHeader:    c.v.GetString(KeyFormatCorrelationHeader),
		ExcludedPaths:        c.v.GetStringSlice(KeyFormatExcludedPaths),
		ExcludedContentTypes: c.v.GetStringSlice(KeyFormatExcludedContentTypes),
		GlobalMetadata:       c.globalMetadata(),
	}
}

func (c *Config) globalMetadata() map[string]any {
	md := c.v.GetStringMap(KeyFormatGlobalMetadata)
	if len(md) == 0 {
		return nil
	}
	return md
}

func (c *Config) TracingExporter() (string, error) {
	exporter := strings.ToLower(c.v.GetString(KeyTracingExporter)) // TAGCACHE_TRACING_EXPORTER
	switch exporter {
	case "", ExporterNone:
		return ExporterNone, nil
	case ExporterJaeger, ExporterZipkin:
		return exporter, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownExporter, exporter)
	}
}

func (c *Config) TracingEndpoint() string {
	return c.v.GetString(KeyTracingEndpoint) // TAGCACHE_TRACING_ENDPOINT
}

// flag turns "cache.sweep_interval" into "cache-sweep-interval". Server keys
// lose their prefix.
func flag(key string) string {
	f := strings.ToLower(key)
	f = strings.ReplaceAll(f, ".", "-")
	f = strings.ReplaceAll(f, "_", "-")
	return strings.TrimPrefix(f, "server-")
}
