package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagcache/cache"
)

func newTestConfig(t *testing.T, yaml string, args ...string) *Config {
	t.Helper()
	dir := t.TempDir()
	if yaml != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	}
	conf, err := newConfig(dir)
	require.NoError(t, err)
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, conf.BindFlags(fs, ServerOptions))
	require.NoError(t, fs.Parse(args))
	return conf
}

func TestConfig_Defaults(t *testing.T) {
	conf := newTestConfig(t, "")

	assert.Equal(t, ":8080", conf.ServerAddress())
	assert.Equal(t, 10*time.Second, conf.ServerWaitTimeout())
	assert.Equal(t, logrus.InfoLevel, conf.LogLevel())
	assert.Equal(t, cache.DefaultSweepInterval, conf.CacheSweepInterval())
	assert.Equal(t, 5*time.Minute, conf.CacheDefaultTTL())
	mode, err := conf.CacheDefaultMode()
	require.NoError(t, err)
	assert.Equal(t, cache.Absolute, mode)

	opts := conf.FormatOptions()
	assert.True(t, opts.IncludeMetadata)
	assert.True(t, opts.IncludeTimestamp)
	assert.False(t, opts.IncludeErrorDetail)
	assert.Equal(t, "X-Correlation-ID", opts.CorrelationHeader)
	assert.Equal(t, []string{"/metrics"}, opts.ExcludedPaths)
	assert.Empty(t, opts.ExcludedContentTypes)
	assert.Nil(t, opts.GlobalMetadata)

	exporter, err := conf.TracingExporter()
	require.NoError(t, err)
	assert.Equal(t, ExporterNone, exporter)
}

func TestConfig_Precedence(t *testing.T) {
	yaml := `
server:
  address: ":9000"
cache:
  sweep_interval: 30s
  default_mode: sliding
log:
  level: debug
tracing:
  exporter: zipkin
  endpoint: http://zipkin:9411/api/v2/spans
`
	t.Setenv("TAGCACHE_CACHE_SWEEP_INTERVAL", "10s")
	t.Setenv("TAGCACHE_FORMAT_INCLUDE_ERROR_DETAIL", "true")
	conf := newTestConfig(t, yaml, "--address=:9100", "--format-excluded-paths=/metrics,/debug")

	// flag beats file
	assert.Equal(t, ":9100", conf.ServerAddress())
	// env beats file
	assert.Equal(t, 10*time.Second, conf.CacheSweepInterval())
	assert.True(t, conf.FormatOptions().IncludeErrorDetail)
	assert.Equal(t, []string{"/metrics", "/debug"}, conf.FormatOptions().ExcludedPaths)
	// file beats default
	assert.Equal(t, logrus.DebugLevel, conf.LogLevel())
	mode, err := conf.CacheDefaultMode()
	require.NoError(t, err)
	assert.Equal(t, cache.Sliding, mode)
	exporter, err := conf.TracingExporter()
	require.NoError(t, err)
	assert.Equal(t, ExporterZipkin, exporter)
	assert.Equal(t, "http://zipkin:9411/api/v2/spans", conf.TracingEndpoint())
}

func TestConfig_GlobalMetadata(t *testing.T) {
	yaml := `
format:
  global_metadata:
    service: tagcache
    region: eu-west-1
`
	conf := newTestConfig(t, yaml)
	assert.Equal(t, map[string]any{"service": "tagcache", "region": "eu-west-1"}, conf.FormatOptions().GlobalMetadata)

	t.Setenv("TAGCACHE_FORMAT_GLOBAL_METADATA", `{"service":"edge"}`)
	conf = newTestConfig(t, yaml)
	assert.Equal(t, map[string]any{"service": "edge"}, conf.FormatOptions().GlobalMetadata)
}

func TestConfig_Invalid(t *testing.T) {
	testCases := []struct {
		name   string
		env    map[string]string
		assert func(t *testing.T, conf *Config)
	}{
		{
			name: "unknown exporter",
			env:  map[string]string{"TAGCACHE_TRACING_EXPORTER": "otlp"},
			assert: func(t *testing.T, conf *Config) {
				_, err := conf.TracingExporter()
				assert.ErrorIs(t, err, ErrUnknownExporter)
			},
		},
		{
			name: "unknown mode",
			env:  map[string]string{"TAGCACHE_CACHE_DEFAULT_MODE": "forever"},
			assert: func(t *testing.T, conf *Config) {
				_, err := conf.CacheDefaultMode()
				assert.ErrorIs(t, err, cache.ErrInvalidMode)
			},
		},
		{
			name: "bad log level",
			env:  map[string]string{"TAGCACHE_LOG_LEVEL": "loud"},
			assert: func(t *testing.T, conf *Config) {
				assert.Equal(t, logrus.InfoLevel, conf.LogLevel())
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			tc.assert(t, newTestConfig(t, ""))
		})
	}
}

func TestConfig_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: ["), 0o600))
	_, err := newConfig(dir)
	assert.Error(t, err)
}

func TestFlag(t *testing.T) {
	assert.Equal(t, "address", flag(KeyServerAddress))
	assert.Equal(t, "cache-sweep-interval", flag(KeyCacheSweepInterval))
	assert.Equal(t, "format-include-error-detail", flag(KeyFormatIncludeErrorDetail))
}
