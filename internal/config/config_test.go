package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reactor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadHeaderTimeout)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, DefaultMetricsPath, cfg.Metrics.Path)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, []string{"Total", "Tax", "Subtotal"}, cfg.View.DecimalKeys)
	assert.Empty(t, cfg.File)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
script: cart.star
watch: true
server:
  addr: ":9000"
  shutdown_timeout: 2s
log:
  format: json
view:
  decimal_keys: [Price]
  page: index.html
`)
	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "cart.star", cfg.Script)
	assert.True(t, cfg.Watch)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadHeaderTimeout, "unset keys keep defaults")
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"Price"}, cfg.View.DecimalKeys)
	assert.Equal(t, "index.html", cfg.View.Page)
}

func TestLoadBadFile(t *testing.T) {
	path := writeConfig(t, "server: [unclosed")
	_, err := Load(path, nil)
	assert.ErrorContains(t, err, "error reading config file")
	assert.ErrorIs(t, err, ErrFile)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.ErrorIs(t, err, ErrFile)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "log:\n  format: json\n  level: warn\n")
	t.Setenv("REACTOR_LOG__FORMAT", "text")
	t.Setenv("REACTOR_SERVER__SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("REACTOR_TRACING__ENABLED", "true")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.True(t, cfg.Tracing.Enabled)
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("REACTOR_LOG__LEVEL", "debug")
	t.Setenv("REACTOR_SERVER__ADDR", ":7000")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "info", "")
	flags.String("addr", DefaultAddr, "")
	flags.Bool("metrics", true, "")
	flags.Bool("watch", false, "")
	require.NoError(t, flags.Parse([]string{"--log-level=error", "--watch"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, ":7000", cfg.Server.Addr, "unset flags do not override env")
	assert.True(t, cfg.Metrics.Enabled)
	assert.True(t, cfg.Watch)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		errSubstr string
	}{
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"negative timeout", func(c *Config) { c.Server.ShutdownTimeout = -time.Second }, "negative"},
		{"relative metrics path", func(c *Config) { c.Metrics.Path = "metrics" }, "metrics.path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("", nil)
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate()
			assert.ErrorContains(t, err, tt.errSubstr)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestMetricsPathIgnoredWhenDisabled(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	cfg.Metrics.Enabled = false
	cfg.Metrics.Path = ""
	assert.NoError(t, cfg.Validate())
}
