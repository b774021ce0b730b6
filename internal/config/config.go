package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	// EnvPrefix prefixes every environment override. Nested keys are
	// separated by a double underscore: REACTOR_SERVER__ADDR.
	EnvPrefix = "REACTOR_"

	// DefaultAddr is the default HTTP listen address.
	DefaultAddr = "localhost:8080"

	// DefaultMetricsPath is where metrics are served when enabled.
	DefaultMetricsPath = "/metrics"
)

var (
	// ErrFile wraps failures to read or parse the config file.
	ErrFile = errors.New("error reading config file")

	// ErrInvalid wraps every Validate failure.
	ErrInvalid = errors.New("invalid config")
)

// FileNames are looked up in the working directory when no config file is
// given.
var FileNames = []string{"reactor.yaml", "reactor.yml"}

// Config holds all reactor configuration.
type Config struct {
	// Script is the .star program to serve.
	Script string `koanf:"script"`

	// Watch reloads the script when it changes on disk.
	Watch bool `koanf:"watch"`

	Server  ServerConfig  `koanf:"server"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
	Tracing TracingConfig `koanf:"tracing"`
	View    ViewConfig    `koanf:"view"`

	// File is the config file that was loaded, if any.
	File string `koanf:"-"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is text or json.
	Format string `koanf:"format"`

	// File, when set, also receives every record as JSON.
	File string `koanf:"file"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Namespace string `koanf:"namespace"`
	Path      string `koanf:"path"`
}

// TracingConfig configures OpenTelemetry spans.
type TracingConfig struct {
	Enabled    bool   `koanf:"enabled"`
	TracerName string `koanf:"tracer_name"`
}

// ViewConfig configures rendering.
type ViewConfig struct {
	// DecimalKeys are key fragments rendered with two decimals.
	DecimalKeys []string `koanf:"decimal_keys"`

	// Page is an optional HTML page kept in sync with the store and
	// served at "/".
	Page string `koanf:"page"`
}

func defaults() map[string]any {
	return map[string]any{
		"script":                     "",
		"watch":                      false,
		"server.addr":                DefaultAddr,
		"server.read_header_timeout": "10s",
		"server.shutdown_timeout":    "5s",
		"log.level":                  "info",
		"log.format":                 "text",
		"log.file":                   "",
		"metrics.enabled":            true,
		"metrics.namespace":          "reactor",
		"metrics.path":               DefaultMetricsPath,
		"tracing.enabled":            false,
		"tracing.tracer_name":        "reactor",
		"view.decimal_keys":          []string{"Total", "Tax", "Subtotal"},
		"view.page":                  "",
	}
}

// flagKeys maps CLI flag names to config keys. Flags not listed map to
// their own name with dashes replaced by underscores.
var flagKeys = map[string]string{
	"addr":       "server.addr",
	"log-level":  "log.level",
	"log-format": "log.format",
	"log-file":   "log.file",
	"metrics":    "metrics.enabled",
	"tracing":    "tracing.enabled",
	"page":       "view.page",
}

// Load reads configuration from defaults, the config file, REACTOR_
// environment variables and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
//
// cfgFile may be empty, in which case reactor.yaml or reactor.yml in the
// working directory is used if present. flags may be nil; only flags that
// were explicitly set are applied.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w %s: %w", ErrFile, used, err)
		}
	}

	// 3. Environment: REACTOR_LOG__LEVEL -> log.level
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used
	return &cfg, nil
}

// findConfigFile returns the explicit path, or the first of FileNames
// present in the working directory.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range FileNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format must be text or json, got %q", ErrInvalid, c.Log.Format)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is required", ErrInvalid)
	}
	if c.Server.ShutdownTimeout < 0 || c.Server.ReadHeaderTimeout < 0 {
		return fmt.Errorf("%w: server timeouts must not be negative", ErrInvalid)
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("%w: metrics.path must start with /, got %q", ErrInvalid, c.Metrics.Path)
	}
	return nil
}

// SlogLevel parses Level.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("%w: log.level must be debug, info, warn or error, got %q", ErrInvalid, c.Level)
	}
	return level, nil
}
