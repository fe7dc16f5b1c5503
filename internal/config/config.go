// Package config resolves the run-level settings of the pipa command.
//
// Values are layered, lowest first: built-in defaults, the topology's [run]
// table, a .env file, PIPA_* environment variables, then command-line flags
// that were explicitly set.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pboueke/pipa/internal/logging"
	gferrors "github.com/pboueke/pipa/pkg/common/errors"
	"github.com/pboueke/pipa/pkg/common/validation"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "PIPA"

// DefaultEnvFile is loaded when Options.EnvFile is empty and it exists.
const DefaultEnvFile = ".env"

// Config holds the run-level settings.
type Config struct {
	// MonitorInterval is how often a monitoring snapshot is taken.
	MonitorInterval time.Duration `mapstructure:"monitor_interval" validate:"gt=0"`

	// MonitorSkip renders only every Nth snapshot on the console.
	MonitorSkip int `mapstructure:"monitor_skip" validate:"gte=1"`

	// EnableMonitoring turns the console table on.
	EnableMonitoring bool `mapstructure:"enable_monitoring"`

	// IdleTimeout force-stops a run whose buffers stay empty this long.
	// Zero or negative disables it.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`

	// DefaultCapacity applies to buffers declared without one.
	DefaultCapacity int `mapstructure:"default_capacity" validate:"gte=1"`

	// RetryDelay is the pause between attempts on a full output.
	RetryDelay time.Duration `mapstructure:"retry_delay" validate:"gt=0"`

	// ConfirmUnbounded asks before starting a run nothing can end on its own.
	ConfirmUnbounded bool `mapstructure:"confirm_unbounded"`

	// MetricsAddr serves Prometheus metrics when set, e.g. ":9090".
	MetricsAddr string `mapstructure:"metrics_addr" validate:"omitempty,hostname_port"`

	// HistoryPath is the SQLite run history database. Empty disables it.
	HistoryPath string `mapstructure:"history_path"`

	// RedisAddr enables the Redis abort source when set.
	RedisAddr string `mapstructure:"redis_addr" validate:"omitempty,hostname_port"`

	// AbortKey is the Redis key that aborts runs while it exists.
	AbortKey string `mapstructure:"abort_key" validate:"required"`

	// Schedule runs the topology repeatedly on a cron expression.
	Schedule string `mapstructure:"schedule"`

	Log logging.Config `mapstructure:"log"`
}

var defaults = map[string]any{
	"monitor_interval":  10 * time.Second,
	"monitor_skip":      1,
	"enable_monitoring": true,
	"idle_timeout":      time.Duration(0),
	"default_capacity":  100,
	"retry_delay":       time.Second,
	"confirm_unbounded": false,
	"metrics_addr":      "",
	"history_path":      "",
	"redis_addr":        "",
	"abort_key":         "pipa:abort",
	"schedule":          "",
	"log.level":         "info",
	"log.format":        logging.FormatConsole,
	"log.output":        "stderr",
	"log.no_color":      false,
	"log.timestamp":     true,
}

// Keys returns every configuration key, sorted.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EnvName returns the environment variable that sets key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Options select the sources Load reads besides defaults and the
// environment.
type Options struct {
	// Run is the topology's [run] table.
	Run map[string]any

	// EnvFile is a dotenv file. Empty loads DefaultEnvFile if it exists.
	EnvFile string

	// Flags holds command-line flags registered with RegisterFlags.
	Flags *pflag.FlagSet
}

// Load resolves the configuration. Unknown keys in the [run] table are
// rejected.
func Load(opts Options) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if len(opts.Run) > 0 {
		if err := v.MergeConfigMap(opts.Run); err != nil {
			return nil, fmt.Errorf("merge run table: %w", err)
		}
	}

	dotenv, err := readEnvFile(opts.EnvFile)
	if err != nil {
		return nil, err
	}
	if len(dotenv) > 0 {
		if err := v.MergeConfigMap(dotenv); err != nil {
			return nil, fmt.Errorf("merge env file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for _, f := range flagTable {
			if flag := opts.Flags.Lookup(f.name); flag != nil {
				if err := v.BindPFlag(f.key, flag); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", f.name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.UnmarshalExact(&cfg); err != nil {
		return nil, gferrors.NewValidationError("config", "run", nil, err.Error()).
			WithHint("valid keys: " + strings.Join(Keys(), ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	if err := validation.Struct("config", c); err != nil {
		return err
	}
	return c.Log.Validate()
}

// readEnvFile returns the PIPA_* entries of a dotenv file as a nested
// configuration map. A missing default file is not an error.
func readEnvFile(path string) (map[string]any, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}

	values, err := godotenv.Read(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read env file: %w", err)
	}

	byEnv := make(map[string]string, len(defaults))
	for key := range defaults {
		byEnv[EnvName(key)] = key
	}

	out := make(map[string]any)
	for name, value := range values {
		key, ok := byEnv[name]
		if !ok {
			continue
		}
		// The real environment wins over the file.
		if _, set := os.LookupEnv(name); set {
			continue
		}
		setNested(out, key, value)
	}
	return out, nil
}

func setNested(m map[string]any, key, value string) {
	parts := strings.Split(key, ".")
	for _, p := range parts[:len(parts)-1] {
		child, ok := m[p].(map[string]any)
		if !ok {
			child = make(map[string]any)
			m[p] = child
		}
		m = child
	}
	m[parts[len(parts)-1]] = value
}
