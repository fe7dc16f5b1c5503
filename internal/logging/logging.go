// Package logging builds the zerolog logger used by the pipa command.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	gferrors "github.com/pboueke/pipa/pkg/common/errors"
)

// Formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config contains logging configuration.
type Config struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	Output    string `mapstructure:"output"`
	NoColor   bool   `mapstructure:"no_color"`
	Timestamp bool   `mapstructure:"timestamp"`
}

// ApplyDefaults fills empty fields.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = FormatConsole
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
}

// Validate checks level, format and output.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Level)); err != nil || c.Level == "" {
		return gferrors.NewValidationError("logging", "level", c.Level, "unknown level").
			WithHint("use trace, debug, info, warn or error")
	}
	switch strings.ToLower(c.Format) {
	case FormatConsole, FormatJSON:
	default:
		return gferrors.NewValidationError("logging", "format", c.Format, "must be one of: console json")
	}
	switch strings.ToLower(c.Output) {
	case "stdout", "stderr":
	default:
		return gferrors.NewValidationError("logging", "output", c.Output, "must be one of: stdout stderr")
	}
	return nil
}

// New builds a logger writing to the configured standard stream.
func New(cfg Config) (zerolog.Logger, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return zerolog.Nop(), err
	}
	return NewWithWriter(cfg, outputWriter(cfg.Output)), nil
}

// NewWithWriter builds a logger writing to w. cfg must be valid. Console
// output is colored only when w is a terminal and NoColor is unset.
func NewWithWriter(cfg Config, w io.Writer) zerolog.Logger {
	cfg.ApplyDefaults()
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var zl zerolog.Logger
	if strings.ToLower(cfg.Format) == FormatJSON {
		zl = zerolog.New(w)
	} else {
		noColor := cfg.NoColor || !IsTerminal(w)
		zl = zerolog.New(zerolog.ConsoleWriter{
			Out:         w,
			TimeFormat:  "15:04:05",
			NoColor:     noColor,
			FormatLevel: levelFormatter(noColor),
		})
	}

	zl = zl.Level(level)
	if cfg.Timestamp {
		zl = zl.With().Timestamp().Logger()
	}
	return zl
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func outputWriter(output string) *os.File {
	if strings.ToLower(output) == "stdout" {
		return os.Stdout
	}
	return os.Stderr
}

func levelFormatter(noColor bool) zerolog.Formatter {
	return func(i interface{}) string {
		lvl := strings.ToUpper(fmt.Sprintf("%s", i))
		var tag, color string
		switch lvl {
		case "TRACE":
			tag, color = "[TRC]", "\033[90m"
		case "DEBUG":
			tag, color = "[DBG]", "\033[36m"
		case "INFO":
			tag, color = "[INF]", "\033[32m"
		case "WARN":
			tag, color = "[WRN]", "\033[33m"
		case "ERROR":
			tag, color = "[ERR]", "\033[31m"
		case "FATAL", "PANIC":
			tag, color = "[FTL]", "\033[35m"
		default:
			tag = "[" + lvl + "]"
		}
		if noColor || color == "" {
			return tag
		}
		return color + tag + "\033[0m"
	}
}
