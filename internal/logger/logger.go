// Package logger builds the process-wide slog logger from configuration.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds the logger configuration.
type Config struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// DefaultConfig reads log.* settings from viper.
func DefaultConfig() Config {
	cfg := Config{
		Level:  viper.GetString("log.level"),
		Format: viper.GetString("log.format"),
		Output: viper.GetString("log.output"),
	}
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
	return cfg
}

// NewLogger initializes a new slog logger based on the provided configuration.
// A non-nil output overrides cfg.Output.
func NewLogger(cfg Config, output io.Writer) *slog.Logger {
	var handler slog.Handler

	if output == nil {
		switch cfg.Output {
		case "stdout":
			output = os.Stdout
		case "", "stderr":
			output = os.Stderr
		default:
			// Anything else is a file path.
			if err := os.MkdirAll(filepath.Dir(cfg.Output), 0o755); err == nil {
				file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
				if err == nil {
					output = file
					break
				}
			}
			fmt.Fprintf(os.Stderr, "Failed to open log file %s, logging to stderr\n", cfg.Output)
			output = os.Stderr
		}
	}

	level := new(slog.Level)
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = new(slog.Level)
	}

	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, &slog.HandlerOptions{
			Level: level,
		})
	case "text":
		fallthrough
	default:
		handler = slog.NewTextHandler(output, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}
