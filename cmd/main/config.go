package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/natefinch/atomic"
)

// Config holds the settings of a generation run. Command line flags override
// the values read from the config file.
type Config struct {
	KeyLength      int    `json:"key_length"`
	DropBlankLines bool   `json:"drop_blank_lines"`
	SampleParts    bool   `json:"sample_parts"`
	Concurrency    int    `json:"concurrency"`
	Seed           uint64 `json:"seed"`
	LogLevel       string `json:"log_level"`
	DatabasePath   string `json:"database_path"`
	WordSeparator  string `json:"word_separator"`
	LineSeparator  string `json:"line_separator"`
}

// DefaultConfig creates a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		KeyLength:      2,
		DropBlankLines: false,
		SampleParts:    false,
		Concurrency:    1,
		Seed:           0,
		LogLevel:       "info",
		DatabasePath:   "",
		WordSeparator:  " ",
		LineSeparator:  "\n",
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values. An empty
// path returns the defaults without touching the filesystem.
func LoadConfig(path string, logger *slog.Logger) (*Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		// If the file doesn't exist, create it with the default config.
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// Still usable with defaults.
				logger.Warn("Failed to write default config file", "path", path, "error", err)
			} else {
				logger.Info("Wrote default config file", "path", path)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// applyFlags overrides config values with the flags given on the command line.
// Zero values mean the flag was not set.
func (c *Config) applyFlags(flags *cliFlags) {
	if flags.KeyLength != 0 {
		c.KeyLength = flags.KeyLength
	}
	if flags.DropBlankLines {
		c.DropBlankLines = true
	}
	if flags.SampleParts {
		c.SampleParts = true
	}
	if flags.Concurrency != 0 {
		c.Concurrency = flags.Concurrency
	}
	if flags.Seed != 0 {
		c.Seed = flags.Seed
	}
	if flags.LogLevel != "" {
		c.LogLevel = flags.LogLevel
	}
	if flags.DB != "" {
		c.DatabasePath = flags.DB
	}
}

// parseLogLevel maps a config level name to a slog level, defaulting to info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
