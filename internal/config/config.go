// Package config handles loading of the dw2l tool configuration.
package config

import "github.com/dw2tools/dw2file/dw2l"

// Config holds all tool settings.
type Config struct {
	Policy  dw2l.Policy   `yaml:"policy"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// MetricsConfig holds metrics export settings.
type MetricsConfig struct {
	File string `yaml:"file"` // Prometheus textfile, written on exit
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Policy: dw2l.DefaultPolicy(),
		Logging: LoggingConfig{
			Level:      "warn",
			LogFile:    "",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}

// Validate reports whether the loaded settings are usable.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return LevelError(c.Logging.Level)
	}
	return c.Policy.Validate()
}

// LevelError is returned for an unknown logging level.
type LevelError string

func (err LevelError) Error() string {
	return "unknown log level \"" + string(err) + "\""
}
