package logger

import (
	"fmt"
	"strings"
)

// Config controls log level, encoding and destinations.
type Config struct {
	Level            string     `mapstructure:"level"`  // debug, info, warn, error
	Format           string     `mapstructure:"format"` // json, console
	Output           string     `mapstructure:"output"` // console, file, both
	File             FileConfig `mapstructure:"file"`
	EnableCaller     bool       `mapstructure:"enablecaller"`
	EnableStacktrace bool       `mapstructure:"enablestacktrace"`
}

// FileConfig controls rotation of the file sink.
type FileConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"maxsize"` // megabytes
	MaxAge     int    `mapstructure:"maxage"`  // days
	MaxBackups int    `mapstructure:"maxbackups"`
	Compress   bool   `mapstructure:"compress"`
}

// DefaultConfig returns a JSON console logger at info level.
func DefaultConfig() *Config {
	return &Config{
		Level:            "info",
		Format:           "json",
		Output:           "console",
		EnableCaller:     true,
		EnableStacktrace: true,
		File: FileConfig{
			Filename:   "logs/app.log",
			MaxSize:    100,
			MaxAge:     30,
			MaxBackups: 10,
			Compress:   true,
		},
	}
}

var validLevels = map[string]struct{}{
	"debug": {}, "info": {}, "warn": {}, "error": {},
	"dpanic": {}, "panic": {}, "fatal": {},
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if _, ok := validLevels[strings.ToLower(c.Level)]; !ok {
		return fmt.Errorf("invalid log level %q", c.Level)
	}
	switch c.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format %q, want json or console", c.Format)
	}
	switch c.Output {
	case "console":
		return nil
	case "file", "both":
	default:
		return fmt.Errorf("invalid log output %q, want console, file or both", c.Output)
	}

	if c.File.Filename == "" {
		return fmt.Errorf("log file filename is required for output %q", c.Output)
	}
	if c.File.MaxSize <= 0 {
		return fmt.Errorf("log file maxsize must be positive")
	}
	if c.File.MaxAge <= 0 {
		return fmt.Errorf("log file maxage must be positive")
	}
	if c.File.MaxBackups < 0 {
		return fmt.Errorf("log file maxbackups must not be negative")
	}
	return nil
}
