package conf

import (
	"github.com/festa-dev/festa-backend/internal/pkg/database"
	"github.com/festa-dev/festa-backend/internal/pkg/logger"
)

// ToLoggerConfig maps the app log section onto the logger package config,
// filling defaults for unset fields.
func (c *LogConfig) ToLoggerConfig() *logger.Config {
	cfg := logger.DefaultConfig()
	if c.Level != "" {
		cfg.Level = c.Level
	}
	if c.Format != "" {
		cfg.Format = c.Format
	}
	if c.Output != "" {
		cfg.Output = c.Output
	}
	cfg.EnableCaller = c.EnableCaller
	cfg.EnableStacktrace = c.EnableStacktrace
	if c.File.Filename != "" {
		cfg.File = logger.FileConfig{
			Filename:   c.File.Filename,
			MaxSize:    c.File.MaxSize,
			MaxAge:     c.File.MaxAge,
			MaxBackups: c.File.MaxBackups,
			Compress:   c.File.Compress,
		}
	}
	return cfg
}

// ToDatabaseConfig maps the app database section onto the database package
// config, keeping its pool and gorm defaults.
func (c *DatabaseConfig) ToDatabaseConfig() *database.Config {
	cfg := database.DefaultConfig()
	cfg.Host = c.Host
	cfg.Port = c.Port
	cfg.User = c.User
	cfg.Password = c.Password
	cfg.DBName = c.DBName
	cfg.SSLMode = c.SSLMode
	cfg.AutoMigrate = c.AutoMigrate
	return cfg
}
