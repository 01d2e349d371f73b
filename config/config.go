/*
Package config loads server configuration from file and environment.

PURPOSE:
  Centralizes every tunable: HTTP port, database path, remote rules
  service endpoint and credentials, cache TTL, and log level. Values come
  from config/config.yaml when present, overridden by environment
  variables (viper's AutomaticEnv), with sensible defaults for local
  development.

PRECEDENCE (highest wins):
  1. Environment variables (SERVER_PORT, RULES_URL, ...)
  2. config/config.yaml
  3. Built-in defaults

SEE ALSO:
  - cmd/server/main.go: consumes the loaded configuration
*/
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Configuration stores all the configurations.
type Configuration struct {
	Server ServerConfiguration
	DB     DatabaseConfiguration
	Rules  RulesConfiguration
	Log    LogConfiguration
}

// ServerConfiguration stores the port and other web server settings.
type ServerConfiguration struct {
	Port string
}

// DatabaseConfiguration stores the SQLite path. Use ":memory:" for an
// in-memory database.
type DatabaseConfiguration struct {
	Path string
}

// RulesConfiguration stores the remote rules service connection.
type RulesConfiguration struct {
	URL      string
	Token    string
	Timeout  time.Duration
	CacheTTL time.Duration
	FPLYear  int
}

// LogConfiguration stores logging settings.
type LogConfiguration struct {
	Level string
}

// Load reads configuration from file and environment.
func Load() (*Configuration, error) {
	viper.AddConfigPath("config")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("db.path", "benefits.db")
	viper.SetDefault("rules.url", "http://localhost:5000/calculate")
	viper.SetDefault("rules.token", "")
	viper.SetDefault("rules.timeout", "20s")
	viper.SetDefault("rules.cachettl", "1m")
	viper.SetDefault("rules.fplyear", 2023)
	viper.SetDefault("log.level", "info")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// No config file is fine; defaults and env apply.
	}

	cfg := &Configuration{
		Server: ServerConfiguration{
			Port: viper.GetString("server.port"),
		},
		DB: DatabaseConfiguration{
			Path: viper.GetString("db.path"),
		},
		Rules: RulesConfiguration{
			URL:      viper.GetString("rules.url"),
			Token:    viper.GetString("rules.token"),
			Timeout:  viper.GetDuration("rules.timeout"),
			CacheTTL: viper.GetDuration("rules.cachettl"),
			FPLYear:  viper.GetInt("rules.fplyear"),
		},
		Log: LogConfiguration{
			Level: viper.GetString("log.level"),
		},
	}
	return cfg, nil
}
