// Package config assembles server settings from defaults, an optional config
// file, environment variables and command-line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the server configuration.
type Config struct {
	Addr               string `mapstructure:"addr"`
	Env                string `mapstructure:"env"`
	LogLevel           string `mapstructure:"log_level"`
	DatabaseDriver     string `mapstructure:"database_driver"`
	DatabaseURL        string `mapstructure:"database_url"`
	SQLitePath         string `mapstructure:"sqlite_path"`
	FrontendURL        string `mapstructure:"frontend_url"`
	BackendURL         string `mapstructure:"backend_url"`
	SessionSecret      string `mapstructure:"session_secret"`
	AuthRequired       bool   `mapstructure:"auth_required"`
	AdminEmails        string `mapstructure:"admin_emails"`
	GoogleClientID     string `mapstructure:"google_client_id"`
	GoogleClientSecret string `mapstructure:"google_client_secret"`
	GitHubClientID     string `mapstructure:"github_client_id"`
	GitHubClientSecret string `mapstructure:"github_client_secret"`
	RateLimitPerMinute int    `mapstructure:"rate_limit_per_minute"`
}

// IsProduction reports whether ENV=production.
func (c Config) IsProduction() bool { return c.Env == "production" }

var defaults = map[string]any{
	"addr":                  ":8080",
	"env":                   "development",
	"log_level":             "INFO",
	"database_driver":       "postgres",
	"database_url":          "",
	"sqlite_path":           "studio.db",
	"frontend_url":          "http://localhost:3000",
	"backend_url":           "http://localhost:8080",
	"session_secret":        "",
	"auth_required":         true,
	"admin_emails":          "",
	"google_client_id":      "",
	"google_client_secret":  "",
	"github_client_id":      "",
	"github_client_secret":  "",
	"rate_limit_per_minute": 5,
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"addr":          "addr",
	"driver":        "database_driver",
	"database-url":  "database_url",
	"sqlite-path":   "sqlite_path",
	"log-level":     "log_level",
	"config":        "config_file",
	"auth-required": "auth_required",
	"rate-limit":    "rate_limit_per_minute",
}

// RegisterDatabaseFlags adds the flags shared by every binary that opens the
// database: driver and target, log level and config file.
func RegisterDatabaseFlags(fs *pflag.FlagSet) {
	fs.String("driver", "", "database driver: postgres or sqlite (DATABASE_DRIVER)")
	fs.String("database-url", "", "postgres connection URL (DATABASE_URL)")
	fs.String("sqlite-path", "", "sqlite database file (SQLITE_PATH)")
	fs.String("log-level", "", "DEBUG, INFO, WARN or ERROR (LOG_LEVEL)")
	fs.String("config", "", "optional config file (CONFIG_FILE)")
}

// RegisterFlags adds the server flags to fs. Unset flags do not override
// environment or file values.
func RegisterFlags(fs *pflag.FlagSet) {
	RegisterDatabaseFlags(fs)
	fs.String("addr", "", "listen address (ADDR)")
	fs.Bool("auth-required", true, "require an operator session for admin routes (AUTH_REQUIRED)")
	fs.Int("rate-limit", 0, "submissions per client IP per minute (RATE_LIMIT_PER_MINUTE)")
}

// Load builds a Config. fs may be nil; otherwise it must have been set up
// with RegisterFlags and parsed.
func Load(fs *pflag.FlagSet) (Config, error) {
	c, err := read(fs)
	if err != nil {
		return Config{}, err
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadDatabase resolves settings the same way as Load but only checks the
// database ones. It serves tools such as the migrator that never start the
// HTTP server. fs may be nil or set up with RegisterDatabaseFlags.
func LoadDatabase(fs *pflag.FlagSet) (Config, error) {
	c, err := read(fs)
	if err != nil {
		return Config{}, err
	}
	if err := errors.Join(c.databaseErrs()...); err != nil {
		return Config{}, err
	}
	return c, nil
}

// DatabaseTarget returns the postgres URL or the sqlite file path, depending
// on the driver.
func (c Config) DatabaseTarget() string {
	if c.DatabaseDriver == "sqlite" {
		return c.SQLitePath
	}
	return c.DatabaseURL
}

func read(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	// Keys match the environment variable names, lower-cased.
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	c.DatabaseDriver = strings.ToLower(strings.TrimSpace(c.DatabaseDriver))
	return c, nil
}

func (c Config) databaseErrs() []error {
	switch c.DatabaseDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return []error{errors.New("DATABASE_URL is required for the postgres driver")}
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return []error{errors.New("SQLITE_PATH is required for the sqlite driver")}
		}
	default:
		return []error{fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", c.DatabaseDriver)}
	}
	return nil
}

func (c Config) validate() error {
	errs := c.databaseErrs()
	if c.AuthRequired && c.SessionSecret == "" {
		errs = append(errs, errors.New("SESSION_SECRET is required when AUTH_REQUIRED is true"))
	}
	if !c.AuthRequired && c.IsProduction() {
		errs = append(errs, errors.New("AUTH_REQUIRED=false is not allowed in production"))
	}
	if c.RateLimitPerMinute < 1 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", c.RateLimitPerMinute))
	}
	return errors.Join(errs...)
}
