package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

// clearEnv blanks every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for key := range defaults {
		t.Setenv(strings.ToUpper(key), "")
		os.Unsetenv(strings.ToUpper(key))
	}
	t.Setenv("CONFIG_FILE", "")
	os.Unsetenv("CONFIG_FILE")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/studio")
	t.Setenv("SESSION_SECRET", "s3cret")

	c, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Addr != ":8080" || c.DatabaseDriver != "postgres" || c.RateLimitPerMinute != 5 {
		t.Errorf("unexpected defaults: %+v", c)
	}
	if !c.AuthRequired {
		t.Error("expected AUTH_REQUIRED to default to true")
	}
	if c.IsProduction() {
		t.Error("expected development by default")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("AUTH_REQUIRED", "false")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "12")
	t.Setenv("ADMIN_EMAILS", "a@x.com,b@x.com")

	c, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.DatabaseDriver != "sqlite" || c.SQLitePath != "/tmp/x.db" {
		t.Errorf("unexpected database settings: %+v", c)
	}
	if c.AuthRequired {
		t.Error("expected AUTH_REQUIRED=false to be honoured")
	}
	if c.RateLimitPerMinute != 12 {
		t.Errorf("expected rate limit 12, got %d", c.RateLimitPerMinute)
	}
	if c.AdminEmails != "a@x.com,b@x.com" {
		t.Errorf("unexpected admin emails %q", c.AdminEmails)
	}
}

func TestLoad_FlagsBeatEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/studio")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("ADDR", ":9000")

	fs := pflag.NewFlagSet("server", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse([]string{"--addr", ":7000", "--driver", "sqlite", "--sqlite-path", "local.db"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	c, err := Load(fs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Addr != ":7000" {
		t.Errorf("expected flag addr, got %q", c.Addr)
	}
	if c.DatabaseDriver != "sqlite" || c.SQLitePath != "local.db" {
		t.Errorf("unexpected database settings: %+v", c)
	}
	if !c.AuthRequired {
		t.Error("an unset bool flag must not override the default")
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "studio.yaml")
	content := "database_driver: sqlite\nsqlite_path: file.db\nsession_secret: from-file\nfrontend_url: https://studio.example\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("FRONTEND_URL", "https://override.example")

	c, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.SQLitePath != "file.db" || c.SessionSecret != "from-file" {
		t.Errorf("expected values from file, got %+v", c)
	}
	if c.FrontendURL != "https://override.example" {
		t.Errorf("expected env to beat the file, got %q", c.FrontendURL)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := Load(nil); err == nil {
		t.Error("expected an error for a missing explicit config file")
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"postgres without url", map[string]string{"SESSION_SECRET": "s"}, "DATABASE_URL"},
		{"unknown driver", map[string]string{"DATABASE_DRIVER": "mysql", "SESSION_SECRET": "s"}, "DATABASE_DRIVER"},
		{"auth without secret", map[string]string{"DATABASE_URL": "postgres://x"}, "SESSION_SECRET"},
		{"dev auth in production", map[string]string{"DATABASE_URL": "postgres://x", "AUTH_REQUIRED": "false", "ENV": "production"}, "production"},
		{"non-positive rate limit", map[string]string{"DATABASE_URL": "postgres://x", "SESSION_SECRET": "s", "RATE_LIMIT_PER_MINUTE": "0"}, "RATE_LIMIT_PER_MINUTE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(nil)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %s, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadDatabase_SkipsServerChecks(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/studio")

	c, err := LoadDatabase(nil)
	if err != nil {
		t.Fatalf("LoadDatabase: %v", err)
	}
	if c.DatabaseTarget() != "postgres://localhost/studio" {
		t.Errorf("expected postgres target, got %q", c.DatabaseTarget())
	}
	if _, err := Load(nil); err == nil {
		t.Error("expected Load to still require SESSION_SECRET")
	}
}

func TestLoadDatabase_ReadsConfigFileAndFlags(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "studio.yaml")
	if err := os.WriteFile(path, []byte("database_driver: sqlite\nsqlite_path: from-file.db\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	c, err := LoadDatabase(nil)
	if err != nil {
		t.Fatalf("LoadDatabase: %v", err)
	}
	if c.DatabaseDriver != "sqlite" || c.DatabaseTarget() != "from-file.db" {
		t.Errorf("expected sqlite target from file, got %q %q", c.DatabaseDriver, c.DatabaseTarget())
	}

	fs := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	RegisterDatabaseFlags(fs)
	if err := fs.Parse([]string{"--sqlite-path", "from-flag.db"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	c, err = LoadDatabase(fs)
	if err != nil {
		t.Fatalf("LoadDatabase: %v", err)
	}
	if c.DatabaseTarget() != "from-flag.db" {
		t.Errorf("expected flag to beat the file, got %q", c.DatabaseTarget())
	}
}

func TestLoadDatabase_Invalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_DRIVER", "mysql")

	if _, err := LoadDatabase(nil); err == nil {
		t.Error("expected an error for an unknown driver")
	}
}
