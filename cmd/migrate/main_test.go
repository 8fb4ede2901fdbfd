package main

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/studioworks/backend/internal/database"
	"github.com/studioworks/backend/internal/repository"
)

func tableExists(t *testing.T, path, table string) bool {
	t.Helper()
	db, err := repository.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	return true
}

func TestRun_SQLiteCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studio.db")
	flags := []string{"--driver", database.DriverSQLite, "--sqlite-path", path}

	if err := run(flags); err != nil {
		t.Fatalf("up: %v", err)
	}
	if !tableExists(t, path, "requests") {
		t.Fatal("expected requests table after up")
	}

	if err := run(append([]string{"down"}, flags...)); err != nil {
		t.Fatalf("down: %v", err)
	}
	if tableExists(t, path, "requests") {
		t.Fatal("expected requests table to be gone after down")
	}

	for _, cmd := range []string{"reset", "fresh", "version"} {
		if err := run(append([]string{cmd}, flags...)); err != nil {
			t.Fatalf("%s: %v", cmd, err)
		}
	}
	if !tableExists(t, path, "request_status_events") {
		t.Error("expected status events table after fresh")
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studio.db")
	if err := run([]string{"sideways", "--driver", "sqlite", "--sqlite-path", path}); err == nil {
		t.Error("expected an error for an unknown command")
	}
}

func TestRun_MissingTarget(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if err := run([]string{"--driver", "postgres"}); err == nil {
		t.Error("expected an error when postgres has no URL")
	}
}

func TestRun_ResolvesTargetLikeTheServer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "from-file.db")
	cfgPath := filepath.Join(dir, "studio.yaml")
	if err := os.WriteFile(cfgPath, []byte("database_driver: sqlite\nsqlite_path: "+path+"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("SQLITE_PATH", "")
	t.Setenv("CONFIG_FILE", cfgPath)

	if err := run(nil); err != nil {
		t.Fatalf("up: %v", err)
	}
	if !tableExists(t, path, "requests") {
		t.Error("expected requests table in the sqlite file named by CONFIG_FILE")
	}

	envPath := filepath.Join(dir, "from-env.db")
	t.Setenv("SQLITE_PATH", envPath)
	if err := run(nil); err != nil {
		t.Fatalf("up: %v", err)
	}
	if !tableExists(t, envPath, "requests") {
		t.Error("expected SQLITE_PATH to beat the config file")
	}
}
