package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/studioworks/backend/internal/config"
	"github.com/studioworks/backend/internal/database"
	"github.com/studioworks/backend/internal/logging"
)

const usageText = `Usage: migrate [command] [flags]

Commands:
  up (default)  apply pending migrations
  down          revert every applied migration
  reset         down, then up
  fresh         drop every table, then up
  version       print the applied schema version

Flags:
`

func main() {
	_ = godotenv.Load()
	_ = godotenv.Load("../.env")

	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		logging.Fatal("migrate failed", "error", err)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usageText)
		fs.PrintDefaults()
	}
	config.RegisterDatabaseFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.LoadDatabase(fs)
	if err != nil {
		return err
	}
	logging.Setup(os.Stdout, cfg.LogLevel)

	cmd := "up"
	if fs.NArg() > 0 {
		cmd = fs.Arg(0)
	}
	return runCommand(cmd, cfg.DatabaseDriver, cfg.DatabaseTarget())
}

func runCommand(cmd, driver, target string) error {
	m, err := database.NewMigrator(driver, target)
	if err != nil {
		return err
	}
	defer m.Close()

	switch cmd {
	case "up":
		err = database.Up(m)
	case "down":
		err = database.Down(m)
	case "reset":
		if err = database.Down(m); err == nil {
			err = database.Up(m)
		}
	case "fresh":
		if err = m.Drop(); err != nil {
			return fmt.Errorf("drop: %w", err)
		}
		// A dropped database has no version table; start over with a new migrator.
		return database.Migrate(driver, target)
	case "version":
		version, dirty, verr := m.Version()
		if verr != nil {
			return verr
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}
	slog.Info("migrations applied", "command", cmd, "driver", driver)
	return nil
}
