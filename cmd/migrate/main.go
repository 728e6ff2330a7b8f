// Command migrate applies the embedded schema migrations.
//
//	migrate [-dsn URL] up|down|version
//	migrate [-dsn URL] steps N
//	migrate [-dsn URL] force V
//
// Without -dsn the connection comes from PALETTE_DATABASE_URL or the
// PALETTE_DB_* variables the server reads.
package main

import (
	"embed"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/joho/godotenv"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/JaimeStill/palette/internal/config"
	"github.com/JaimeStill/palette/pkg/database"
)

//go:embed migrations/*.sql
var migrations embed.FS

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	dsn := flag.String("dsn", "", "postgres connection URL")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: migrate [-dsn URL] up|down|version|steps N|force V")
		flag.PrintDefaults()
	}
	flag.Parse()

	_ = godotenv.Load()

	if err := run(*dsn, flag.Args(), logger); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
}

func run(dsn string, args []string, logger *slog.Logger) error {
	if len(args) == 0 {
		flag.Usage()
		return errors.New("missing command")
	}

	url, err := resolveURL(dsn)
	if err != nil {
		return err
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, url)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	switch cmd := args[0]; cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "steps", "force":
		if len(args) < 2 {
			return fmt.Errorf("%s requires a number", cmd)
		}
		n, convErr := strconv.Atoi(args[1])
		if convErr != nil {
			return fmt.Errorf("%s: invalid number %q", cmd, args[1])
		}
		if cmd == "steps" {
			err = m.Steps(n)
		} else {
			err = m.Force(n)
		}
	case "version":
		v, dirty, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			return verr
		}
		logger.Info("schema version", "version", v, "dirty", dirty)
		return nil
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("schema already current")
		return nil
	}
	if err != nil {
		return err
	}

	v, dirty, _ := m.Version()
	logger.Info("migration complete", "command", args[0], "version", v, "dirty", dirty)
	return nil
}

func resolveURL(dsn string) (string, error) {
	if dsn != "" {
		return dsn, nil
	}

	var cfg database.Config
	if err := cfg.Finalize(config.DatabaseEnv); err != nil {
		return "", fmt.Errorf("database config: %w", err)
	}
	return cfg.MigrationURL(), nil
}
