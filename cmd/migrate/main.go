// Command migrate applies the embedded schema migrations. The connection
// comes from -dsn, or else from the service's database configuration.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/JaimeStill/vitalis/internal/config"
	"github.com/JaimeStill/vitalis/migrations"
)

type options struct {
	dsn     string
	up      bool
	down    bool
	steps   int
	version bool
	force   int
	forced  bool
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var opts options
	flag.StringVar(&opts.dsn, "dsn", "", "database connection string (default: from config)")
	flag.BoolVar(&opts.up, "up", false, "apply all pending migrations")
	flag.BoolVar(&opts.down, "down", false, "revert all migrations")
	flag.IntVar(&opts.steps, "steps", 0, "apply N migrations, or revert when negative")
	flag.BoolVar(&opts.version, "version", false, "print the current schema version")
	flag.IntVar(&opts.force, "force", -1, "mark the schema as version N without running it")
	flag.Parse()
	flag.Visit(func(f *flag.Flag) { opts.forced = opts.forced || f.Name == "force" })

	if err := run(opts); err != nil {
		logger.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	if opts.dsn == "" {
		db, err := config.LoadDatabase()
		if err != nil {
			return err
		}
		opts.dsn = db.ConnString()
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, opts.dsn)
	if err != nil {
		return fmt.Errorf("migrator: %w", err)
	}
	defer m.Close()

	switch {
	case opts.version:
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("no migrations applied")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("version %d (dirty: %t)\n", v, dirty)
		return nil
	case opts.forced:
		return m.Force(opts.force)
	case opts.up:
		return ignoreNoChange(m.Up())
	case opts.down:
		return ignoreNoChange(m.Down())
	case opts.steps != 0:
		return ignoreNoChange(m.Steps(opts.steps))
	}

	flag.Usage()
	return nil
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}
