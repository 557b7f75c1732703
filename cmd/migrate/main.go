// Package main applies, rolls back, or inspects the question store schema.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/cory-johannsen/quizwar/internal/config"
	"github.com/cory-johannsen/quizwar/internal/observability"
)

// options are the parsed command-line settings.
type options struct {
	configPath string
	dir        string
	direction  string
	steps      int
	force      int
}

func parseOptions(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "configs/dev.yaml", "path to configuration file")
	fs.StringVar(&o.dir, "dir", "migrations", "path to the migrations directory")
	fs.StringVar(&o.direction, "direction", "up", "up, down, or status")
	fs.IntVar(&o.steps, "steps", 0, "number of steps (0 = all)")
	fs.IntVar(&o.force, "force", -1, "mark the schema as this version without running migrations")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	switch o.direction {
	case "up", "down", "status":
	default:
		return options{}, fmt.Errorf("invalid direction %q: must be up, down or status", o.direction)
	}
	if o.steps < 0 {
		return options{}, fmt.Errorf("steps must not be negative, got %d", o.steps)
	}
	return o, nil
}

// apply runs the migration o describes against m.
//
// Postcondition: migrate.ErrNoChange is reported as nil.
func apply(m *migrate.Migrate, o options) error {
	var err error
	switch {
	case o.force >= 0:
		err = m.Force(o.force)
	case o.direction == "status":
		return nil
	case o.direction == "up" && o.steps > 0:
		err = m.Steps(o.steps)
	case o.direction == "up":
		err = m.Up()
	case o.steps > 0:
		err = m.Steps(-o.steps)
	default:
		err = m.Down()
	}
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

func run(args []string) error {
	start := time.Now()
	o, err := parseOptions(args)
	if err != nil {
		return err
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	m, err := migrate.New("file://"+o.dir, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := apply(m, o); err != nil {
		return fmt.Errorf("migration %s failed: %w", o.direction, err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("reading schema version: %w", err)
	}
	logger.Info("schema migrated",
		zap.String("direction", o.direction),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
