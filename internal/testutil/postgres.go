// Package testutil starts throwaway PostgreSQL instances for question store
// tests.
package testutil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cory-johannsen/quizwar/internal/config"
	"github.com/cory-johannsen/quizwar/internal/game/question"
	"github.com/cory-johannsen/quizwar/internal/storage/postgres"
)

const (
	pgImage    = "postgres:16-alpine"
	pgUser     = "quizwar"
	pgPassword = "quizwar"
	pgDatabase = "quizwar_test"
)

// PostgresContainer is a running database plus a pool connected to it.
type PostgresContainer struct {
	Pool   *postgres.Pool
	Config config.DatabaseConfig
}

// NewPostgresContainer starts a database for the calling test and stops it
// during cleanup. The test is skipped under -short.
//
// Precondition: Docker must be available.
// Postcondition: Returns a connected container with an empty schema, or
// fails the test.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests need docker; skipped with -short")
	}
	ctx := context.Background()
	began := time.Now()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        pgImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     pgUser,
				"POSTGRES_PASSWORD": pgPassword,
				"POSTGRES_DB":       pgDatabase,
			},
			// The server logs readiness twice: once for the init run, once for real.
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(45 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting %s: %v", pgImage, err)
	}
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	cfg, err := containerConfig(ctx, ctr)
	if err != nil {
		t.Fatalf("inspecting %s: %v", pgImage, err)
	}
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		t.Fatalf("connecting to %s:%d: %v", cfg.Host, cfg.Port, err)
	}
	t.Cleanup(pool.Close)

	t.Logf("postgres ready at %s:%d after %s", cfg.Host, cfg.Port, time.Since(began).Round(time.Millisecond))
	return &PostgresContainer{Pool: pool, Config: cfg}
}

func containerConfig(ctx context.Context, ctr testcontainers.Container) (config.DatabaseConfig, error) {
	host, err := ctr.Host(ctx)
	if err != nil {
		return config.DatabaseConfig{}, err
	}
	port, err := ctr.MappedPort(ctx, "5432")
	if err != nil {
		return config.DatabaseConfig{}, err
	}
	return config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            pgUser,
		Password:        pgPassword,
		Name:            pgDatabase,
		SSLMode:         "disable",
		MaxConns:        4,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
	}, nil
}

// ApplyMigrations brings the schema up to the latest migration.
//
// Postcondition: the question_banks and questions tables exist.
func (pc *PostgresContainer) ApplyMigrations(t *testing.T) {
	t.Helper()
	dir, err := MigrationsDir()
	if err != nil {
		t.Fatalf("locating migrations: %v", err)
	}
	m, err := migrate.New("file://"+dir, pc.Config.DSN())
	if err != nil {
		t.Fatalf("opening migrations in %s: %v", dir, err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("migrating up: %v", err)
	}
}

// Questions returns a repository over the container's pool.
func (pc *PostgresContainer) Questions() *postgres.QuestionRepository {
	return postgres.NewQuestionRepository(pc.Pool.DB())
}

// SeedBank stores bank under name.
//
// Precondition: ApplyMigrations has run.
func (pc *PostgresContainer) SeedBank(t *testing.T, name string, bank *question.Bank) {
	t.Helper()
	if err := pc.Questions().SaveBank(context.Background(), name, bank); err != nil {
		t.Fatalf("seeding bank %q: %v", name, err)
	}
}

// MigrationsDir finds the migrations/ directory beside the nearest go.mod
// above the working directory.
//
// Postcondition: Returns an absolute path or a non-nil error.
func MigrationsDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.Join(dir, "migrations"), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("no go.mod above the working directory")
		}
		dir = parent
	}
}
