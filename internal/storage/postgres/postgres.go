// Package postgres stores question banks in PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/quizwar/internal/config"
)

// ApplicationName identifies quizwar connections in pg_stat_activity.
const ApplicationName = "quizwar"

// ErrSchemaMissing is returned by RequireSchema when the question tables have
// not been migrated.
var ErrSchemaMissing = errors.New("question schema not found; run cmd/migrate")

// Pool owns the connection pool shared by the repositories.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool connects to the database described by cfg.
//
// Precondition: cfg must have passed config validation.
// Postcondition: Returns a Pool whose first ping succeeded, or a non-nil error.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.ConnConfig.RuntimeParams["application_name"] = ApplicationName

	db, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &Pool{pool: db}, nil
}

// Health pings the database, giving up after timeout.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.pool.Ping(ctx)
}

// RequireSchema checks that the question tables exist.
//
// Postcondition: Returns ErrSchemaMissing if migrations have not been applied.
func (p *Pool) RequireSchema(ctx context.Context) error {
	var ok bool
	err := p.pool.QueryRow(ctx,
		`SELECT to_regclass('question_banks') IS NOT NULL AND to_regclass('questions') IS NOT NULL`,
	).Scan(&ok)
	if err != nil {
		return fmt.Errorf("checking question schema: %w", err)
	}
	if !ok {
		return ErrSchemaMissing
	}
	return nil
}

// Close releases every connection. The Pool is unusable afterwards.
func (p *Pool) Close() {
	p.pool.Close()
}

// DB returns the underlying pgxpool.Pool for repositories.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}
