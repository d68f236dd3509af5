// Package db owns the Postgres connection pool and schema migrations.
package db

import (
	"context"
	"embed"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/adreel/adreel/internal/config"
)

var (
	openBackoffBase  = 1 * time.Second
	openBackoffScale = 1.618
)

type DatabaseConnection struct {
	*pgxpool.Pool
}

// OpenWithRetry initializes a PostgreSQL connection pool, retrying with
// golden-ratio backoff until the database answers pings.
func OpenWithRetry(ctx context.Context, conf config.Config) (*DatabaseConnection, error) {
	cfg, err := pgxpool.ParseConfig(conf.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	var pool *pgxpool.Pool
	var lastErr error

	for i := 0; i < conf.DatabaseRetries; i++ {
		if pool, err = pgxpool.NewWithConfig(ctx, cfg); err == nil {
			break
		}
		lastErr = err

		backoff := time.Duration(float64(openBackoffBase) * math.Pow(openBackoffScale, float64(i)))
		time.Sleep(backoff)
	}
	if pool == nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", conf.DatabaseRetries, lastErr)
	}

	for i := 0; i < conf.DatabaseRetries; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 1*time.Second)
		err = pool.Ping(pingCtx)
		cancel()
		if err == nil {
			return &DatabaseConnection{pool}, nil
		}
		lastErr = err

		backoff := time.Duration(float64(openBackoffBase) * math.Pow(openBackoffScale, float64(i)))
		time.Sleep(backoff)
	}

	pool.Close()
	return nil, fmt.Errorf("failed to ping database after %d attempts: %w", conf.DatabaseRetries, lastErr)
}

// Close closes the connection pool.
func (db *DatabaseConnection) Close() {
	db.Pool.Close()
}

//go:embed sql/migrations/*.sql
var embedMigrations embed.FS

// Migrate runs the goose migrations to the latest version.
func (db *DatabaseConnection) Migrate(ctx context.Context) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	stdDb := stdlib.OpenDBFromPool(db.Pool)
	defer stdDb.Close()

	return goose.UpContext(ctx, stdDb, "sql/migrations")
}
