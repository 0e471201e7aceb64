// Package dbtest opens a migrated Postgres pool for integration tests.
// Tests using it are skipped unless TEST_DATABASE_URL is set.
package dbtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moneyflow/notifier/internal/config"
	"github.com/moneyflow/notifier/internal/db"
)

// Open returns a pool against TEST_DATABASE_URL with the schema applied.
func Open(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Migrate(ctx, url); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool, err := db.New(ctx, &config.Config{
		DatabaseURL:    url,
		DBPoolMinConns: 1,
		DBPoolMaxConns: 8,
		DBPoolMaxLife:  5 * time.Minute,
	})
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool.Pool
}
