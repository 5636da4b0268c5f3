package helpers

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// GetTestDatabasePool creates a database connection pool for testing
func GetTestDatabasePool(ctx context.Context) (*pgxpool.Pool, error) {
	databaseURL := buildDatabaseURL()

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// buildDatabaseURL prefers DATABASE_URL and otherwise assembles one from POSTGRES_* variables
func buildDatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("POSTGRES_HOST", "localhost")
	port := getEnv("POSTGRES_PORT", "5432")
	user := getEnv("POSTGRES_USER", "postgres")
	password := getEnv("POSTGRES_PASSWORD", "postgres")
	dbname := getEnv("POSTGRES_DB", "diabetes_screener_test")

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=prefer",
		user, password, host, port, dbname)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// TestDatabase provides database utilities for testing
type TestDatabase struct {
	Pool *pgxpool.Pool
	ctx  context.Context
}

// NewTestDatabase connects to the test database, skipping the test when
// no database is reachable
func NewTestDatabase(t *testing.T) *TestDatabase {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := GetTestDatabasePool(ctx)
	if err != nil {
		t.Skipf("Skipping database test: %v", err)
	}

	return &TestDatabase{
		Pool: pool,
		ctx:  context.Background(),
	}
}

// Close closes the database connection
func (db *TestDatabase) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// UniqueModelName returns a model name no other test run uses
func UniqueModelName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// CleanupArtifacts removes every artifact registered under name
func (db *TestDatabase) CleanupArtifacts(t *testing.T, name string) {
	if _, err := db.Pool.Exec(db.ctx, `DELETE FROM model_artifacts WHERE name = $1`, name); err != nil {
		t.Logf("Warning: Failed to cleanup artifacts for %s: %v", name, err)
	}
}

// CorruptLatest overwrites the stored digest of the newest (name, kind) row
func (db *TestDatabase) CorruptLatest(t *testing.T, name, kind string) {
	_, err := db.Pool.Exec(db.ctx, `
		UPDATE model_artifacts SET digest = 'deadbeef'
		WHERE id = (
			SELECT id FROM model_artifacts
			WHERE name = $1 AND kind = $2
			ORDER BY version DESC
			LIMIT 1
		)`, name, kind)
	if err != nil {
		t.Fatalf("Failed to corrupt artifact digest: %v", err)
	}
}
