package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/viper"
)

// ErrNoConnString is returned when no database URL is configured anywhere.
var ErrNoConnString = errors.New("database URL not provided (use --db-url, database.url or DATABASE_URL)")

// DB holds the connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// ConnString resolves the database URL: an explicit value first, then the
// database.url config key, then the DATABASE_URL environment variable.
func ConnString(explicit string) (string, error) {
	for _, candidate := range []string{explicit, viper.GetString("database.url"), os.Getenv("DATABASE_URL")} {
		if s := strings.TrimSpace(candidate); s != "" {
			return s, nil
		}
	}
	return "", ErrNoConnString
}

// Connect creates a new database connection pool
func Connect(ctx context.Context, connString string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db != nil && db.Pool != nil {
		db.Pool.Close()
	}
}
