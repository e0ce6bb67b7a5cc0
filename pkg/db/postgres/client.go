package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akashx/akashx/pkg/retry"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Executor is an interface that both *pgxpool.Pool and pgx.Tx implement.
// This allows methods to work with either a connection pool or a transaction.
type Executor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Client wraps a PostgreSQL connection pool
type Client struct {
	Logger         *zap.Logger
	Pool           *pgxpool.Pool
	TargetDatabase string
}

// PoolConfig defines connection pool settings
type PoolConfig struct {
	MinConns        int32
	MaxConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	Component       string // For logging/debugging
}

// DefaultPoolConfig suits the single sequential pipeline: one writer plus the
// occasional status read.
func DefaultPoolConfig(component string) PoolConfig {
	return PoolConfig{
		MinConns:        1,
		MaxConns:        8,
		ConnMaxLifetime: 1 * time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
		Component:       component,
	}
}

// New connects to url, creates dbName if it does not exist and returns a
// client whose pool targets dbName. The initial connection is retried with
// backoff so the indexer can start before the database does.
func New(ctx context.Context, logger *zap.Logger, url, dbName string, poolConf PoolConfig) (Client, error) {
	connCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return Client{}, fmt.Errorf("failed to parse POSTGRES_URL: %w", err)
	}
	config.MinConns = poolConf.MinConns
	config.MaxConns = poolConf.MaxConns
	config.MaxConnLifetime = poolConf.ConnMaxLifetime
	config.MaxConnIdleTime = poolConf.ConnMaxIdleTime

	client := Client{Logger: logger, TargetDatabase: dbName}
	if err := client.connect(connCtx, config, poolConf); err != nil {
		return Client{}, err
	}

	if dbName == "" || config.ConnConfig.Database == dbName {
		return client, nil
	}

	// Connected to the server's default database; make sure the target
	// exists and switch the pool over to it.
	if err := client.CreateDbIfNotExists(connCtx, dbName); err != nil {
		client.Close()
		return Client{}, err
	}
	client.Close()

	config.ConnConfig.Database = dbName
	if err := client.connect(connCtx, config, poolConf); err != nil {
		return Client{}, err
	}
	return client, nil
}

func (c *Client) connect(ctx context.Context, config *pgxpool.Config, poolConf PoolConfig) error {
	return retry.WithBackoff(ctx, retry.DefaultConfig(), c.Logger, "postgres_connection", func() error {
		pool, openErr := pgxpool.NewWithConfig(ctx, config)
		if openErr != nil {
			return fmt.Errorf("failed to create postgres connection pool: %w", openErr)
		}

		c.Logger.Debug("Pinging PostgreSQL connection",
			zap.String("db", config.ConnConfig.Database),
			zap.String("component", poolConf.Component),
		)

		if pingErr := pool.Ping(ctx); pingErr != nil {
			pool.Close()
			return fmt.Errorf("failed to ping postgres: %w", pingErr)
		}
		c.Pool = pool

		c.Logger.Info("PostgreSQL connection pool configured",
			zap.String("database", config.ConnConfig.Database),
			zap.String("component", poolConf.Component),
			zap.Int32("min_conns", poolConf.MinConns),
			zap.Int32("max_conns", poolConf.MaxConns),
		)
		return nil
	})
}

// CreateDbIfNotExists ensures that the specified database exists by creating it if it does not already exist.
func (c *Client) CreateDbIfNotExists(ctx context.Context, dbName string) error {
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)"
	if err := c.Pool.QueryRow(ctx, query, dbName).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check if database exists: %w", err)
	}

	if !exists {
		// Note: Cannot use parameterized query for CREATE DATABASE
		query := fmt.Sprintf("CREATE DATABASE %s", pgx.Identifier{dbName}.Sanitize())
		c.Logger.Info("Creating database", zap.String("database", dbName))
		if _, err := c.Pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
	}
	return nil
}

// Exec executes a query without returning any rows
func (c *Client) Exec(ctx context.Context, query string, args ...any) error {
	_, err := c.Pool.Exec(ctx, query, args...)
	return err
}

// BeginFunc executes a function within a transaction
// If the function returns an error, the transaction is rolled back
// Otherwise, the transaction is committed
func (c *Client) BeginFunc(ctx context.Context, fn func(pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, c.Pool, fn)
}

// Close closes the connection pool
func (c *Client) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// TableExists checks if a table exists in the public schema
func (c *Client) TableExists(ctx context.Context, table string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)
	`

	var exists bool
	if err := c.Pool.QueryRow(ctx, query, table).Scan(&exists); err != nil {
		return false, fmt.Errorf("check if table exists %s: %w", table, err)
	}
	return exists, nil
}

// IsNoRows checks if the error is a "no rows" error
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
