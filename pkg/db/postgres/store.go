package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/akashx/akashx/pkg/db"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// DB is the Postgres db.Store. Calls made on DB directly run on the pool;
// InTx hands fn a queries value bound to the transaction.
type DB struct {
	Client
	*queries
	Name string
}

var _ db.Store = (*DB)(nil)

// queries implements db.Tx over an Executor.
type queries struct {
	exec Executor
}

// NewStore connects and initializes the schema.
func NewStore(ctx context.Context, logger *zap.Logger, url, dbName string) (*DB, error) {
	client, err := New(ctx, logger.With(zap.String("db", dbName)), url, dbName, DefaultPoolConfig("indexer"))
	if err != nil {
		return nil, err
	}
	store := &DB{Client: client, queries: &queries{exec: client.Pool}, Name: dbName}
	if err := store.InitializeDB(ctx); err != nil {
		store.Client.Close()
		return nil, err
	}
	return store, nil
}

// InitializeDB creates every table in parallel.
func (d *DB) InitializeDB(ctx context.Context) error {
	initStart := time.Now()
	d.Logger.Info("Initializing database", zap.String("database", d.Name))

	var wg sync.WaitGroup
	errChan := make(chan error, len(tableDDL))
	for _, t := range tableDDL {
		wg.Add(1)
		go func(name, ddl string) {
			defer wg.Done()
			d.Logger.Debug("Initializing table", zap.String("table", name))
			if err := d.Exec(ctx, ddl); err != nil {
				errChan <- fmt.Errorf("init %s: %w", name, err)
			}
		}(t.name, t.ddl)
	}
	wg.Wait()
	close(errChan)

	for err := range errChan {
		if err != nil {
			return err
		}
	}

	d.Logger.Info("Database initialized",
		zap.String("database", d.Name),
		zap.Int("tables", len(tableDDL)),
		zap.Duration("duration", time.Since(initStart)))
	return nil
}

// InTx runs fn inside pgx.BeginFunc.
func (d *DB) InTx(ctx context.Context, fn func(db.Tx) error) error {
	return d.BeginFunc(ctx, func(tx pgx.Tx) error {
		return fn(&queries{exec: tx})
	})
}

// RecreateTables drops and recreates the named tables in one transaction.
func (d *DB) RecreateTables(ctx context.Context, tables ...string) error {
	return d.BeginFunc(ctx, func(tx pgx.Tx) error {
		for _, t := range tables {
			ddl, ok := ddlFor(t)
			if !ok {
				return fmt.Errorf("unknown table %q", t)
			}
			if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+pgx.Identifier{t}.Sanitize()); err != nil {
				return fmt.Errorf("drop %s: %w", t, err)
			}
			if _, err := tx.Exec(ctx, ddl); err != nil {
				return fmt.Errorf("create %s: %w", t, err)
			}
			d.Logger.Info("Recreated table", zap.String("table", t))
		}
		return nil
	})
}

func (d *DB) Close() error {
	d.Client.Close()
	return nil
}

// sendBatch runs every queued statement and surfaces the first failure.
func sendBatch(ctx context.Context, exec Executor, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	br := exec.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("batch statement %d: %w", i, err)
		}
	}
	return br.Close()
}

func notFound(err error) error {
	if IsNoRows(err) {
		return db.ErrNotFound
	}
	return err
}
