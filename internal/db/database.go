// Package db is the client surface of relcore: CRUD over typed statements,
// raw SQL, transactions, schema introspection and DDL.
//
// A Database owns one primary connection for its whole lifetime. Every
// Transaction runs on a second, dedicated connection taken from the same
// pool, so transactional work is isolated from the primary connection.
// Neither type is safe for concurrent use; callers serialize access.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"relcore/internal/compiler"
	"relcore/internal/core"
	"relcore/internal/dialect"
	"relcore/internal/engine"
	"relcore/internal/introspect"
	"relcore/internal/metrics"
	"relcore/internal/migration"

	_ "relcore/internal/dialect/sqlite"
	_ "relcore/internal/introspect/sqlite"
)

// Options configures Open.
type Options struct {
	engine.Options
	// Dialect defaults to SQLite.
	Dialect dialect.Type
	// Placeholder overrides the dialect's placeholder strategy.
	Placeholder dialect.Placeholder
	// Logger receives statement logs at debug level. Nil discards them.
	Logger *slog.Logger
}

// Database is an open database with its primary connection.
type Database struct {
	*executor
	pool    *sql.DB
	dialect dialect.Dialect
}

// Open opens the database file and takes the primary connection.
func Open(ctx context.Context, opts Options) (*Database, error) {
	if opts.Dialect == "" {
		opts.Dialect = dialect.SQLite
	}
	d, err := dialect.GetDialect(opts.Dialect)
	if err != nil {
		return nil, core.NewError(core.KindConnection, "open", err)
	}
	in, err := introspect.NewIntrospecter(opts.Dialect)
	if err != nil {
		return nil, core.NewError(core.KindConnection, "open", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	pool, err := engine.Open(ctx, opts.Options)
	if err != nil {
		return nil, err
	}
	conn, err := pool.Conn(ctx)
	if err != nil {
		_ = pool.Close()
		return nil, core.NewError(core.KindConnection, "primary connection", err)
	}

	c := compiler.New(d, compiler.WithPlaceholder(opts.Placeholder))
	logger = logger.With(slog.String("db", opts.Path))
	logger.Debug("database opened", slog.String("driver", engine.DriverName()), slog.String("dialect", string(opts.Dialect)))
	return &Database{
		executor: &executor{
			conn:     conn,
			compiler: c,
			migrator: migration.New(c, logger),
			in:       in,
			logger:   logger,
		},
		pool:    pool,
		dialect: d,
	}, nil
}

// Close releases the primary connection and closes the pool.
func (d *Database) Close() error {
	var errs []error
	if d.conn != nil {
		errs = append(errs, d.conn.Close())
	}
	if d.pool != nil {
		errs = append(errs, d.pool.Close())
	}
	if err := errors.Join(errs...); err != nil {
		return core.NewError(core.KindConnection, "close", err)
	}
	return nil
}

// Compiler returns the statement compiler in use.
func (d *Database) Compiler() *compiler.Compiler { return d.compiler }

// BeginTransaction opens a new connection, never the primary one, and
// starts a transaction on it.
func (d *Database) BeginTransaction(ctx context.Context) (_ *Transaction, err error) {
	defer func() { metrics.SampleTransaction("begin", err) }()

	conn, err := d.pool.Conn(ctx)
	if err != nil {
		return nil, core.NewError(core.KindConnection, "transaction connection", err)
	}
	if _, err := conn.ExecContext(ctx, "BEGIN"); err != nil {
		_ = conn.Close()
		return nil, core.NewError(core.KindTransaction, "begin", err)
	}

	tx := &Transaction{
		caps:  d.dialect.Capabilities(),
		state: TxActive,
	}
	tx.executor = &executor{
		conn:     conn,
		compiler: d.compiler,
		migrator: d.migrator,
		in:       d.in,
		logger:   d.logger.With(slog.Bool("tx", true)),
		inTx:     true,
		guard:    tx.active,
	}
	d.logger.DebugContext(ctx, "transaction started")
	return tx, nil
}

// WithTransaction runs fn in a transaction, committing when fn returns nil
// and rolling back otherwise. A failed rollback is logged and fn's error is
// returned.
func (d *Database) WithTransaction(ctx context.Context, fn func(*Transaction) error) error {
	tx, err := d.BeginTransaction(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			d.logger.WarnContext(ctx, "rollback failed", slog.Any("error", rbErr), slog.Any("cause", err))
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
