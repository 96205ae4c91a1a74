// Package engine opens the embedded SQLite engine through database/sql.
//
// Build modes:
//   - Default: pure Go modernc.org/sqlite, driver name "sqlite".
//   - -tags cgo_sqlite (CGO_ENABLED=1): mattn/go-sqlite3, driver name "sqlite3".
//
// Connection-scoped pragmas (busy timeout, foreign keys, journal mode) are
// carried in the DSN so every pooled connection gets them.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"relcore/internal/core"
)

// MemoryPath is the path that opens a private in-memory database.
const MemoryPath = ":memory:"

// Options configures how a database file is opened.
type Options struct {
	Path        string
	BusyTimeout time.Duration
	ForeignKeys bool
	// JournalMode is passed to PRAGMA journal_mode; empty keeps the engine default.
	JournalMode string
}

// DefaultOptions returns WAL mode, enforced foreign keys and a 5s busy timeout.
func DefaultOptions(path string) Options {
	return Options{
		Path:        path,
		BusyTimeout: 5 * time.Second,
		ForeignKeys: true,
		JournalMode: "WAL",
	}
}

// Querier is the statement surface shared by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// DriverName returns the database/sql driver name in use.
func DriverName() string {
	return driverName
}

// DriverType returns "cgo" for mattn/go-sqlite3, "purego" for modernc.org/sqlite.
func DriverType() string {
	return driverType
}

// IsCGO reports whether the CGO implementation is being used.
func IsCGO() bool {
	return driverType == "cgo"
}

// DSN renders the data source name for opts.
func DSN(opts Options) string {
	params := dsnParams(opts)
	if len(params) == 0 {
		return opts.Path
	}
	sep := "?"
	if strings.Contains(opts.Path, "?") {
		sep = "&"
	}
	return opts.Path + sep + strings.Join(params, "&")
}

// sharedMemoryPath names a fresh in-memory database that every pooled
// connection of one handle attaches to. It lives until the last connection
// closes.
func sharedMemoryPath() string {
	return "file:relcore-" + uuid.NewString() + "?mode=memory&cache=shared"
}

// Open opens the database file and verifies the connection. MemoryPath opens
// an in-memory database private to the returned handle but shared by all of
// its connections.
func Open(ctx context.Context, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, core.NewError(core.KindConnection, "open", errors.New("database path is empty"))
	}
	dsnOpts := opts
	if opts.Path == MemoryPath {
		dsnOpts.Path = sharedMemoryPath()
		dsnOpts.JournalMode = ""
	}
	db, err := sql.Open(driverName, DSN(dsnOpts))
	if err != nil {
		return nil, core.NewError(core.KindConnection, "open", fmt.Errorf("%s: %w", opts.Path, err))
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, core.NewError(core.KindConnection, "ping", fmt.Errorf("%s: %w", opts.Path, err))
	}
	return db, nil
}
