package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Options configures a SQLite connection pool.
type Options struct {
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
	// PingTimeout bounds the connectivity check done by Open.
	PingTimeout time.Duration
	WALMode     bool
	ForeignKeys bool
	// BusyTimeout is how long a writer waits on SQLITE_BUSY.
	BusyTimeout time.Duration
	ReadOnly    bool
}

// DefaultOptions returns settings tuned for an embedded single-writer store.
func DefaultOptions() Options {
	return Options{
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
		MaxOpenConns:    4,
		MaxIdleConns:    1,
		PingTimeout:     5 * time.Second,
		WALMode:         true,
		ForeignKeys:     true,
		BusyTimeout:     5 * time.Second,
	}
}

// Open opens (creating if needed) the database at path. MemoryPath is
// accepted and behaves like OpenInMemory.
func Open(ctx context.Context, path string, opts Options) (*sql.DB, error) {
	if path == MemoryPath {
		return OpenInMemory(ctx)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return open(ctx, buildDSN(path, opts), opts)
}

// OpenInMemory opens a fresh in-memory database limited to one connection.
func OpenInMemory(ctx context.Context) (*sql.DB, error) {
	opts := DefaultOptions()
	opts.WALMode = false
	opts.MaxOpenConns = 1
	opts.MaxIdleConns = 1
	// an idle timeout would drop the only connection and with it the data
	opts.ConnMaxIdleTime = 0
	opts.ConnMaxLifetime = 0

	db, err := open(ctx, MemoryPath, opts)
	if err != nil {
		return nil, err
	}
	if err := applyPragmas(ctx, db, opts); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func open(ctx context.Context, dsn string, opts Options) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	if opts.WALMode && !opts.ReadOnly {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}
	return db, nil
}

// buildDSN encodes per-connection pragmas so every pooled connection gets them.
func buildDSN(path string, opts Options) string {
	var params []string
	if opts.ReadOnly {
		params = append(params, "mode=ro")
	}
	if opts.BusyTimeout > 0 {
		params = append(params, fmt.Sprintf("_pragma=busy_timeout(%d)", opts.BusyTimeout.Milliseconds()))
	}
	if opts.ForeignKeys {
		params = append(params, "_pragma=foreign_keys(1)")
	}
	if len(params) == 0 {
		return path
	}
	return "file:" + path + "?" + strings.Join(params, "&")
}

func applyPragmas(ctx context.Context, db *sql.DB, opts Options) error {
	pragmas := []string{"PRAGMA synchronous = NORMAL"}
	if opts.ForeignKeys {
		pragmas = append(pragmas, "PRAGMA foreign_keys = ON")
	}
	if opts.BusyTimeout > 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA busy_timeout = %d", opts.BusyTimeout.Milliseconds()))
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("execute %s: %w", p, err)
		}
	}
	return nil
}
