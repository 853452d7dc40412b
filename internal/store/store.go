package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/roach88/liveresults/internal/metrics"
	"github.com/roach88/liveresults/internal/querysql"
	"github.com/roach88/liveresults/internal/queue"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added (collection, seq) index on records
const currentSchemaVersion = 1

// Store is a SQLite-backed observable record collection.
// Uses SQLite with WAL mode for concurrent read access.
//
// Writes are stamped with a logical clock and announced to a notifier
// goroutine, which re-runs every affected subscription's query and delivers
// flat change sets to its observer.
type Store struct {
	db       *sql.DB
	clock    *Clock
	compiler *querysql.SQLCompiler
	logger   *slog.Logger

	subs  *xsync.MapOf[string, *subscription]
	queue *queue.Queue[change]

	// dataVersion is the last PRAGMA data_version seen by Poll.
	dataVersion atomic.Int64

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used by the store and its notifier.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically, resumes the logical
// clock from the highest stored seq and starts the notifier goroutine.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*Store, error) {
	// Open database (creates file if doesn't exist)
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify connection works
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1) // Single writer to avoid SQLITE_BUSY errors
	db.SetMaxIdleConns(1) // Keep one connection ready

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	var lastSeq int64
	if err := db.QueryRow("SELECT COALESCE(MAX(seq), 0) FROM records").Scan(&lastSeq); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read last seq: %w", err)
	}

	s := &Store{
		db:       db,
		clock:    NewClockAt(lastSeq),
		compiler: querysql.NewSQLCompiler(),
		logger:   slog.Default(),
		subs:     xsync.NewMapOf[string, *subscription](),
		queue:    queue.New[change](64),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	var version int64
	if err := db.QueryRow("PRAGMA data_version").Scan(&version); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read data_version: %w", err)
	}
	s.dataVersion.Store(version)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.run(ctx)

	return s, nil
}

// Close stops the notifier and closes the database connection.
// Subscriptions receive nothing after Close returns.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	var err error
	s.closeOnce.Do(func() {
		s.queue.Close()
		s.cancel()
		<-s.done
		s.subs.Range(func(token string, _ *subscription) bool {
			if _, ok := s.subs.LoadAndDelete(token); ok {
				metrics.StoreSubscriptions.Dec()
			}
			return true
		})
		err = s.db.Close()
	})
	return err
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// LastSeq returns the logical clock position (the seq of the latest write).
func (s *Store) LastSeq() int64 {
	return s.clock.Current()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the (collection, seq) index used to resume the clock and
// to list a collection in write order.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_records_collection_seq
		ON records(collection, seq)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
