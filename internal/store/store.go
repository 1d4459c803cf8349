// Package store provides database operations for labstatd.
//
// It persists measurements, per-file summaries and the raw bytes of each
// upload in DuckDB. Everything an ingestion session writes goes through a
// single Tx so a failed session leaves no trace.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/danilshahmanov/Infotecs/config"
	"github.com/danilshahmanov/Infotecs/internal/logging"
)

var log = logging.Component("store")

// =============================================================================
// Store Configuration
// =============================================================================

// Config holds store configuration options.
type Config struct {
	// DSN is the database connection string. Empty or MemoryDSN means
	// in-memory.
	DSN string

	// MaxOpenConns is the maximum number of open connections.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns int

	// ConnMaxLifetime is the maximum lifetime of a connection.
	ConnMaxLifetime time.Duration

	// QueryTimeout is the default timeout for read queries.
	QueryTimeout time.Duration

	// BlobChunkSize is the size of one stored_file_chunks row.
	BlobChunkSize int
}

// MemoryDSN selects a private in-memory database.
const MemoryDSN = ":memory:"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DSN:             config.DefaultStorePath,
		MaxOpenConns:    config.DefaultMaxOpenConns,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		QueryTimeout:    config.DefaultQueryTimeout,
		BlobChunkSize:   config.DefaultBlobChunkSize,
	}
}

// =============================================================================
// Store
// =============================================================================

// Store provides database operations.
//
// Store is safe for concurrent use.
type Store struct {
	db     *sql.DB
	config Config
	mu     sync.RWMutex
	closed bool
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New opens the database, verifies the connection and applies the schema.
func New(cfg Config) (*Store, error) {
	if cfg.BlobChunkSize <= 0 {
		cfg.BlobChunkSize = config.DefaultBlobChunkSize
	}

	db, err := sql.Open("duckdb", driverDSN(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:     db,
		config: cfg,
	}, nil
}

// driverDSN maps MemoryDSN to the empty string, which is the only spelling
// of an in-memory database the duckdb driver parses.
func driverDSN(dsn string) string {
	if dsn == MemoryDSN {
		return ""
	}
	return dsn
}

// Close closes the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return s.db.Close()
}

// Config returns the configuration the store was opened with.
func (s *Store) Config() Config {
	return s.config
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// readContext applies the configured query timeout.
func (s *Store) readContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.QueryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.config.QueryTimeout)
}

// =============================================================================
// Transaction Support
// =============================================================================

// Tx is a store transaction. All writes of an ingestion session go through
// one Tx.
type Tx struct {
	tx        *sql.Tx
	chunkSize int
}

// Transaction runs fn inside a transaction. If fn returns an error or
// panics the transaction is rolled back, otherwise it is committed.
func (s *Store) Transaction(ctx context.Context, fn func(*Tx) error) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Persistence(err, "begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Tx{tx: tx, chunkSize: s.config.BlobChunkSize}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Warn("rollback failed", "error", rbErr)
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return Persistence(err, "commit transaction")
	}

	return nil
}

// =============================================================================
// Health Check
// =============================================================================

// Health checks database connectivity.
func (s *Store) Health(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.PingContext(ctx)
}
