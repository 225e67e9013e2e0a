// Package store implements the durable crawl state store (vertices, edges,
// frontier queue, processing set, iteration log, and job metadata) backed by
// a single embedded SQLite file opened in WAL mode.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/familysearch/crawlengine/internal/crawlerr"
	"github.com/familysearch/crawlengine/internal/logger"
)

// Store is the single writer for one crawl database file.
type Store struct {
	db     *sql.DB
	path   string
	logger *logger.Logger

	// writeMu serializes every mutation so the Store behaves as the single
	// logical writer the spec requires, even though SQLite/WAL would allow
	// more concurrency.
	writeMu sync.Mutex
}

// Open opens (and if necessary creates) the database at <outDir>/<basename>.db,
// running forward-only schema migrations. createIfMissing controls whether a
// missing file is an error (used by `checkpoint --status` on a fresh path) or
// is created fresh (used by `run`).
func Open(ctx context.Context, outDir, basename string, createIfMissing bool, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.NewDefault()
	}

	path := filepath.Join(outDir, basename+".db")

	if !createIfMissing {
		if _, err := os.Stat(path); err != nil {
			return nil, crawlerr.New(crawlerr.KindStoreIntegrity, "store.open", fmt.Errorf("database does not exist at %s: %w", path, err))
		}
	}

	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return nil, crawlerr.New(crawlerr.KindStoreIntegrity, "store.open", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)

	db, err := connectWithRetry(ctx, dsn)
	if err != nil {
		return nil, crawlerr.New(crawlerr.KindStoreIntegrity, "store.open", err)
	}

	s := &Store{db: db, path: path, logger: log}

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, crawlerr.New(crawlerr.KindStoreIntegrity, "store.migrate", err)
	}

	return s, nil
}

// connectWithRetry opens the SQLite file with a short exponential backoff,
// tolerating a database that's briefly locked by another process closing out.
func connectWithRetry(ctx context.Context, dsn string) (*sql.DB, error) {
	var db *sql.DB
	var err error

	const maxRetries = 3
	backoff := 100 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		db, err = sql.Open("sqlite3", dsn)
		if err == nil {
			if pingErr := db.PingContext(ctx); pingErr == nil {
				db.SetMaxOpenConns(1)
				return db, nil
			} else {
				db.Close()
				err = pingErr
			}
		}

		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}

	return nil, fmt.Errorf("failed to open store after %d retries: %w", maxRetries, err)
}

// migrate applies forward-only schema migrations keyed on schema_version.
func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("applying schema v1: %w", err)
	}

	current, err := s.getMetaInt(ctx, metaSchemaVersion, 0)
	if err != nil {
		return err
	}
	if current < schemaVersion {
		if err := s.setMeta(ctx, metaSchemaVersion, fmt.Sprintf("%d", schemaVersion)); err != nil {
			return err
		}
		if err := s.setMetaIfAbsent(ctx, metaRunStatus, string(RunIdle)); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the on-disk path of the database file.
func (s *Store) Path() string {
	return s.path
}
