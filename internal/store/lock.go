package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/familysearch/crawlengine/internal/crawlerr"
)

// ErrLockTimeout is returned when lock acquisition times out because another
// process already holds the row.
var ErrLockTimeout = crawlerr.ErrLockTimeout

// Common poll/retry windows for lock acquisition.
const (
	TimeoutImmediate = 0 * time.Second
	TimeoutShort     = 1 * time.Second
	TimeoutMedium    = 10 * time.Second
	TimeoutLong      = 60 * time.Second
)

// JobLock is a row in JOB_LOCK that guarantees only one process drives a
// given named run at a time. Unlike a MySQL GET_LOCK() session lock, it
// survives the holder's connection closing uncleanly, so callers must
// Release explicitly. A row left behind by a holder that never released it
// stays in place: there is no expiry or stale-holder detection, and
// AcquireOrFail keeps polling every 100ms until it returns ErrLockTimeout.
type JobLock struct {
	db     *sql.DB
	name   string
	holder string
	held   bool
}

// NewJobLock creates a lock keyed by name, identified on acquisition as
// holder (typically a hostname:pid string).
func NewJobLock(db *sql.DB, name, holder string) *JobLock {
	return &JobLock{db: db, name: name, holder: holder}
}

// TryAcquire attempts to insert the lock row once, without waiting.
func (l *JobLock) TryAcquire(ctx context.Context) (bool, error) {
	if l.held {
		return true, nil
	}

	res, err := l.db.ExecContext(ctx,
		`INSERT INTO JOB_LOCK (name, holder) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		l.name, l.holder,
	)
	if err != nil {
		return false, fmt.Errorf("acquire lock %q: %w", l.name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acquire lock %q: %w", l.name, err)
	}
	if n == 0 {
		return false, nil
	}
	l.held = true
	return true, nil
}

// AcquireOrFail polls TryAcquire at a fixed interval until timeout elapses,
// returning ErrLockTimeout if the row is still held by someone else.
func (l *JobLock) AcquireOrFail(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	const pollInterval = 100 * time.Millisecond

	for {
		acquired, err := l.TryAcquire(ctx)
		if err != nil {
			return err
		}
		if acquired {
			return nil
		}
		if timeout <= 0 || time.Now().After(deadline) {
			holder, _ := l.currentHolder(ctx)
			return fmt.Errorf("%w: lock %q is held by %q", ErrLockTimeout, l.name, holder)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (l *JobLock) currentHolder(ctx context.Context) (string, error) {
	var holder string
	err := l.db.QueryRowContext(ctx, `SELECT holder FROM JOB_LOCK WHERE name = ?`, l.name).Scan(&holder)
	if err != nil {
		return "", err
	}
	return holder, nil
}

// Release removes the lock row, but only if still held by this holder.
func (l *JobLock) Release(ctx context.Context) error {
	if !l.held {
		return nil
	}
	_, err := l.db.ExecContext(ctx, `DELETE FROM JOB_LOCK WHERE name = ? AND holder = ?`, l.name, l.holder)
	l.held = false
	if err != nil {
		return fmt.Errorf("release lock %q: %w", l.name, err)
	}
	return nil
}

// IsHeld reports whether this instance currently holds the row.
func (l *JobLock) IsHeld() bool {
	return l.held
}

// WithLock acquires the lock, runs fn, and releases it afterward regardless
// of how fn returns.
func (l *JobLock) WithLock(ctx context.Context, timeout time.Duration, fn func() error) error {
	if err := l.AcquireOrFail(ctx, timeout); err != nil {
		return err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.Release(releaseCtx)
	}()
	return fn()
}

// IsJobRunning checks whether name currently has a lock row held by any
// holder (including the caller's own), without disturbing the row.
func IsJobRunning(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var holder string
	err := db.QueryRowContext(ctx, `SELECT holder FROM JOB_LOCK WHERE name = ?`, name).Scan(&holder)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check job lock %q: %w", name, err)
	}
	return true, nil
}

// NewLock builds a JobLock bound to this Store's database, keyed by name
// and identified on acquisition as holder.
func (s *Store) NewLock(name, holder string) *JobLock {
	return NewJobLock(s.db, name, holder)
}

// IsJobRunning reports whether name is currently locked by any holder on
// this Store's database.
func (s *Store) IsJobRunning(ctx context.Context, name string) (bool, error) {
	return IsJobRunning(ctx, s.db, name)
}
