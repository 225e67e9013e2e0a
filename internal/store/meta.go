package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

func (s *Store) getMeta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM JOB_METADATA WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get meta %q: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) getMetaInt(ctx context.Context, key string, def int) (int, error) {
	value, ok, err := s.getMeta(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("meta %q is not an integer: %w", key, err)
	}
	return n, nil
}

func (s *Store) setMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO JOB_METADATA (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set meta %q: %w", key, err)
	}
	return nil
}

func (s *Store) setMetaIfAbsent(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO JOB_METADATA (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO NOTHING`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set meta if absent %q: %w", key, err)
	}
	return nil
}
