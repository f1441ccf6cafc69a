package clientdata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"unicode/utf8"
)

// SQLiteStorage stores cache entries in the cache_entries table of cache.db.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage creates a storage backend over an already migrated database.
func NewSQLiteStorage(db *sql.DB) *SQLiteStorage {
	return &SQLiteStorage{db: db}
}

// Read returns the raw entry for key.
func (s *SQLiteStorage) Read(ctx context.Context, key string) (string, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM cache_entries WHERE key = ?", key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}
	return data, true, nil
}

// Write upserts the entry for key.
func (s *SQLiteStorage) Write(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO cache_entries (key, data) VALUES (?, ?)",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to write cache entry %s: %w", key, err)
	}
	return nil
}

// Delete removes the given keys in a single transaction.
func (s *SQLiteStorage) Delete(ctx context.Context, keys ...string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM cache_entries WHERE key = ?")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare delete: %w", err)
	}
	defer stmt.Close()

	deleted := 0
	for _, key := range keys {
		result, err := stmt.ExecContext(ctx, key)
		if err != nil {
			return 0, fmt.Errorf("failed to delete cache entry %s: %w", key, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get rows affected: %w", err)
		}
		deleted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit delete: %w", err)
	}
	return deleted, nil
}

// Keys lists keys by prefix. LIKE is case-insensitive in SQLite, so the
// prefix is compared with substr instead.
func (s *SQLiteStorage) Keys(ctx context.Context, prefix string) ([]string, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if prefix == "" {
		rows, err = s.db.QueryContext(ctx, "SELECT key FROM cache_entries ORDER BY key")
	} else {
		rows, err = s.db.QueryContext(ctx,
			"SELECT key FROM cache_entries WHERE substr(key, 1, ?) = ? ORDER BY key",
			utf8.RuneCountInString(prefix), prefix,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list cache keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan cache key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cache keys: %w", err)
	}
	return keys, nil
}
