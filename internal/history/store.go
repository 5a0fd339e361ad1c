package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UpdateFunc computes a new value from the current one. ok is false when
// the key is absent.
type UpdateFunc func(current []byte, ok bool) ([]byte, error)

// Store is a string-keyed byte store. Update is atomic with respect to other
// writers of the same store, including other processes.
type Store interface {
	Read(ctx context.Context, key string) ([]byte, bool, error)
	Write(ctx context.Context, key string, value []byte) error
	Update(ctx context.Context, key string, fn UpdateFunc) error
	Delete(ctx context.Context, key string) error
}

const upsertKV = `
	INSERT INTO kv (key, value, updated_at)
	VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at
`

// SQLiteStore keeps values in the kv table.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Read(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read kv %q: %w", key, err)
	}
	return []byte(value), true, nil
}

func (s *SQLiteStore) Write(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, upsertKV, key, string(value)); err != nil {
		return fmt.Errorf("write kv %q: %w", key, err)
	}
	return nil
}

// Update runs fn inside an immediate transaction, so the write lock is taken
// before the current value is read.
func (s *SQLiteStore) Update(ctx context.Context, key string, fn UpdateFunc) (err error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("update kv %q: %w", key, err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `BEGIN IMMEDIATE`); err != nil {
		return fmt.Errorf("update kv %q: begin: %w", key, err)
	}
	defer func() {
		if err != nil {
			_, _ = conn.ExecContext(context.WithoutCancel(ctx), `ROLLBACK`)
		}
	}()

	var current string
	ok := true
	switch err = conn.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&current); {
	case errors.Is(err, sql.ErrNoRows):
		ok = false
	case err != nil:
		return fmt.Errorf("update kv %q: read: %w", key, err)
	}

	var currentBytes []byte
	if ok {
		currentBytes = []byte(current)
	}
	next, err := fn(currentBytes, ok)
	if err != nil {
		return err
	}

	if _, err = conn.ExecContext(ctx, upsertKV, key, string(next)); err != nil {
		return fmt.Errorf("update kv %q: write: %w", key, err)
	}
	if _, err = conn.ExecContext(ctx, `COMMIT`); err != nil {
		return fmt.Errorf("update kv %q: commit: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete kv %q: %w", key, err)
	}
	return nil
}
