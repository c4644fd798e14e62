package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	domainerrors "github.com/reglet-dev/reglet-oracle/domain/errors"
)

// DefaultTable is the table SQLStore reads from.
const DefaultTable = "host_storage"

// Schema creates the table SQLStore expects.
const Schema = `CREATE TABLE IF NOT EXISTS host_storage (
	storage_key BYTEA PRIMARY KEY,
	value       BYTEA NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// SQLStore reads and writes host storage in a postgres table.
type SQLStore struct {
	db         *sqlx.DB
	readQuery  string
	writeQuery string
}

// OpenSQLStore connects to a postgres database.
func OpenSQLStore(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, &domainerrors.StorageError{Backend: "sql", Key: "connect", Err: err}
	}
	return NewSQLStore(db), nil
}

// NewSQLStore creates an SQLStore on an open database handle.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{
		db:         db,
		readQuery:  fmt.Sprintf("SELECT value FROM %s WHERE storage_key = $1", DefaultTable),
		writeQuery: fmt.Sprintf("INSERT INTO %s (storage_key, value) VALUES ($1, $2) ON CONFLICT (storage_key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()", DefaultTable),
	}
}

// Migrate creates the storage table if it does not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return &domainerrors.StorageError{Backend: "sql", Key: DefaultTable, Err: err}
	}
	return nil
}

// ReadStorage implements ports.StorageReader. No row means not found.
func (s *SQLStore) ReadStorage(ctx context.Context, key []byte) ([]byte, bool, error) {
	var value []byte
	err := s.db.GetContext(ctx, &value, s.readQuery, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &domainerrors.StorageError{Backend: "sql", Key: encodeHex(key), Err: err}
	}
	return value, true, nil
}

// WriteStorage implements ports.StorageWriter.
func (s *SQLStore) WriteStorage(ctx context.Context, key []byte, value []byte) error {
	if _, err := s.db.ExecContext(ctx, s.writeQuery, key, value); err != nil {
		return &domainerrors.StorageError{Backend: "sql", Key: encodeHex(key), Err: err}
	}
	return nil
}

// Close closes the database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
