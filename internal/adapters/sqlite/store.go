// Package sqlite provides a SQLite-backed ports.StorageProvider.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/bft-labs/custodian/internal/adapters/sqlite/migrations"
	"github.com/bft-labs/custodian/internal/domain"
	"github.com/bft-labs/custodian/internal/ports"
)

// Store persists records in SQLite. Each record is a single row, so reads
// and writes of one record are atomic.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite record store at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Alloc inserts a zeroed row of size bytes for addr.
func (s *Store) Alloc(ctx context.Context, addr domain.Address, size int) error {
	if size <= 0 {
		return fmt.Errorf("alloc %s: size must be positive", addr.Hex())
	}
	now := time.Now().UTC().UnixMilli()
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO records (address, data, size, allocated_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		addr.Hex(), make([]byte, size), size, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ports.ErrAlreadyAllocated
		}
		return fmt.Errorf("alloc %s: %w", addr.Hex(), err)
	}
	return nil
}

// Read returns the bytes stored for addr.
func (s *Store) Read(ctx context.Context, addr domain.Address) ([]byte, error) {
	var data []byte
	err := s.sqlDB.QueryRowContext(ctx, `SELECT data FROM records WHERE address = ?`, addr.Hex()).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", addr.Hex(), err)
	}
	return data, nil
}

// Write replaces the bytes stored for addr. The size guard is part of the
// UPDATE so the check and the write are one statement.
func (s *Store) Write(ctx context.Context, addr domain.Address, data []byte) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE records SET data = ?, updated_at = ? WHERE address = ? AND size = ?`,
		data, time.Now().UTC().UnixMilli(), addr.Hex(), len(data),
	)
	if err != nil {
		return fmt.Errorf("write %s: %w", addr.Hex(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write %s: %w", addr.Hex(), err)
	}
	if n == 1 {
		return nil
	}

	var size int
	err = s.sqlDB.QueryRowContext(ctx, `SELECT size FROM records WHERE address = ?`, addr.Hex()).Scan(&size)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", addr.Hex(), err)
	}
	return ports.ErrSizeMismatch
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ ports.StorageProvider = (*Store)(nil)
