// Package fs provides a ports.StorageProvider that keeps one file per record.
package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bft-labs/custodian/internal/domain"
	"github.com/bft-labs/custodian/internal/ports"
)

const recordExt = ".rec"

// Store implements ports.StorageProvider over a directory of record files.
// Writes go to a temp file that is renamed over the record, so readers
// never see a partial record.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir. The directory is created on first Alloc.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory holding record files.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file path of the record at addr.
func (s *Store) Path(addr domain.Address) string {
	return filepath.Join(s.dir, addr.Hex()+recordExt)
}

// Alloc reserves size zeroed bytes at addr. The zeroed file is written
// aside and hard-linked into place, which fails if addr already exists.
func (s *Store) Alloc(ctx context.Context, addr domain.Address, size int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if size <= 0 {
		return fmt.Errorf("alloc %s: size must be positive", addr.Hex())
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("alloc %s: %w", addr.Hex(), err)
	}

	tmp, err := s.writeTemp(make([]byte, size))
	if err != nil {
		return fmt.Errorf("alloc %s: %w", addr.Hex(), err)
	}
	defer os.Remove(tmp)

	if err := os.Link(tmp, s.Path(addr)); err != nil {
		if errors.Is(err, os.ErrExist) {
			return ports.ErrAlreadyAllocated
		}
		return fmt.Errorf("alloc %s: %w", addr.Hex(), err)
	}
	return nil
}

// Read returns the bytes stored at addr.
func (s *Store) Read(ctx context.Context, addr domain.Address) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.Path(addr))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", addr.Hex(), err)
	}
	return b, nil
}

// Write replaces the bytes stored at addr atomically.
func (s *Store) Write(ctx context.Context, addr domain.Address, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.Path(addr)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ports.ErrNotFound
		}
		return fmt.Errorf("write %s: %w", addr.Hex(), err)
	}
	if info.Size() != int64(len(data)) {
		return ports.ErrSizeMismatch
	}

	tmp, err := s.writeTemp(data)
	if err != nil {
		return fmt.Errorf("write %s: %w", addr.Hex(), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", addr.Hex(), err)
	}
	return nil
}

func (s *Store) writeTemp(data []byte) (string, error) {
	f, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return "", err
	}
	name := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}

// addressFromPath parses the record address out of a record file name.
func addressFromPath(path string) (domain.Address, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, recordExt) {
		return domain.Address{}, false
	}
	return domain.ParseAddress(strings.TrimSuffix(base, recordExt))
}

var _ ports.StorageProvider = (*Store)(nil)
