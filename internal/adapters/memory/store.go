// Package memory provides a ports.StorageProvider over an ipfs datastore.
// It is the default backend for tests and for embedding the manager in a
// process that persists nothing.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	ds "github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"

	"github.com/bft-labs/custodian/internal/domain"
	"github.com/bft-labs/custodian/internal/ports"
)

var recordPrefix = ds.NewKey("/records")

// Store keeps records in a datastore keyed by hex address.
type Store struct {
	// allocMu makes Alloc's existence check and put a single step.
	allocMu sync.Mutex
	ds      ds.Datastore
}

// New wraps an existing datastore. The datastore must be safe for
// concurrent use.
func New(d ds.Datastore) *Store {
	return &Store{ds: d}
}

// NewInMemory returns a Store over a mutex-wrapped map datastore.
func NewInMemory() *Store {
	return New(dssync.MutexWrap(ds.NewMapDatastore()))
}

func key(addr domain.Address) ds.Key {
	return recordPrefix.ChildString(addr.Hex())
}

// Alloc reserves size zeroed bytes at addr.
func (s *Store) Alloc(ctx context.Context, addr domain.Address, size int) error {
	if size <= 0 {
		return fmt.Errorf("alloc %s: size must be positive", addr.Hex())
	}
	s.allocMu.Lock()
	defer s.allocMu.Unlock()

	has, err := s.ds.Has(ctx, key(addr))
	if err != nil {
		return fmt.Errorf("alloc %s: %w", addr.Hex(), err)
	}
	if has {
		return ports.ErrAlreadyAllocated
	}
	if err := s.ds.Put(ctx, key(addr), make([]byte, size)); err != nil {
		return fmt.Errorf("alloc %s: %w", addr.Hex(), err)
	}
	return nil
}

// Read returns a copy of the bytes stored at addr.
func (s *Store) Read(ctx context.Context, addr domain.Address) ([]byte, error) {
	b, err := s.ds.Get(ctx, key(addr))
	if err != nil {
		if errors.Is(err, ds.ErrNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", addr.Hex(), err)
	}
	return append([]byte(nil), b...), nil
}

// Write replaces the bytes stored at addr.
func (s *Store) Write(ctx context.Context, addr domain.Address, data []byte) error {
	s.allocMu.Lock()
	defer s.allocMu.Unlock()

	size, err := s.ds.GetSize(ctx, key(addr))
	if err != nil {
		if errors.Is(err, ds.ErrNotFound) {
			return ports.ErrNotFound
		}
		return fmt.Errorf("write %s: %w", addr.Hex(), err)
	}
	if size != len(data) {
		return ports.ErrSizeMismatch
	}
	if err := s.ds.Put(ctx, key(addr), append([]byte(nil), data...)); err != nil {
		return fmt.Errorf("write %s: %w", addr.Hex(), err)
	}
	return nil
}

// Close closes the underlying datastore.
func (s *Store) Close() error {
	return s.ds.Close()
}

var _ ports.StorageProvider = (*Store)(nil)
