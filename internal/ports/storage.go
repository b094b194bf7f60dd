package ports

import (
	"context"
	"errors"

	"github.com/bft-labs/custodian/internal/domain"
)

// Storage errors shared by every StorageProvider implementation.
var (
	// ErrNotFound is returned by Read and Write when nothing is allocated at the address.
	ErrNotFound = domain.ErrNotFound

	// ErrAlreadyAllocated is returned by Alloc when the address is occupied.
	ErrAlreadyAllocated = errors.New("custodian: address already allocated")

	// ErrSizeMismatch is returned by Write when data does not match the allocated size.
	ErrSizeMismatch = errors.New("custodian: write size does not match allocation")
)

// StorageProvider is the primary store of records.
// Implementations must make single-record reads and writes atomic: a Read
// never observes a partially written record.
type StorageProvider interface {
	// Alloc reserves size zeroed bytes at addr.
	// Returns ErrAlreadyAllocated if addr is occupied.
	Alloc(ctx context.Context, addr domain.Address, size int) error

	// Read returns the bytes stored at addr.
	// Returns ErrNotFound if addr was never allocated.
	Read(ctx context.Context, addr domain.Address) ([]byte, error)

	// Write replaces the bytes stored at addr.
	// Returns ErrNotFound if addr was never allocated and ErrSizeMismatch
	// if len(data) differs from the allocation.
	Write(ctx context.Context, addr domain.Address, data []byte) error
}
