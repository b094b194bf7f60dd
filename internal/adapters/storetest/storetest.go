// Package storetest holds a conformance suite shared by every
// ports.StorageProvider implementation.
package storetest

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bft-labs/custodian/internal/domain"
	"github.com/bft-labs/custodian/internal/ports"
)

// Run exercises store against the StorageProvider contract.
func Run(t *testing.T, newStore func(t *testing.T) ports.StorageProvider) {
	t.Run("read missing", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Read(context.Background(), domain.Address{0x01})
		require.ErrorIs(t, err, ports.ErrNotFound)
	})

	t.Run("write missing", func(t *testing.T) {
		store := newStore(t)
		err := store.Write(context.Background(), domain.Address{0x01}, make([]byte, 8))
		require.ErrorIs(t, err, ports.ErrNotFound)
	})

	t.Run("alloc zeroes", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		addr := domain.Address{0x02}

		require.NoError(t, store.Alloc(ctx, addr, domain.RecordSize))
		got, err := store.Read(ctx, addr)
		require.NoError(t, err)
		require.Len(t, got, domain.RecordSize)
		require.True(t, domain.IsZeroed(got))
	})

	t.Run("alloc twice", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		addr := domain.Address{0x03}

		require.NoError(t, store.Alloc(ctx, addr, domain.RecordSize))
		require.ErrorIs(t, store.Alloc(ctx, addr, domain.RecordSize), ports.ErrAlreadyAllocated)
	})

	t.Run("write then read", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		addr := domain.Address{0x04}
		data := bytes.Repeat([]byte{0xab}, domain.RecordSize)

		require.NoError(t, store.Alloc(ctx, addr, domain.RecordSize))
		require.NoError(t, store.Write(ctx, addr, data))

		got, err := store.Read(ctx, addr)
		require.NoError(t, err)
		require.Equal(t, data, got)

		// Mutating the returned slice must not reach storage.
		got[0] = 0
		again, err := store.Read(ctx, addr)
		require.NoError(t, err)
		require.Equal(t, data, again)
	})

	t.Run("write size mismatch", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		addr := domain.Address{0x05}

		require.NoError(t, store.Alloc(ctx, addr, domain.RecordSize))
		require.ErrorIs(t, store.Write(ctx, addr, make([]byte, domain.RecordSize-1)), ports.ErrSizeMismatch)

		got, err := store.Read(ctx, addr)
		require.NoError(t, err)
		require.True(t, domain.IsZeroed(got))
	})

	t.Run("concurrent alloc has one winner", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		addr := domain.Address{0x06}

		const n = 8
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- store.Alloc(ctx, addr, domain.RecordSize)
			}()
		}
		wg.Wait()
		close(errs)

		wins := 0
		for err := range errs {
			if err == nil {
				wins++
				continue
			}
			require.ErrorIs(t, err, ports.ErrAlreadyAllocated)
		}
		require.Equal(t, 1, wins)
	})
}
