package memory

import (
	"testing"

	"github.com/bft-labs/custodian/internal/adapters/storetest"
	"github.com/bft-labs/custodian/internal/ports"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ports.StorageProvider {
		s := NewInMemory()
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}
