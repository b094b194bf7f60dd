package ephemeral

import (
	"context"

	"github.com/bft-labs/custodian/internal/domain"
	"github.com/bft-labs/custodian/internal/ports"
)

// StaticValue is an ExecutorChannel that always reports the same value.
// The CLI uses it when the executor-side value arrives out of band.
type StaticValue uint32

// CommittedValue implements ports.ExecutorChannel.
func (v StaticValue) CommittedValue(context.Context, domain.DelegationGrant) (uint32, error) {
	return uint32(v), nil
}

var _ ports.ExecutorChannel = StaticValue(0)
