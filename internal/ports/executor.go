package ports

import (
	"context"

	"github.com/bft-labs/custodian/internal/domain"
)

// ExecutorChannel carries the executor-side value of a delegated record
// back to the primary store. The core treats it as an opaque input; any
// transport or retry policy lives behind the implementation.
type ExecutorChannel interface {
	// CommittedValue returns the value the grant's executor is committing.
	CommittedValue(ctx context.Context, grant domain.DelegationGrant) (uint32, error)
}
