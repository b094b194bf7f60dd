package ports

import (
	"context"

	"github.com/bft-labs/custodian/internal/domain"
)

// AuthorityVerifier gates local mutations and delegation.
type AuthorityVerifier interface {
	// IsAuthorized reports whether caller may act on record as a primary-store authority.
	IsAuthorized(ctx context.Context, caller domain.Identity, record domain.StateRecord) bool
}
