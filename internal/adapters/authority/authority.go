// Package authority provides ports.AuthorityVerifier implementations.
package authority

import (
	"context"

	"github.com/bft-labs/custodian/internal/domain"
	"github.com/bft-labs/custodian/internal/ports"
)

// Owner authorizes only the record's configured authority.
type Owner struct{}

// IsAuthorized reports whether caller is the record authority.
func (Owner) IsAuthorized(_ context.Context, caller domain.Identity, record domain.StateRecord) bool {
	return caller != (domain.Identity{}) && caller == record.Authority
}

// AllowList authorizes the record authority plus a fixed set of operators.
// Operators may apply local operations; delegation additionally requires
// the grantor to be the record authority.
type AllowList struct {
	operators map[domain.Identity]struct{}
}

// NewAllowList creates an AllowList over operators.
func NewAllowList(operators ...domain.Identity) *AllowList {
	set := make(map[domain.Identity]struct{}, len(operators))
	for _, op := range operators {
		if op == (domain.Identity{}) {
			continue
		}
		set[op] = struct{}{}
	}
	return &AllowList{operators: set}
}

// IsAuthorized reports whether caller is the record authority or a listed operator.
func (a *AllowList) IsAuthorized(ctx context.Context, caller domain.Identity, record domain.StateRecord) bool {
	if (Owner{}).IsAuthorized(ctx, caller, record) {
		return true
	}
	_, ok := a.operators[caller]
	return ok
}

var (
	_ ports.AuthorityVerifier = Owner{}
	_ ports.AuthorityVerifier = (*AllowList)(nil)
)
