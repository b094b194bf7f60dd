package domain

import (
	"fmt"
	"time"
)

// CustodyKind tells which authority may currently mutate a record.
type CustodyKind uint8

const (
	// CustodyLocal means the primary store accepts mutations.
	CustodyLocal CustodyKind = iota
	// CustodyDelegated means only the delegated executor accepts mutations.
	CustodyDelegated
)

// String returns a human-readable representation of the kind.
func (k CustodyKind) String() string {
	switch k {
	case CustodyLocal:
		return "Local"
	case CustodyDelegated:
		return "Delegated"
	default:
		return "Unknown"
	}
}

// Custody is the current holder of mutation authority over a record.
// Executor and CommitInterval are zero unless Kind is CustodyDelegated.
type Custody struct {
	Kind           CustodyKind
	Executor       Identity
	CommitInterval time.Duration
}

// Local returns the custody of a record owned by the primary store.
func Local() Custody {
	return Custody{Kind: CustodyLocal}
}

// Delegated returns the custody of a record handed to executor.
func Delegated(executor Identity, commitInterval time.Duration) Custody {
	return Custody{Kind: CustodyDelegated, Executor: executor, CommitInterval: commitInterval}
}

// IsLocal reports whether the primary store holds custody.
func (c Custody) IsLocal() bool { return c.Kind == CustodyLocal }

// IsDelegated reports whether an executor holds custody.
func (c Custody) IsDelegated() bool { return c.Kind == CustodyDelegated }

func (c Custody) String() string {
	if c.IsDelegated() {
		return fmt.Sprintf("Delegated(%s, %s)", c.Executor.Hex(), c.CommitInterval)
	}
	return c.Kind.String()
}
