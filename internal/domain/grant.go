package domain

import (
	"encoding/binary"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// DelegationGrant authorizes an executor to mutate a record until the
// record is committed and undelegated.
type DelegationGrant struct {
	// ID is unique per delegation of a record.
	ID common.Hash

	// Record is the address of the delegated record.
	Record Address

	// Grantor is the primary-store authority that initiated the delegation.
	Grantor Identity

	// TargetExecutor is the only identity allowed to mutate and commit.
	TargetExecutor Identity

	// CommitFrequency is the maximum duration the executor may withhold a commit.
	CommitFrequency time.Duration

	// Nonce counts delegations of the record; it seeds ID.
	Nonce uint64

	// IssuedAt is when the delegation took effect.
	IssuedAt time.Time
}

// GrantID derives the grant identifier for the nonce-th delegation of addr.
func GrantID(addr Address, nonce uint64) common.Hash {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	return crypto.Keccak256Hash(addr[:], n[:])
}

// Authorizes reports whether the grant lets executor act on the record.
func (g DelegationGrant) Authorizes(executor Identity) bool {
	return g.TargetExecutor == executor && g.TargetExecutor != (Identity{})
}

// Deadline returns the latest time by which a commit after since is due.
func (g DelegationGrant) Deadline(since time.Time) time.Time {
	return since.Add(g.CommitFrequency)
}
