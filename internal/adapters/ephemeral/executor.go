// Package ephemeral simulates the secondary executor a record is delegated to.
//
// The Executor keeps its own copy of each delegated record and accepts
// mutations only while it holds a matching grant. It implements
// ports.ExecutorChannel so the custody manager can pull the executor-side
// value when committing.
package ephemeral

import (
	"context"
	"errors"
	"sync"

	"github.com/bft-labs/custodian/internal/domain"
	"github.com/bft-labs/custodian/internal/ports"
)

var (
	// ErrNoGrant is returned when the executor holds no grant for a record.
	ErrNoGrant = errors.New("ephemeral: no active grant for record")

	// ErrForeignGrant is returned when a grant targets a different executor.
	ErrForeignGrant = errors.New("ephemeral: grant targets another executor")

	// ErrStaleGrant is returned when a grant does not match the one held.
	ErrStaleGrant = errors.New("ephemeral: grant superseded")
)

type session struct {
	grant domain.DelegationGrant
	value uint32
}

// Executor is an in-process ephemeral executor.
type Executor struct {
	id     domain.Identity
	logger ports.Logger

	mu       sync.Mutex
	sessions map[domain.Address]*session
}

// NewExecutor creates an executor identified by id.
func NewExecutor(id domain.Identity, logger ports.Logger) *Executor {
	return &Executor{
		id:       id,
		logger:   logger,
		sessions: make(map[domain.Address]*session),
	}
}

// ID returns the executor identity.
func (e *Executor) ID() domain.Identity {
	return e.id
}

// Accept installs an executor-side copy of rec under grant. Accepting the
// grant already held is a no-op; only a grant with a newer nonce replaces
// the session.
func (e *Executor) Accept(grant domain.DelegationGrant, rec domain.StateRecord) error {
	if !grant.Authorizes(e.id) {
		return ErrForeignGrant
	}
	if grant.Record != rec.Address {
		return ErrStaleGrant
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if cur, ok := e.sessions[rec.Address]; ok {
		// Redelivery of the held grant keeps the executor-side value.
		if cur.grant.ID == grant.ID {
			return nil
		}
		if cur.grant.Nonce >= grant.Nonce {
			return ErrStaleGrant
		}
	}
	e.sessions[rec.Address] = &session{grant: grant, value: rec.Value}
	e.logger.Debug("grant accepted",
		ports.Address("address", rec.Address),
		ports.String("grant", grant.ID.Hex()),
		ports.Uint32("value", rec.Value),
	)
	return nil
}

// Apply mutates the executor-side copy of a delegated record.
// Arithmetic follows the same checked rules as local operations.
func (e *Executor) Apply(addr domain.Address, op domain.Op) (uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[addr]
	if !ok {
		return 0, ErrNoGrant
	}
	v, err := op.Apply(s.value)
	if err != nil {
		return s.value, err
	}
	s.value = v
	return v, nil
}

// Value returns the executor-side value of addr.
func (e *Executor) Value(addr domain.Address) (uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[addr]
	if !ok {
		return 0, ErrNoGrant
	}
	return s.value, nil
}

// CommittedValue implements ports.ExecutorChannel.
func (e *Executor) CommittedValue(_ context.Context, grant domain.DelegationGrant) (uint32, error) {
	if !grant.Authorizes(e.id) {
		return 0, ErrForeignGrant
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[grant.Record]
	if !ok {
		return 0, ErrNoGrant
	}
	if s.grant.ID != grant.ID {
		return 0, ErrStaleGrant
	}
	return s.value, nil
}

// Release drops the session for addr after custody returned to the
// primary store. Later mutations fail with ErrNoGrant.
func (e *Executor) Release(addr domain.Address) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.sessions, addr)
}

// OnCustodyChange releases sessions whose record went back to Local, so the
// executor can be registered as a manager event emitter.
func (e *Executor) OnCustodyChange(addr domain.Address, previous, current domain.Custody, _ string) {
	if current.IsLocal() && previous.Executor == e.id {
		e.Release(addr)
	}
}

// OnCommit is a no-op; commits do not end the session.
func (e *Executor) OnCommit(domain.Address, domain.DelegationGrant, uint32) {}

var _ ports.ExecutorChannel = (*Executor)(nil)
