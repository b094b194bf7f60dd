package domain

import "time"

// LayoutVersion is the current fixed-layout version written by Encode.
const LayoutVersion uint8 = 1

// StateRecord is the durable unit of mutable state.
// Transition methods return a new record and never modify the receiver.
type StateRecord struct {
	// Address is where the record lives; it is derived from the seed.
	Address Address

	// Bump is the derivation nonce used to compute Address.
	Bump uint8

	// Version is the layout version the record was decoded from.
	Version uint8

	// Value is the record payload.
	Value uint32

	// Authority may mutate the record locally and delegate it.
	Authority Identity

	// Custody tells who currently accepts mutations.
	Custody Custody

	// DelegatedAt is set while delegated.
	DelegatedAt time.Time

	// LastCommitAt is the time of the last commit in the current or last delegation.
	LastCommitAt time.Time

	// Commits counts commits in the current delegation that changed Value.
	Commits uint64

	// GrantNonce counts delegations. It never decreases.
	GrantNonce uint64
}

// NewRecord returns a fresh local record with value zero.
func NewRecord(addr Address, bump uint8, authority Identity) StateRecord {
	return StateRecord{
		Address:   addr,
		Bump:      bump,
		Version:   LayoutVersion,
		Authority: authority,
		Custody:   Local(),
	}
}

// ApplyLocal applies op while the primary store holds custody.
func (r StateRecord) ApplyLocal(op Op) (StateRecord, error) {
	if !r.Custody.IsLocal() {
		return r, ErrCustodyViolation
	}
	v, err := op.Apply(r.Value)
	if err != nil {
		return r, err
	}
	next := r
	next.Value = v
	return next, nil
}

// Delegate hands custody to executor. grantor must be the record authority.
func (r StateRecord) Delegate(grantor, executor Identity, commitFrequency time.Duration, now time.Time) (StateRecord, DelegationGrant, error) {
	if grantor != r.Authority {
		return r, DelegationGrant{}, ErrUnauthorized
	}
	if r.Custody.IsDelegated() {
		return r, DelegationGrant{}, ErrAlreadyDelegated
	}
	if executor == (Identity{}) {
		return r, DelegationGrant{}, ErrInvalidExecutor
	}
	if commitFrequency <= 0 {
		return r, DelegationGrant{}, ErrInvalidCommitFrequency
	}

	next := r
	next.Custody = Delegated(executor, commitFrequency)
	next.GrantNonce = r.GrantNonce + 1
	next.DelegatedAt = now
	next.LastCommitAt = time.Time{}
	next.Commits = 0

	grant, err := next.Grant()
	if err != nil {
		return r, DelegationGrant{}, err
	}
	return next, grant, nil
}

// Grant reconstructs the active delegation grant.
func (r StateRecord) Grant() (DelegationGrant, error) {
	if !r.Custody.IsDelegated() {
		return DelegationGrant{}, ErrNotDelegated
	}
	return DelegationGrant{
		ID:              GrantID(r.Address, r.GrantNonce),
		Record:          r.Address,
		Grantor:         r.Authority,
		TargetExecutor:  r.Custody.Executor,
		CommitFrequency: r.Custody.CommitInterval,
		Nonce:           r.GrantNonce,
		IssuedAt:        r.DelegatedAt,
	}, nil
}

// Commit copies the executor-supplied value into the record. Custody is unchanged.
// Committing the value already held only advances LastCommitAt.
func (r StateRecord) Commit(committer Identity, value uint32, now time.Time) (StateRecord, error) {
	if !r.Custody.IsDelegated() {
		return r, ErrNotDelegated
	}
	if committer != r.Custody.Executor {
		return r, ErrCustodyViolation
	}
	next := r
	next.Value = value
	next.LastCommitAt = now
	if value != r.Value {
		next.Commits = r.Commits + 1
	}
	return next, nil
}

// CommitAndUndelegate commits value and returns custody to the primary store.
func (r StateRecord) CommitAndUndelegate(committer Identity, value uint32, now time.Time) (StateRecord, error) {
	next, err := r.Commit(committer, value, now)
	if err != nil {
		return r, err
	}
	next.Custody = Local()
	next.DelegatedAt = time.Time{}
	return next, nil
}

// StalenessReport describes how far the primary view may lag the executor.
type StalenessReport struct {
	// Since is the last commit, or the delegation time if nothing was committed yet.
	Since time.Time

	// Deadline is Since plus the commit interval.
	Deadline time.Time

	// Overdue is true when now is past Deadline.
	Overdue bool
}

// Staleness reports the commit cadence position of a delegated record.
func (r StateRecord) Staleness(now time.Time) (StalenessReport, error) {
	grant, err := r.Grant()
	if err != nil {
		return StalenessReport{}, err
	}
	since := r.LastCommitAt
	if since.IsZero() {
		since = r.DelegatedAt
	}
	deadline := grant.Deadline(since)
	return StalenessReport{
		Since:    since,
		Deadline: deadline,
		Overdue:  now.After(deadline),
	}, nil
}
