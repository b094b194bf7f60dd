package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/raulk/clock"

	"github.com/bft-labs/custodian/internal/domain"
	"github.com/bft-labs/custodian/internal/ports"
)

// DefaultNamespace scopes derived addresses when ManagerConfig.Namespace is empty.
const DefaultNamespace = "custodian"

// ManagerConfig contains configuration for the custody manager.
type ManagerConfig struct {
	// Namespace is mixed into every derived record address.
	Namespace string

	// Clock supplies delegation and commit timestamps. Defaults to the wall clock.
	Clock clock.Clock
}

// Manager is the state custody manager. It owns the lifecycle of
// delegatable records: Local, Delegated, committed and undelegated.
//
// Every operation reads the record once, computes the complete next record
// and writes it once, so a failed call leaves storage untouched. Calls from
// the same process are serialized; exclusion between the primary store and
// a delegated executor rests solely on the custody check.
type Manager struct {
	mu        sync.Mutex
	namespace string
	clock     clock.Clock
	store     ports.StorageProvider
	verifier  ports.AuthorityVerifier
	executor  ports.ExecutorChannel
	logger    ports.Logger
	emitter   CustodyEventEmitter
}

// CustodyEventEmitter is called after a custody change or commit has been persisted.
type CustodyEventEmitter interface {
	OnCustodyChange(addr domain.Address, previous, current domain.Custody, reason string)
	OnCommit(addr domain.Address, grant domain.DelegationGrant, value uint32)
}

// NewManager creates a custody manager with the given dependencies.
// executor and emitter may be nil; commits then fail with ErrInvalidConfig.
func NewManager(
	config ManagerConfig,
	store ports.StorageProvider,
	verifier ports.AuthorityVerifier,
	executor ports.ExecutorChannel,
	logger ports.Logger,
	emitter CustodyEventEmitter,
) *Manager {
	if config.Namespace == "" {
		config.Namespace = DefaultNamespace
	}
	if config.Clock == nil {
		config.Clock = clock.New()
	}
	return &Manager{
		namespace: config.Namespace,
		clock:     config.Clock,
		store:     store,
		verifier:  verifier,
		executor:  executor,
		logger:    logger,
		emitter:   emitter,
	}
}

// Namespace returns the namespace used to derive record addresses.
func (m *Manager) Namespace() string {
	return m.namespace
}

// Address returns the derived address of the record for seed.
func (m *Manager) Address(seed []byte) (domain.Address, error) {
	addr, _, err := domain.DeriveAddress(m.namespace, seed)
	return addr, err
}

// Initialize creates a local record with value zero at the address derived
// from seed. authority becomes the record's owner.
// Returns ErrAlreadyExists if a record already occupies the address.
func (m *Manager) Initialize(ctx context.Context, seed []byte, authority domain.Identity) (domain.StateRecord, error) {
	addr, bump, err := domain.DeriveAddress(m.namespace, seed)
	if err != nil {
		return domain.StateRecord{}, err
	}
	if authority == (domain.Identity{}) {
		return domain.StateRecord{}, m.fail("initialize", addr, domain.ErrUnauthorized)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Alloc(ctx, addr, domain.RecordSize); err != nil {
		if !errors.Is(err, ports.ErrAlreadyAllocated) {
			return domain.StateRecord{}, m.fail("initialize", addr, err)
		}
		// An allocation that was never written is an interrupted
		// initialize; finish it instead of reporting a collision.
		data, rerr := m.store.Read(ctx, addr)
		if rerr != nil {
			return domain.StateRecord{}, m.fail("initialize", addr, rerr)
		}
		if !domain.IsZeroed(data) {
			return domain.StateRecord{}, m.fail("initialize", addr, domain.ErrAlreadyExists)
		}
	}

	rec := domain.NewRecord(addr, bump, authority)
	if err := m.store.Write(ctx, addr, rec.Encode()); err != nil {
		return domain.StateRecord{}, m.fail("initialize", addr, err)
	}

	m.logger.Info("record initialized",
		ports.Address("address", addr),
		ports.Identity("authority", authority),
	)
	return rec, nil
}

// Get returns the record stored at addr.
func (m *Manager) Get(ctx context.Context, addr domain.Address) (domain.StateRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.load(ctx, addr)
	if err != nil {
		return domain.StateRecord{}, &domain.OpError{Op: "get", Address: addr, Err: err}
	}
	return rec, nil
}

// Apply applies op to a local record on behalf of caller.
// Returns ErrCustodyViolation while the record is delegated and
// ErrUnauthorized if the verifier rejects caller.
func (m *Manager) Apply(ctx context.Context, addr domain.Address, caller domain.Identity, op domain.Op) (domain.StateRecord, error) {
	_, next, err := m.update(ctx, op.Kind.String(), addr, func(rec domain.StateRecord) (domain.StateRecord, error) {
		if !rec.Custody.IsLocal() {
			return rec, domain.ErrCustodyViolation
		}
		if !m.verifier.IsAuthorized(ctx, caller, rec) {
			return rec, domain.ErrUnauthorized
		}
		return rec.ApplyLocal(op)
	})
	if err != nil {
		return domain.StateRecord{}, err
	}

	m.logger.Debug("local operation applied",
		ports.Address("address", addr),
		ports.String("op", op.Kind.String()),
		ports.Uint32("value", next.Value),
	)
	return next, nil
}

// Increment adds one to the record value.
func (m *Manager) Increment(ctx context.Context, addr domain.Address, caller domain.Identity) (domain.StateRecord, error) {
	return m.Apply(ctx, addr, caller, domain.Increment())
}

// Double multiplies the record value by two.
func (m *Manager) Double(ctx context.Context, addr domain.Address, caller domain.Identity) (domain.StateRecord, error) {
	return m.Apply(ctx, addr, caller, domain.Double())
}

// Halve divides the record value by two, rounding down.
func (m *Manager) Halve(ctx context.Context, addr domain.Address, caller domain.Identity) (domain.StateRecord, error) {
	return m.Apply(ctx, addr, caller, domain.Halve())
}

// Add adds amount to the record value.
func (m *Manager) Add(ctx context.Context, addr domain.Address, caller domain.Identity, amount uint32) (domain.StateRecord, error) {
	return m.Apply(ctx, addr, caller, domain.Add(amount))
}

// Subtract subtracts amount from the record value.
func (m *Manager) Subtract(ctx context.Context, addr domain.Address, caller domain.Identity, amount uint32) (domain.StateRecord, error) {
	return m.Apply(ctx, addr, caller, domain.Subtract(amount))
}

// Delegate hands custody of a local record to executor. After it returns,
// only executor may mutate the record until CommitAndUndelegate.
func (m *Manager) Delegate(
	ctx context.Context,
	addr domain.Address,
	grantor, executor domain.Identity,
	commitFrequency time.Duration,
) (domain.StateRecord, domain.DelegationGrant, error) {
	var grant domain.DelegationGrant
	prev, next, err := m.update(ctx, "delegate", addr, func(rec domain.StateRecord) (domain.StateRecord, error) {
		if !m.verifier.IsAuthorized(ctx, grantor, rec) {
			return rec, domain.ErrUnauthorized
		}
		next, g, err := rec.Delegate(grantor, executor, commitFrequency, m.clock.Now())
		if err != nil {
			return rec, err
		}
		grant = g
		return next, nil
	})
	if err != nil {
		return domain.StateRecord{}, domain.DelegationGrant{}, err
	}

	m.logger.Info("record delegated",
		ports.Address("address", addr),
		ports.Identity("executor", executor),
		ports.Duration("commit_frequency", commitFrequency),
		ports.String("grant", grant.ID.Hex()),
	)
	if m.emitter != nil {
		m.emitter.OnCustodyChange(addr, prev.Custody, next.Custody, "delegate")
	}
	return next, grant, nil
}

// Grant returns the active delegation grant of a record.
// Returns ErrNotDelegated for local records.
func (m *Manager) Grant(ctx context.Context, addr domain.Address) (domain.DelegationGrant, error) {
	rec, err := m.Get(ctx, addr)
	if err != nil {
		return domain.DelegationGrant{}, err
	}
	grant, err := rec.Grant()
	if err != nil {
		return domain.DelegationGrant{}, &domain.OpError{Op: "grant", Address: addr, Err: err}
	}
	return grant, nil
}

// Commit copies the executor-side value into the primary store. The record
// stays delegated. Committing an unchanged value only advances the commit
// timestamp and count.
func (m *Manager) Commit(ctx context.Context, addr domain.Address, committer domain.Identity) (domain.StateRecord, error) {
	var grant domain.DelegationGrant
	_, next, err := m.update(ctx, "commit", addr, func(rec domain.StateRecord) (domain.StateRecord, error) {
		g, value, err := m.pull(ctx, rec, committer)
		if err != nil {
			return rec, err
		}
		grant = g
		return rec.Commit(committer, value, m.clock.Now())
	})
	if err != nil {
		return domain.StateRecord{}, err
	}

	m.logger.Info("record committed",
		ports.Address("address", addr),
		ports.Uint32("value", next.Value),
		ports.Uint64("commits", next.Commits),
	)
	if m.emitter != nil {
		m.emitter.OnCommit(addr, grant, next.Value)
	}
	return next, nil
}

// CommitAndUndelegate commits the executor-side value and returns custody
// to the primary store, invalidating the grant. Further executor mutations
// are no longer authoritative.
func (m *Manager) CommitAndUndelegate(ctx context.Context, addr domain.Address, committer domain.Identity) (domain.StateRecord, error) {
	var grant domain.DelegationGrant
	prev, next, err := m.update(ctx, "commit_and_undelegate", addr, func(rec domain.StateRecord) (domain.StateRecord, error) {
		g, value, err := m.pull(ctx, rec, committer)
		if err != nil {
			return rec, err
		}
		grant = g
		return rec.CommitAndUndelegate(committer, value, m.clock.Now())
	})
	if err != nil {
		return domain.StateRecord{}, err
	}

	m.logger.Info("record undelegated",
		ports.Address("address", addr),
		ports.Uint32("value", next.Value),
		ports.String("grant", grant.ID.Hex()),
	)
	if m.emitter != nil {
		m.emitter.OnCommit(addr, grant, next.Value)
		m.emitter.OnCustodyChange(addr, prev.Custody, next.Custody, "commit_and_undelegate")
	}
	return next, nil
}

// Staleness reports how long the primary view of a delegated record may
// have lagged the executor, measured against its commit interval.
func (m *Manager) Staleness(ctx context.Context, addr domain.Address) (domain.StalenessReport, error) {
	rec, err := m.Get(ctx, addr)
	if err != nil {
		return domain.StalenessReport{}, err
	}
	rep, err := rec.Staleness(m.clock.Now())
	if err != nil {
		return domain.StalenessReport{}, &domain.OpError{Op: "staleness", Address: addr, Err: err}
	}
	if rep.Overdue {
		m.logger.Warn("commit overdue",
			ports.Address("address", addr),
			ports.Any("deadline", rep.Deadline),
		)
	}
	return rep, nil
}

// pull validates committer against the active grant and fetches the
// executor-side value. The executor is only contacted for a valid grant.
func (m *Manager) pull(ctx context.Context, rec domain.StateRecord, committer domain.Identity) (domain.DelegationGrant, uint32, error) {
	grant, err := rec.Grant()
	if err != nil {
		return domain.DelegationGrant{}, 0, err
	}
	if !grant.Authorizes(committer) {
		return domain.DelegationGrant{}, 0, domain.ErrCustodyViolation
	}
	if m.executor == nil {
		return domain.DelegationGrant{}, 0, fmt.Errorf("%w: no executor channel", domain.ErrInvalidConfig)
	}
	value, err := m.executor.CommittedValue(ctx, grant)
	if err != nil {
		return domain.DelegationGrant{}, 0, fmt.Errorf("executor channel: %w", err)
	}
	return grant, value, nil
}

// update runs one read-transition-write cycle under the manager lock.
func (m *Manager) update(
	ctx context.Context,
	op string,
	addr domain.Address,
	transition func(domain.StateRecord) (domain.StateRecord, error),
) (domain.StateRecord, domain.StateRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.StateRecord{}, domain.StateRecord{}, m.fail(op, addr, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prev, err := m.load(ctx, addr)
	if err != nil {
		return domain.StateRecord{}, domain.StateRecord{}, m.fail(op, addr, err)
	}
	next, err := transition(prev)
	if err != nil {
		return prev, prev, m.fail(op, addr, err)
	}
	if err := m.store.Write(ctx, addr, next.Encode()); err != nil {
		return prev, prev, m.fail(op, addr, fmt.Errorf("write record: %w", err))
	}
	return prev, next, nil
}

func (m *Manager) load(ctx context.Context, addr domain.Address) (domain.StateRecord, error) {
	data, err := m.store.Read(ctx, addr)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return domain.StateRecord{}, domain.ErrNotFound
		}
		return domain.StateRecord{}, fmt.Errorf("read record: %w", err)
	}
	if domain.IsZeroed(data) {
		return domain.StateRecord{}, domain.ErrNotFound
	}
	return domain.DecodeRecord(addr, data)
}

func (m *Manager) fail(op string, addr domain.Address, err error) error {
	m.logger.Warn("operation rejected",
		ports.String("op", op),
		ports.Address("address", addr),
		ports.Err(err),
	)
	return &domain.OpError{Op: op, Address: addr, Err: err}
}
