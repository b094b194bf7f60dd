// Package custodian manages temporary custody of state records.
//
// A record lives in a primary store and is mutated locally until its
// authority delegates it to an ephemeral executor. While delegated, only
// that executor may mutate it; the primary copy is refreshed by commits and
// custody returns with CommitAndUndelegate.
//
// Example usage:
//
//	exec := custodian.NewExecutor(executorID, nil)
//	m, err := custodian.New(custodian.NewMemoryStore(),
//	    custodian.WithExecutorChannel(exec),
//	    custodian.WithEventHandler(exec),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rec, err := m.Initialize(ctx, []byte("counter"), owner)
//	rec, grant, err := m.Delegate(ctx, rec.Address, owner, executorID, 30*time.Second)
//	err = exec.Accept(grant, rec) // hand the grant to the executor
//
// Registering the executor as event handler only releases its session when
// custody returns; the grant from Delegate must be passed to Accept before
// the executor accepts mutations or commits.
package custodian

import (
	"fmt"

	"github.com/bft-labs/custodian/internal/adapters/authority"
	"github.com/bft-labs/custodian/internal/adapters/ephemeral"
	"github.com/bft-labs/custodian/internal/adapters/fs"
	logadapter "github.com/bft-labs/custodian/internal/adapters/log"
	"github.com/bft-labs/custodian/internal/adapters/memory"
	"github.com/bft-labs/custodian/internal/adapters/sqlite"
	"github.com/bft-labs/custodian/internal/app"
	"github.com/bft-labs/custodian/internal/domain"
	"github.com/bft-labs/custodian/internal/ports"
)

type (
	// Address is the 32-byte derived address of a record.
	Address = domain.Address

	// Identity is a 20-byte authority or executor identity.
	Identity = domain.Identity

	// StateRecord is a delegatable record.
	StateRecord = domain.StateRecord

	// Custody tells which authority currently accepts mutations.
	Custody = domain.Custody

	// CustodyKind is Local or Delegated.
	CustodyKind = domain.CustodyKind

	// DelegationGrant authorizes one executor to mutate one record.
	DelegationGrant = domain.DelegationGrant

	// StalenessReport describes the commit cadence of a delegated record.
	StalenessReport = domain.StalenessReport

	// Op is a local arithmetic operation on a record value.
	Op = domain.Op

	// OpError is returned by every failed Manager operation.
	OpError = domain.OpError

	// Manager is the state custody manager.
	Manager = app.Manager

	// EventHandler receives custody changes and commits after they are persisted.
	EventHandler = app.CustodyEventEmitter

	// StorageProvider is the primary store.
	StorageProvider = ports.StorageProvider

	// AuthorityVerifier decides who may mutate or delegate a local record.
	AuthorityVerifier = ports.AuthorityVerifier

	// ExecutorChannel reads the executor-side value of a delegated record.
	ExecutorChannel = ports.ExecutorChannel

	// Logger is the interface for structured logging.
	Logger = ports.Logger

	// LogField represents a structured log field.
	LogField = ports.Field

	// Executor is an in-process ephemeral executor.
	Executor = ephemeral.Executor
)

// Custody kinds.
const (
	CustodyLocal     = domain.CustodyLocal
	CustodyDelegated = domain.CustodyDelegated
)

// RecordSize is the fixed encoded size of a record.
const RecordSize = domain.RecordSize

// Errors returned by the manager. Match them with errors.Is.
var (
	ErrAlreadyExists          = domain.ErrAlreadyExists
	ErrCustodyViolation       = domain.ErrCustodyViolation
	ErrUnauthorized           = domain.ErrUnauthorized
	ErrAlreadyDelegated       = domain.ErrAlreadyDelegated
	ErrNotDelegated           = domain.ErrNotDelegated
	ErrOverflow               = domain.ErrOverflow
	ErrUnderflow              = domain.ErrUnderflow
	ErrNotFound               = domain.ErrNotFound
	ErrInvalidSeed            = domain.ErrInvalidSeed
	ErrInvalidCommitFrequency = domain.ErrInvalidCommitFrequency
	ErrInvalidExecutor        = domain.ErrInvalidExecutor
	ErrCorruptRecord          = domain.ErrCorruptRecord
	ErrInvalidConfig          = domain.ErrInvalidConfig
)

// Operation constructors.
var (
	Increment = domain.Increment
	Double    = domain.Double
	Halve     = domain.Halve
	Add       = domain.Add
	Subtract  = domain.Subtract
)

// New creates a custody manager over store.
// Without options it uses the record-owner verifier, a no-op logger and no
// executor channel, so commits fail until WithExecutorChannel is given.
func New(store StorageProvider, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: nil store", ErrInvalidConfig)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return app.NewManager(
		app.ManagerConfig{Namespace: o.namespace, Clock: o.clock},
		store,
		o.verifier,
		o.executor,
		o.logger,
		o.eventHandler,
	), nil
}

// DeriveAddress returns the address and bump of the record for seed in namespace.
func DeriveAddress(namespace string, seed []byte) (Address, uint8, error) {
	return domain.DeriveAddress(namespace, seed)
}

// ParseIdentity parses a hex identity. The zero identity is rejected.
func ParseIdentity(s string) (Identity, bool) {
	return domain.ParseIdentity(s)
}

// ParseAddress parses a hex record address.
func ParseAddress(s string) (Address, bool) {
	return domain.ParseAddress(s)
}

// NewMemoryStore returns a process-local store.
func NewMemoryStore() *memory.Store {
	return memory.NewInMemory()
}

// NewFileStore returns a store keeping one file per record under dir.
func NewFileStore(dir string) *fs.Store {
	return fs.NewStore(dir)
}

// OpenSQLiteStore opens or creates a SQLite-backed store at path.
func OpenSQLiteStore(path string) (*sqlite.Store, error) {
	return sqlite.Open(path)
}

// NewExecutor creates an in-process ephemeral executor. A nil logger discards output.
func NewExecutor(id Identity, logger Logger) *Executor {
	if logger == nil {
		logger = logadapter.NewNoopLogger()
	}
	return ephemeral.NewExecutor(id, logger)
}

// OwnerVerifier authorizes only a record's own authority.
func OwnerVerifier() AuthorityVerifier {
	return authority.Owner{}
}

// NewAllowList authorizes a record's authority plus the given operators.
func NewAllowList(operators ...Identity) AuthorityVerifier {
	return authority.NewAllowList(operators...)
}
