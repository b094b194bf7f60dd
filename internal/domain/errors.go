package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent failure conditions of custody operations.
// They are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyExists is returned when Initialize targets an occupied derived address.
	ErrAlreadyExists = errors.New("custodian: record already exists")

	// ErrCustodyViolation is returned when a mutation is attempted by an authority
	// that does not currently hold custody of the record.
	ErrCustodyViolation = errors.New("custodian: custody violation")

	// ErrUnauthorized is returned when the caller lacks authority or grantor rights.
	ErrUnauthorized = errors.New("custodian: unauthorized")

	// ErrAlreadyDelegated is returned when Delegate is called on a delegated record.
	ErrAlreadyDelegated = errors.New("custodian: record already delegated")

	// ErrNotDelegated is returned when a commit is attempted on a local record.
	ErrNotDelegated = errors.New("custodian: record not delegated")

	// ErrOverflow is returned when an operation would wrap past the maximum value.
	ErrOverflow = errors.New("custodian: arithmetic overflow")

	// ErrUnderflow is returned when a subtraction would wrap below zero.
	ErrUnderflow = errors.New("custodian: arithmetic underflow")

	// ErrNotFound is returned when no record exists at an address.
	ErrNotFound = errors.New("custodian: record not found")

	// ErrInvalidSeed is returned for empty or oversized derivation seeds.
	ErrInvalidSeed = errors.New("custodian: invalid seed")

	// ErrInvalidCommitFrequency is returned when a delegation has a non-positive commit frequency.
	ErrInvalidCommitFrequency = errors.New("custodian: commit frequency must be positive")

	// ErrInvalidExecutor is returned when a delegation targets the zero identity.
	ErrInvalidExecutor = errors.New("custodian: invalid executor")

	// ErrCorruptRecord is returned when stored bytes do not decode to a record.
	ErrCorruptRecord = errors.New("custodian: corrupt record")

	// ErrInvalidOp is returned for unknown operation names or kinds.
	ErrInvalidOp = errors.New("custodian: invalid operation")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("custodian: invalid configuration")
)

// OpError records a failed custody operation against a record.
type OpError struct {
	Op      string
	Address Address
	Err     error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Address.Hex(), e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}
