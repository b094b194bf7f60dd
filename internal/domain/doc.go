// Package domain contains the core entities and custody rules for custodian.
//
// This package is the innermost layer. It has no dependencies on storage,
// logging or I/O and holds only the state machine rules of a delegatable
// record.
//
// # Entities
//
//   - [StateRecord]: the durable unit of mutable state (value plus custody)
//   - [Custody]: who currently holds mutation authority over a record
//   - [DelegationGrant]: the authorization handed to an ephemeral executor
//   - [Op]: a checked arithmetic operation on a record value
//
// # Custody rules
//
// A record is either Local (the primary store accepts mutations) or
// Delegated (only the named executor does). Transitions are pure functions
// that return the next record and leave the receiver untouched, so callers
// can persist the result in a single write or discard it on error.
//
//	Local --Delegate--> Delegated --Commit--> Delegated
//	Delegated --CommitAndUndelegate--> Local
package domain
