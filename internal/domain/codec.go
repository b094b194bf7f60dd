package domain

import (
	"encoding/binary"
	"fmt"
	"time"
)

// RecordSize is the fixed number of bytes a record occupies in storage.
const RecordSize = 96

// Field offsets of the fixed layout.
const (
	offVersion        = 0
	offBump           = 1
	offCustody        = 2
	offValue          = 3
	offAuthority      = 7
	offExecutor       = 27
	offCommitInterval = 47
	offDelegatedAt    = 55
	offLastCommitAt   = 63
	offCommits        = 71
	offGrantNonce     = 79
	offTimeFlags      = 87
	offReserved       = 88
)

// Bits of the byte at offTimeFlags marking which timestamps are set.
const (
	flagDelegatedAt  byte = 1 << 0
	flagLastCommitAt byte = 1 << 1
	knownTimeFlags        = flagDelegatedAt | flagLastCommitAt
)

// Encode serializes the record into its fixed layout. Address is not part
// of the layout; it is the storage key.
func (r StateRecord) Encode() []byte {
	b := make([]byte, RecordSize)
	b[offVersion] = LayoutVersion
	b[offBump] = r.Bump
	b[offCustody] = byte(r.Custody.Kind)
	binary.BigEndian.PutUint32(b[offValue:], r.Value)
	copy(b[offAuthority:offExecutor], r.Authority[:])
	copy(b[offExecutor:offCommitInterval], r.Custody.Executor[:])
	binary.BigEndian.PutUint64(b[offCommitInterval:], uint64(r.Custody.CommitInterval))
	b[offTimeFlags] |= putTime(b[offDelegatedAt:], r.DelegatedAt, flagDelegatedAt)
	b[offTimeFlags] |= putTime(b[offLastCommitAt:], r.LastCommitAt, flagLastCommitAt)
	binary.BigEndian.PutUint64(b[offCommits:], r.Commits)
	binary.BigEndian.PutUint64(b[offGrantNonce:], r.GrantNonce)
	return b
}

// DecodeRecord parses the fixed layout stored at addr.
func DecodeRecord(addr Address, b []byte) (StateRecord, error) {
	if len(b) != RecordSize {
		return StateRecord{}, fmt.Errorf("%w: size %d, want %d", ErrCorruptRecord, len(b), RecordSize)
	}
	if b[offVersion] != LayoutVersion {
		return StateRecord{}, fmt.Errorf("%w: layout version %d", ErrCorruptRecord, b[offVersion])
	}
	flags := b[offTimeFlags]
	if flags&^knownTimeFlags != 0 {
		return StateRecord{}, fmt.Errorf("%w: time flags %#x", ErrCorruptRecord, flags)
	}

	r := StateRecord{
		Address:      addr,
		Version:      b[offVersion],
		Bump:         b[offBump],
		Value:        binary.BigEndian.Uint32(b[offValue:]),
		DelegatedAt:  getTime(b[offDelegatedAt:], flags&flagDelegatedAt != 0),
		LastCommitAt: getTime(b[offLastCommitAt:], flags&flagLastCommitAt != 0),
		Commits:      binary.BigEndian.Uint64(b[offCommits:]),
		GrantNonce:   binary.BigEndian.Uint64(b[offGrantNonce:]),
	}
	copy(r.Authority[:], b[offAuthority:offExecutor])

	switch kind := CustodyKind(b[offCustody]); kind {
	case CustodyLocal:
		r.Custody = Local()
	case CustodyDelegated:
		var executor Identity
		copy(executor[:], b[offExecutor:offCommitInterval])
		interval := time.Duration(binary.BigEndian.Uint64(b[offCommitInterval:]))
		if executor == (Identity{}) || interval <= 0 {
			return StateRecord{}, fmt.Errorf("%w: delegated without executor or interval", ErrCorruptRecord)
		}
		r.Custody = Delegated(executor, interval)
	default:
		return StateRecord{}, fmt.Errorf("%w: custody tag %d", ErrCorruptRecord, kind)
	}
	return r, nil
}

// IsZeroed reports whether b is freshly allocated storage with no record written.
func IsZeroed(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// putTime writes t as Unix nanoseconds and returns flag if t is set.
// The flag keeps the Unix epoch distinct from an unset time.
func putTime(b []byte, t time.Time, flag byte) byte {
	if t.IsZero() {
		return 0
	}
	binary.BigEndian.PutUint64(b, uint64(t.UnixNano()))
	return flag
}

func getTime(b []byte, set bool) time.Time {
	if !set {
		return time.Time{}
	}
	return time.Unix(0, int64(binary.BigEndian.Uint64(b))).UTC()
}
