package domain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Address locates a record in a storage provider.
type Address = common.Hash

// Identity names an authority: a record owner, a grantor or an executor.
type Identity = common.Address

const (
	// CanonicalBump is the derivation nonce used for every record address.
	CanonicalBump uint8 = 255

	// MaxSeedLen is the largest seed accepted by DeriveAddress.
	MaxSeedLen = 32
)

// DeriveAddress computes the deterministic record address for seed within
// namespace. The same inputs always produce the same address and bump.
func DeriveAddress(namespace string, seed []byte) (Address, uint8, error) {
	if len(seed) == 0 || len(seed) > MaxSeedLen {
		return Address{}, 0, ErrInvalidSeed
	}
	return deriveWithBump(namespace, seed, CanonicalBump), CanonicalBump, nil
}

// VerifyAddress reports whether addr is the address derived from seed and bump.
func VerifyAddress(namespace string, seed []byte, bump uint8, addr Address) bool {
	if len(seed) == 0 || len(seed) > MaxSeedLen {
		return false
	}
	return deriveWithBump(namespace, seed, bump) == addr
}

func deriveWithBump(namespace string, seed []byte, bump uint8) Address {
	return crypto.Keccak256Hash([]byte(namespace), seed, []byte{bump})
}

// ParseIdentity parses a hex identity. The zero identity is rejected.
func ParseIdentity(s string) (Identity, bool) {
	if !common.IsHexAddress(s) {
		return Identity{}, false
	}
	id := common.HexToAddress(s)
	if id == (Identity{}) {
		return Identity{}, false
	}
	return id, true
}

// ParseAddress parses a 32-byte hex record address.
func ParseAddress(s string) (Address, bool) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return Address{}, false
	}
	return common.BytesToHash(b), true
}
