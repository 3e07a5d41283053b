// Package digest provides the hash primitive for the simulator. Every hash
// in the system is a fixed width lowercase hex string so block and event
// hashes can be compared by character prefix.
package digest

import (
	"crypto/sha256"

	"github.com/ethereum/go-ethereum/common"
)

// Size is the width in characters of every hash in the system.
const Size = 64

// Zero is the hash used for the genesis parent and for empty merkle roots.
const Zero = "0000000000000000000000000000000000000000000000000000000000000000"

// Func represents a hash function the simulator can be parameterized with.
// Implementations must be deterministic and must produce lowercase hex of
// exactly Size characters. Digests shorter than Size are right padded with
// '0'; the padding is part of the contract since the proof of work
// predicate inspects leading characters.
type Func func(data []byte) string

// SHA256Hex hashes the data with sha256 and hex encodes the digest. This is
// the default hash for the simulator.
func SHA256Hex(data []byte) string {
	hash := sha256.Sum256(data)
	return Pad(common.Bytes2Hex(hash[:]))
}

// Pad right pads a hex string with '0' characters to the fixed width. A
// string already at or beyond the width is truncated to it.
func Pad(hexstr string) string {
	if len(hexstr) >= Size {
		return hexstr[:Size]
	}

	b := make([]byte, Size)
	copy(b, hexstr)
	for i := len(hexstr); i < Size; i++ {
		b[i] = '0'
	}

	return string(b)
}
