package content

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// DigestHex returns the BLAKE2b-256 digest of data as a hex string. The
// digest identifies a file version in snapshots and drives change
// detection between runs.
func DigestHex(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
