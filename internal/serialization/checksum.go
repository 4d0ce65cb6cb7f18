package serialization

import (
	"crypto/sha256"
	"fmt"
)

// Checksum is the SHA-256 digest of a file's data section, stored at
// ChecksumOffset in the fixed header.
type Checksum [ChecksumSize]byte

// ChecksumOf returns the checksum of data.
func ChecksumOf(data []byte) Checksum {
	return sha256.Sum256(data)
}

// Verify returns ErrChecksumMismatch if data does not hash to c.
func (c Checksum) Verify(data []byte) error {
	if got := ChecksumOf(data); got != c {
		return fmt.Errorf("%w: stored %x..., computed %x...", ErrChecksumMismatch, c[:4], got[:4])
	}
	return nil
}
