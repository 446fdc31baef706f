// Package hashutil provides the stable digests and deterministic file
// walk the rest of r3 builds on: the Merkle job hash and the source
// walk (internal/job), dependency hashes, and commit-time file hashing
// (internal/jobstore) all go through here so there is exactly one
// notion of "the hash of a file" in the codebase.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// chunkSize is the read buffer size for HashFile. 64 KiB keeps memory
// flat for arbitrarily large source files while avoiding the syscall
// overhead of a byte-at-a-time reader.
const chunkSize = 64 * 1024

// HashFile returns the lowercase hex SHA-256 digest of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashString returns the lowercase hex SHA-256 digest of s's UTF-8
// encoding.
func HashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// HashBytes returns the lowercase hex SHA-256 digest of b.
func HashBytes(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}
