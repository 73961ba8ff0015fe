package domain

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Digest is a content fingerprint rendered as a fixed-width hex string.
// It is used to detect modification without relying on timestamps.
type Digest string

// NewDigest formats a raw xxhash sum as a Digest.
func NewDigest(sum uint64) Digest {
	return Digest(fmt.Sprintf("%016x", sum))
}

// DigestBytes computes the digest of a byte slice.
func DigestBytes(data []byte) Digest {
	return NewDigest(xxhash.Sum64(data))
}

// DigestString computes the digest of a string.
func DigestString(s string) Digest {
	return NewDigest(xxhash.Sum64String(s))
}

// Ptr returns a pointer to the digest. A nil *Digest means "never hashed",
// which is a distinct, meaningful state rather than a sentinel value.
func (d Digest) Ptr() *Digest {
	return &d
}
