// Package hash wraps xxHash64 for schema fingerprints.
package hash

import "github.com/cespare/xxhash/v2"

// Fingerprint accumulates an order-sensitive xxHash64 over a sequence of
// string parts. Parts are separated so that ("ab","c") and ("a","bc") differ.
type Fingerprint struct {
	d *xxhash.Digest
}

// NewFingerprint creates an empty fingerprint.
func NewFingerprint() Fingerprint {
	return Fingerprint{d: xxhash.New()}
}

// Add feeds parts into the fingerprint.
func (f Fingerprint) Add(parts ...string) {
	for _, p := range parts {
		_, _ = f.d.WriteString(p)
		_, _ = f.d.Write([]byte{0})
	}
}

// Sum64 returns the current fingerprint value.
func (f Fingerprint) Sum64() uint64 {
	return f.d.Sum64()
}
