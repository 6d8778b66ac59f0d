// Package dgst implements the digest primitives used across the toolkit:
// SHA-1 (needed only for legacy containers), SHA-256, SHA-384 and SHA-512,
// plus the RFC 2104 HMAC construction with a reusable per-key context.
//
// Two interchangeable backends are provided. Software runs the in-repo
// FIPS 180-4 compression functions; Native delegates to crypto/sha1,
// crypto/sha256 and crypto/sha512. Both backends produce byte-identical
// output for identical input.
package dgst

import (
	"fmt"
	"hash"

	"github.com/docseal/sigkit/internal/errdef"
)

// Algorithm names a supported digest algorithm.
type Algorithm string

const (
	SHA1   Algorithm = "sha1"
	SHA256 Algorithm = "sha256"
	SHA384 Algorithm = "sha384"
	SHA512 Algorithm = "sha512"
)

var ErrUnknownAlgorithm = fmt.Errorf("%w: unknown digest", errdef.ErrUnsupportedAlgorithm)

// Parse validates a digest algorithm name.
func Parse(name string) (Algorithm, error) {
	a := Algorithm(name)
	if !a.valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
	return a, nil
}

func (a Algorithm) valid() bool {
	switch a {
	case SHA1, SHA256, SHA384, SHA512:
		return true
	}
	return false
}

// Size returns the digest length in bytes.
func (a Algorithm) Size() int {
	switch a {
	case SHA1:
		return 20
	case SHA256:
		return 32
	case SHA384:
		return 48
	case SHA512:
		return 64
	}
	return 0
}

// BlockSize returns the compression block length in bytes.
func (a Algorithm) BlockSize() int {
	switch a {
	case SHA1, SHA256:
		return 64
	case SHA384, SHA512:
		return 128
	}
	return 0
}

// KeyedMAC computes HMAC values for one fixed key. Implementations
// precompute all key-dependent state, so a Sum call costs the message
// compressions plus two fixed ones. PBKDF2 depends on this: it calls Sum
// once per iteration per output block.
type KeyedMAC interface {
	Sum(message []byte) []byte
	Size() int
}

// Backend is the strategy interface over the two digest implementations.
type Backend interface {
	New(alg Algorithm) (hash.Hash, error)
	Sum(alg Algorithm, data []byte) ([]byte, error)
	NewHMAC(alg Algorithm, key []byte) (KeyedMAC, error)
}

// DefaultBackend is used by the package-level helpers. The native platform
// implementation is always available on the targets Go supports, so the
// capability probe reduces to this default; tests substitute Software to
// assert equivalence.
var DefaultBackend Backend = Native{}

// Sum computes a digest with the default backend.
func Sum(alg Algorithm, data []byte) ([]byte, error) {
	return DefaultBackend.Sum(alg, data)
}

// HMACSum computes a one-shot HMAC with the default backend.
func HMACSum(alg Algorithm, key, data []byte) ([]byte, error) {
	mac, err := DefaultBackend.NewHMAC(alg, key)
	if err != nil {
		return nil, err
	}
	return mac.Sum(data), nil
}
