// Package errdef holds the error categories shared across the
// toolkit. Subpackages wrap these so callers can classify failures
// with errors.Is without depending on which layer produced them.
package errdef

import "errors"

var (
	// ErrDecode covers malformed or truncated encodings.
	ErrDecode = errors.New("sigkit: malformed encoding")

	// ErrUnsupportedAlgorithm covers recognized structures that name an
	// algorithm outside the supported set.
	ErrUnsupportedAlgorithm = errors.New("sigkit: unsupported algorithm")

	// ErrAuthentication is deliberately ambiguous between a wrong
	// password and tampered data; the two are indistinguishable.
	ErrAuthentication = errors.New("sigkit: wrong password or corrupted data")

	// ErrStructure covers well-formed encodings that violate a
	// structural expectation (wrong version, wrong content type).
	ErrStructure = errors.New("sigkit: structural violation")

	// ErrCapacity is returned when an input exceeds a hard limit, such
	// as a DigestInfo that does not fit the RSA modulus.
	ErrCapacity = errors.New("sigkit: capacity exceeded")
)
