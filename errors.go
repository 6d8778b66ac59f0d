package sigkit

import "github.com/docseal/sigkit/internal/errdef"

// The five error categories every subpackage error wraps. Callers
// match them with errors.Is regardless of which layer failed.
var (
	// ErrDecode reports malformed or truncated ASN.1 input.
	ErrDecode = errdef.ErrDecode

	// ErrUnsupportedAlgorithm reports an unknown digest, cipher,
	// curve or PRF identifier.
	ErrUnsupportedAlgorithm = errdef.ErrUnsupportedAlgorithm

	// ErrAuthentication reports a MAC mismatch or implausible
	// decryption result. The two causes cannot be told apart, so the
	// message never tries to.
	ErrAuthentication = errdef.ErrAuthentication

	// ErrStructure reports a well-formed input whose contents violate
	// the expected shape: missing certificate or key, unsupported
	// container version, invalid padding.
	ErrStructure = errdef.ErrStructure

	// ErrCapacity reports a message too large for the RSA modulus.
	ErrCapacity = errdef.ErrCapacity
)
