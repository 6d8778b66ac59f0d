// Package kdf implements the two key derivation functions used by
// password-protected PKCS#12 containers: PBKDF2 (RFC 2898) for PBES2
// and the legacy RFC 7292 Appendix B derivation for the older PBE
// schemes and the container MAC.
package kdf

import "errors"

var (
	ErrInvalidParameters = errors.New("kdf: invalid parameters")
)
