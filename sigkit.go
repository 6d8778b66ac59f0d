// Package sigkit is a self-contained document signing toolkit. It
// parses password-protected PKCS#12 containers, signs content into
// CMS SignedData structures with RSA PKCS#1 v1.5 or deterministic
// ECDSA, and exposes the underlying digest, KDF and cipher primitives
// through its subpackages.
//
// The package-level functions are thin entry points over the
// subpackages, using default options throughout. Callers needing a
// specific digest backend or request tuning use pkcs12 and cms
// directly.
package sigkit

import (
	"github.com/docseal/sigkit/cms"
	"github.com/docseal/sigkit/dgst"
	"github.com/docseal/sigkit/pkcs12"
)

// Hash digests data with the named algorithm: "sha1", "sha256",
// "sha384" or "sha512".
func Hash(algorithm string, data []byte) ([]byte, error) {
	alg, err := dgst.Parse(algorithm)
	if err != nil {
		return nil, err
	}
	return dgst.Sum(alg, data)
}

// ParseContainer decrypts a PKCS#12 container and returns its leaf
// certificate, private key and chain.
func ParseContainer(data []byte, password string) (*pkcs12.Container, error) {
	return pkcs12.ParseContainer(data, password, pkcs12.Options{})
}

// BuildSignedData signs a request into a DER-encoded CMS ContentInfo.
func BuildSignedData(req cms.SignRequest) ([]byte, error) {
	return cms.BuildSignedData(req, cms.SignerOptions{})
}

// AppendUnauthenticatedAttributes merges attributes into the
// unauthenticated set of an existing SignedData without re-signing.
func AppendUnauthenticatedAttributes(data []byte, attrs []cms.Attribute) ([]byte, error) {
	return cms.AppendUnauthenticatedAttributes(data, attrs)
}
