// Package cms builds CMS (PKCS#7) SignedData structures, RFC 5652.
// The builder signs a canonical DER SET OF authenticated attributes
// and embeds those exact bytes re-tagged as the [0] IMPLICIT
// signedAttrs field, so the signature always covers what is on the
// wire. A second entry point merges unauthenticated attributes into
// an existing SignedData without touching the signature.
package cms

import (
	"encoding/asn1"
	"fmt"
	"math/big"

	"crypto/x509/pkix"

	"github.com/docseal/sigkit/dgst"
	"github.com/docseal/sigkit/internal/errdef"
)

var (
	oidData       = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 1}
	oidSignedData = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 2}

	oidAttrContentType   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 3}
	oidAttrMessageDigest = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 4}

	oidSHA1   = asn1.ObjectIdentifier{1, 3, 14, 3, 2, 26}
	oidSHA256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}
	oidSHA384 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 2}
	oidSHA512 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 3}

	oidRSAEncryption   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}
	oidECDSAWithSHA256 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 2}
	oidECDSAWithSHA384 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 3}
	oidECDSAWithSHA512 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 4}
)

// SET OF and IMPLICIT [0]/[1] constructed tag bytes. The digest is
// computed over the SET form per RFC 5652 section 5.4; the wire form
// re-tags the identical bytes.
const (
	tagSet       = byte(0x31)
	tagImplicit0 = byte(0xa0)
	tagImplicit1 = byte(0xa1)
)

// Attribute is one CMS attribute: a type OID and a single value. The
// value is DER-marshaled and wrapped in the SET OF the wire format
// requires.
type Attribute struct {
	Type  asn1.ObjectIdentifier
	Value any
}

// SignRequest carries everything one BuildSignedData call needs. Key
// must be a *pkcs8.RSAKey or *pkcs8.ECKey as returned by pkcs8.Parse.
type SignRequest struct {
	// Content is the data being signed. In detached mode it is
	// hashed but not embedded.
	Content []byte

	// Leaf is the signer certificate, DER encoded.
	Leaf []byte

	// Chain holds additional certificates to embed alongside the
	// leaf.
	Chain [][]byte

	// Key signs. RSA keys use PKCS#1 v1.5, EC keys deterministic
	// ECDSA.
	Key any

	// Digest selects the hash. Empty picks SHA-256 for RSA keys and
	// the curve-paired digest for EC keys.
	Digest dgst.Algorithm

	// Attributes are custom authenticated attributes, signed along
	// with the mandatory contentType and messageDigest pair.
	Attributes []Attribute

	// Detached omits the content from the output.
	Detached bool
}

// SignerOptions tunes a BuildSignedData call. The zero value selects
// the native digest backend.
type SignerOptions struct {
	Backend dgst.Backend
}

type contentInfo struct {
	ContentType asn1.ObjectIdentifier
	Content     asn1.RawValue `asn1:"optional"`
}

type encapContentInfo struct {
	ContentType asn1.ObjectIdentifier
	Content     asn1.RawValue `asn1:"optional"`
}

type signedData struct {
	Version          int
	DigestAlgorithms []pkix.AlgorithmIdentifier `asn1:"set"`
	EncapContentInfo encapContentInfo
	Certificates     asn1.RawValue `asn1:"optional"`
	SignerInfos      []signerInfo  `asn1:"set"`
}

type issuerAndSerial struct {
	Issuer asn1.RawValue
	Serial *big.Int
}

type signerInfo struct {
	Version            int
	SID                issuerAndSerial
	DigestAlgorithm    pkix.AlgorithmIdentifier
	SignedAttrs        asn1.RawValue
	SignatureAlgorithm pkix.AlgorithmIdentifier
	Signature          []byte
	UnauthAttrs        asn1.RawValue `asn1:"optional"`
}

type attribute struct {
	Type   asn1.ObjectIdentifier
	Values asn1.RawValue
}

func digestOID(alg dgst.Algorithm) (asn1.ObjectIdentifier, error) {
	switch alg {
	case dgst.SHA1:
		return oidSHA1, nil
	case dgst.SHA256:
		return oidSHA256, nil
	case dgst.SHA384:
		return oidSHA384, nil
	case dgst.SHA512:
		return oidSHA512, nil
	}
	return nil, fmt.Errorf("%w: digest %q", errdef.ErrUnsupportedAlgorithm, alg)
}

// ecdsaSignatureOID pairs the digest with its ecdsa-with-SHA* OID.
// The AlgorithmIdentifier built from it carries no parameters, RFC
// 5758 section 3.2.
func ecdsaSignatureOID(alg dgst.Algorithm) (asn1.ObjectIdentifier, error) {
	switch alg {
	case dgst.SHA256:
		return oidECDSAWithSHA256, nil
	case dgst.SHA384:
		return oidECDSAWithSHA384, nil
	case dgst.SHA512:
		return oidECDSAWithSHA512, nil
	}
	return nil, fmt.Errorf("%w: no ECDSA signature OID for %q", errdef.ErrUnsupportedAlgorithm, alg)
}

// retag copies der and replaces its outermost tag byte. The length
// and contents are untouched, so the result is the same DER value
// under an implicit tag.
func retag(der []byte, tag byte) []byte {
	out := make([]byte, len(der))
	copy(out, der)
	out[0] = tag
	return out
}
