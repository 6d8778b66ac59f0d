package cms

import (
	"encoding/asn1"
	"fmt"
	"math/big"

	"crypto/x509/pkix"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/docseal/sigkit/dgst"
	"github.com/docseal/sigkit/internal/errdef"
	"github.com/docseal/sigkit/pkcs8"
	"github.com/docseal/sigkit/sign"
)

// BuildSignedData assembles a CMS ContentInfo carrying one SignedData
// with a single SignerInfo. The authenticated attributes are encoded
// once as a canonical DER SET OF; the signature covers those bytes
// and the identical bytes, re-tagged [0] IMPLICIT, are what the
// output embeds. The whole construction is deterministic.
func BuildSignedData(req SignRequest, opts SignerOptions) ([]byte, error) {
	backend := opts.Backend
	if backend == nil {
		backend = dgst.DefaultBackend
	}
	if len(req.Leaf) == 0 {
		return nil, fmt.Errorf("%w: request carries no signer certificate", errdef.ErrStructure)
	}

	signer, err := newAttrSigner(backend, req.Key, req.Digest)
	if err != nil {
		return nil, err
	}

	contentDigest, err := backend.Sum(signer.alg, req.Content)
	if err != nil {
		return nil, err
	}

	setBytes, err := marshalAttributeSet(contentDigest, req.Attributes)
	if err != nil {
		return nil, err
	}
	attrDigest, err := backend.Sum(signer.alg, setBytes)
	if err != nil {
		return nil, err
	}
	signature, err := signer.sign(attrDigest)
	if err != nil {
		return nil, err
	}

	issuer, serial, err := issuerAndSerialNumber(req.Leaf)
	if err != nil {
		return nil, err
	}

	oid, err := digestOID(signer.alg)
	if err != nil {
		return nil, err
	}
	digestAlg := pkix.AlgorithmIdentifier{Algorithm: oid, Parameters: asn1.NullRawValue}

	si := signerInfo{
		Version:            1,
		SID:                issuerAndSerial{Issuer: issuer, Serial: serial},
		DigestAlgorithm:    digestAlg,
		SignedAttrs:        asn1.RawValue{FullBytes: retag(setBytes, tagImplicit0)},
		SignatureAlgorithm: signer.sigAlg,
		Signature:          signature,
	}

	eci, err := buildEncapContentInfo(req.Content, req.Detached)
	if err != nil {
		return nil, err
	}

	sd := signedData{
		Version:          1,
		DigestAlgorithms: []pkix.AlgorithmIdentifier{digestAlg},
		EncapContentInfo: eci,
		Certificates:     certificateSet(req.Leaf, req.Chain),
		SignerInfos:      []signerInfo{si},
	}
	return marshalContentInfo(sd)
}

// attrSigner pairs the resolved digest algorithm with the key-specific
// signing operation and its AlgorithmIdentifier.
type attrSigner struct {
	alg    dgst.Algorithm
	sigAlg pkix.AlgorithmIdentifier
	sign   func(digest []byte) ([]byte, error)
}

func newAttrSigner(backend dgst.Backend, key any, alg dgst.Algorithm) (*attrSigner, error) {
	switch k := key.(type) {
	case *pkcs8.RSAKey:
		if alg == "" {
			alg = dgst.SHA256
		}
		return &attrSigner{
			alg:    alg,
			sigAlg: pkix.AlgorithmIdentifier{Algorithm: oidRSAEncryption, Parameters: asn1.NullRawValue},
			sign: func(digest []byte) ([]byte, error) {
				return sign.RSAPKCS1v15(k, alg, digest)
			},
		}, nil

	case *pkcs8.ECKey:
		if alg == "" {
			var err error
			alg, err = sign.CurveDigest(k)
			if err != nil {
				return nil, err
			}
		}
		oid, err := ecdsaSignatureOID(alg)
		if err != nil {
			return nil, err
		}
		return &attrSigner{
			alg:    alg,
			sigAlg: pkix.AlgorithmIdentifier{Algorithm: oid},
			sign: func(digest []byte) ([]byte, error) {
				return sign.ECDSA(backend, k, alg, digest)
			},
		}, nil
	}
	return nil, fmt.Errorf("%w: cannot sign with a %T", errdef.ErrUnsupportedAlgorithm, key)
}

// marshalAttributeSet encodes the mandatory contentType and
// messageDigest attributes plus any custom ones as a DER SET OF. The
// encoder sorts the set canonically, so the returned bytes are the
// signing input.
func marshalAttributeSet(contentDigest []byte, custom []Attribute) ([]byte, error) {
	attrs := make([]attribute, 0, 2+len(custom))

	ct, err := wrapAttributeValue(oidData)
	if err != nil {
		return nil, err
	}
	attrs = append(attrs, attribute{Type: oidAttrContentType, Values: ct})

	md, err := wrapAttributeValue(contentDigest)
	if err != nil {
		return nil, err
	}
	attrs = append(attrs, attribute{Type: oidAttrMessageDigest, Values: md})

	for _, a := range custom {
		if a.Type.Equal(oidAttrContentType) || a.Type.Equal(oidAttrMessageDigest) {
			return nil, fmt.Errorf("%w: attribute %v is built in", errdef.ErrStructure, a.Type)
		}
		v, err := wrapAttributeValue(a.Value)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attribute{Type: a.Type, Values: v})
	}

	setBytes, err := asn1.MarshalWithParams(attrs, "set")
	if err != nil {
		return nil, fmt.Errorf("marshaling authenticated attributes: %w", err)
	}
	return setBytes, nil
}

// wrapAttributeValue encodes one attribute value inside the SET OF
// wrapper the AttributeValue syntax requires.
func wrapAttributeValue(value any) (asn1.RawValue, error) {
	inner, err := asn1.Marshal(value)
	if err != nil {
		return asn1.RawValue{}, fmt.Errorf("marshaling attribute value: %w", err)
	}
	wrapped, err := asn1.Marshal(asn1.RawValue{
		Tag:        asn1.TagSet,
		IsCompound: true,
		Bytes:      inner,
	})
	if err != nil {
		return asn1.RawValue{}, err
	}
	return asn1.RawValue{FullBytes: wrapped}, nil
}

// issuerAndSerialNumber pulls the issuer Name and serial out of a DER
// certificate. Only the outer shape of the TBSCertificate is walked;
// the certificate is otherwise treated as opaque.
func issuerAndSerialNumber(certDER []byte) (asn1.RawValue, *big.Int, error) {
	input := cryptobyte.String(certDER)
	var cert, tbs cryptobyte.String
	if !input.ReadASN1(&cert, cryptobyte_asn1.SEQUENCE) ||
		!cert.ReadASN1(&tbs, cryptobyte_asn1.SEQUENCE) {
		return asn1.RawValue{}, nil, fmt.Errorf("%w: reading certificate", errdef.ErrDecode)
	}

	// version [0] EXPLICIT is optional
	versionTag := cryptobyte_asn1.Tag(0).Constructed().ContextSpecific()
	if tbs.PeekASN1Tag(versionTag) {
		if !tbs.SkipASN1(versionTag) {
			return asn1.RawValue{}, nil, fmt.Errorf("%w: reading certificate version", errdef.ErrDecode)
		}
	}

	serial := new(big.Int)
	if !tbs.ReadASN1Integer(serial) {
		return asn1.RawValue{}, nil, fmt.Errorf("%w: reading certificate serial", errdef.ErrDecode)
	}
	if !tbs.SkipASN1(cryptobyte_asn1.SEQUENCE) {
		return asn1.RawValue{}, nil, fmt.Errorf("%w: reading certificate signature algorithm", errdef.ErrDecode)
	}
	var issuer cryptobyte.String
	if !tbs.ReadASN1Element(&issuer, cryptobyte_asn1.SEQUENCE) {
		return asn1.RawValue{}, nil, fmt.Errorf("%w: reading certificate issuer", errdef.ErrDecode)
	}
	return asn1.RawValue{FullBytes: []byte(issuer)}, serial, nil
}

// buildEncapContentInfo wraps the content as [0] EXPLICIT OCTET
// STRING, or leaves it out in detached mode.
func buildEncapContentInfo(content []byte, detached bool) (encapContentInfo, error) {
	eci := encapContentInfo{ContentType: oidData}
	if detached {
		return eci, nil
	}
	octets, err := asn1.Marshal(content)
	if err != nil {
		return encapContentInfo{}, err
	}
	wrapped, err := asn1.Marshal(asn1.RawValue{
		Class:      asn1.ClassContextSpecific,
		Tag:        0,
		IsCompound: true,
		Bytes:      octets,
	})
	if err != nil {
		return encapContentInfo{}, err
	}
	eci.Content = asn1.RawValue{FullBytes: wrapped}
	return eci, nil
}

// certificateSet builds the certificates [0] IMPLICIT field: the tag
// replaces the SET tag, the certificate encodings follow back to
// back.
func certificateSet(leaf []byte, chain [][]byte) asn1.RawValue {
	var body []byte
	body = append(body, leaf...)
	for _, c := range chain {
		body = append(body, c...)
	}
	return asn1.RawValue{
		Class:      asn1.ClassContextSpecific,
		Tag:        0,
		IsCompound: true,
		Bytes:      body,
	}
}

// marshalContentInfo wraps the SignedData in its ContentInfo. The [0]
// EXPLICIT wrapper is built by hand because the encoder writes
// RawValue FullBytes verbatim, ignoring tagging annotations.
func marshalContentInfo(sd signedData) ([]byte, error) {
	sdBytes, err := asn1.Marshal(sd)
	if err != nil {
		return nil, fmt.Errorf("marshaling SignedData: %w", err)
	}
	wrapped, err := asn1.Marshal(asn1.RawValue{
		Class:      asn1.ClassContextSpecific,
		Tag:        0,
		IsCompound: true,
		Bytes:      sdBytes,
	})
	if err != nil {
		return nil, err
	}
	return asn1.Marshal(contentInfo{
		ContentType: oidSignedData,
		Content:     asn1.RawValue{FullBytes: wrapped},
	})
}
