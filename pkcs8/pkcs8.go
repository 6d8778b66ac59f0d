// Package pkcs8 classifies PKCS#8 PrivateKeyInfo structures into the
// two key families the signer supports, exposing the raw arithmetic
// components rather than crypto/rsa or crypto/ecdsa types. The signer
// package consumes these directly for its deterministic private-key
// operations.
package pkcs8

import (
	"encoding/asn1"
	"fmt"
	"math/big"

	"github.com/docseal/sigkit/internal/errdef"
)

var (
	oidRSAEncryption = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}
	oidECPublicKey   = asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}
)

// RSAKey holds the full CRT parameter set of an RSA private key.
type RSAKey struct {
	N    *big.Int
	E    *big.Int
	D    *big.Int
	P    *big.Int
	Q    *big.Int
	Dp   *big.Int
	Dq   *big.Int
	QInv *big.Int
}

// ModulusSize returns the modulus length in bytes.
func (k *RSAKey) ModulusSize() int {
	return (k.N.BitLen() + 7) / 8
}

// ECKey holds an EC private scalar and the OID of its named curve.
// The curve itself is resolved by the signer; an unknown OID must
// surface there as a hard failure, never as a default curve.
type ECKey struct {
	D     *big.Int
	Curve asn1.ObjectIdentifier
}

type privateKeyInfo struct {
	Version    int
	Algorithm  asn1.RawValue
	PrivateKey []byte
}

type algorithmIdentifier struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters asn1.RawValue `asn1:"optional"`
}

type rsaPrivateKey struct {
	Version int
	N       *big.Int
	E       *big.Int
	D       *big.Int
	P       *big.Int
	Q       *big.Int
	Dp      *big.Int
	Dq      *big.Int
	QInv    *big.Int
}

// RFC 5915. The curve normally arrives via the outer algorithm
// parameters; the inner copy is a fallback some producers emit.
type ecPrivateKey struct {
	Version    int
	PrivateKey []byte
	NamedCurve asn1.ObjectIdentifier `asn1:"optional,explicit,tag:0"`
	PublicKey  asn1.BitString        `asn1:"optional,explicit,tag:1"`
}

// Parse decodes a DER PrivateKeyInfo and returns *RSAKey or *ECKey.
func Parse(der []byte) (any, error) {
	var info privateKeyInfo
	if rest, err := asn1.Unmarshal(der, &info); err != nil {
		return nil, fmt.Errorf("%w: PrivateKeyInfo: %v", errdef.ErrDecode, err)
	} else if len(rest) > 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after PrivateKeyInfo", errdef.ErrDecode, len(rest))
	}

	var algo algorithmIdentifier
	if _, err := asn1.Unmarshal(info.Algorithm.FullBytes, &algo); err != nil {
		return nil, fmt.Errorf("%w: AlgorithmIdentifier: %v", errdef.ErrDecode, err)
	}

	switch {
	case algo.Algorithm.Equal(oidRSAEncryption):
		return parseRSA(info.PrivateKey)
	case algo.Algorithm.Equal(oidECPublicKey):
		return parseEC(info.PrivateKey, algo.Parameters)
	}
	return nil, fmt.Errorf("%w: key algorithm %v", errdef.ErrUnsupportedAlgorithm, algo.Algorithm)
}

func parseRSA(der []byte) (*RSAKey, error) {
	var key rsaPrivateKey
	if _, err := asn1.Unmarshal(der, &key); err != nil {
		return nil, fmt.Errorf("%w: RSAPrivateKey: %v", errdef.ErrDecode, err)
	}
	if key.Version != 0 {
		return nil, fmt.Errorf("%w: RSAPrivateKey version %d (multi-prime keys are not supported)",
			errdef.ErrUnsupportedAlgorithm, key.Version)
	}
	return &RSAKey{
		N: key.N, E: key.E, D: key.D,
		P: key.P, Q: key.Q,
		Dp: key.Dp, Dq: key.Dq, QInv: key.QInv,
	}, nil
}

func parseEC(der []byte, params asn1.RawValue) (*ECKey, error) {
	var key ecPrivateKey
	if _, err := asn1.Unmarshal(der, &key); err != nil {
		return nil, fmt.Errorf("%w: ECPrivateKey: %v", errdef.ErrDecode, err)
	}
	if key.Version != 1 {
		return nil, fmt.Errorf("%w: ECPrivateKey version %d", errdef.ErrDecode, key.Version)
	}

	var curve asn1.ObjectIdentifier
	if len(params.FullBytes) > 0 {
		if _, err := asn1.Unmarshal(params.FullBytes, &curve); err != nil {
			return nil, fmt.Errorf("%w: EC curve parameters: %v", errdef.ErrDecode, err)
		}
	} else if key.NamedCurve != nil {
		curve = key.NamedCurve
	} else {
		return nil, fmt.Errorf("%w: EC key names no curve", errdef.ErrDecode)
	}

	return &ECKey{
		D:     new(big.Int).SetBytes(key.PrivateKey),
		Curve: curve,
	}, nil
}
