package sign

import (
	"encoding/asn1"
	"fmt"
	"math/big"

	"github.com/docseal/sigkit/dgst"
	"github.com/docseal/sigkit/internal/errdef"
	"github.com/docseal/sigkit/pkcs8"
)

// a nonce stream this long means the DRBG is broken, not unlucky
const maxNonceAttempts = 100

type ecdsaSignature struct {
	R, S *big.Int
}

// ECDSA signs an already-computed digest and returns the DER
// SEQUENCE{r, s} encoding. The curve comes from the key's OID; the
// digest algorithm seeds the RFC 6979 nonce stream, so identical
// inputs always produce identical signatures.
func ECDSA(backend dgst.Backend, key *pkcs8.ECKey, alg dgst.Algorithm, digest []byte) ([]byte, error) {
	curve, err := curveByOID(key.Curve)
	if err != nil {
		return nil, err
	}
	if key.D.Sign() <= 0 || key.D.Cmp(curve.n) >= 0 {
		return nil, fmt.Errorf("%w: private scalar outside [1, n-1]", errdef.ErrDecode)
	}

	e := hashToInt(digest, curve.n)
	drbg, err := newNonceStream(backend, alg, curve, key.D, digest)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxNonceAttempts; attempt++ {
		k, err := drbg.next()
		if err != nil {
			return nil, err
		}

		x := curve.scalarBaseMult(k)
		if x == nil {
			continue
		}
		r := x.Mod(x, curve.n)
		if r.Sign() == 0 {
			continue
		}

		// s = k⁻¹ (e + r·d) mod n
		s := new(big.Int).Mul(r, key.D)
		s.Add(s, e)
		kInv := new(big.Int).ModInverse(k, curve.n)
		s.Mul(s, kInv)
		s.Mod(s, curve.n)
		if s.Sign() == 0 {
			continue
		}

		der, err := asn1.Marshal(ecdsaSignature{R: r, S: s})
		if err != nil {
			return nil, fmt.Errorf("sign: encoding signature: %w", err)
		}
		return der, nil
	}
	return nil, fmt.Errorf("sign: no valid nonce after %d attempts", maxNonceAttempts)
}

// CurveDigest returns the digest algorithm conventionally paired with
// the key's curve (SHA-256 for P-256, SHA-384 for P-384).
func CurveDigest(key *pkcs8.ECKey) (dgst.Algorithm, error) {
	curve, err := curveByOID(key.Curve)
	if err != nil {
		return "", err
	}
	return curve.hash, nil
}

// hashToInt truncates a digest to the bit length of n, per SEC 1 §4.1.3.
func hashToInt(digest []byte, n *big.Int) *big.Int {
	qlen := n.BitLen()
	v := new(big.Int).SetBytes(digest)
	if excess := len(digest)*8 - qlen; excess > 0 {
		v.Rsh(v, uint(excess))
	}
	return v
}

// nonceStream is the HMAC-DRBG of RFC 6979 §3.2, seeded from the
// private scalar and the message digest. Each next() yields a
// candidate k in [1, n-1]; rejected candidates advance the stream per
// §3.2h3 so retries stay deterministic.
type nonceStream struct {
	backend dgst.Backend
	alg     dgst.Algorithm
	curve   *curveParams
	k, v    []byte
}

func newNonceStream(backend dgst.Backend, alg dgst.Algorithm, curve *curveParams, d *big.Int, digest []byte) (*nonceStream, error) {
	hlen := alg.Size()
	if hlen == 0 {
		return nil, fmt.Errorf("%w: %q", dgst.ErrUnknownAlgorithm, alg)
	}

	s := &nonceStream{
		backend: backend,
		alg:     alg,
		curve:   curve,
		k:       make([]byte, hlen),
		v:       make([]byte, hlen),
	}
	for i := range s.v {
		s.v[i] = 0x01
	}

	seed := make([]byte, 0, 2*curve.byteLen)
	seed = append(seed, s.int2octets(d)...)
	seed = append(seed, s.bits2octets(digest)...)

	if err := s.update(append(append(append([]byte{}, s.v...), 0x00), seed...)); err != nil {
		return nil, err
	}
	if err := s.update(append(append(append([]byte{}, s.v...), 0x01), seed...)); err != nil {
		return nil, err
	}
	return s, nil
}

// update runs one K/V ratchet: K = HMAC(K, data), V = HMAC(K, V).
func (s *nonceStream) update(data []byte) error {
	mac, err := s.backend.NewHMAC(s.alg, s.k)
	if err != nil {
		return err
	}
	s.k = mac.Sum(data)
	mac, err = s.backend.NewHMAC(s.alg, s.k)
	if err != nil {
		return err
	}
	s.v = mac.Sum(s.v)
	return nil
}

func (s *nonceStream) next() (*big.Int, error) {
	for {
		var t []byte
		for len(t) < s.curve.byteLen {
			mac, err := s.backend.NewHMAC(s.alg, s.k)
			if err != nil {
				return nil, err
			}
			s.v = mac.Sum(s.v)
			t = append(t, s.v...)
		}
		k := s.bits2int(t)
		if k.Sign() > 0 && k.Cmp(s.curve.n) < 0 {
			return k, nil
		}
		if err := s.update(append(append([]byte{}, s.v...), 0x00)); err != nil {
			return nil, err
		}
	}
}

func (s *nonceStream) bits2int(b []byte) *big.Int {
	return hashToInt(b, s.curve.n)
}

func (s *nonceStream) int2octets(v *big.Int) []byte {
	out := make([]byte, s.curve.byteLen)
	v.FillBytes(out)
	return out
}

func (s *nonceStream) bits2octets(b []byte) []byte {
	z := s.bits2int(b)
	z.Mod(z, s.curve.n)
	return s.int2octets(z)
}
