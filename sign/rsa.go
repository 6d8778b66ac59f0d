// Package sign implements the two deterministic signature schemes the
// SignedData builder emits: RSA PKCS#1 v1.5 with a CRT private-key
// operation and ECDSA over P-256/P-384 with RFC 6979 nonces. Both
// produce identical output for identical input, which the builder
// relies on.
package sign

import (
	"fmt"
	"math/big"

	"github.com/docseal/sigkit/dgst"
	"github.com/docseal/sigkit/internal/errdef"
	"github.com/docseal/sigkit/pkcs8"
)

// DER prefixes of the DigestInfo structure per RFC 8017 §9.2, one per
// supported digest. The digest bytes follow the prefix directly.
var digestInfoPrefix = map[dgst.Algorithm][]byte{
	dgst.SHA1: {
		0x30, 0x21, 0x30, 0x09, 0x06, 0x05, 0x2b, 0x0e, 0x03, 0x02,
		0x1a, 0x05, 0x00, 0x04, 0x14,
	},
	dgst.SHA256: {
		0x30, 0x31, 0x30, 0x0d, 0x06, 0x09, 0x60, 0x86, 0x48, 0x01,
		0x65, 0x03, 0x04, 0x02, 0x01, 0x05, 0x00, 0x04, 0x20,
	},
	dgst.SHA384: {
		0x30, 0x41, 0x30, 0x0d, 0x06, 0x09, 0x60, 0x86, 0x48, 0x01,
		0x65, 0x03, 0x04, 0x02, 0x02, 0x05, 0x00, 0x04, 0x30,
	},
	dgst.SHA512: {
		0x30, 0x51, 0x30, 0x0d, 0x06, 0x09, 0x60, 0x86, 0x48, 0x01,
		0x65, 0x03, 0x04, 0x02, 0x03, 0x05, 0x00, 0x04, 0x40,
	},
}

// RSAPKCS1v15 signs an already-computed digest. The digest length
// must match the named algorithm; the padded DigestInfo must leave
// room for the mandatory 11 bytes of padding.
func RSAPKCS1v15(key *pkcs8.RSAKey, alg dgst.Algorithm, digest []byte) ([]byte, error) {
	prefix, ok := digestInfoPrefix[alg]
	if !ok {
		return nil, fmt.Errorf("%w: no DigestInfo prefix for %q", errdef.ErrUnsupportedAlgorithm, alg)
	}
	if len(digest) != alg.Size() {
		return nil, fmt.Errorf("%w: %q digest is %d bytes, got %d",
			errdef.ErrDecode, alg, alg.Size(), len(digest))
	}

	k := key.ModulusSize()
	info := append(append([]byte{}, prefix...), digest...)
	if len(info) > k-11 {
		return nil, fmt.Errorf("%w: DigestInfo is %d bytes, modulus admits %d",
			errdef.ErrCapacity, len(info), k-11)
	}

	// EM = 0x00 0x01 FF.. 0x00 DigestInfo
	em := make([]byte, k)
	em[1] = 0x01
	for i := 2; i < k-len(info)-1; i++ {
		em[i] = 0xff
	}
	copy(em[k-len(info):], info)

	s := rsaCRT(key, new(big.Int).SetBytes(em))
	out := make([]byte, k)
	s.FillBytes(out)
	return out, nil
}

// rsaCRT computes m^d mod n via the Chinese remainder theorem,
// trading one exponentiation at full modulus width for two at half
// width.
func rsaCRT(key *pkcs8.RSAKey, m *big.Int) *big.Int {
	sp := new(big.Int).Exp(m, key.Dp, key.P)
	sq := new(big.Int).Exp(m, key.Dq, key.Q)

	// h = qInv * (sp - sq) mod p; Mod keeps the result non-negative
	h := new(big.Int).Sub(sp, sq)
	h.Mul(h, key.QInv)
	h.Mod(h, key.P)

	return h.Mul(h, key.Q).Add(h, sq)
}
