package kdf

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"hash"

	"golang.org/x/crypto/pbkdf2"

	"github.com/docseal/sigkit/dgst"
)

// PBKDF2 derives keyLen bytes from password and salt per RFC 2898,
// using HMAC over the given digest algorithm as PRF. The native
// backend delegates to golang.org/x/crypto/pbkdf2; any other backend
// runs the generic construction on its HMAC context.
func PBKDF2(backend dgst.Backend, alg dgst.Algorithm, password, salt []byte, iterations, keyLen int) ([]byte, error) {
	if iterations < 1 {
		return nil, fmt.Errorf("%w: iteration count %d", ErrInvalidParameters, iterations)
	}
	if keyLen < 1 {
		return nil, fmt.Errorf("%w: output length %d", ErrInvalidParameters, keyLen)
	}

	if _, ok := backend.(dgst.Native); ok {
		h, err := nativeHash(alg)
		if err != nil {
			return nil, err
		}
		return pbkdf2.Key(password, salt, iterations, keyLen, h), nil
	}

	mac, err := backend.NewHMAC(alg, password)
	if err != nil {
		return nil, err
	}
	return pbkdf2Generic(mac, salt, iterations, keyLen), nil
}

func nativeHash(alg dgst.Algorithm) (func() hash.Hash, error) {
	switch alg {
	case dgst.SHA1:
		return sha1.New, nil
	case dgst.SHA256:
		return sha256.New, nil
	case dgst.SHA384:
		return sha512.New384, nil
	case dgst.SHA512:
		return sha512.New, nil
	}
	return nil, fmt.Errorf("%w: %q", dgst.ErrUnknownAlgorithm, alg)
}

// pbkdf2Generic builds the output in hLen-sized blocks. Each block is
// the XOR of `iterations` chained PRF outputs, seeded with
// salt || INT_32_BE(blockIndex). The MAC context carries the
// precomputed key state, so the per-iteration cost is two compressions.
func pbkdf2Generic(prf dgst.KeyedMAC, salt []byte, iterations, keyLen int) []byte {
	hLen := prf.Size()
	numBlocks := (keyLen + hLen - 1) / hLen

	dk := make([]byte, 0, numBlocks*hLen)
	var buf [4]byte
	for block := 1; block <= numBlocks; block++ {
		binary.BigEndian.PutUint32(buf[:], uint32(block))
		u := prf.Sum(append(append([]byte{}, salt...), buf[:]...))
		t := append([]byte{}, u...)
		for i := 1; i < iterations; i++ {
			u = prf.Sum(u)
			for j := range t {
				t[j] ^= u[j]
			}
		}
		dk = append(dk, t...)
	}
	return dk[:keyLen]
}
