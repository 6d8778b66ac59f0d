package kdf

import (
	"fmt"
	"math/big"

	"github.com/docseal/sigkit/dgst"
)

// Derivation purposes from RFC 7292 Appendix B: the diversifier byte
// that keeps key, IV and MAC material disjoint for identical inputs.
const (
	PurposeKey = 1
	PurposeIV  = 2
	PurposeMAC = 3
)

var one = big.NewInt(1)

// PKCS12Key derives keyLen bytes of material per RFC 7292 Appendix B.
// The password must already be in BMPString form (see BMPString).
func PKCS12Key(backend dgst.Backend, alg dgst.Algorithm, password, salt []byte, iterations, purpose, keyLen int) ([]byte, error) {
	if iterations < 1 {
		return nil, fmt.Errorf("%w: iteration count %d", ErrInvalidParameters, iterations)
	}
	if keyLen < 1 {
		return nil, fmt.Errorf("%w: output length %d", ErrInvalidParameters, keyLen)
	}

	u := alg.Size()
	v := alg.BlockSize()
	if u == 0 || v == 0 {
		return nil, fmt.Errorf("%w: %q", dgst.ErrUnknownAlgorithm, alg)
	}

	// D is v copies of the purpose byte; S and P are salt and password
	// repeated out to whole v-byte blocks; I = S || P.
	d := make([]byte, v)
	for i := range d {
		d[i] = byte(purpose)
	}
	I := append(repeatToBlocks(salt, v), repeatToBlocks(password, v)...)

	blocks := (keyLen + u - 1) / u
	a := make([]byte, 0, blocks*u)
	for block := 0; block < blocks; block++ {
		ai, err := backend.Sum(alg, append(append([]byte{}, d...), I...))
		if err != nil {
			return nil, err
		}
		for n := 1; n < iterations; n++ {
			ai, err = backend.Sum(alg, ai)
			if err != nil {
				return nil, err
			}
		}
		a = append(a, ai...)

		if block == blocks-1 {
			break
		}
		// B is Ai repeated out to v bytes; each v-byte chunk of I
		// becomes (chunk + B + 1) mod 2^(8v).
		b := new(big.Int).SetBytes(repeatToExactly(ai, v))
		b.Add(b, one)
		chunk := new(big.Int)
		for j := 0; j < len(I); j += v {
			chunk.SetBytes(I[j : j+v])
			chunk.Add(chunk, b)
			raw := chunk.Bytes()
			if len(raw) > v {
				raw = raw[len(raw)-v:]
			}
			for k := j; k < j+v-len(raw); k++ {
				I[k] = 0
			}
			copy(I[j+v-len(raw):], raw)
		}
	}
	return a[:keyLen], nil
}

// BMPString converts a password to the big-endian UTF-16 form with a
// trailing NUL code point that RFC 7292 mandates for key derivation.
// An empty password still carries the terminator.
func BMPString(password string) []byte {
	out := make([]byte, 0, 2*len(password)+2)
	for _, r := range password {
		out = append(out, byte(r>>8), byte(r))
	}
	return append(out, 0, 0)
}

// repeatToBlocks repeats pattern out to v*ceil(len(pattern)/v) bytes.
// An empty pattern contributes nothing, matching the RFC's treatment
// of an absent salt.
func repeatToBlocks(pattern []byte, v int) []byte {
	if len(pattern) == 0 {
		return nil
	}
	return repeatToExactly(pattern, v*((len(pattern)+v-1)/v))
}

func repeatToExactly(pattern []byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = pattern[i%len(pattern)]
	}
	return out
}
