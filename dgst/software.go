package dgst

import (
	"fmt"
	"hash"
)

// Software is the first-principles backend.
type Software struct{}

func newDigest(alg Algorithm) (digest, error) {
	switch alg {
	case SHA1:
		return newSHA1(), nil
	case SHA256:
		return newSHA256(), nil
	case SHA384:
		return newSHA384(), nil
	case SHA512:
		return newSHA512(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, alg)
}

func (Software) New(alg Algorithm) (hash.Hash, error) {
	return newDigest(alg)
}

func (Software) Sum(alg Algorithm, data []byte) ([]byte, error) {
	d, err := newDigest(alg)
	if err != nil {
		return nil, err
	}
	d.Write(data)
	return d.Sum(nil), nil
}

func (Software) NewHMAC(alg Algorithm, key []byte) (KeyedMAC, error) {
	return newSoftHMAC(alg, key)
}

// softHMAC holds the two half-states of RFC 2104: the compression of the
// ipad-masked key block and of the opad-masked key block. Each Sum clones
// these states instead of re-deriving them, which is what makes the
// per-iteration PRF calls of PBKDF2 affordable.
type softHMAC struct {
	inner digest
	outer digest
	size  int
}

func newSoftHMAC(alg Algorithm, key []byte) (*softHMAC, error) {
	bs := alg.BlockSize()
	if bs == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, alg)
	}
	if len(key) > bs {
		sum, err := Software{}.Sum(alg, key)
		if err != nil {
			return nil, err
		}
		key = sum
	}

	ipad := make([]byte, bs)
	opad := make([]byte, bs)
	copy(ipad, key)
	copy(opad, key)
	for i := range ipad {
		ipad[i] ^= 0x36
		opad[i] ^= 0x5c
	}

	inner, err := newDigest(alg)
	if err != nil {
		return nil, err
	}
	outer, _ := newDigest(alg)
	// exactly one block each: the states captured here are the precomputed
	// HMAC half-states
	inner.Write(ipad)
	outer.Write(opad)

	return &softHMAC{inner: inner, outer: outer, size: alg.Size()}, nil
}

func (m *softHMAC) Size() int { return m.size }

func (m *softHMAC) Sum(message []byte) []byte {
	h := m.inner.clone()
	h.Write(message)
	d := h.Sum(nil)

	o := m.outer.clone()
	o.Write(d)
	return o.Sum(nil)
}
