package dgst

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
)

// Native delegates to the platform implementations in the standard library.
type Native struct{}

func nativeNew(alg Algorithm) (func() hash.Hash, error) {
	switch alg {
	case SHA1:
		return sha1.New, nil
	case SHA256:
		return sha256.New, nil
	case SHA384:
		return sha512.New384, nil
	case SHA512:
		return sha512.New, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, alg)
}

func (Native) New(alg Algorithm) (hash.Hash, error) {
	f, err := nativeNew(alg)
	if err != nil {
		return nil, err
	}
	return f(), nil
}

func (Native) Sum(alg Algorithm, data []byte) ([]byte, error) {
	f, err := nativeNew(alg)
	if err != nil {
		return nil, err
	}
	h := f()
	h.Write(data)
	return h.Sum(nil), nil
}

func (Native) NewHMAC(alg Algorithm, key []byte) (KeyedMAC, error) {
	f, err := nativeNew(alg)
	if err != nil {
		return nil, err
	}
	// crypto/hmac precomputes the padded key states on New; Reset restores
	// them, so reuse across Sum calls matches the software context cost
	return &nativeHMAC{h: hmac.New(f, key)}, nil
}

type nativeHMAC struct {
	h hash.Hash
}

func (m *nativeHMAC) Size() int { return m.h.Size() }

func (m *nativeHMAC) Sum(message []byte) []byte {
	m.h.Reset()
	m.h.Write(message)
	return m.h.Sum(nil)
}
