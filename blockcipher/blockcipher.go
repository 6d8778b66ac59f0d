// Package blockcipher provides the legacy block ciphers needed to
// decrypt PKCS#12 payloads: DES / triple-DES (EDE) and RC2. Both
// implement crypto/cipher.Block, so CBC decryption runs through the
// same code path as AES from the standard library.
package blockcipher

import (
	"crypto/cipher"
	"errors"
	"fmt"
)

var (
	ErrKeySize         = errors.New("blockcipher: invalid key size")
	ErrNotBlockAligned = errors.New("blockcipher: input is not a multiple of the block size")
	ErrInvalidPadding  = errors.New("blockcipher: invalid PKCS#7 padding")
)

// CBCDecrypt decrypts ciphertext in CBC mode and strips the PKCS#7
// padding. The ciphertext must be a whole number of blocks and at
// least one block long, since the padding always occupies part of the
// final block.
func CBCDecrypt(block cipher.Block, iv, ciphertext []byte) ([]byte, error) {
	bs := block.BlockSize()
	if len(iv) != bs {
		return nil, fmt.Errorf("%w: IV is %d bytes, block size is %d", ErrKeySize, len(iv), bs)
	}
	if len(ciphertext) == 0 || len(ciphertext)%bs != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrNotBlockAligned, len(ciphertext))
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	return RemovePadding(plaintext, bs)
}

// RemovePadding validates and strips PKCS#7 padding. Every padding
// byte must equal the padding length, which must be in [1, blockSize].
func RemovePadding(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrNotBlockAligned, len(data))
	}
	padLen := int(data[len(data)-1])
	if padLen < 1 || padLen > blockSize {
		return nil, fmt.Errorf("%w: length byte %d", ErrInvalidPadding, padLen)
	}
	for _, b := range data[len(data)-padLen:] {
		if b != byte(padLen) {
			return nil, ErrInvalidPadding
		}
	}
	return data[:len(data)-padLen], nil
}
