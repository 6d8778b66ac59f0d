package blockcipher

import (
	"crypto/cipher"
	"encoding/binary"
	"fmt"
)

// Bit positions in the FIPS 46-3 tables are 1-based from the MSB.
var desInitialPermutation = [64]byte{
	58, 50, 42, 34, 26, 18, 10, 2, 60, 52, 44, 36, 28, 20, 12, 4,
	62, 54, 46, 38, 30, 22, 14, 6, 64, 56, 48, 40, 32, 24, 16, 8,
	57, 49, 41, 33, 25, 17, 9, 1, 59, 51, 43, 35, 27, 19, 11, 3,
	61, 53, 45, 37, 29, 21, 13, 5, 63, 55, 47, 39, 31, 23, 15, 7,
}

var desFinalPermutation = [64]byte{
	40, 8, 48, 16, 56, 24, 64, 32, 39, 7, 47, 15, 55, 23, 63, 31,
	38, 6, 46, 14, 54, 22, 62, 30, 37, 5, 45, 13, 53, 21, 61, 29,
	36, 4, 44, 12, 52, 20, 60, 28, 35, 3, 43, 11, 51, 19, 59, 27,
	34, 2, 42, 10, 50, 18, 58, 26, 33, 1, 41, 9, 49, 17, 57, 25,
}

var desExpansion = [48]byte{
	32, 1, 2, 3, 4, 5, 4, 5, 6, 7, 8, 9,
	8, 9, 10, 11, 12, 13, 12, 13, 14, 15, 16, 17,
	16, 17, 18, 19, 20, 21, 20, 21, 22, 23, 24, 25,
	24, 25, 26, 27, 28, 29, 28, 29, 30, 31, 32, 1,
}

var desRoundPermutation = [32]byte{
	16, 7, 20, 21, 29, 12, 28, 17, 1, 15, 23, 26, 5, 18, 31, 10,
	2, 8, 24, 14, 32, 27, 3, 9, 19, 13, 30, 6, 22, 11, 4, 25,
}

var desPermutedChoice1 = [56]byte{
	57, 49, 41, 33, 25, 17, 9, 1, 58, 50, 42, 34, 26, 18,
	10, 2, 59, 51, 43, 35, 27, 19, 11, 3, 60, 52, 44, 36,
	63, 55, 47, 39, 31, 23, 15, 7, 62, 54, 46, 38, 30, 22,
	14, 6, 61, 53, 45, 37, 29, 21, 13, 5, 28, 20, 12, 4,
}

var desPermutedChoice2 = [48]byte{
	14, 17, 11, 24, 1, 5, 3, 28, 15, 6, 21, 10,
	23, 19, 12, 4, 26, 8, 16, 7, 27, 20, 13, 2,
	41, 52, 31, 37, 47, 55, 30, 40, 51, 45, 33, 48,
	44, 49, 39, 56, 34, 53, 46, 42, 50, 36, 29, 32,
}

var desKeyRotations = [16]byte{1, 1, 2, 2, 2, 2, 2, 2, 1, 2, 2, 2, 2, 2, 2, 1}

var desSBoxes = [8][64]byte{
	{14, 4, 13, 1, 2, 15, 11, 8, 3, 10, 6, 12, 5, 9, 0, 7,
		0, 15, 7, 4, 14, 2, 13, 1, 10, 6, 12, 11, 9, 5, 3, 8,
		4, 1, 14, 8, 13, 6, 2, 11, 15, 12, 9, 7, 3, 10, 5, 0,
		15, 12, 8, 2, 4, 9, 1, 7, 5, 11, 3, 14, 10, 0, 6, 13},
	{15, 1, 8, 14, 6, 11, 3, 4, 9, 7, 2, 13, 12, 0, 5, 10,
		3, 13, 4, 7, 15, 2, 8, 14, 12, 0, 1, 10, 6, 9, 11, 5,
		0, 14, 7, 11, 10, 4, 13, 1, 5, 8, 12, 6, 9, 3, 2, 15,
		13, 8, 10, 1, 3, 15, 4, 2, 11, 6, 7, 12, 0, 5, 14, 9},
	{10, 0, 9, 14, 6, 3, 15, 5, 1, 13, 12, 7, 11, 4, 2, 8,
		13, 7, 0, 9, 3, 4, 6, 10, 2, 8, 5, 14, 12, 11, 15, 1,
		13, 6, 4, 9, 8, 15, 3, 0, 11, 1, 2, 12, 5, 10, 14, 7,
		1, 10, 13, 0, 6, 9, 8, 7, 4, 15, 14, 3, 11, 5, 2, 12},
	{7, 13, 14, 3, 0, 6, 9, 10, 1, 2, 8, 5, 11, 12, 4, 15,
		13, 8, 11, 5, 6, 15, 0, 3, 4, 7, 2, 12, 1, 10, 14, 9,
		10, 6, 9, 0, 12, 11, 7, 13, 15, 1, 3, 14, 5, 2, 8, 4,
		3, 15, 0, 6, 10, 1, 13, 8, 9, 4, 5, 11, 12, 7, 2, 14},
	{2, 12, 4, 1, 7, 10, 11, 6, 8, 5, 3, 15, 13, 0, 14, 9,
		14, 11, 2, 12, 4, 7, 13, 1, 5, 0, 15, 10, 3, 9, 8, 6,
		4, 2, 1, 11, 10, 13, 7, 8, 15, 9, 12, 5, 6, 3, 0, 14,
		11, 8, 12, 7, 1, 14, 2, 13, 6, 15, 0, 9, 10, 4, 5, 3},
	{12, 1, 10, 15, 9, 2, 6, 8, 0, 13, 3, 4, 14, 7, 5, 11,
		10, 15, 4, 2, 7, 12, 9, 5, 6, 1, 13, 14, 0, 11, 3, 8,
		9, 14, 15, 5, 2, 8, 12, 3, 7, 0, 4, 10, 1, 13, 11, 6,
		4, 3, 2, 12, 9, 5, 15, 10, 11, 14, 1, 7, 6, 0, 8, 13},
	{4, 11, 2, 14, 15, 0, 8, 13, 3, 12, 9, 7, 5, 10, 6, 1,
		13, 0, 11, 7, 4, 9, 1, 10, 14, 3, 5, 12, 2, 15, 8, 6,
		1, 4, 11, 13, 12, 3, 7, 14, 10, 15, 6, 8, 0, 5, 9, 2,
		6, 11, 13, 8, 1, 4, 10, 7, 9, 5, 0, 15, 14, 2, 3, 12},
	{13, 2, 8, 4, 6, 15, 11, 1, 10, 9, 3, 14, 5, 0, 12, 7,
		1, 15, 13, 8, 10, 3, 7, 4, 12, 5, 6, 11, 0, 14, 9, 2,
		7, 11, 4, 1, 9, 12, 14, 2, 0, 6, 10, 13, 15, 3, 5, 8,
		2, 1, 14, 7, 4, 10, 8, 13, 15, 12, 9, 0, 3, 5, 6, 11},
}

// desPermute applies a 1-based bit selection table to a value of
// inBits significant bits.
func desPermute(v uint64, table []byte, inBits uint) uint64 {
	var out uint64
	for _, pos := range table {
		out = out<<1 | (v>>(inBits-uint(pos)))&1
	}
	return out
}

func desSubkeys(key []byte) [16]uint64 {
	k56 := desPermute(binary.BigEndian.Uint64(key), desPermutedChoice1[:], 64)
	c := uint32(k56>>28) & 0x0fffffff
	d := uint32(k56) & 0x0fffffff

	var subkeys [16]uint64
	for i, rot := range desKeyRotations {
		c = (c<<rot | c>>(28-rot)) & 0x0fffffff
		d = (d<<rot | d>>(28-rot)) & 0x0fffffff
		subkeys[i] = desPermute(uint64(c)<<28|uint64(d), desPermutedChoice2[:], 56)
	}
	return subkeys
}

func desFeistel(r uint32, k48 uint64) uint32 {
	x := desPermute(uint64(r), desExpansion[:], 32) ^ k48
	var out uint32
	for i := 0; i < 8; i++ {
		six := (x >> (42 - 6*uint(i))) & 0x3f
		row := (six>>4)&2 | six&1
		col := (six >> 1) & 0xf
		out = out<<4 | uint32(desSBoxes[i][row*16+col])
	}
	return uint32(desPermute(uint64(out), desRoundPermutation[:], 32))
}

// desBlock runs the 16 Feistel rounds. Decryption uses the same walk
// with the subkey order reversed.
func desBlock(block uint64, subkeys *[16]uint64, decrypt bool) uint64 {
	b := desPermute(block, desInitialPermutation[:], 64)
	l, r := uint32(b>>32), uint32(b)
	for i := 0; i < 16; i++ {
		k := subkeys[i]
		if decrypt {
			k = subkeys[15-i]
		}
		l, r = r, l^desFeistel(r, k)
	}
	// the halves swap once more before the final permutation
	return desPermute(uint64(r)<<32|uint64(l), desFinalPermutation[:], 64)
}

type desCipher struct {
	subkeys [16]uint64
}

// NewDES returns a single-DES cipher.Block for an 8-byte key. Parity
// bits are ignored, as every PKCS#12 producer does.
func NewDES(key []byte) (cipher.Block, error) {
	if len(key) != 8 {
		return nil, fmt.Errorf("%w: DES wants 8 bytes, got %d", ErrKeySize, len(key))
	}
	return &desCipher{subkeys: desSubkeys(key)}, nil
}

func (c *desCipher) BlockSize() int { return 8 }

func (c *desCipher) Encrypt(dst, src []byte) {
	binary.BigEndian.PutUint64(dst, desBlock(binary.BigEndian.Uint64(src), &c.subkeys, false))
}

func (c *desCipher) Decrypt(dst, src []byte) {
	binary.BigEndian.PutUint64(dst, desBlock(binary.BigEndian.Uint64(src), &c.subkeys, true))
}

type tripleDESCipher struct {
	k1, k2, k3 [16]uint64
}

// NewTripleDES returns an EDE cipher.Block. A 24-byte key selects
// three-key operation, a 16-byte key the two-key form with K3 = K1.
func NewTripleDES(key []byte) (cipher.Block, error) {
	switch len(key) {
	case 24:
		return &tripleDESCipher{
			k1: desSubkeys(key[:8]),
			k2: desSubkeys(key[8:16]),
			k3: desSubkeys(key[16:24]),
		}, nil
	case 16:
		k1 := desSubkeys(key[:8])
		return &tripleDESCipher{
			k1: k1,
			k2: desSubkeys(key[8:16]),
			k3: k1,
		}, nil
	}
	return nil, fmt.Errorf("%w: triple DES wants 16 or 24 bytes, got %d", ErrKeySize, len(key))
}

func (c *tripleDESCipher) BlockSize() int { return 8 }

func (c *tripleDESCipher) Encrypt(dst, src []byte) {
	b := desBlock(binary.BigEndian.Uint64(src), &c.k1, false)
	b = desBlock(b, &c.k2, true)
	binary.BigEndian.PutUint64(dst, desBlock(b, &c.k3, false))
}

func (c *tripleDESCipher) Decrypt(dst, src []byte) {
	b := desBlock(binary.BigEndian.Uint64(src), &c.k3, true)
	b = desBlock(b, &c.k2, false)
	binary.BigEndian.PutUint64(dst, desBlock(b, &c.k1, true))
}
