package blockcipher

import (
	"bytes"
	"crypto/cipher"
	"encoding/hex"
	"errors"
	"testing"
)

func fromHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex: %v", err)
	}
	return b
}

func TestDESBlock(t *testing.T) {
	// FIPS 46 walkthrough vector
	c, err := NewDES(fromHex(t, "133457799bbcdff1"))
	if err != nil {
		t.Fatal(err)
	}
	pt := fromHex(t, "0123456789abcdef")
	want := fromHex(t, "85e813540f0ab405")

	ct := make([]byte, 8)
	c.Encrypt(ct, pt)
	if !bytes.Equal(ct, want) {
		t.Errorf("Encrypt = %x, want %x", ct, want)
	}

	back := make([]byte, 8)
	c.Decrypt(back, ct)
	if !bytes.Equal(back, pt) {
		t.Errorf("Decrypt = %x, want %x", back, pt)
	}
}

func TestTripleDESDegenerate(t *testing.T) {
	// K1 = K2 = K3 must collapse to single DES
	key := fromHex(t, "133457799bbcdff1")
	single, _ := NewDES(key)
	triple, err := NewTripleDES(append(append(append([]byte{}, key...), key...), key...))
	if err != nil {
		t.Fatal(err)
	}

	pt := fromHex(t, "0123456789abcdef")
	a := make([]byte, 8)
	b := make([]byte, 8)
	single.Encrypt(a, pt)
	triple.Encrypt(b, pt)
	if !bytes.Equal(a, b) {
		t.Errorf("EDE with equal keys = %x, single DES = %x", b, a)
	}
}

func TestTripleDESKeySizes(t *testing.T) {
	if _, err := NewTripleDES(make([]byte, 24)); err != nil {
		t.Errorf("24-byte key rejected: %v", err)
	}
	if _, err := NewTripleDES(make([]byte, 16)); err != nil {
		t.Errorf("16-byte key rejected: %v", err)
	}
	for _, n := range []int{0, 8, 15, 23, 32} {
		if _, err := NewTripleDES(make([]byte, n)); !errors.Is(err, ErrKeySize) {
			t.Errorf("%d-byte key: got %v, want ErrKeySize", n, err)
		}
	}
}

func TestRC2Block(t *testing.T) {
	// RFC 2268 §5 vectors
	tests := []struct {
		key           string
		effectiveBits int
		plain, cipher string
	}{
		{"0000000000000000", 63, "0000000000000000", "ebb773f993278eff"},
		{"ffffffffffffffff", 64, "ffffffffffffffff", "278b27e42e2f0d49"},
		{"3000000000000000", 64, "1000000000000001", "30649edf9be7d2c2"},
		{"88", 64, "0000000000000000", "61a8a244adacccf0"},
		{"88bca90e90875a", 64, "0000000000000000", "6ccf4308974c267f"},
		{"88bca90e90875a7f0f79c384627bafb2", 64, "0000000000000000", "1a807d272bbe5db1"},
		{"88bca90e90875a7f0f79c384627bafb2", 128, "0000000000000000", "2269552ab0f85ca6"},
	}
	for _, tc := range tests {
		c, err := NewRC2(fromHex(t, tc.key), tc.effectiveBits)
		if err != nil {
			t.Fatalf("NewRC2(%s/%d): %v", tc.key, tc.effectiveBits, err)
		}
		got := make([]byte, 8)
		c.Encrypt(got, fromHex(t, tc.plain))
		if hex.EncodeToString(got) != tc.cipher {
			t.Errorf("RC2(%s/%d) = %x, want %s", tc.key, tc.effectiveBits, got, tc.cipher)
		}
		back := make([]byte, 8)
		c.Decrypt(back, got)
		if hex.EncodeToString(back) != tc.plain {
			t.Errorf("RC2 decrypt(%s/%d) = %x, want %s", tc.key, tc.effectiveBits, back, tc.plain)
		}
	}
}

func TestRC2ByteAlignedEffectiveLengths(t *testing.T) {
	// byte-aligned effective lengths hit the tm mask edge case in key
	// expansion; 40 and 128 are the two lengths the PBE OIDs use
	for _, bits := range []int{8, 40, 64, 128, 1024} {
		if _, err := NewRC2(make([]byte, 16), bits); err != nil {
			t.Errorf("NewRC2(16 bytes, %d bits): %v", bits, err)
		}
	}
}

// Ciphertexts produced with openssl enc over the same key, IV and
// plaintext, PKCS#7 padded.
func TestCBCDecrypt(t *testing.T) {
	iv := fromHex(t, "0102030405060708")
	plain := []byte("The quick brown fox.")

	tests := []struct {
		name   string
		block  func() (cipher.Block, error)
		cipher string
	}{
		{"3des-3key", func() (cipher.Block, error) {
			return NewTripleDES(fromHex(t, "0123456789abcdeffedcba98765432240011223344556677"))
		}, "aa3a8993d2d50cafc8fd89147d7031adb5525c1d0c0a506b"},
		{"3des-2key", func() (cipher.Block, error) {
			return NewTripleDES(fromHex(t, "0123456789abcdeffedcba9876543224"))
		}, "5cd3d32fc89ed279de6b04ddc3cb39a1afa1a4b8d4bf12be"},
		{"rc2-40", func() (cipher.Block, error) {
			return NewRC2(fromHex(t, "88bca90e90"), 40)
		}, "a12d8b5d8716b42ebf01de2e5ccd2e7d25a81a99bec507ed"},
		{"rc2-128", func() (cipher.Block, error) {
			return NewRC2(fromHex(t, "88bca90e90875a7f0f79c384627bafb2"), 128)
		}, "3142a38c2a9ad374414cd7b624759e656deb6ec0ee792a30"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			block, err := tc.block()
			if err != nil {
				t.Fatal(err)
			}
			got, err := CBCDecrypt(block, iv, fromHex(t, tc.cipher))
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, plain) {
				t.Errorf("plaintext = %q, want %q", got, plain)
			}
		})
	}
}

func TestCBCDecryptRejectsBadInput(t *testing.T) {
	block, _ := NewDES(make([]byte, 8))
	if _, err := CBCDecrypt(block, make([]byte, 7), make([]byte, 8)); !errors.Is(err, ErrKeySize) {
		t.Errorf("short IV: got %v", err)
	}
	if _, err := CBCDecrypt(block, make([]byte, 8), make([]byte, 12)); !errors.Is(err, ErrNotBlockAligned) {
		t.Errorf("ragged ciphertext: got %v", err)
	}
	if _, err := CBCDecrypt(block, make([]byte, 8), nil); !errors.Is(err, ErrNotBlockAligned) {
		t.Errorf("empty ciphertext: got %v", err)
	}
}

func TestRemovePadding(t *testing.T) {
	good := append([]byte("payload"), 1)
	out, err := RemovePadding(good, 8)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "payload" {
		t.Errorf("unpadded = %q", out)
	}

	full := bytes.Repeat([]byte{8}, 8)
	out, err = RemovePadding(full, 8)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Errorf("full padding block should unpad to empty, got %d bytes", len(out))
	}

	bad := [][]byte{
		append([]byte("payload"), 0),                // zero length byte
		append([]byte("payload"), 9),                // beyond block size
		append([]byte("payloa"), 3, 2),              // inconsistent bytes
		{1, 2, 3},                                   // not block aligned
	}
	for _, in := range bad {
		if _, err := RemovePadding(in, 8); err == nil {
			t.Errorf("RemovePadding(%x) should fail", in)
		}
	}
}
