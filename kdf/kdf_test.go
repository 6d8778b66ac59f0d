package kdf

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/docseal/sigkit/dgst"
)

// RFC 6070 (HMAC-SHA1) and RFC 7914 §11 (HMAC-SHA256) vectors.
func TestPBKDF2Vectors(t *testing.T) {
	tests := []struct {
		alg            dgst.Algorithm
		password, salt string
		iterations     int
		keyLen         int
		want           string
	}{
		{dgst.SHA1, "password", "salt", 1, 20,
			"0c60c80f961f0e71f3a9b524af6012062fe037a6"},
		{dgst.SHA1, "password", "salt", 2, 20,
			"ea6c014dc72d6f8ccd1ed92ace1d41f0d8de8957"},
		{dgst.SHA1, "password", "salt", 4096, 20,
			"4b007901b765489abead49d926f721d065a429c1"},
		{dgst.SHA1, "passwordPASSWORDpassword", "saltSALTsaltSALTsaltSALTsaltSALTsalt", 4096, 25,
			"3d2eec4fe41c849b80c8d83662c0e44a8b291a964cf2f07038"},
		{dgst.SHA256, "passwd", "salt", 1, 64,
			"55ac046e56e3089fec1691c22544b605f94185216dde0465e68b9d57c20dacbc49ca9cccf179b645991664b39d77ef317c71b845b1e30bd509112041d3a19783"},
	}

	for _, backend := range []dgst.Backend{dgst.Software{}, dgst.Native{}} {
		for _, tc := range tests {
			got, err := PBKDF2(backend, tc.alg, []byte(tc.password), []byte(tc.salt), tc.iterations, tc.keyLen)
			if err != nil {
				t.Fatalf("%T PBKDF2(%s, c=%d): %v", backend, tc.alg, tc.iterations, err)
			}
			if hex.EncodeToString(got) != tc.want {
				t.Errorf("%T PBKDF2(%s, c=%d) = %x, want %s", backend, tc.alg, tc.iterations, got, tc.want)
			}
		}
	}
}

func TestPBKDF2InvalidParameters(t *testing.T) {
	if _, err := PBKDF2(dgst.Software{}, dgst.SHA256, []byte("pw"), []byte("salt"), 0, 32); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("zero iterations: got %v, want ErrInvalidParameters", err)
	}
	if _, err := PBKDF2(dgst.Software{}, dgst.SHA256, []byte("pw"), []byte("salt"), 1, 0); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("zero output length: got %v, want ErrInvalidParameters", err)
	}
	if _, err := PBKDF2(dgst.Software{}, dgst.Algorithm("md5"), []byte("pw"), []byte("salt"), 1, 16); !errors.Is(err, dgst.ErrUnknownAlgorithm) {
		t.Errorf("unknown algorithm: got %v, want ErrUnknownAlgorithm", err)
	}
}

// Vectors from the golang.org/x/crypto/pkcs12 test suite.
func TestPKCS12KeyVectors(t *testing.T) {
	salt, _ := hex.DecodeString("0a58cf64530d823f")
	password := BMPString("smeg")

	tests := []struct {
		purpose, keyLen int
		want            string
	}{
		{PurposeKey, 24, "8aaae6297b6cb04642ab5b077851284eb7128f1a2a7fbca3"},
		{PurposeIV, 8, "79993dfe048d3b76"},
	}
	for _, backend := range []dgst.Backend{dgst.Software{}, dgst.Native{}} {
		for _, tc := range tests {
			got, err := PKCS12Key(backend, dgst.SHA1, password, salt, 1, tc.purpose, tc.keyLen)
			if err != nil {
				t.Fatalf("PKCS12Key(purpose=%d): %v", tc.purpose, err)
			}
			if hex.EncodeToString(got) != tc.want {
				t.Errorf("%T PKCS12Key(purpose=%d) = %x, want %s", backend, tc.purpose, got, tc.want)
			}
		}
	}
}

func TestPKCS12KeyMultiBlock(t *testing.T) {
	// 48 bytes from SHA-1 needs three hash blocks, exercising the
	// I-update arithmetic between blocks.
	salt := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	password := BMPString("longer output than one digest")

	soft, err := PKCS12Key(dgst.Software{}, dgst.SHA1, password, salt, 100, PurposeMAC, 48)
	if err != nil {
		t.Fatal(err)
	}
	native, err := PKCS12Key(dgst.Native{}, dgst.SHA1, password, salt, 100, PurposeMAC, 48)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(soft, native) {
		t.Fatalf("software and native derivations differ:\n%x\n%x", soft, native)
	}

	// different purposes must yield disjoint material
	iv, _ := PKCS12Key(dgst.Software{}, dgst.SHA1, password, salt, 100, PurposeIV, 48)
	if bytes.Equal(soft, iv) {
		t.Error("purpose byte did not diversify the derived material")
	}
}

func TestPKCS12KeySHA256(t *testing.T) {
	// modern containers MAC with SHA-256; both paths must agree
	password := BMPString("test123")
	salt := []byte{0xde, 0xad, 0xbe, 0xef, 1, 2, 3, 4}
	soft, err := PKCS12Key(dgst.Software{}, dgst.SHA256, password, salt, 2048, PurposeMAC, 32)
	if err != nil {
		t.Fatal(err)
	}
	native, err := PKCS12Key(dgst.Native{}, dgst.SHA256, password, salt, 2048, PurposeMAC, 32)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(soft, native) {
		t.Fatal("software and native SHA-256 derivations differ")
	}
}

func TestBMPString(t *testing.T) {
	if got := BMPString(""); !bytes.Equal(got, []byte{0, 0}) {
		t.Errorf("empty password = %x, want 0000", got)
	}
	if got := BMPString("AB"); !bytes.Equal(got, []byte{0, 'A', 0, 'B', 0, 0}) {
		t.Errorf("BMPString(AB) = %x", got)
	}
	// non-ASCII stays big endian UTF-16
	if got := BMPString("é"); !bytes.Equal(got, []byte{0x00, 0xe9, 0, 0}) {
		t.Errorf("BMPString(é) = %x", got)
	}
}

func TestPKCS12KeyInvalidParameters(t *testing.T) {
	if _, err := PKCS12Key(dgst.Software{}, dgst.SHA1, BMPString("x"), nil, 0, PurposeKey, 16); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("zero iterations: got %v", err)
	}
	if _, err := PKCS12Key(dgst.Software{}, dgst.SHA1, BMPString("x"), nil, 1, PurposeKey, 0); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("zero output length: got %v", err)
	}
}
