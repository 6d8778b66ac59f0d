package sign

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"os"
	"testing"

	"github.com/docseal/sigkit/dgst"
	"github.com/docseal/sigkit/internal/errdef"
	"github.com/docseal/sigkit/pkcs8"
)

func loadRSAKey(t *testing.T, name string) *pkcs8.RSAKey {
	t.Helper()
	der, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatal(err)
	}
	key, err := pkcs8.Parse(der)
	if err != nil {
		t.Fatal(err)
	}
	return key.(*pkcs8.RSAKey)
}

// stdlibRSAPublic rebuilds a crypto/rsa verifier from the same DER,
// so the standard library acts as an independent oracle.
func stdlibRSAPublic(t *testing.T, name string) *rsa.PublicKey {
	t.Helper()
	der, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatal(err)
	}
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		t.Fatal(err)
	}
	return &key.(*rsa.PrivateKey).PublicKey
}

func TestRSAPKCS1v15VerifiesWithStdlib(t *testing.T) {
	key := loadRSAKey(t, "rsa_key.der")
	pub := stdlibRSAPublic(t, "rsa_key.der")
	message := []byte("signed content")

	tests := []struct {
		alg  dgst.Algorithm
		hash crypto.Hash
	}{
		{dgst.SHA1, crypto.SHA1},
		{dgst.SHA256, crypto.SHA256},
		{dgst.SHA384, crypto.SHA384},
		{dgst.SHA512, crypto.SHA512},
	}
	for _, tc := range tests {
		digest, err := dgst.Sum(tc.alg, message)
		if err != nil {
			t.Fatal(err)
		}
		sig, err := RSAPKCS1v15(key, tc.alg, digest)
		if err != nil {
			t.Fatalf("%s: %v", tc.alg, err)
		}
		if len(sig) != key.ModulusSize() {
			t.Errorf("%s: signature is %d bytes, want %d", tc.alg, len(sig), key.ModulusSize())
		}
		if err := rsa.VerifyPKCS1v15(pub, tc.hash, digest, sig); err != nil {
			t.Errorf("%s: stdlib rejects the signature: %v", tc.alg, err)
		}
	}
}

func TestRSAPKCS1v15Deterministic(t *testing.T) {
	key := loadRSAKey(t, "rsa_key.der")
	digest, _ := dgst.Sum(dgst.SHA256, []byte("same input"))

	a, err := RSAPKCS1v15(key, dgst.SHA256, digest)
	if err != nil {
		t.Fatal(err)
	}
	b, err := RSAPKCS1v15(key, dgst.SHA256, digest)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("identical inputs produced different signatures")
	}
}

func TestRSAPKCS1v15Capacity(t *testing.T) {
	key := loadRSAKey(t, "rsa512_key.der")

	// SHA-256 fits a 512-bit modulus (51 byte DigestInfo vs 53)
	digest, _ := dgst.Sum(dgst.SHA256, []byte("m"))
	if _, err := RSAPKCS1v15(key, dgst.SHA256, digest); err != nil {
		t.Errorf("SHA-256 with 512-bit key: %v", err)
	}

	// SHA-512 does not (83 byte DigestInfo)
	digest, _ = dgst.Sum(dgst.SHA512, []byte("m"))
	if _, err := RSAPKCS1v15(key, dgst.SHA512, digest); !errors.Is(err, errdef.ErrCapacity) {
		t.Errorf("SHA-512 with 512-bit key: got %v, want ErrCapacity", err)
	}
}

func TestRSAPKCS1v15RejectsBadInput(t *testing.T) {
	key := loadRSAKey(t, "rsa_key.der")

	if _, err := RSAPKCS1v15(key, dgst.Algorithm("md5"), make([]byte, 16)); !errors.Is(err, errdef.ErrUnsupportedAlgorithm) {
		t.Errorf("unknown algorithm: got %v", err)
	}
	if _, err := RSAPKCS1v15(key, dgst.SHA256, make([]byte, 20)); !errors.Is(err, errdef.ErrDecode) {
		t.Errorf("digest length mismatch: got %v", err)
	}
}
