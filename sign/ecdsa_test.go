package sign

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/asn1"
	"errors"
	"math/big"
	"os"
	"testing"

	"github.com/docseal/sigkit/dgst"
	"github.com/docseal/sigkit/internal/errdef"
	"github.com/docseal/sigkit/pkcs8"
)

func hexInt(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		t.Fatalf("bad hex integer")
	}
	return v
}

// RFC 6979 appendix A.2.5 and A.2.6, message "sample".
func TestECDSAKnownAnswers(t *testing.T) {
	tests := []struct {
		name    string
		curve   asn1.ObjectIdentifier
		alg     dgst.Algorithm
		d, r, s string
	}{
		{
			name:  "P-256/SHA-256",
			curve: oidCurveP256,
			alg:   dgst.SHA256,
			d:     "c9afa9d845ba75166b5c215767b1d6934e50c3db36e89b127b8a622b120f6721",
			r:     "efd48b2aacb6a8fd1140dd9cd45e81d69d2c877b56aaf991c34d0ea84eaf3716",
			s:     "f7cb1c942d657c41d436c7a1b6e29f65f3e900dbb9aff4064dc4ab2f843acda8",
		},
		{
			name:  "P-384/SHA-384",
			curve: oidCurveP384,
			alg:   dgst.SHA384,
			d:     "6b9d3dad2e1b8c1c05b19875b6659f4de23c3b667bf297ba9aa47740787137d896d5724e4c70a825f872c9ea60d2edf5",
			r:     "94edbb92a5ecb8aad4736e56c691916b3f88140666ce9fa73d64c4ea95ad133c81a648152e44acf96e36dd1e80fabe46",
			s:     "99ef4aeb15f178cea1fe40db2603138f130e740a19624526203b6351d0a3a94fa329c145786e679e7b82c71a38628ac8",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			key := &pkcs8.ECKey{D: hexInt(t, tc.d), Curve: tc.curve}
			digest, err := dgst.Sum(tc.alg, []byte("sample"))
			if err != nil {
				t.Fatal(err)
			}
			der, err := ECDSA(dgst.Native{}, key, tc.alg, digest)
			if err != nil {
				t.Fatal(err)
			}

			var sig ecdsaSignature
			if _, err := asn1.Unmarshal(der, &sig); err != nil {
				t.Fatalf("signature is not a DER SEQUENCE{r, s}: %v", err)
			}
			if sig.R.Cmp(hexInt(t, tc.r)) != 0 {
				t.Errorf("r = %x, want %s", sig.R, tc.r)
			}
			if sig.S.Cmp(hexInt(t, tc.s)) != 0 {
				t.Errorf("s = %x, want %s", sig.S, tc.s)
			}
		})
	}
}

func TestECDSAVerifiesWithStdlib(t *testing.T) {
	der, err := os.ReadFile("testdata/ec_key.der")
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := pkcs8.Parse(der)
	if err != nil {
		t.Fatal(err)
	}
	key := parsed.(*pkcs8.ECKey)

	stdKey, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		t.Fatal(err)
	}
	pub := &stdKey.(*ecdsa.PrivateKey).PublicKey

	digest, _ := dgst.Sum(dgst.SHA256, []byte("stdlib oracle check"))
	sig, err := ECDSA(dgst.Native{}, key, dgst.SHA256, digest)
	if err != nil {
		t.Fatal(err)
	}
	if !ecdsa.VerifyASN1(pub, digest, sig) {
		t.Error("stdlib rejects the signature")
	}
	if pub.Curve != elliptic.P256() {
		t.Fatalf("fixture key is on %v", pub.Curve)
	}
}

func TestECDSADeterministicAcrossBackends(t *testing.T) {
	key := &pkcs8.ECKey{
		D:     hexInt(t, "c9afa9d845ba75166b5c215767b1d6934e50c3db36e89b127b8a622b120f6721"),
		Curve: oidCurveP256,
	}
	digest, _ := dgst.Sum(dgst.SHA256, []byte("determinism"))

	first, err := ECDSA(dgst.Native{}, key, dgst.SHA256, digest)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ECDSA(dgst.Native{}, key, dgst.SHA256, digest)
	if err != nil {
		t.Fatal(err)
	}
	soft, err := ECDSA(dgst.Software{}, key, dgst.SHA256, digest)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("repeated signing changed the signature")
	}
	if !bytes.Equal(first, soft) {
		t.Error("software backend produced a different signature")
	}
}

func TestECDSAUnknownCurve(t *testing.T) {
	key := &pkcs8.ECKey{
		D:     big.NewInt(7),
		Curve: asn1.ObjectIdentifier{1, 3, 132, 0, 10}, // secp256k1
	}
	_, err := ECDSA(dgst.Native{}, key, dgst.SHA256, make([]byte, 32))
	if !errors.Is(err, errdef.ErrUnsupportedAlgorithm) {
		t.Errorf("secp256k1: got %v, want ErrUnsupportedAlgorithm", err)
	}
}

func TestECDSARejectsOutOfRangeScalar(t *testing.T) {
	for _, d := range []*big.Int{big.NewInt(0), p256.n} {
		key := &pkcs8.ECKey{D: d, Curve: oidCurveP256}
		if _, err := ECDSA(dgst.Native{}, key, dgst.SHA256, make([]byte, 32)); !errors.Is(err, errdef.ErrDecode) {
			t.Errorf("d=%v: got %v, want ErrDecode", d, err)
		}
	}
}

func TestCurveDigest(t *testing.T) {
	alg, err := CurveDigest(&pkcs8.ECKey{Curve: oidCurveP384})
	if err != nil {
		t.Fatal(err)
	}
	if alg != dgst.SHA384 {
		t.Errorf("P-384 pairs with %s", alg)
	}
}

func TestScalarBaseMult(t *testing.T) {
	// 1*G is the base point; n*G is the point at infinity
	if x := p256.scalarBaseMult(big.NewInt(1)); x == nil || x.Cmp(p256.gx) != 0 {
		t.Errorf("1*G x = %v, want gx", x)
	}
	if x := p256.scalarBaseMult(p256.n); x != nil {
		t.Errorf("n*G should be the point at infinity, got x = %x", x)
	}
	// 2*G for P-256 (standard test value)
	want := hexInt(t, "7cf27b188d034f7e8a52380304b51ac3c08969e277f21b35a60b48fc47669978")
	if x := p256.scalarBaseMult(big.NewInt(2)); x.Cmp(want) != 0 {
		t.Errorf("2*G x = %x, want %x", x, want)
	}
}
