package dgst

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"
)

func TestSumVectors(t *testing.T) {
	tests := []struct {
		alg  Algorithm
		in   string
		want string
	}{
		{SHA1, "", "da39a3ee5e6b4b0d3255bfef95601890afd80709"},
		{SHA1, "abc", "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{SHA256, "", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{SHA256, "abc", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{SHA256, "hello", "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"},
		{SHA384, "abc", "cb00753f45a35e8bb5a03d699ac65007272c32ab0eded1631a8b605a43ff5bed8086072ba1e7cc2358baeca134c825a7"},
		{SHA512, "abc", "ddaf35a193617abacc417349ae20413112e6fa4e89a97ea20a9eeee64b55d39a2192992a274fc1a836ba3c23a3feebbd454d4423643ce80e2a9ac94fa54ca49f"},
	}

	for _, backend := range []Backend{Software{}, Native{}} {
		for _, tc := range tests {
			got, err := backend.Sum(tc.alg, []byte(tc.in))
			if err != nil {
				t.Fatalf("%T Sum(%s, %q): %v", backend, tc.alg, tc.in, err)
			}
			if hex.EncodeToString(got) != tc.want {
				t.Errorf("%T Sum(%s, %q) = %x, want %s", backend, tc.alg, tc.in, got, tc.want)
			}
			if len(got) != tc.alg.Size() {
				t.Errorf("Sum(%s) length = %d, want %d", tc.alg, len(got), tc.alg.Size())
			}
		}
	}
}

func TestSumLongInput(t *testing.T) {
	// million 'a' bytes, FIPS 180 long-message vector
	in := bytes.Repeat([]byte{'a'}, 1000000)
	got, err := Software{}.Sum(SHA256, in)
	if err != nil {
		t.Fatal(err)
	}
	want := "cdc76e5c9914fb9281a1c7e284d73e67f1809a48a497200e046d39ccc7112cd0"
	if hex.EncodeToString(got) != want {
		t.Errorf("Sum(sha256, a*1e6) = %x, want %s", got, want)
	}
}

func TestStreamingMatchesOneShot(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789abcdef"), 37) // crosses block boundaries
	for _, alg := range []Algorithm{SHA1, SHA256, SHA384, SHA512} {
		h, err := Software{}.New(alg)
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < len(data); i += 13 {
			end := i + 13
			if end > len(data) {
				end = len(data)
			}
			h.Write(data[i:end])
		}
		oneShot, _ := Software{}.Sum(alg, data)
		if !bytes.Equal(h.Sum(nil), oneShot) {
			t.Errorf("%s: streaming digest differs from one-shot", alg)
		}
	}
}

func TestHMACVectors(t *testing.T) {
	// RFC 4231 test case 1 and 2
	tests := []struct {
		alg       Algorithm
		key, data []byte
		want      string
	}{
		{SHA256, bytes.Repeat([]byte{0x0b}, 20), []byte("Hi There"),
			"b0344c61d8db38535ca8afceaf0bf12b881dc200c9833da726e9376c2e32cff7"},
		{SHA512, bytes.Repeat([]byte{0x0b}, 20), []byte("Hi There"),
			"87aa7cdea5ef619d4ff0b4241a1d6cb02379f4e2ce4ec2787ad0b30545e17cdedaa833b7d6b8a702038b274eaea3f4e4be9d914eeb61f1702e696c203a126854"},
		{SHA256, []byte("Jefe"), []byte("what do ya want for nothing?"),
			"5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843"},
		{SHA1, bytes.Repeat([]byte{0x0b}, 20), []byte("Hi There"),
			"b617318655057264e28bc0b6fb378c8ef146be00"},
	}

	for _, backend := range []Backend{Software{}, Native{}} {
		for _, tc := range tests {
			mac, err := backend.NewHMAC(tc.alg, tc.key)
			if err != nil {
				t.Fatalf("%T NewHMAC: %v", backend, err)
			}
			got := mac.Sum(tc.data)
			if hex.EncodeToString(got) != tc.want {
				t.Errorf("%T HMAC-%s = %x, want %s", backend, tc.alg, got, tc.want)
			}
		}
	}
}

func TestHMACLongKey(t *testing.T) {
	// RFC 4231 test case 6: 131-byte key forces the hash-the-key path
	key := bytes.Repeat([]byte{0xaa}, 131)
	data := []byte("Test Using Larger Than Block-Size Key - Hash Key First")
	want := "60e431591ee0b67f0d8a26aacbf5b77f8e0bc6213728c5140546040f0ee37f54"

	mac, err := Software{}.NewHMAC(SHA256, key)
	if err != nil {
		t.Fatal(err)
	}
	if got := hex.EncodeToString(mac.Sum(data)); got != want {
		t.Errorf("HMAC-SHA256 long key = %s, want %s", got, want)
	}
}

func TestHMACContextReuse(t *testing.T) {
	mac, err := Software{}.NewHMAC(SHA256, []byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	first := mac.Sum([]byte("message one"))
	second := mac.Sum([]byte("message two"))
	again := mac.Sum([]byte("message one"))

	if bytes.Equal(first, second) {
		t.Error("different messages produced identical MACs")
	}
	if !bytes.Equal(first, again) {
		t.Error("context reuse changed the MAC of an identical message")
	}
}

func TestBackendEquivalence(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte("x"),
		bytes.Repeat([]byte{0xff}, 63),
		bytes.Repeat([]byte{0x00}, 64),
		bytes.Repeat([]byte{0xab}, 129),
		bytes.Repeat([]byte("payload"), 1000),
	}
	for _, alg := range []Algorithm{SHA1, SHA256, SHA384, SHA512} {
		for _, in := range inputs {
			soft, err := Software{}.Sum(alg, in)
			if err != nil {
				t.Fatal(err)
			}
			native, err := Native{}.Sum(alg, in)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(soft, native) {
				t.Fatalf("%s: software and native digests differ for %d-byte input", alg, len(in))
			}

			softMAC, _ := Software{}.NewHMAC(alg, []byte("key material"))
			nativeMAC, _ := Native{}.NewHMAC(alg, []byte("key material"))
			if !bytes.Equal(softMAC.Sum(in), nativeMAC.Sum(in)) {
				t.Fatalf("HMAC-%s: software and native differ for %d-byte input", alg, len(in))
			}
		}
	}
}

func TestParse(t *testing.T) {
	if _, err := Parse("sha256"); err != nil {
		t.Fatalf("Parse(sha256): %v", err)
	}
	_, err := Parse("md5")
	if err == nil {
		t.Fatal("Parse(md5) should fail")
	}
	if !strings.Contains(err.Error(), "md5") {
		t.Errorf("error should name the offending algorithm: %v", err)
	}
}
