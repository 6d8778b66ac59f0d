package dgst

import "encoding/binary"

// digest is the common shape of the software hash states: a hash.Hash that
// can snapshot its full internal state. HMAC contexts rely on clone to keep
// the key-dependent half-states around.
type digest interface {
	Write(p []byte) (int, error)
	Sum(b []byte) []byte
	Reset()
	Size() int
	BlockSize() int
	clone() digest
}

const (
	sha1Init0 = 0x67452301
	sha1Init1 = 0xEFCDAB89
	sha1Init2 = 0x98BADCFE
	sha1Init3 = 0x10325476
	sha1Init4 = 0xC3D2E1F0
)

type sha1Digest struct {
	h   [5]uint32
	x   [64]byte
	nx  int
	len uint64
}

func newSHA1() *sha1Digest {
	d := new(sha1Digest)
	d.Reset()
	return d
}

func (d *sha1Digest) Reset() {
	d.h = [5]uint32{sha1Init0, sha1Init1, sha1Init2, sha1Init3, sha1Init4}
	d.nx = 0
	d.len = 0
}

func (d *sha1Digest) Size() int      { return 20 }
func (d *sha1Digest) BlockSize() int { return 64 }

func (d *sha1Digest) clone() digest {
	c := *d
	return &c
}

func (d *sha1Digest) Write(p []byte) (n int, err error) {
	n = len(p)
	d.len += uint64(n)
	if d.nx > 0 {
		m := copy(d.x[d.nx:], p)
		d.nx += m
		if d.nx == 64 {
			sha1Block(&d.h, d.x[:])
			d.nx = 0
		}
		p = p[m:]
	}
	for len(p) >= 64 {
		sha1Block(&d.h, p[:64])
		p = p[64:]
	}
	if len(p) > 0 {
		d.nx = copy(d.x[:], p)
	}
	return
}

func (d *sha1Digest) Sum(in []byte) []byte {
	// finalize a copy so the receiver can keep absorbing
	c := *d
	c.pad()
	var out [20]byte
	for i, v := range c.h {
		binary.BigEndian.PutUint32(out[i*4:], v)
	}
	return append(in, out[:]...)
}

func (d *sha1Digest) pad() {
	bitLen := d.len << 3
	var tmp [72]byte
	tmp[0] = 0x80
	padLen := 56 - d.len%64
	if d.len%64 >= 56 {
		padLen += 64
	}
	binary.BigEndian.PutUint64(tmp[padLen:], bitLen)
	d.Write(tmp[:padLen+8])
}

func sha1Block(h *[5]uint32, p []byte) {
	var w [80]uint32
	for i := 0; i < 16; i++ {
		w[i] = binary.BigEndian.Uint32(p[i*4:])
	}
	for i := 16; i < 80; i++ {
		t := w[i-3] ^ w[i-8] ^ w[i-14] ^ w[i-16]
		w[i] = t<<1 | t>>31
	}

	a, b, c, d, e := h[0], h[1], h[2], h[3], h[4]
	for i := 0; i < 80; i++ {
		var f, k uint32
		switch {
		case i < 20:
			f = (b & c) | (^b & d)
			k = 0x5A827999
		case i < 40:
			f = b ^ c ^ d
			k = 0x6ED9EBA1
		case i < 60:
			f = (b & c) | (b & d) | (c & d)
			k = 0x8F1BBCDC
		default:
			f = b ^ c ^ d
			k = 0xCA62C1D6
		}
		t := (a<<5 | a>>27) + f + e + k + w[i]
		a, b, c, d, e = t, a, b<<30|b>>2, c, d
	}

	h[0] += a
	h[1] += b
	h[2] += c
	h[3] += d
	h[4] += e
}
