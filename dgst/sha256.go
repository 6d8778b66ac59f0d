package dgst

import "encoding/binary"

var _K256 = [64]uint32{
	0x428a2f98, 0x71374491, 0xb5c0fbcf, 0xe9b5dba5,
	0x3956c25b, 0x59f111f1, 0x923f82a4, 0xab1c5ed5,
	0xd807aa98, 0x12835b01, 0x243185be, 0x550c7dc3,
	0x72be5d74, 0x80deb1fe, 0x9bdc06a7, 0xc19bf174,
	0xe49b69c1, 0xefbe4786, 0x0fc19dc6, 0x240ca1cc,
	0x2de92c6f, 0x4a7484aa, 0x5cb0a9dc, 0x76f988da,
	0x983e5152, 0xa831c66d, 0xb00327c8, 0xbf597fc7,
	0xc6e00bf3, 0xd5a79147, 0x06ca6351, 0x14292967,
	0x27b70a85, 0x2e1b2138, 0x4d2c6dfc, 0x53380d13,
	0x650a7354, 0x766a0abb, 0x81c2c92e, 0x92722c85,
	0xa2bfe8a1, 0xa81a664b, 0xc24b8b70, 0xc76c51a3,
	0xd192e819, 0xd6990624, 0xf40e3585, 0x106aa070,
	0x19a4c116, 0x1e376c08, 0x2748774c, 0x34b0bcb5,
	0x391c0cb3, 0x4ed8aa4a, 0x5b9cca4f, 0x682e6ff3,
	0x748f82ee, 0x78a5636f, 0x84c87814, 0x8cc70208,
	0x90befffa, 0xa4506ceb, 0xbef9a3f7, 0xc67178f2,
}

type sha256Digest struct {
	h   [8]uint32
	x   [64]byte
	nx  int
	len uint64
}

func newSHA256() *sha256Digest {
	d := new(sha256Digest)
	d.Reset()
	return d
}

func (d *sha256Digest) Reset() {
	d.h = [8]uint32{
		0x6a09e667, 0xbb67ae85, 0x3c6ef372, 0xa54ff53a,
		0x510e527f, 0x9b05688c, 0x1f83d9ab, 0x5be0cd19,
	}
	d.nx = 0
	d.len = 0
}

func (d *sha256Digest) Size() int      { return 32 }
func (d *sha256Digest) BlockSize() int { return 64 }

func (d *sha256Digest) clone() digest {
	c := *d
	return &c
}

func (d *sha256Digest) Write(p []byte) (n int, err error) {
	n = len(p)
	d.len += uint64(n)
	if d.nx > 0 {
		m := copy(d.x[d.nx:], p)
		d.nx += m
		if d.nx == 64 {
			sha256Block(&d.h, d.x[:])
			d.nx = 0
		}
		p = p[m:]
	}
	for len(p) >= 64 {
		sha256Block(&d.h, p[:64])
		p = p[64:]
	}
	if len(p) > 0 {
		d.nx = copy(d.x[:], p)
	}
	return
}

func (d *sha256Digest) Sum(in []byte) []byte {
	c := *d
	c.pad()
	var out [32]byte
	for i, v := range c.h {
		binary.BigEndian.PutUint32(out[i*4:], v)
	}
	return append(in, out[:]...)
}

func (d *sha256Digest) pad() {
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

func sha256Block(h *[8]uint32, p []byte) {
	var w [64]uint32
	for i := 0; i < 16; i++ {
		w[i] = binary.BigEndian.Uint32(p[i*4:])
	}
	for i := 16; i < 64; i++ {
		v1 := w[i-15]
		s0 := (v1>>7 | v1<<25) ^ (v1>>18 | v1<<14) ^ (v1 >> 3)
		v2 := w[i-2]
		s1 := (v2>>17 | v2<<15) ^ (v2>>19 | v2<<13) ^ (v2 >> 10)
		w[i] = w[i-16] + s0 + w[i-7] + s1
	}

	a, b, c, d, e, f, g, hh := h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7]
	for i := 0; i < 64; i++ {
		s1 := (e>>6 | e<<26) ^ (e>>11 | e<<21) ^ (e>>25 | e<<7)
		ch := (e & f) ^ (^e & g)
		t1 := hh + s1 + ch + _K256[i] + w[i]
		s0 := (a>>2 | a<<30) ^ (a>>13 | a<<19) ^ (a>>22 | a<<10)
		maj := (a & b) ^ (a & c) ^ (b & c)
		t2 := s0 + maj
		hh, g, f, e, d, c, b, a = g, f, e, d+t1, c, b, a, t1+t2
	}

	h[0] += a
	h[1] += b
	h[2] += c
	h[3] += d
	h[4] += e
	h[5] += f
	h[6] += g
	h[7] += hh
}
