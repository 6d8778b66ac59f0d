package sign

import (
	"encoding/asn1"
	"fmt"
	"math/big"

	"github.com/docseal/sigkit/dgst"
	"github.com/docseal/sigkit/internal/errdef"
)

var (
	oidCurveP256 = asn1.ObjectIdentifier{1, 2, 840, 10045, 3, 1, 7}
	oidCurveP384 = asn1.ObjectIdentifier{1, 3, 132, 0, 34}
)

// curveParams describes a short Weierstrass curve with a = -3, which
// both NIST curves in scope share. All coordinates are affine except
// inside the scalar multiplication.
type curveParams struct {
	name    string
	p       *big.Int       // field prime
	n       *big.Int       // group order
	gx, gy  *big.Int       // base point
	byteLen int
	hash    dgst.Algorithm // digest customarily paired with the curve
}

func mustInt(hex string) *big.Int {
	v, ok := new(big.Int).SetString(hex, 16)
	if !ok {
		panic("sign: bad curve constant")
	}
	return v
}

var p256 = &curveParams{
	name:    "P-256",
	p:       mustInt("ffffffff00000001000000000000000000000000ffffffffffffffffffffffff"),
	n:       mustInt("ffffffff00000000ffffffffffffffffbce6faada7179e84f3b9cac2fc632551"),
	gx:      mustInt("6b17d1f2e12c4247f8bce6e563a440f277037d812deb33a0f4a13945d898c296"),
	gy:      mustInt("4fe342e2fe1a7f9b8ee7eb4a7c0f9e162bce33576b315ececbb6406837bf51f5"),
	byteLen: 32,
	hash:    dgst.SHA256,
}

var p384 = &curveParams{
	name:    "P-384",
	p:       mustInt("fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffeffffffff0000000000000000ffffffff"),
	n:       mustInt("ffffffffffffffffffffffffffffffffffffffffffffffffc7634d81f4372ddf581a0db248b0a77aecec196accc52973"),
	gx:      mustInt("aa87ca22be8b05378eb1c71ef320ad746e1d3b628ba79b9859f741e082542a385502f25dbf55296c3a545e3872760ab7"),
	gy:      mustInt("3617de4a96262c6f5d9e98bf9292dc29f8f41dbd289a147ce9da3113b5f0b8c00a60b1ce1d7e819d7a431d7c90ea0e5f"),
	byteLen: 48,
	hash:    dgst.SHA384,
}

// curveByOID resolves a named-curve OID. Anything outside the two
// supported curves is a hard failure, never a default.
func curveByOID(oid asn1.ObjectIdentifier) (*curveParams, error) {
	switch {
	case oid.Equal(oidCurveP256):
		return p256, nil
	case oid.Equal(oidCurveP384):
		return p384, nil
	}
	return nil, fmt.Errorf("%w: curve %v", errdef.ErrUnsupportedAlgorithm, oid)
}

// jacobianPoint holds (X/Z², Y/Z³); Z = 0 encodes the point at
// infinity.
type jacobianPoint struct {
	x, y, z *big.Int
}

// addJacobian computes p1 + p2 with the add-2007-bl formulas.
func (c *curveParams) addJacobian(p1, p2 *jacobianPoint) *jacobianPoint {
	if p1.z.Sign() == 0 {
		return &jacobianPoint{new(big.Int).Set(p2.x), new(big.Int).Set(p2.y), new(big.Int).Set(p2.z)}
	}
	if p2.z.Sign() == 0 {
		return &jacobianPoint{new(big.Int).Set(p1.x), new(big.Int).Set(p1.y), new(big.Int).Set(p1.z)}
	}

	z1z1 := new(big.Int).Mul(p1.z, p1.z)
	z1z1.Mod(z1z1, c.p)
	z2z2 := new(big.Int).Mul(p2.z, p2.z)
	z2z2.Mod(z2z2, c.p)

	u1 := new(big.Int).Mul(p1.x, z2z2)
	u1.Mod(u1, c.p)
	u2 := new(big.Int).Mul(p2.x, z1z1)
	u2.Mod(u2, c.p)
	h := new(big.Int).Sub(u2, u1)
	if h.Sign() == -1 {
		h.Add(h, c.p)
	}
	i := new(big.Int).Lsh(h, 1)
	i.Mul(i, i)
	j := new(big.Int).Mul(h, i)

	s1 := new(big.Int).Mul(p1.y, p2.z)
	s1.Mul(s1, z2z2)
	s1.Mod(s1, c.p)
	s2 := new(big.Int).Mul(p2.y, p1.z)
	s2.Mul(s2, z1z1)
	s2.Mod(s2, c.p)
	r := new(big.Int).Sub(s2, s1)
	if r.Sign() == -1 {
		r.Add(r, c.p)
	}
	if h.Sign() == 0 {
		if r.Sign() == 0 {
			return c.doubleJacobian(p1)
		}
		// p1 = -p2
		return &jacobianPoint{new(big.Int), new(big.Int), new(big.Int)}
	}
	r.Lsh(r, 1)
	v := new(big.Int).Mul(u1, i)

	x3 := new(big.Int).Set(r)
	x3.Mul(x3, x3)
	x3.Sub(x3, j)
	x3.Sub(x3, v)
	x3.Sub(x3, v)
	x3.Mod(x3, c.p)

	y3 := new(big.Int).Set(r)
	v.Sub(v, x3)
	y3.Mul(y3, v)
	s1.Mul(s1, j)
	s1.Lsh(s1, 1)
	y3.Sub(y3, s1)
	y3.Mod(y3, c.p)

	z3 := new(big.Int).Add(p1.z, p2.z)
	z3.Mul(z3, z3)
	z3.Sub(z3, z1z1)
	z3.Sub(z3, z2z2)
	z3.Mul(z3, h)
	z3.Mod(z3, c.p)

	return &jacobianPoint{x3, y3, z3}
}

// doubleJacobian computes 2p with the dbl-2001-b formulas, which
// exploit a = -3.
func (c *curveParams) doubleJacobian(p *jacobianPoint) *jacobianPoint {
	delta := new(big.Int).Mul(p.z, p.z)
	delta.Mod(delta, c.p)
	gamma := new(big.Int).Mul(p.y, p.y)
	gamma.Mod(gamma, c.p)
	alpha := new(big.Int).Sub(p.x, delta)
	if alpha.Sign() == -1 {
		alpha.Add(alpha, c.p)
	}
	alpha2 := new(big.Int).Add(p.x, delta)
	alpha.Mul(alpha, alpha2)
	alpha2.Set(alpha)
	alpha.Lsh(alpha, 1)
	alpha.Add(alpha, alpha2)

	beta := new(big.Int).Mul(p.x, gamma)

	x3 := new(big.Int).Mul(alpha, alpha)
	beta8 := new(big.Int).Lsh(beta, 3)
	beta8.Mod(beta8, c.p)
	x3.Sub(x3, beta8)
	if x3.Sign() == -1 {
		x3.Add(x3, c.p)
	}
	x3.Mod(x3, c.p)

	z3 := new(big.Int).Add(p.y, p.z)
	z3.Mul(z3, z3)
	z3.Sub(z3, gamma)
	if z3.Sign() == -1 {
		z3.Add(z3, c.p)
	}
	z3.Sub(z3, delta)
	if z3.Sign() == -1 {
		z3.Add(z3, c.p)
	}
	z3.Mod(z3, c.p)

	beta.Lsh(beta, 2)
	beta.Sub(beta, x3)
	if beta.Sign() == -1 {
		beta.Add(beta, c.p)
	}
	y3 := new(big.Int).Mul(alpha, beta)

	gamma.Mul(gamma, gamma)
	gamma.Lsh(gamma, 3)
	gamma.Mod(gamma, c.p)

	y3.Sub(y3, gamma)
	if y3.Sign() == -1 {
		y3.Add(y3, c.p)
	}
	y3.Mod(y3, c.p)

	return &jacobianPoint{x3, y3, z3}
}

// scalarBaseMult computes k*G by left-to-right double-and-add and
// returns the affine x coordinate. Returns nil for the point at
// infinity, which the sign loop treats as a retry.
func (c *curveParams) scalarBaseMult(k *big.Int) *big.Int {
	base := &jacobianPoint{c.gx, c.gy, big.NewInt(1)}
	acc := &jacobianPoint{new(big.Int), new(big.Int), new(big.Int)}

	for i := k.BitLen() - 1; i >= 0; i-- {
		acc = c.doubleJacobian(acc)
		if k.Bit(i) == 1 {
			acc = c.addJacobian(acc, base)
		}
	}
	if acc.z.Sign() == 0 {
		return nil
	}

	// x = X / Z² in the field
	zInv := new(big.Int).ModInverse(acc.z, c.p)
	zInv.Mul(zInv, zInv)
	x := new(big.Int).Mul(acc.x, zInv)
	return x.Mod(x, c.p)
}
