package nigori

import "math/big"

// binaryExtendedGCD computes (a, b, v) such that a*x + b*y == v and v is the
// greatest common divisor of x and y, using the binary (Stein's algorithm)
// variant of the extended Euclidean algorithm: halve even operands directly
// instead of using division, adjusting the Bezout coefficients by adding
// the modulus when they're odd. x and y must both be positive.
func binaryExtendedGCD(x, y *big.Int) (a, b, v *big.Int) {
	if x.Sign() <= 0 || y.Sign() <= 0 {
		panic("nigori: binaryExtendedGCD: operands must be positive")
	}

	g := big.NewInt(1)
	x = new(big.Int).Set(x)
	y = new(big.Int).Set(y)
	for x.Bit(0) == 0 && y.Bit(0) == 0 {
		g.Lsh(g, 1)
		x.Rsh(x, 1)
		y.Rsh(y, 1)
	}

	u := new(big.Int).Set(x)
	v = new(big.Int).Set(y)
	a = big.NewInt(1)
	b = big.NewInt(0)
	c := big.NewInt(0)
	d := big.NewInt(1)

	for u.Sign() != 0 {
		for u.Bit(0) == 0 {
			u.Rsh(u, 1)
			if a.Bit(0) == 0 && b.Bit(0) == 0 {
				a.Rsh(a, 1)
				b.Rsh(b, 1)
			} else {
				a.Add(a, y)
				a.Rsh(a, 1)
				b.Sub(b, x)
				b.Rsh(b, 1)
			}
		}
		for v.Bit(0) == 0 {
			v.Rsh(v, 1)
			if c.Bit(0) == 0 && d.Bit(0) == 0 {
				c.Rsh(c, 1)
				d.Rsh(d, 1)
			} else {
				c.Add(c, y)
				c.Rsh(c, 1)
				d.Sub(d, x)
				d.Rsh(d, 1)
			}
		}
		if u.Cmp(v) >= 0 {
			u.Sub(u, v)
			a.Sub(a, c)
			b.Sub(b, d)
		} else {
			v.Sub(v, u)
			c.Sub(c, a)
			d.Sub(d, b)
		}
	}
	return c, d, new(big.Int).Mul(g, v)
}

// modInverse returns z^-1 mod m, or ErrCannotInvert if z and m are not
// coprime.
func modInverse(z, m *big.Int) (*big.Int, error) {
	a, _, v := binaryExtendedGCD(z, m)
	if v.Cmp(big.NewInt(1)) != 0 {
		return nil, ErrCannotInvert
	}
	if a.Sign() < 0 {
		a = new(big.Int).Add(a, m)
	}
	return a, nil
}
