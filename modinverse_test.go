package nigori

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModInverseKnownVectors(t *testing.T) {
	cases := []struct {
		z, m, want int64
	}{
		{3, 11, 4},   // 3*4 = 12 = 1 mod 11
		{10, 17, 12}, // 10*12 = 120 = 1 mod 17
		{1, 7, 1},
	}
	for _, tc := range cases {
		got, err := modInverse(big.NewInt(tc.z), big.NewInt(tc.m))
		require.NoError(t, err)
		require.Equal(t, big.NewInt(tc.want), got)
	}
}

func TestModInverseRoundTrip(t *testing.T) {
	m := big.NewInt(4096210007) // prime
	for z := int64(2); z < 50; z++ {
		inv, err := modInverse(big.NewInt(z), m)
		require.NoError(t, err)
		product := new(big.Int).Mul(big.NewInt(z), inv)
		product.Mod(product, m)
		require.Equal(t, big.NewInt(1), product)
	}
}

func TestModInverseRejectsNonCoprime(t *testing.T) {
	_, err := modInverse(big.NewInt(6), big.NewInt(9))
	require.ErrorIs(t, err, ErrCannotInvert)
}

func TestBinaryExtendedGCDPanicsOnNonPositive(t *testing.T) {
	require.Panics(t, func() { binaryExtendedGCD(big.NewInt(0), big.NewInt(5)) })
	require.Panics(t, func() { binaryExtendedGCD(big.NewInt(5), big.NewInt(-1)) })
}

func TestBinaryExtendedGCDBezoutIdentity(t *testing.T) {
	x, y := big.NewInt(240), big.NewInt(46)
	a, b, v := binaryExtendedGCD(x, y)
	require.Equal(t, big.NewInt(2), v)

	sum := new(big.Int).Add(new(big.Int).Mul(a, x), new(big.Int).Mul(b, y))
	require.Equal(t, v, sum)
}
