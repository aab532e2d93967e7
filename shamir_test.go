package nigori

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

// smallPrime shares a secret over a tiny prime field rather than the
// 4096-bit production modulus, so the arithmetic is easy to hand-check.
func smallPrime() *big.Int { return big.NewInt(17) }

func TestShareIntRecoverIntOverSmallPrime(t *testing.T) {
	secret := big.NewInt(12)
	shares, err := ShareInt(secret, 2, 3, smallPrime())
	require.NoError(t, err)
	require.Len(t, shares, 3)

	got, err := RecoverInt(shares[:2], smallPrime())
	require.NoError(t, err)
	require.Equal(t, 0, secret.Cmp(got))
}

func TestShamirSplitRecoverExactThreshold(t *testing.T) {
	secret := []byte{12}
	shares, err := ShamirSplit(secret, 2, 3, ShamirPrime())
	require.NoError(t, err)
	require.Len(t, shares, 3)

	got, err := ShamirRecover(shares[:2], ShamirPrime())
	require.NoError(t, err)
	require.Equal(t, secret, got)
}

func TestShamirAnyKOfNSubsetRecovers(t *testing.T) {
	secret := []byte("nigori shamir test secret")
	shares, err := ShamirSplit(secret, 3, 5, ShamirPrime())
	require.NoError(t, err)

	subsets := [][]int{{0, 1, 2}, {1, 2, 3}, {0, 2, 4}, {2, 3, 4}}
	for _, idx := range subsets {
		subset := []ShamirShare{shares[idx[0]], shares[idx[1]], shares[idx[2]]}
		got, err := ShamirRecover(subset, ShamirPrime())
		require.NoError(t, err)
		require.Equal(t, secret, got)
	}
}

func TestShamirFewerThanKSharesDoesNotRecoverSecret(t *testing.T) {
	secret := []byte("needs three shares")
	shares, err := ShamirSplit(secret, 3, 5, ShamirPrime())
	require.NoError(t, err)

	// With only 2 of the required 3 shares, the interpolated value is
	// effectively uniform over the field; it surfaces as the "missing
	// leading tag byte" error the overwhelming majority of the time, and
	// on the rare draw where it doesn't, it must not equal the secret.
	got, err := ShamirRecover(shares[:2], ShamirPrime())
	if err != nil {
		require.ErrorContains(t, err, "missing leading tag byte")
		return
	}
	require.NotEqual(t, secret, got, "...but with too few shares the result must not match")
}

func TestShamirPreservesLeadingZeroBytes(t *testing.T) {
	secret := []byte{0x00, 0x00, 0x2a}
	shares, err := ShamirSplit(secret, 2, 4, ShamirPrime())
	require.NoError(t, err)

	got, err := ShamirRecover(shares[1:3], ShamirPrime())
	require.NoError(t, err)
	require.Equal(t, secret, got)
}

func TestShamirRejectsInvalidThreshold(t *testing.T) {
	_, err := ShamirSplit([]byte("x"), 5, 3, ShamirPrime())
	require.Error(t, err)
}

func TestShamirRecoverRejectsDuplicateIndex(t *testing.T) {
	shares := []ShamirShare{
		{Index: 1, Y: big.NewInt(5)},
		{Index: 1, Y: big.NewInt(7)},
	}
	_, err := ShamirRecover(shares, smallPrime())
	require.Error(t, err)
}

func TestShamirRecoverRejectsEmptyShares(t *testing.T) {
	_, err := ShamirRecover(nil, smallPrime())
	require.Error(t, err)
}
