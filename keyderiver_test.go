package nigori

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyDeriverDeterministic(t *testing.T) {
	a, err := NewKeyDeriver([]byte("alice"), []byte("nigori.example"), []byte("hunter2"))
	require.NoError(t, err)
	b, err := NewKeyDeriver([]byte("alice"), []byte("nigori.example"), []byte("hunter2"))
	require.NoError(t, err)

	require.Equal(t, a.Permute([]byte("x")), b.Permute([]byte("x")))
}

func TestKeyDeriverVariesByInput(t *testing.T) {
	base, err := NewKeyDeriver([]byte("alice"), []byte("nigori.example"), []byte("hunter2"))
	require.NoError(t, err)
	diffUser, err := NewKeyDeriver([]byte("bob"), []byte("nigori.example"), []byte("hunter2"))
	require.NoError(t, err)
	diffServer, err := NewKeyDeriver([]byte("alice"), []byte("other.example"), []byte("hunter2"))
	require.NoError(t, err)
	diffPass, err := NewKeyDeriver([]byte("alice"), []byte("nigori.example"), []byte("hunter3"))
	require.NoError(t, err)

	p := base.Permute([]byte("x"))
	require.NotEqual(t, p, diffUser.Permute([]byte("x")))
	require.NotEqual(t, p, diffServer.Permute([]byte("x")))
	require.NotEqual(t, p, diffPass.Permute([]byte("x")))
}

func TestKeyDeriverEncryptDecryptRoundTrip(t *testing.T) {
	kd, err := NewKeyDeriver([]byte("alice"), []byte("nigori.example"), []byte("hunter2"))
	require.NoError(t, err)

	for _, size := range []int{0, 1, 15, 16, 17, 1000} {
		plain := make([]byte, size)
		for i := range plain {
			plain[i] = byte(i)
		}
		envelope, err := kd.Encrypt(plain)
		require.NoError(t, err)
		got, err := kd.Decrypt(envelope)
		require.NoError(t, err)
		require.Equal(t, plain, got)
	}
}

func TestKeyDeriverPermuteIsDeterministicEncryptIsNot(t *testing.T) {
	kd, err := NewKeyDeriver([]byte("alice"), []byte("nigori.example"), []byte("hunter2"))
	require.NoError(t, err)

	p1 := kd.Permute([]byte("same input"))
	p2 := kd.Permute([]byte("same input"))
	require.Equal(t, p1, p2)

	e1, err := kd.Encrypt([]byte("same input"))
	require.NoError(t, err)
	e2, err := kd.Encrypt([]byte("same input"))
	require.NoError(t, err)
	require.NotEqual(t, e1, e2, "randomized envelopes must use a fresh IV each call")
}

func TestKeyDeriverLegacyDESRoundTrip(t *testing.T) {
	kd, err := NewLegacyKeyDeriver([]byte("alice"), []byte("nigori.example"), []byte("hunter2"))
	require.NoError(t, err)

	envelope, err := kd.Encrypt([]byte("legacy payload"))
	require.NoError(t, err)
	got, err := kd.Decrypt(envelope)
	require.NoError(t, err)
	require.Equal(t, []byte("legacy payload"), got)
}

func TestKeyDeriverSafeForConcurrentUse(t *testing.T) {
	kd, err := NewKeyDeriver([]byte("alice"), []byte("nigori.example"), []byte("hunter2"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := kd.Encrypt([]byte("concurrent"))
			require.NoError(t, err)
			_ = kd.Permute([]byte("concurrent"))
			_, err = kd.Signer().Sign([]byte("concurrent"))
			require.NoError(t, err)
		}()
	}
	wg.Wait()
}
