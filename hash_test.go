package nigori

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashWrapperDeterministic(t *testing.T) {
	d1 := NewHashWrapper().Add([]byte("a")).Add([]byte("b")).Digest()
	d2 := NewHashWrapper().Add([]byte("a")).Add([]byte("b")).Digest()
	require.Equal(t, d1, d2)
	require.Len(t, d1, 32)
}

func TestHashWrapperFieldBoundariesAreSeparated(t *testing.T) {
	// "ab" split as ("a","b") must not collide with the single field "ab",
	// which is exactly what the length prefix guards against.
	split := NewHashWrapper().Add([]byte("a")).Add([]byte("b")).Digest()
	whole := NewHashWrapper().Add([]byte("ab")).Digest()
	require.NotEqual(t, split, whole)
}

func TestHashWrapperOrderMatters(t *testing.T) {
	ab := NewHashWrapper().Add([]byte("a")).Add([]byte("b")).Digest()
	ba := NewHashWrapper().Add([]byte("b")).Add([]byte("a")).Digest()
	require.NotEqual(t, ab, ba)
}
