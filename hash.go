package nigori

import "crypto/sha256"

// HashWrapper wraps SHA-256 with a length prefix on every field added to
// it, so two different sequences of inputs cannot collide unless SHA-256
// itself collides. This is the domain-separation primitive used by the
// Schnorr signer/verifier.
type HashWrapper struct {
	// buffered input, grown by Add and hashed in one call by Digest.
	buf []byte
}

// NewHashWrapper returns a fresh, empty HashWrapper.
func NewHashWrapper() *HashWrapper {
	return &HashWrapper{}
}

// Add appends lengthOf(x) || x to the hash input.
func (w *HashWrapper) Add(x []byte) *HashWrapper {
	w.buf = append(w.buf, concat(x)...)
	return w
}

// Digest returns the 32-byte SHA-256 digest of everything added so far.
func (w *HashWrapper) Digest() []byte {
	sum := sha256.Sum256(w.buf)
	return sum[:]
}
