package nigori

import (
	"crypto/sha1"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// sha1HLen is the output size in bytes of the SHA-1 PRF used by PBKDF2
// below; PBKDF2's dkLen bound is expressed in terms of it.
const sha1HLen = sha1.Size

// ErrDerivedKeyTooLong is returned when the requested derived key length
// exceeds PBKDF2's bound of (2^32 - 1) * hLen.
var ErrDerivedKeyTooLong = fmt.Errorf("nigori: pbkdf2: derived key length too long")

// deriveKey implements RFC 2898 PBKDF2-HMAC-SHA1, as required by the
// KeyDeriver: the iteration counts and salts below are hard
// domain separators and must round-trip exactly for interoperability.
// Bounds-checks dkLen itself rather than trusting golang.org/x/crypto/pbkdf2
// to do so, since that package silently returns a short key instead of
// erroring when dkLen is absurd.
func deriveKey(password, salt []byte, iter, dkLen int) ([]byte, error) {
	maxLen := (int64(1)<<32 - 1) * sha1HLen
	if int64(dkLen) > maxLen {
		return nil, ErrDerivedKeyTooLong
	}
	return pbkdf2.Key(password, salt, iter, dkLen, sha1.New), nil
}
