package nigori

import "fmt"

// Hard-coded PBKDF2 iteration counts. These double as domain separators
// between the four subkeys derived from the same password; they must match
// exactly for interoperability with any other Nigori implementation.
const (
	iterUserSalt = 1000
	iterUserKey  = 1001
	iterEncKey   = 1002
	iterMacKey   = 1003
)

const (
	userSaltLen = 8
	subkeyLen   = 16
)

// KeyDeriver derives the per-user salt and the three 128-bit subkeys
// (user/auth, enc, mac) from (username, server-name, password). It is
// immutable once constructed and safe to share across goroutines: every
// method either reads its own fields or allocates a fresh result.
type KeyDeriver struct {
	sUser     []byte
	kUser     []byte
	kEnc      []byte
	kMac      []byte
	legacyDES bool
}

// NewKeyDeriver derives the key bundle for (username, serverName, password).
// The password is consumed only inside this call; callers should not retain
// it longer than necessary.
func NewKeyDeriver(username, serverName, password []byte) (*KeyDeriver, error) {
	return newKeyDeriver(username, serverName, password, false)
}

// NewLegacyKeyDeriver derives a key bundle identical to NewKeyDeriver except
// that its Envelope uses the legacy DES compatibility mode. It exists only
// so that data written by an older deployment remains decryptable; new
// data should never be written with it.
func NewLegacyKeyDeriver(username, serverName, password []byte) (*KeyDeriver, error) {
	return newKeyDeriver(username, serverName, password, true)
}

func newKeyDeriver(username, serverName, password []byte, legacyDES bool) (*KeyDeriver, error) {
	sUser, err := deriveKey(concat(username, serverName), []byte("user salt"), iterUserSalt, userSaltLen)
	if err != nil {
		return nil, fmt.Errorf("nigori: deriving user salt: %w", err)
	}
	kUser, err := deriveKey(password, sUser, iterUserKey, subkeyLen)
	if err != nil {
		return nil, fmt.Errorf("nigori: deriving user key: %w", err)
	}
	kEnc, err := deriveKey(password, sUser, iterEncKey, subkeyLen)
	if err != nil {
		return nil, fmt.Errorf("nigori: deriving enc key: %w", err)
	}
	kMac, err := deriveKey(password, sUser, iterMacKey, subkeyLen)
	if err != nil {
		return nil, fmt.Errorf("nigori: deriving mac key: %w", err)
	}
	return &KeyDeriver{
		sUser:     sUser,
		kUser:     kUser,
		kEnc:      kEnc,
		kMac:      kMac,
		legacyDES: legacyDES,
	}, nil
}

// Envelope returns the authenticated-envelope helper bound to this key
// bundle's enc/mac subkeys.
func (kd *KeyDeriver) Envelope() *Envelope {
	return newEnvelope(kd.kEnc, kd.kMac, kd.legacyDES)
}

// Encrypt encrypts plain under k_enc/k_mac with a fresh random IV.
func (kd *KeyDeriver) Encrypt(plain []byte) ([]byte, error) {
	return kd.Envelope().Encrypt(plain)
}

// Permute deterministically encrypts plain under a zero IV and returns the
// result base64url-encoded, for use as a server-side lookup key.
func (kd *KeyDeriver) Permute(plain []byte) string {
	return kd.Envelope().Permute(plain)
}

// Decrypt reverses Encrypt/Permute: it verifies the MAC before attempting
// decryption and rejects any tampered envelope.
func (kd *KeyDeriver) Decrypt(b64 string) ([]byte, error) {
	return kd.Envelope().Decrypt(b64)
}

// EnvelopeV2 returns the upgraded HMAC-SHA-256 envelope helper bound to
// this key bundle. It is opt-in: Encrypt, Permute, Decrypt and Client's
// operations never use it.
func (kd *KeyDeriver) EnvelopeV2() *Envelope {
	return NewEnvelopeV2(kd.kEnc, kd.kMac)
}

// Signer returns a SchnorrSigner bound to this key bundle's private scalar
// (k_user, reduced mod q by NewSchnorrSigner).
func (kd *KeyDeriver) Signer() *SchnorrSigner {
	return NewSchnorrSigner(kd.kUser)
}
