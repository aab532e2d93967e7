package nigori

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

// Schnorr group parameters, cribbed from OpenSSL's J-PAKE implementation:
// p is a 1024-bit prime, q a 160-bit prime dividing p-1,
// and g a generator of the order-q subgroup. Treated as compile-time
// constants: immutable values computed at program start, not mutable
// globals.
var (
	schnorrP, _ = new(big.Int).SetString("fd7f53811d75122952df4a9c2eece4e7f611b7523cef4400c31e3f80b6512669455d402251fb593d8d58fabfc5f5ba30f6cb9b556cd7813b801d346ff26660b76b9950a5a49f9fe8047b1022c24fbba9d7feb7c61bf83b57e7c6a8a6150f04fb83f6d3c51ec3023554135a169132f675f3ae2b61d72aeff22203199dd14801c7", 16)
	schnorrQ, _ = new(big.Int).SetString("9760508f15230bccb292b982a2eb840bf0581cf5", 16)
	schnorrG, _ = new(big.Int).SetString("f7e1a085d69b3ddecbbcab5c36b857b97994afbbfa3aea82f9574c0b3d0782675159578ebad4594fe67107108180b449167123e84c281613b7cf09328cc8a6e13c167a8b547c8d28e0a3ae1e2bb3a675916ea37f0bfa213562f1fb627a01243bcca4f1bea8519089a883dfe15ae59f06928b665e807b552564014c3bfecf492a", 16)
)

// ErrVerify is returned by SchnorrVerifier.Verify when a signature does not
// verify against the expected public key.
var ErrVerify = fmt.Errorf("nigori: schnorr: signature does not verify")

// SchnorrSignature is the pair (e, s): e is the 32-byte challenge hash, s
// is the response scalar's minimal big-endian encoding (at most 20 bytes,
// since s < q and q is 160 bits).
type SchnorrSignature struct {
	E []byte
	S []byte
}

// SchnorrSigner signs messages under the private scalar x derived from
// k_user. It is immutable once constructed and safe to share across
// goroutines.
type SchnorrSigner struct {
	x *big.Int
}

// NewSchnorrSigner builds a signer from the raw bytes of k_user; x is
// bin2int(kUser) mod q, so callers need not reduce it themselves.
func NewSchnorrSigner(kUser []byte) *SchnorrSigner {
	x := new(big.Int).Mod(bin2int(kUser), schnorrQ)
	return &SchnorrSigner{x: x}
}

// Public returns int2bin(g^x mod p), this signer's public key.
func (s *SchnorrSigner) Public() []byte {
	y := new(big.Int).Exp(schnorrG, s.x, schnorrP)
	return int2bin(y)
}

// Sign produces a Schnorr signature over message. It draws its per-signature
// nonce via rejection sampling: 160 random bits, retried until the result
// falls in [0, q).
func (s *SchnorrSigner) Sign(message []byte) (*SchnorrSignature, error) {
	k, err := randomScalarModQ()
	if err != nil {
		return nil, err
	}
	r := new(big.Int).Exp(schnorrG, k, schnorrP)

	e := NewHashWrapper().Add(message).Add(int2bin(r)).Digest()

	// s = (k - x*e) mod q
	xe := new(big.Int).Mul(s.x, bin2int(e))
	sc := new(big.Int).Sub(k, xe)
	sc.Mod(sc, schnorrQ)

	return &SchnorrSignature{E: e, S: int2bin(sc)}, nil
}

func randomScalarModQ() (*big.Int, error) {
	buf := make([]byte, 20) // 160 bits
	for {
		if _, err := io.ReadFull(rand.Reader, buf); err != nil {
			return nil, fmt.Errorf("nigori: schnorr: reading random nonce: %w", err)
		}
		k := bin2int(buf)
		if k.Cmp(schnorrQ) < 0 {
			return k, nil
		}
	}
}

// SchnorrVerifier verifies signatures against a fixed public key y. It is
// immutable once constructed and safe to share across goroutines.
type SchnorrVerifier struct {
	y *big.Int
}

// NewSchnorrVerifier builds a verifier from the raw bytes of a public key,
// as produced by SchnorrSigner.Public.
func NewSchnorrVerifier(publicKey []byte) *SchnorrVerifier {
	return &SchnorrVerifier{y: bin2int(publicKey)}
}

// Verify reports whether sig is a valid signature over message under this
// verifier's public key. It returns ErrVerify rather than a bool so callers
// cannot accidentally ignore a failed verification.
func (v *SchnorrVerifier) Verify(message []byte, sig *SchnorrSignature) error {
	sVal := bin2int(sig.S)
	eVal := bin2int(sig.E)

	gs := new(big.Int).Exp(schnorrG, sVal, schnorrP)
	ye := new(big.Int).Exp(v.y, eVal, schnorrP)
	r := new(big.Int).Mod(new(big.Int).Mul(gs, ye), schnorrP)

	e1 := NewHashWrapper().Add(message).Add(int2bin(r)).Digest()
	if bin2int(e1).Cmp(eVal) != 0 {
		return ErrVerify
	}
	return nil
}
