package nigori

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"hash"
	"io"
)

// ErrDecryptFailure is returned for every envelope decryption failure:
// too-short input, MAC mismatch, or invalid padding. Raising a distinct
// exception per reason is a padding-oracle-shaped weakness, so this
// collapses them into one opaque result: a caller cannot distinguish
// "wrong key" from "corrupt padding" from "truncated input".
var ErrDecryptFailure = fmt.Errorf("nigori: envelope: decryption failed")

const blockAlign = 16

// envelopeVariant selects the block cipher and MAC parameters of an
// Envelope. v1 variants reproduce the historical wire format bit-for-bit;
// v2 is the upgraded HMAC-SHA-256 construction, offered opt-in through
// NewEnvelopeV2; Client always uses v1.
type envelopeVariant struct {
	ivBytes         int
	tagSize         int
	newMAC          func() hash.Hash
	newCBCEncrypter func(block cipher.Block, iv []byte) cipher.BlockMode
	newCBCDecrypter func(block cipher.Block, iv []byte) cipher.BlockMode
	newBlock        func(key []byte) (cipher.Block, error)
}

var variantV1AES = envelopeVariant{
	ivBytes:         aes.BlockSize,
	tagSize:         md5.Size,
	newMAC:          md5.New,
	newCBCEncrypter: cipher.NewCBCEncrypter,
	newCBCDecrypter: cipher.NewCBCDecrypter,
	newBlock:        func(key []byte) (cipher.Block, error) { return aes.NewCipher(key) },
}

// variantV1DES is the legacy interoperability mode: DES with an 8-byte key
// (the first 8 bytes of k_enc), still padded to 16-byte blocks like the AES
// path. That padding mismatch is harmless (16 is a multiple of DES's
// 8-byte block size) but wastes up to a full extra block, and it is
// preserved here only so stored legacy envelopes remain decryptable.
var variantV1DES = envelopeVariant{
	ivBytes:         des.BlockSize,
	tagSize:         md5.Size,
	newMAC:          md5.New,
	newCBCEncrypter: cipher.NewCBCEncrypter,
	newCBCDecrypter: cipher.NewCBCDecrypter,
	newBlock:        func(key []byte) (cipher.Block, error) { return des.NewCipher(key[:8]) },
}

var variantV2AES = envelopeVariant{
	ivBytes:         aes.BlockSize,
	tagSize:         sha256.Size,
	newMAC:          sha256.New,
	newCBCEncrypter: cipher.NewCBCEncrypter,
	newCBCDecrypter: cipher.NewCBCDecrypter,
	newBlock:        func(key []byte) (cipher.Block, error) { return aes.NewCipher(key) },
}

// Envelope implements encrypt-then-MAC authenticated encryption: AES-128 (or,
// in legacy mode, DES) in CBC mode, PKCS#7-padded to 16-byte blocks, with an
// HMAC over the ciphertext. Encrypt draws a fresh random IV; Permute uses an
// all-zero IV so that repeated calls on the same plaintext are stable,
// trading indistinguishability for server-side lookup by name.
type Envelope struct {
	kEnc    []byte
	kMac    []byte
	variant envelopeVariant
}

func newEnvelope(kEnc, kMac []byte, legacyDES bool) *Envelope {
	v := variantV1AES
	if legacyDES {
		v = variantV1DES
	}
	return &Envelope{kEnc: kEnc, kMac: kMac, variant: v}
}

// NewEnvelopeV2 builds the upgraded HMAC-SHA-256 envelope. It is never
// produced by the default KeyDeriver path; callers that want the stronger
// tag opt in explicitly via KeyDeriver.EnvelopeV2.
func NewEnvelopeV2(kEnc, kMac []byte) *Envelope {
	return &Envelope{kEnc: kEnc, kMac: kMac, variant: variantV2AES}
}

func pkcs7Pad(plain []byte) []byte {
	pad := blockAlign - len(plain)%blockAlign
	out := make([]byte, len(plain)+pad)
	copy(out, plain)
	for i := len(plain); i < len(out); i++ {
		out[i] = byte(pad)
	}
	return out
}

func pkcs7Unpad(padded []byte) ([]byte, error) {
	if len(padded) == 0 || len(padded)%blockAlign != 0 {
		return nil, ErrDecryptFailure
	}
	pad := int(padded[len(padded)-1])
	if pad == 0 || pad > blockAlign || pad > len(padded) {
		return nil, ErrDecryptFailure
	}
	for _, b := range padded[len(padded)-pad:] {
		if int(b) != pad {
			return nil, ErrDecryptFailure
		}
	}
	return padded[:len(padded)-pad], nil
}

func (e *Envelope) encryptWithIV(plain, iv []byte) ([]byte, error) {
	block, err := e.variant.newBlock(e.kEnc)
	if err != nil {
		return nil, fmt.Errorf("nigori: envelope: building cipher: %w", err)
	}
	padded := pkcs7Pad(plain)
	ciphertext := make([]byte, len(padded))
	e.variant.newCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	mac := hmac.New(e.variant.newMAC, e.kMac)
	mac.Write(ciphertext)
	tag := mac.Sum(nil)[:e.variant.tagSize]

	out := make([]byte, 0, len(ciphertext)+len(tag))
	out = append(out, ciphertext...)
	out = append(out, tag...)
	return out, nil
}

// Encrypt draws a fresh random IV from crypto/rand and returns
// IV || ciphertext || tag.
func (e *Envelope) Encrypt(plain []byte) ([]byte, error) {
	iv := make([]byte, e.variant.ivBytes)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("nigori: envelope: reading random IV: %w", err)
	}
	body, err := e.encryptWithIV(plain, iv)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(iv)+len(body))
	out = append(out, iv...)
	out = append(out, body...)
	return out, nil
}

// Permute deterministically encrypts plain under an all-zero IV and returns
// it base64url-encoded (with padding, RFC 4648 §5), for use as a stable
// server-side lookup key for a record name.
func (e *Envelope) Permute(plain []byte) string {
	iv := make([]byte, e.variant.ivBytes)
	body, err := e.encryptWithIV(plain, iv)
	if err != nil {
		// encryptWithIV only fails if the key is malformed, which
		// NewKeyDeriver already guarantees cannot happen here.
		panic(err)
	}
	out := make([]byte, 0, len(iv)+len(body))
	out = append(out, iv...)
	out = append(out, body...)
	return base64.URLEncoding.EncodeToString(out)
}

// Decrypt reverses Encrypt/Permute. It verifies the MAC before attempting
// decryption, so a tampered envelope never reaches the block cipher, and it
// collapses every failure mode into ErrDecryptFailure.
func (e *Envelope) Decrypt(b64 string) ([]byte, error) {
	crypted, err := base64.URLEncoding.DecodeString(b64)
	if err != nil {
		return nil, ErrDecryptFailure
	}
	if len(crypted) < 32 {
		return nil, ErrDecryptFailure
	}

	tagSize := e.variant.tagSize
	ivBytes := e.variant.ivBytes
	if len(crypted) < ivBytes+tagSize {
		return nil, ErrDecryptFailure
	}

	tag := crypted[len(crypted)-tagSize:]
	iv := crypted[:ivBytes]
	ciphertext := crypted[ivBytes : len(crypted)-tagSize]

	mac := hmac.New(e.variant.newMAC, e.kMac)
	mac.Write(ciphertext)
	expected := mac.Sum(nil)[:tagSize]
	if !hmac.Equal(expected, tag) {
		return nil, ErrDecryptFailure
	}

	if len(ciphertext) == 0 || len(ciphertext)%blockAlign != 0 {
		return nil, ErrDecryptFailure
	}

	block, err := e.variant.newBlock(e.kEnc)
	if err != nil {
		return nil, ErrDecryptFailure
	}
	padded := make([]byte, len(ciphertext))
	e.variant.newCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	return pkcs7Unpad(padded)
}
