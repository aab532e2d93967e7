package nigori

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func testKeys() (kEnc, kMac []byte) {
	return bytes.Repeat([]byte{0x11}, 16), bytes.Repeat([]byte{0x22}, 16)
}

func TestEnvelopeEmptyPlaintextIs48Bytes(t *testing.T) {
	kEnc, kMac := testKeys()
	e := newEnvelope(kEnc, kMac, false)

	envelope, err := e.Encrypt(nil)
	require.NoError(t, err)
	require.Len(t, envelope, 48, "16 IV + 16 ciphertext block + 16 MD5 tag")

	got, err := e.Decrypt(base64.URLEncoding.EncodeToString(envelope))
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestEnvelopeTamperedMACFailsDecryption(t *testing.T) {
	kEnc, kMac := testKeys()
	e := newEnvelope(kEnc, kMac, false)

	envelope, err := e.Encrypt([]byte("hello"))
	require.NoError(t, err)
	envelope[len(envelope)-1] ^= 0xFF

	_, err = e.Decrypt(base64.URLEncoding.EncodeToString(envelope))
	require.ErrorIs(t, err, ErrDecryptFailure)
}

func TestEnvelopeTamperedCiphertextFailsDecryption(t *testing.T) {
	kEnc, kMac := testKeys()
	e := newEnvelope(kEnc, kMac, false)

	envelope, err := e.Encrypt([]byte("hello world, block aligned!!!!!"))
	require.NoError(t, err)
	envelope[20] ^= 0x01 // inside the ciphertext region, not the IV or tag

	_, err = e.Decrypt(base64.URLEncoding.EncodeToString(envelope))
	require.ErrorIs(t, err, ErrDecryptFailure)
}

func TestEnvelopePermuteIsDeterministic(t *testing.T) {
	kEnc, kMac := testKeys()
	e := newEnvelope(kEnc, kMac, false)

	a := e.Permute([]byte("lookup-name"))
	b := e.Permute([]byte("lookup-name"))
	require.Equal(t, a, b)
}

func TestEnvelopeV2UsesSHA256Tag(t *testing.T) {
	kEnc, kMac := testKeys()
	e := NewEnvelopeV2(kEnc, kMac)

	envelope, err := e.Encrypt(nil)
	require.NoError(t, err)
	require.Len(t, envelope, 16+16+32, "16 IV + 16 ciphertext block + 32 SHA-256 tag")

	got, err := e.Decrypt(base64.URLEncoding.EncodeToString(envelope))
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestEnvelopeDecryptRejectsTruncatedInput(t *testing.T) {
	kEnc, kMac := testKeys()
	e := newEnvelope(kEnc, kMac, false)
	_, err := e.Decrypt(base64.URLEncoding.EncodeToString([]byte("short")))
	require.ErrorIs(t, err, ErrDecryptFailure)
}

func TestEnvelopeLegacyDESRoundTrip(t *testing.T) {
	kEnc, kMac := testKeys()
	e := newEnvelope(kEnc, kMac, true)

	envelope, err := e.Encrypt([]byte("legacy"))
	require.NoError(t, err)
	got, err := e.Decrypt(base64.URLEncoding.EncodeToString(envelope))
	require.NoError(t, err)
	require.Equal(t, []byte("legacy"), got)
}
