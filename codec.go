// Package nigori implements the client-side cryptographic core of Nigori:
// password-derived key hierarchy, Schnorr signatures over a fixed
// prime-order subgroup, authenticated encryption and deterministic name
// permutation, and Shamir secret sharing over a fixed prime field.
//
// The server, the HTTP transport, and the record store are treated as
// external collaborators; see internal/storetest for a fake used only in
// tests.
package nigori

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// ErrCannotInvert is returned by modInverse when the extended GCD of the
// two operands is not 1.
var ErrCannotInvert = fmt.Errorf("nigori: cannot invert value modulo modulus")

// int2bin returns the minimal big-endian encoding of n. The encoding of
// zero is the empty byte slice.
func int2bin(n *big.Int) []byte {
	if n.Sign() == 0 {
		return []byte{}
	}
	return n.Bytes()
}

// bin2int is the left inverse of int2bin: bin2int(int2bin(n)) == n.
func bin2int(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

// padInt2bin big-endian encodes n padded with leading zeros to exactly w
// bytes. It panics if the minimal encoding of n is wider than w, since that
// indicates a programming error (a length prefix or fixed-width field that
// no longer fits), not a data-dependent failure.
func padInt2bin(n uint32, w int) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, n)
	if w < 4 {
		if n>>(8*uint(w)) != 0 {
			panic("nigori: padInt2bin: value does not fit in width")
		}
		return b[4-w:]
	}
	out := make([]byte, w)
	copy(out[w-4:], b)
	return out
}

// lengthOf returns the 4-byte big-endian encoding of len(x), used as a
// length prefix by concat/unconcat.
func lengthOf(x []byte) []byte {
	return padInt2bin(uint32(len(x)), 4)
}

// concat frames a list of byte strings as lengthOf(x0) || x0 || lengthOf(x1)
// || x1 || ..., so that every hash and MAC input built from it is
// unambiguous regardless of the individual field contents.
func concat(fields ...[]byte) []byte {
	var out []byte
	for _, f := range fields {
		out = append(out, lengthOf(f)...)
		out = append(out, f...)
	}
	return out
}

// unconcat is the strict inverse of concat. It returns an error if the
// declared length of any field exceeds the remaining bytes, or if trailing
// garbage is left after the last field.
func unconcat(b []byte) ([][]byte, error) {
	var out [][]byte
	for len(b) > 0 {
		if len(b) < 4 {
			return nil, fmt.Errorf("nigori: unconcat: truncated length prefix")
		}
		l := binary.BigEndian.Uint32(b[:4])
		b = b[4:]
		if uint64(l) > uint64(len(b)) {
			return nil, fmt.Errorf("nigori: unconcat: field length %d exceeds remaining %d bytes", l, len(b))
		}
		out = append(out, b[:l])
		b = b[l:]
	}
	return out, nil
}
