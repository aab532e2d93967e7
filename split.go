package nigori

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"io"
	"math/big"

	"golang.org/x/crypto/hkdf"
)

// SplitEndpoint is one (host, port) a Shamir share is dispersed to.
type SplitEndpoint struct {
	Host string
	Port int
}

// SplitDescriptor names the threshold k and the endpoints shares were
// dispersed to. It is persisted as a normal record of type
// TypeSplitServers, framed with the same length-prefixed codec used for
// every other wire structure in this package.
type SplitDescriptor struct {
	K         int
	Endpoints []SplitEndpoint
}

// Marshal encodes the descriptor as concat([int2bin(k), host0, int2bin(port0), ...]).
func (d *SplitDescriptor) Marshal() []byte {
	fields := [][]byte{uintToBin(uint64(d.K))}
	for _, ep := range d.Endpoints {
		fields = append(fields, []byte(ep.Host), uintToBin(uint64(ep.Port)))
	}
	return concat(fields...)
}

// UnmarshalSplitDescriptor reverses Marshal.
func UnmarshalSplitDescriptor(b []byte) (*SplitDescriptor, error) {
	fields, err := unconcat(b)
	if err != nil {
		return nil, fmt.Errorf("nigori: split descriptor: %w", err)
	}
	if len(fields) < 1 || len(fields)%2 != 1 {
		return nil, fmt.Errorf("nigori: split descriptor: malformed field count %d", len(fields))
	}
	d := &SplitDescriptor{K: int(binToUint(fields[0]))}
	for i := 1; i < len(fields); i += 2 {
		d.Endpoints = append(d.Endpoints, SplitEndpoint{
			Host: string(fields[i]),
			Port: int(binToUint(fields[i+1])),
		})
	}
	return d, nil
}

func uintToBin(n uint64) []byte {
	return int2bin(new(big.Int).SetUint64(n))
}

func binToUint(b []byte) uint64 {
	return bin2int(b).Uint64()
}

// serverLabel derives a 16-byte tag binding a share to one specific
// (host, port) endpoint, so a share read from the descriptor's server list
// cannot be replayed against a different slot in a different split group.
func serverLabel(kMac []byte, endpoint SplitEndpoint) ([]byte, error) {
	info := fmt.Sprintf("nigori-split:%s:%d", endpoint.Host, endpoint.Port)
	r := hkdf.New(sha256.New, kMac, nil, []byte(info))
	label := make([]byte, 16)
	if _, err := io.ReadFull(r, label); err != nil {
		return nil, fmt.Errorf("nigori: split client: deriving server label: %w", err)
	}
	return label, nil
}

// SplitClient disperses a single secret across k-of-n independent record
// stores using Shamir sharing, so that no fewer than k of them can ever
// reconstruct it. Each endpoint is addressed by an already-constructed
// Client sharing the same (username, serverName, password) — the servers
// differ, not the identity.
type SplitClient struct {
	Clients   []*Client
	Endpoints []SplitEndpoint // parallel to Clients; used to label each share
	K         int
}

// Split shares secret into len(sc.Clients) pieces (threshold sc.K) and
// writes one share to each client under (typeTag, name). If sc.Endpoints is
// set, each share is bound to its destination server with an HKDF label.
func (sc *SplitClient) Split(ctx context.Context, typeTag uint32, name, secret []byte) error {
	n := len(sc.Clients)
	shares, err := ShamirSplit(secret, sc.K, n, ShamirPrime())
	if err != nil {
		return fmt.Errorf("nigori: split client: sharing secret: %w", err)
	}
	for i, share := range shares {
		fields := [][]byte{uintToBin(uint64(share.Index)), int2bin(share.Y)}
		if i < len(sc.Endpoints) {
			label, err := serverLabel(sc.Clients[i].keys.kMac, sc.Endpoints[i])
			if err != nil {
				return err
			}
			fields = append([][]byte{label}, fields...)
		}
		if err := sc.Clients[i].AddRecord(ctx, typeTag, name, concat(fields...)); err != nil {
			return fmt.Errorf("nigori: split client: writing share %d: %w", share.Index, err)
		}
	}
	return nil
}

// Recover fetches the latest share from every reachable client and
// reconstructs the secret as soon as sc.K of them have responded. A share
// whose embedded server label doesn't match its expected endpoint is
// discarded rather than used, so a descriptor re-pointed at a different
// server silently fails closed instead of reconstructing a stale secret. It
// returns an error if fewer than sc.K shares could be verified, if a server
// label cannot be derived, or if ShamirRecover rejects the shares.
func (sc *SplitClient) Recover(ctx context.Context, typeTag uint32, name []byte) ([]byte, error) {
	var shares []ShamirShare
	for i, c := range sc.Clients {
		rv, err := c.GetRecord(ctx, typeTag, name, -1)
		if err != nil {
			continue
		}
		fields, err := unconcat(rv.Value)
		if err != nil {
			continue
		}

		labeled := i < len(sc.Endpoints)
		if labeled {
			if len(fields) != 3 {
				continue
			}
			want, err := serverLabel(c.keys.kMac, sc.Endpoints[i])
			if err != nil {
				return nil, err
			}
			if !hmac.Equal(fields[0], want) {
				continue
			}
			fields = fields[1:]
		}
		if len(fields) != 2 {
			continue
		}

		shares = append(shares, ShamirShare{
			Index: int(binToUint(fields[0])),
			Y:     bin2int(fields[1]),
		})
		if len(shares) >= sc.K {
			break
		}
	}
	if len(shares) < sc.K {
		return nil, fmt.Errorf("nigori: split client: only %d of %d required shares reachable", len(shares), sc.K)
	}
	return ShamirRecover(shares, ShamirPrime())
}
