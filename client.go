package nigori

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// TypeRSA and TypeSplitServers are the two record-name type tags the
// reference client and the split descriptor use; other callers are free to
// mint their own.
const (
	TypePassword     uint32 = 1
	TypeRSA          uint32 = 3
	TypeSplitServers uint32 = 4
)

// ErrReplay is the client-side mirror of the server's 401 "This is a
// replay" response.
var ErrReplay = fmt.Errorf("nigori: server rejected auth token as a replay")

// ProtocolError carries the status code and reason string of a non-200 HTTP
// response.
type ProtocolError struct {
	Status int
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("nigori: protocol error: HTTP %d %s", e.Status, e.Reason)
}

// RecordVersion is one version of a stored record, as surfaced by
// /list-resource and /get-resource.
type RecordVersion struct {
	Version       int
	TotalVersions int
	CreationTime  time.Time
	Value         []byte
}

// Client composes the cryptographic core into the five client operations:
// Register, Authenticate, AddRecord, ListRecords, GetRecord. It is
// otherwise stateless between calls — no session state survives a single
// HTTP round trip beyond the key bundle itself.
type Client struct {
	baseURL string
	user    []byte
	keys    *KeyDeriver
	http    *http.Client
	log     *slog.Logger
}

// ClientOption configures optional Client behavior.
type ClientOption func(*Client)

// WithHTTPClient overrides the default *http.Client (e.g. for timeouts, or
// to point at a test server).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithLogger attaches a structured logger; if omitted, a no-op logger is
// used so Client never panics on a nil logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.log = l }
}

// NewClient builds a Client for (server, port), deriving its key bundle
// from (username, serverName, password). The password is not retained
// beyond key derivation.
func NewClient(server string, port int, username, serverName, password []byte, opts ...ClientOption) (*Client, error) {
	keys, err := NewKeyDeriver(username, serverName, password)
	if err != nil {
		return nil, fmt.Errorf("nigori: client: deriving keys: %w", err)
	}
	c := &Client{
		baseURL: fmt.Sprintf("http://%s:%d", server, port),
		user:    username,
		keys:    keys,
		http:    http.DefaultClient,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// authParams builds the fresh auth-token signature required by every
// authenticated request: a seconds-precision timestamp plus a 20-bit
// nonce, signed with this client's Schnorr signer.
func (c *Client) authParams() (url.Values, error) {
	nonce, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 20))
	if err != nil {
		return nil, fmt.Errorf("nigori: client: reading auth nonce: %w", err)
	}
	t := fmt.Sprintf("%d:%d", time.Now().Unix(), nonce.Int64())

	sig, err := c.keys.Signer().Sign([]byte(t))
	if err != nil {
		return nil, fmt.Errorf("nigori: client: signing auth token: %w", err)
	}

	v := url.Values{}
	v.Set("user", string(c.user))
	v.Set("t", t)
	v.Set("e", base64.URLEncoding.EncodeToString(sig.E))
	v.Set("s", base64.URLEncoding.EncodeToString(sig.S))
	return v, nil
}

// permutedName deterministically encrypts (typeTag, name) the same way for
// every write and every read of the same logical record.
func (c *Client) permutedName(typeTag uint32, name []byte) string {
	tagged := concat(int2bin(new(big.Int).SetUint64(uint64(typeTag))), name)
	return c.keys.Permute(tagged)
}

func (c *Client) do(ctx context.Context, method, path string, values url.Values) (*http.Response, error) {
	var req *http.Request
	var err error
	switch method {
	case http.MethodGet:
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+values.Encode(), nil)
	case http.MethodPost:
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader([]byte(values.Encode())))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	default:
		return nil, fmt.Errorf("nigori: client: unsupported method %s", method)
	}
	if err != nil {
		return nil, fmt.Errorf("nigori: client: building request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nigori: client: %s %s: %w", method, path, err)
	}
	return resp, nil
}

func readBody(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("nigori: client: reading response body: %w", err)
	}
	return string(b), nil
}

// checkStatus translates a non-200 response into a ProtocolError, special-
// casing the two 401 reasons the server can return so callers can
// distinguish "bad signature" from "replay" without string-matching
// themselves.
func checkStatus(resp *http.Response, reason string) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	if resp.StatusCode == http.StatusUnauthorized {
		if reason == "This is a replay" {
			return ErrReplay
		}
		return ErrVerify
	}
	return &ProtocolError{Status: resp.StatusCode, Reason: reason}
}

// Register publishes this client's Schnorr public key to the server via
// POST /register.
func (c *Client) Register(ctx context.Context) error {
	v := url.Values{}
	v.Set("user", string(c.user))
	v.Set("publicKey", base64.URLEncoding.EncodeToString(c.keys.Signer().Public()))

	resp, err := c.do(ctx, http.MethodPost, "/register", v)
	if err != nil {
		return err
	}
	body, err := readBody(resp)
	if err != nil {
		return err
	}
	c.log.Debug("register", "user", string(c.user), "status", resp.StatusCode)
	return checkStatus(resp, body)
}

// Authenticate proves possession of the password to the server without
// revealing it, via POST /authenticate.
func (c *Client) Authenticate(ctx context.Context) error {
	v, err := c.authParams()
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPost, "/authenticate", v)
	if err != nil {
		return err
	}
	body, err := readBody(resp)
	if err != nil {
		return err
	}
	c.log.Debug("authenticate", "user", string(c.user), "status", resp.StatusCode)
	return checkStatus(resp, body)
}

// AddRecord encrypts value and writes a new version under (typeTag, name)
// via POST /add-resource.
func (c *Client) AddRecord(ctx context.Context, typeTag uint32, name, value []byte) error {
	v, err := c.authParams()
	if err != nil {
		return err
	}
	envelope, err := c.keys.Encrypt(value)
	if err != nil {
		return fmt.Errorf("nigori: client: encrypting value: %w", err)
	}
	v.Set("name", c.permutedName(typeTag, name))
	v.Set("value", base64.URLEncoding.EncodeToString(envelope))

	resp, err := c.do(ctx, http.MethodPost, "/add-resource", v)
	if err != nil {
		return err
	}
	body, err := readBody(resp)
	if err != nil {
		return err
	}
	c.log.Debug("add-record", "user", string(c.user), "status", resp.StatusCode)
	return checkStatus(resp, body)
}

type wireRecord struct {
	Version       int     `json:"version"`
	TotalVersions int     `json:"totalVersions"`
	CreationTime  float64 `json:"creationTime"`
	Value         string  `json:"value"`
}

func (c *Client) decodeRecord(w wireRecord) (RecordVersion, error) {
	plain, err := c.keys.Decrypt(w.Value)
	if err != nil {
		return RecordVersion{}, fmt.Errorf("nigori: client: decrypting record: %w", err)
	}
	return RecordVersion{
		Version:       w.Version,
		TotalVersions: w.TotalVersions,
		CreationTime:  time.Unix(int64(w.CreationTime), 0).UTC(),
		Value:         plain,
	}, nil
}

// ListRecords returns every version of (typeTag, name), ordered by
// server-recorded creation time, via GET /list-resource.
func (c *Client) ListRecords(ctx context.Context, typeTag uint32, name []byte) ([]RecordVersion, error) {
	v, err := c.authParams()
	if err != nil {
		return nil, err
	}
	v.Set("name", c.permutedName(typeTag, name))

	resp, err := c.do(ctx, http.MethodGet, "/list-resource", v)
	if err != nil {
		return nil, err
	}
	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp, body); err != nil {
		return nil, err
	}

	var wire []wireRecord
	if err := json.Unmarshal([]byte(body), &wire); err != nil {
		return nil, fmt.Errorf("nigori: client: decoding list-resource response: %w", err)
	}
	out := make([]RecordVersion, 0, len(wire))
	for _, w := range wire {
		rv, err := c.decodeRecord(w)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	c.log.Debug("list-records", "user", string(c.user), "count", len(out))
	return out, nil
}

// History is an alias for ListRecords naming the operation by its more
// familiar name.
func (c *Client) History(ctx context.Context, typeTag uint32, name []byte) ([]RecordVersion, error) {
	return c.ListRecords(ctx, typeTag, name)
}

// GetRecord fetches a single version of (typeTag, name) via GET
// /get-resource; version < 0 means "latest".
func (c *Client) GetRecord(ctx context.Context, typeTag uint32, name []byte, version int) (RecordVersion, error) {
	v, err := c.authParams()
	if err != nil {
		return RecordVersion{}, err
	}
	v.Set("name", c.permutedName(typeTag, name))
	if version >= 0 {
		v.Set("version", strconv.Itoa(version))
	}

	resp, err := c.do(ctx, http.MethodGet, "/get-resource", v)
	if err != nil {
		return RecordVersion{}, err
	}
	body, err := readBody(resp)
	if err != nil {
		return RecordVersion{}, err
	}
	if err := checkStatus(resp, body); err != nil {
		return RecordVersion{}, err
	}

	var w wireRecord
	if err := json.Unmarshal([]byte(body), &w); err != nil {
		return RecordVersion{}, fmt.Errorf("nigori: client: decoding get-resource response: %w", err)
	}
	rv, err := c.decodeRecord(w)
	if err != nil {
		return RecordVersion{}, err
	}
	c.log.Debug("get-record", "user", string(c.user), "version", rv.Version)
	return rv, nil
}
