// Package storetest implements an in-memory fake of the record-store HTTP
// contract, for exercising nigori.Client end-to-end without a real network
// or persistence layer. It is test-only: the real server, transport, and
// persistence are external collaborators the core never implements.
package storetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"
)

type resource struct {
	value        string
	creationTime time.Time
}

// Store is a fake record store backing all five HTTP endpoints. Build one
// with NewStore (the zero value has nil maps and is not usable); call
// NewServer to wrap it in an httptest.Server.
type Store struct {
	mu             sync.Mutex
	users          map[string]string // user -> base64url public key
	seenTokens     map[string]bool
	resourcesByKey map[string][]resource

	// FreshnessWindow bounds how old an auth token's embedded timestamp may
	// be before it is rejected; zero disables the check.
	FreshnessWindow time.Duration
	Now             func() time.Time
}

// NewStore returns an empty Store with a 5-minute freshness window.
func NewStore() *Store {
	return &Store{
		users:           make(map[string]string),
		seenTokens:      make(map[string]bool),
		resourcesByKey:  make(map[string][]resource),
		FreshnessWindow: 5 * time.Minute,
		Now:             time.Now,
	}
}

// NewServer wraps s in an httptest.Server implementing the record-store
// HTTP contract.
func NewServer(s *Store) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/register", s.handleRegister)
	mux.HandleFunc("/authenticate", s.handleAuthenticate)
	mux.HandleFunc("/add-resource", s.handleAddResource)
	mux.HandleFunc("/list-resource", s.handleListResource)
	mux.HandleFunc("/get-resource", s.handleGetResource)
	return httptest.NewServer(mux)
}

// checkToken enforces replay protection and, if FreshnessWindow is set, a
// token-age policy.
func (s *Store) checkToken(user, t string) (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FreshnessWindow > 0 {
		if sec, ok := tokenSeconds(t); ok {
			age := s.Now().Sub(time.Unix(sec, 0))
			if age > s.FreshnessWindow || age < -s.FreshnessWindow {
				return false, "Token is stale"
			}
		}
	}

	key := user + ":" + t
	if s.seenTokens[key] {
		return false, "This is a replay"
	}
	s.seenTokens[key] = true
	return true, ""
}

// tokenSeconds extracts the leading "<unix_seconds>:<nonce>" component of
// an auth token.
func tokenSeconds(t string) (int64, bool) {
	for i, c := range t {
		if c == ':' {
			sec, err := strconv.ParseInt(t[:i], 10, 64)
			return sec, err == nil
		}
	}
	return 0, false
}

func (s *Store) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	user := r.FormValue("user")
	pub := r.FormValue("publicKey")

	s.mu.Lock()
	s.users[user] = pub
	s.mu.Unlock()

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Saved"))
}

// handleAuthenticate only checks for replayed tokens; verifying the
// Schnorr signature itself is the caller's job in tests that want to
// exercise that path (the fake store has no Schnorr verifier wired in).
func (s *Store) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	ok, reason := s.checkToken(r.FormValue("user"), r.FormValue("t"))
	if !ok {
		http.Error(w, reason, http.StatusUnauthorized)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Store) handleAddResource(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	ok, reason := s.checkToken(r.FormValue("user"), r.FormValue("t"))
	if !ok {
		http.Error(w, reason, http.StatusUnauthorized)
		return
	}
	name := r.FormValue("name")
	if name == "" {
		http.Error(w, "Name must be supplied", http.StatusBadRequest)
		return
	}
	value := r.FormValue("value")

	s.mu.Lock()
	s.resourcesByKey[name] = append(s.resourcesByKey[name], resource{
		value:        value,
		creationTime: s.Now(),
	})
	s.mu.Unlock()

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Saved"))
}

type wireRecord struct {
	Version       int     `json:"version"`
	TotalVersions int     `json:"totalVersions"`
	CreationTime  float64 `json:"creationTime"`
	Value         string  `json:"value"`
}

func (s *Store) handleListResource(w http.ResponseWriter, r *http.Request) {
	values, err := url.ParseQuery(r.URL.RawQuery)
	if err != nil {
		http.Error(w, "bad query", http.StatusBadRequest)
		return
	}
	ok, reason := s.checkToken(values.Get("user"), values.Get("t"))
	if !ok {
		http.Error(w, reason, http.StatusUnauthorized)
		return
	}

	s.mu.Lock()
	versions := append([]resource{}, s.resourcesByKey[values.Get("name")]...)
	s.mu.Unlock()

	out := make([]wireRecord, len(versions))
	for i, v := range versions {
		out[i] = wireRecord{
			Version:       i,
			TotalVersions: len(versions),
			CreationTime:  float64(v.creationTime.Unix()),
			Value:         v.value,
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (s *Store) handleGetResource(w http.ResponseWriter, r *http.Request) {
	values, err := url.ParseQuery(r.URL.RawQuery)
	if err != nil {
		http.Error(w, "bad query", http.StatusBadRequest)
		return
	}
	ok, reason := s.checkToken(values.Get("user"), values.Get("t"))
	if !ok {
		http.Error(w, reason, http.StatusUnauthorized)
		return
	}

	s.mu.Lock()
	versions := append([]resource{}, s.resourcesByKey[values.Get("name")]...)
	s.mu.Unlock()

	if len(versions) == 0 {
		http.Error(w, "not found", http.StatusBadRequest)
		return
	}

	target := len(versions) - 1
	if vs := values.Get("version"); vs != "" {
		if n, err := strconv.Atoi(vs); err == nil {
			target = n
		}
	}
	if target < 0 || target >= len(versions) {
		http.Error(w, "version out of range", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(wireRecord{
		Version:       target,
		TotalVersions: len(versions),
		CreationTime:  float64(versions[target].creationTime.Unix()),
		Value:         versions[target].value,
	})
}
