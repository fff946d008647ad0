package server

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Permissions grantable to an API key. Admin implies everything.
const (
	PermCreate  = "create"
	PermVerify  = "verify"
	PermStatus  = "status"
	PermBalance = "balance"
	PermAdmin   = "admin"
)

const (
	defaultRateLimit = 100
	rateWindow       = time.Minute
)

// APIKey is one issued credential. The raw key is returned once at
// creation; listings mask it.
type APIKey struct {
	Key         string    `json:"key,omitempty"`
	MaskedKey   string    `json:"maskedKey,omitempty"`
	Name        string    `json:"name"`
	Permissions []string  `json:"permissions"`
	RateLimit   int       `json:"rateLimit"`
	CreatedAt   time.Time `json:"createdAt"`
	LastUsedAt  time.Time `json:"lastUsedAt,omitempty"`
	Revoked     bool      `json:"revoked"`
}

// APIKeyStore issues, revokes and rate-limits API keys in memory. The
// master key from configuration is implicit and never listed.
type APIKeyStore struct {
	mu      sync.Mutex
	keys    map[string]*APIKey
	windows map[string][]time.Time
	clk     clock.Clock
}

func NewAPIKeyStore(clk clock.Clock) *APIKeyStore {
	return &APIKeyStore{
		keys:    make(map[string]*APIKey),
		windows: make(map[string][]time.Time),
		clk:     clk,
	}
}

// Generate issues a new key with the given permissions. A non-positive
// rate limit gets the default.
func (s *APIKeyStore) Generate(name string, permissions []string, rateLimit int) (*APIKey, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	if rateLimit <= 0 {
		rateLimit = defaultRateLimit
	}
	if len(permissions) == 0 {
		permissions = []string{PermCreate, PermVerify, PermStatus}
	}

	key := &APIKey{
		Key:         "sk_" + hex.EncodeToString(raw),
		Name:        name,
		Permissions: permissions,
		RateLimit:   rateLimit,
		CreatedAt:   s.clk.Now(),
	}

	s.mu.Lock()
	s.keys[key.Key] = key
	s.mu.Unlock()

	cp := *key
	return &cp, nil
}

// Lookup returns the key record and marks it used. Revoked keys do not
// resolve.
func (s *APIKeyStore) Lookup(raw string) (*APIKey, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.keys[raw]
	if !ok || k.Revoked {
		return nil, false
	}
	k.LastUsedAt = s.clk.Now()
	cp := *k
	return &cp, true
}

// Revoke disables a key. Returns false if the key is unknown.
func (s *APIKeyStore) Revoke(raw string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.keys[raw]
	if !ok {
		return false
	}
	k.Revoked = true
	delete(s.windows, raw)
	return true
}

// List returns all keys with the raw value masked.
func (s *APIKeyStore) List() []*APIKey {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*APIKey, 0, len(s.keys))
	for _, k := range s.keys {
		cp := *k
		cp.MaskedKey = maskKey(cp.Key)
		cp.Key = ""
		out = append(out, &cp)
	}
	return out
}

// Allow applies the key's sliding-window rate limit and records this
// request if admitted.
func (s *APIKeyStore) Allow(raw string, limit int) bool {
	if limit <= 0 {
		limit = defaultRateLimit
	}
	now := s.clk.Now()
	cutoff := now.Add(-rateWindow)

	s.mu.Lock()
	defer s.mu.Unlock()

	window := s.windows[raw]
	kept := window[:0]
	for _, t := range window {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= limit {
		s.windows[raw] = kept
		return false
	}
	s.windows[raw] = append(kept, now)
	return true
}

// HasPermission reports whether the key grants perm. Admin grants all.
func (k *APIKey) HasPermission(perm string) bool {
	for _, p := range k.Permissions {
		if p == perm || p == PermAdmin {
			return true
		}
	}
	return false
}

func maskKey(raw string) string {
	if len(raw) <= 10 {
		return "***"
	}
	return raw[:10] + "..."
}
