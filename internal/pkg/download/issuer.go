package download

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

const tokenBytes = 32

// Issuer mints download credentials: an unguessable token plus an
// expiry a fixed duration after issuance and a maximum use count.
type Issuer struct {
	ttl     time.Duration
	maxUses int
	now     func() time.Time
}

// Options tune credential policy.
type Options struct {
	TTL     time.Duration
	MaxUses int
	Now     func() time.Time
}

// NewIssuer builds an Issuer, defaulting to a 24h lifetime and 5 uses.
func NewIssuer(opts Options) *Issuer {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	maxUses := opts.MaxUses
	if maxUses <= 0 {
		maxUses = 5
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Issuer{ttl: ttl, maxUses: maxUses, now: now}
}

// Credential is one issued download grant.
type Credential struct {
	Token     string
	ExpiresAt time.Time
	MaxUses   int
}

// Issue generates a fresh credential from the system entropy source.
func (i *Issuer) Issue() (Credential, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return Credential{}, fmt.Errorf("generate download token: %w", err)
	}
	return Credential{
		Token:     hex.EncodeToString(buf),
		ExpiresAt: i.now().Add(i.ttl),
		MaxUses:   i.maxUses,
	}, nil
}
