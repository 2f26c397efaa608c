package auth

import (
	"sync"
	"time"

	"github.com/spec-kit/blog-api/internal/observability"
)

// Blacklist is the process-wide set of revoked token strings.
// Entries live until process restart unless Prune is called.
type Blacklist struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	metrics *observability.Metrics
}

// NewBlacklist returns an empty blacklist. metrics may be nil.
func NewBlacklist(metrics *observability.Metrics) *Blacklist {
	return &Blacklist{entries: make(map[string]time.Time), metrics: metrics}
}

// Revoke adds token to the set. Revoking an already revoked token is a no-op.
func (b *Blacklist) Revoke(token string) {
	b.RevokeUntil(token, time.Time{})
}

// RevokeUntil adds token with its known expiry so Prune can drop it later.
// A zero expiresAt keeps the entry until restart.
func (b *Blacklist) RevokeUntil(token string, expiresAt time.Time) {
	if token == "" {
		return
	}
	b.mu.Lock()
	existing, seen := b.entries[token]
	if !seen || (!existing.IsZero() && (expiresAt.IsZero() || expiresAt.After(existing))) {
		b.entries[token] = expiresAt
	}
	size := len(b.entries)
	b.mu.Unlock()

	if !seen {
		b.metrics.TokenRevoked()
	}
	b.metrics.SetBlacklistSize(size)
}

// IsRevoked reports whether token has been revoked.
func (b *Blacklist) IsRevoked(token string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.entries[token]
	return ok
}

// Len returns the number of revoked tokens held.
func (b *Blacklist) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Prune drops entries whose expiry is before now. An expired token is
// rejected by signature verification anyway, so it needs no explicit entry.
func (b *Blacklist) Prune(now time.Time) int {
	b.mu.Lock()
	removed := 0
	for token, expiresAt := range b.entries {
		if !expiresAt.IsZero() && expiresAt.Before(now) {
			delete(b.entries, token)
			removed++
		}
	}
	size := len(b.entries)
	b.mu.Unlock()

	b.metrics.SetBlacklistSize(size)
	return removed
}
