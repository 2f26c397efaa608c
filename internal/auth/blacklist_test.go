package auth

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/blog-api/internal/observability"
)

func TestBlacklist_RevokeIsMonotonicAndIdempotent(t *testing.T) {
	bl := NewBlacklist(nil)

	assert.False(t, bl.IsRevoked("t1"))
	bl.Revoke("t1")
	assert.True(t, bl.IsRevoked("t1"))
	bl.Revoke("t1")
	assert.True(t, bl.IsRevoked("t1"))
	assert.Equal(t, 1, bl.Len())
	assert.False(t, bl.IsRevoked("t2"))
}

func TestBlacklist_IgnoresEmptyToken(t *testing.T) {
	bl := NewBlacklist(nil)
	bl.Revoke("")
	assert.Equal(t, 0, bl.Len())
}

func TestBlacklist_PruneDropsOnlyExpiredEntries(t *testing.T) {
	bl := NewBlacklist(nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	bl.RevokeUntil("expired", now.Add(-time.Minute))
	bl.RevokeUntil("live", now.Add(time.Minute))
	bl.Revoke("forever")

	removed := bl.Prune(now)

	assert.Equal(t, 1, removed)
	assert.False(t, bl.IsRevoked("expired"))
	assert.True(t, bl.IsRevoked("live"))
	assert.True(t, bl.IsRevoked("forever"))
}

func TestBlacklist_RevokeWithoutExpiryIsNeverPruned(t *testing.T) {
	bl := NewBlacklist(nil)
	now := time.Now()

	bl.RevokeUntil("t", now.Add(-time.Hour))
	bl.Revoke("t")

	assert.Equal(t, 0, bl.Prune(now))
	assert.True(t, bl.IsRevoked("t"))
}

func TestBlacklist_ConcurrentRevokeAndLookup(t *testing.T) {
	bl := NewBlacklist(observability.NewMetrics())

	const workers = 16
	const perWorker = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(2)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				token := fmt.Sprintf("token-%d-%d", w, i)
				bl.Revoke(token)
				if !bl.IsRevoked(token) {
					t.Errorf("token %s not visible after revoke", token)
				}
			}
		}(w)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_ = bl.IsRevoked(fmt.Sprintf("token-%d-%d", w, i))
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, workers*perWorker, bl.Len())
}
