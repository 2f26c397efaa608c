package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/blog-api/internal/clock"
)

// Pruner drops blacklist entries whose token already expired.
type Pruner interface {
	Prune(now time.Time) int
}

// StartBlacklistPruner runs Prune every interval until ctx is done.
// A non-positive interval disables pruning and returns a closed channel.
func StartBlacklistPruner(ctx context.Context, blacklist Pruner, clk clock.Clock, interval time.Duration, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if interval <= 0 || blacklist == nil {
		close(done)
		return done
	}
	if clk == nil {
		clk = clock.New()
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		logger.Info("blacklist pruner started", zap.Duration("interval", interval))
		for {
			select {
			case <-ctx.Done():
				logger.Info("blacklist pruner stopped")
				return
			case <-ticker.C:
				if removed := blacklist.Prune(clk.Now()); removed > 0 {
					logger.Debug("pruned expired blacklist entries", zap.Int("removed", removed))
				}
			}
		}
	}()
	return done
}
