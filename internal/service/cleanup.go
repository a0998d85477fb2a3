package service

import (
	"context"
	"time"

	"admission-relay/internal/clock"
	"admission-relay/pkg/logger"
)

// ExpiringStore is a store whose records age out
type ExpiringStore interface {
	CleanupExpired() (int64, error)
}

// RunCleanup removes expired records every interval until ctx is done
func RunCleanup(ctx context.Context, store ExpiringStore, clk clock.Clock, interval time.Duration, log *logger.Logger) {
	ticker := clk.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := store.CleanupExpired()
			if err != nil {
				log.Error("Failed to cleanup expired deliveries", "error", err)
			} else if count > 0 {
				log.Info("Cleaned up expired deliveries", "count", count)
			}
		}
	}
}
