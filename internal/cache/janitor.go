package cache

import (
	"context"
	"log"
	"time"
)

// RunJanitor prunes entries older than maxAge every interval until ctx ends.
func RunJanitor(ctx context.Context, s Store, maxAge, interval time.Duration, logger *log.Logger) {
	if logger == nil {
		logger = log.Default()
	}
	if maxAge <= 0 || interval <= 0 {
		logger.Printf("[cache] janitor disabled (max_age=%s interval=%s)", maxAge, interval)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Prune(ctx, time.Now().Add(-maxAge))
			if err != nil {
				logger.Printf("[cache] prune failed: %v", err)
				continue
			}
			if n > 0 {
				logger.Printf("[cache] pruned %d entries older than %s", n, maxAge)
			}
		}
	}
}
