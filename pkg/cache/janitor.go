package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RunCleanup sweeps expired rows from c every interval until ctx is done.
// The first sweep runs immediately.
func RunCleanup(ctx context.Context, c Cache, interval time.Duration, logger zerolog.Logger) {
	if interval <= 0 {
		logger.Warn().Dur("interval", interval).Msg("Cleanup disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := c.Cleanup(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("Cleanup sweep failed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
