package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StartRaffleSweeper launches a background goroutine that periodically draws raffles past their end time.
// It is best-effort: failures are logged and retried on the next tick. It stops when ctx is done.
func StartRaffleSweeper(ctx context.Context, raffles *Raffles, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			drawn, stopped, err := raffles.DrawExpired(ctx)
			if err != nil {
				raffles.log.Warn("raffle sweep failed", zap.Error(err))
				continue
			}
			if drawn > 0 || stopped > 0 {
				raffles.log.Info("raffle sweep", zap.Int("drawn", drawn), zap.Int("stopped", stopped))
			}
		}
	}()
}
