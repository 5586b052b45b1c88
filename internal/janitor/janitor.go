package janitor

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper is the part of the room store the janitor needs.
type Sweeper interface {
	SweepInactive(now time.Time, retention time.Duration) int
}

// Run reclaims rooms idle for longer than retention every interval until ctx
// is done.
func Run(ctx context.Context, store Sweeper, interval, retention time.Duration) {
	tk := time.NewTicker(interval)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-tk.C:
				SweepOnce(store, now, retention)
			}
		}
	}()
}

func SweepOnce(store Sweeper, now time.Time, retention time.Duration) int {
	n := store.SweepInactive(now, retention)
	if n > 0 {
		zap.L().Info("janitor.swept", zap.Int("rooms", n), zap.Duration("retention", retention))
	}
	return n
}
