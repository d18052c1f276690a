package utils

import (
	"context"
	"math/rand"
	"time"
)

// RandomDelay sleeps for a random duration between min and max, or until ctx is done.
// Pass time.Duration values like: RandomDelay(ctx, 2*time.Second, 5*time.Second)
//
// WHY RANDOM? Fixed delays are detectable patterns.
// Random delays look more like a human browsing.
func RandomDelay(ctx context.Context, min, max time.Duration) {
	if max <= 0 {
		return
	}
	sleep := min
	if diff := max - min; diff > 0 {
		sleep += time.Duration(rand.Int63n(int64(diff)))
	}
	if sleep <= 0 {
		return
	}

	t := time.NewTimer(sleep)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
