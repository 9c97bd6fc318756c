// Package cachedtime provides a coarse process clock refreshed in background.
// Until RunIfEnabled starts it (or after every runner stopped) it falls back to time.Now.
package cachedtime

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/Borislavv/go-ash-mirror/config"
)

const cacheTimeEach = 10 * time.Millisecond

var (
	nowUnix atomic.Int64
	runners atomic.Int32
)

// RunIfEnabled starts refreshing the cached clock until ctx is done.
func RunIfEnabled(ctx context.Context, cfg *config.Mirror) {
	if cfg == nil || !cfg.CacheTimeEnabled {
		return
	}

	nowUnix.Store(time.Now().UnixNano())
	runners.Add(1)

	ticker := time.NewTicker(cacheTimeEach)
	go func() {
		defer runners.Add(-1)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case tt := <-ticker.C:
				nowUnix.Store(tt.UnixNano())
			}
		}
	}()
}

func Now() time.Time {
	if runners.Load() <= 0 {
		return time.Now()
	}
	return time.Unix(0, nowUnix.Load())
}

func UnixNano() int64 {
	if runners.Load() <= 0 {
		return time.Now().UnixNano()
	}
	return nowUnix.Load()
}

func Since(t time.Time) time.Duration {
	return Now().Sub(t)
}
