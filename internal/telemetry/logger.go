// Package telemetry periodically logs per-interval cache and purger statistics.
package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/Borislavv/go-ash-mirror/cache"
	"github.com/Borislavv/go-ash-mirror/config"
	"github.com/Borislavv/go-ash-mirror/internal/purger"
)

type Logger interface {
	Interval() time.Duration
	Close() error
}

type Logs struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      config.TelemetryCfg
	logger   *slog.Logger
	trackers func() []cache.Tracker
	purger   purger.Purger
	interval time.Duration
}

func New(
	ctx context.Context,
	cfg config.TelemetryCfg,
	logger *slog.Logger,
	trackers func() []cache.Tracker,
	p purger.Purger,
) *Logs {
	ctx, cancel := context.WithCancel(ctx)
	return (&Logs{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		logger:   logger,
		trackers: trackers,
		purger:   p,
		interval: cfg.Interval,
	}).run()
}

func (l *Logs) Interval() time.Duration {
	return l.interval
}

func (l *Logs) Close() error {
	l.cancel()
	return nil
}

func (l *Logs) run() *Logs {
	if l.cfg.Enabled && l.interval > 0 {
		go l.loop()
	}
	return l
}

func (l *Logs) loop() {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	s := newSampler(l.trackers, l.purger)
	prev := s.snapshot()

	for {
		select {
		case <-l.ctx.Done():
			return

		case <-ticker.C:
			cur := s.snapshot()
			d := deltaSnapshot(prev, cur)
			prev = cur

			common := []any{"interval", l.interval.String()}

			for _, t := range l.trackers() {
				m := d.caches[t.Name()]
				l.logger.Info("cache",
					append(common,
						"name", t.Name(),
						"entries", t.Len(),
						"recycled_entries", t.RecycledLen(),
						"hits", m.Hits,
						"misses", m.Misses,
						"created", m.Created,
						"updated", m.Updated,
						"unchanged", m.Unchanged,
						"revived", m.Revived,
						"recycled", m.Recycled,
						"purged", m.Purged,
						"evicted", m.Evicted,
					)...,
				)
			}

			if d.purgeScans > 0 {
				l.logger.Info("purger",
					append(common,
						"scans", d.purgeScans,
						"hits", d.purgeHits,
						"purged", d.purged,
					)...,
				)
			}
		}
	}
}
