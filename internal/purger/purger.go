package purger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Borislavv/go-ash-mirror/cache"
	"github.com/Borislavv/go-ash-mirror/config"
	"github.com/Borislavv/go-ash-mirror/internal/shared/cachedtime"
)

var ErrPurgerNotResponded = errors.New("purger not responded")

// Purger drops recycled entities whose TTL elapsed from every tracked cache.
type Purger interface {
	ForceCall(timeout time.Duration) error
	Metrics() (scans, hits, purged int64)
	Close() error
}

type PurgeWorker struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      *config.PurgerCfg
	logger   *slog.Logger
	trackers func() []cache.Tracker
	counters *purgerCounters
	invokeCh chan struct{}
}

// New starts a purge worker when both the purger and a recycle TTL are configured,
// otherwise it returns a NoOpPurger.
func New(
	ctx context.Context,
	cfg *config.Mirror,
	logger *slog.Logger,
	trackers func() []cache.Tracker,
) Purger {
	if cfg == nil || !cfg.Purger.Enabled() || !cfg.Recycle.Enabled() || cfg.Recycle.TTL <= 0 {
		return &NoOpPurger{}
	}

	ctx, cancel := context.WithCancel(ctx)
	return (&PurgeWorker{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg.Purger,
		logger:   logger,
		trackers: trackers,
		counters: newPurgerCounters(),
		invokeCh: make(chan struct{}),
	}).run()
}

// ForceCall asks the consumer for an out-of-schedule purge.
func (w *PurgeWorker) ForceCall(timeout time.Duration) error {
	after := time.NewTimer(timeout)
	defer after.Stop()

	select {
	case <-w.ctx.Done():
	case w.invokeCh <- struct{}{}:
	case <-after.C:
		return ErrPurgerNotResponded
	}
	return nil
}

func (w *PurgeWorker) Metrics() (scans, hits, purged int64) {
	return w.counters.snapshot()
}

func (w *PurgeWorker) Close() error {
	w.cancel()
	return nil
}

func (w *PurgeWorker) run() *PurgeWorker {
	w.logger.Info("purger is running", "calls_per_sec", w.cfg.CallsPerSec)

	go func() {
		defer w.logger.Info("purger is stopped")
		var wg sync.WaitGroup
		wg.Go(w.consumer)
		wg.Go(w.provider)
		wg.Wait()
	}()

	return w
}

// provider - wakes the consumer on every tick while some cache holds recycled entities.
func (w *PurgeWorker) provider() {
	var callsPerSec = w.cfg.CallsPerSec
	if callsPerSec <= 0 {
		callsPerSec = 1
	}

	each := time.Second / time.Duration(callsPerSec)
	tick := time.NewTicker(each)
	defer tick.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-tick.C:
			if w.recycled() > 0 {
				select {
				case <-w.ctx.Done():
					return
				case w.invokeCh <- struct{}{}:
				}
			}
		}
	}
}

// consumer - purges expired recycled entities of every tracked cache.
func (w *PurgeWorker) consumer() {
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.invokeCh:
			w.counters.scans.Add(1)
			if n := w.purge(cachedtime.Now()); n > 0 {
				w.counters.hits.Add(1)
				w.counters.purged.Add(int64(n))
			}
		}
	}
}

func (w *PurgeWorker) purge(now time.Time) (purged int) {
	for _, t := range w.trackers() {
		if n := t.PurgeExpired(now); n > 0 {
			w.logger.Debug("recycled entities purged", "cache", t.Name(), "count", n)
			purged += n
		}
	}
	return purged
}

func (w *PurgeWorker) recycled() (n int) {
	for _, t := range w.trackers() {
		n += t.RecycledLen()
	}
	return n
}
