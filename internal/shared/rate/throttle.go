// Package rate paces outbound work with a leaky bucket fed into a small burst buffer.
package rate

import (
	"context"

	"go.uber.org/ratelimit"
)

type Throttle struct {
	ch    chan struct{}
	l     ratelimit.Limiter
	limit int
}

// NewThrottle emits at most limit permits per second until ctx is done.
// A tenth of the limit (at least one) may be taken in a burst.
func NewThrottle(ctx context.Context, limit int) *Throttle {
	if limit < 1 {
		limit = 1
	}
	brst := int(float64(limit) * 0.1)
	if brst < 1 {
		brst = 1
	}
	t := &Throttle{
		limit: limit,
		ch:    make(chan struct{}, brst),
		l:     ratelimit.New(limit),
	}
	go t.provider(ctx)
	return t
}

func (t *Throttle) provider(ctx context.Context) {
	defer close(t.ch)
	for {
		t.l.Take()
		select {
		case <-ctx.Done():
			return
		case t.ch <- struct{}{}:
		}
	}
}

// Wait blocks until a permit is available or ctx is done.
// It returns context.Canceled once the throttle itself was stopped.
func (t *Throttle) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case _, ok := <-t.ch:
		if !ok {
			return context.Canceled
		}
		return nil
	}
}

func (t *Throttle) Limit() int {
	return t.limit
}

func (t *Throttle) Chan() <-chan struct{} {
	return t.ch
}
