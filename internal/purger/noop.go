package purger

import "time"

// NoOpPurger is a no-op implementation of Purger.
// It purges nothing and reports zero metrics.
type NoOpPurger struct{}

// ForceCall does nothing and returns nil immediately.
func (NoOpPurger) ForceCall(timeout time.Duration) error {
	return nil
}

// Metrics always returns zero values.
func (NoOpPurger) Metrics() (scans, hits, purged int64) {
	return 0, 0, 0
}

// Close does nothing and returns nil.
func (NoOpPurger) Close() error {
	return nil
}
