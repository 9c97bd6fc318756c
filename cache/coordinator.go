package cache

import (
	"time"

	"github.com/Borislavv/go-ash-mirror/rest"
)

// Coordinator is the narrow view a cache keeps of the object that provisioned it.
type Coordinator interface {
	Rest() rest.Requester
}

// Tracker is what background workers need from a cache regardless of its key and entity types.
type Tracker interface {
	Name() string
	Len() int
	RecycledLen() int
	Metrics() Metrics
	PurgeExpired(now time.Time) int
}
