package cache

import (
	platformerrors "github.com/jmgilman/go/errors"
)

var (
	// ErrUnbound is returned by entity transitions when the entity has no owning cache.
	ErrUnbound = platformerrors.New(platformerrors.CodeInternal, "entity is not bound to a cache")

	// ErrForeignEntity is returned when an entity is offered to a cache that does not own it.
	ErrForeignEntity = platformerrors.New(platformerrors.CodeConflict, "entity belongs to another cache")

	// ErrOccupied is returned by Recycle when a different entity is live under the key.
	ErrOccupied = platformerrors.New(platformerrors.CodeConflict, "key is occupied by another live entity")

	// ErrKeyMismatch is returned when an entity's own key differs from the key it is stored under.
	ErrKeyMismatch = platformerrors.New(platformerrors.CodeInvalidInput, "entity key does not match")

	// ErrNoFetcher is returned by Fetch on caches provisioned without a request function.
	ErrNoFetcher = platformerrors.New(platformerrors.CodeNotImplemented, "cache cannot fetch")
)
