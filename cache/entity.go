package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Borislavv/go-ash-mirror/model"
	"github.com/Borislavv/go-ash-mirror/schema"
)

// Entity is a cacheable resource. Resources embed Base and get Object for free.
type Entity[K comparable] interface {
	Object() *Base[K]
}

// Hydrator is implemented by entities resolving cross-cache references from the
// record they were built from. Hydrate runs after the owning cache released its lock;
// hydrations of one entity never overlap.
type Hydrator interface {
	Hydrate(rec schema.Record) error
}

// membership is the handle an entity keeps on its owning cache.
type membership[K comparable] interface {
	cacheName() string
	insert(b *Base[K]) (bool, error)
	retire(b *Base[K], deleted bool) error
	refresh(ctx context.Context, b *Base[K]) error
}

// Base carries the identity and lifecycle flags of a cached resource.
// A Base without key is partial: it can be decoded and encoded but never cached.
type Base[K comparable] struct {
	id          schema.Value[K]
	cached      atomic.Bool
	deleted     atomic.Bool
	deletedAt   atomic.Int64
	fingerprint atomic.Uint64
	hydrating   sync.Mutex
	home        membership[K]
}

func (b *Base[K]) Object() *Base[K] { return b }

// EntityKey returns the key; false means the entity is partial.
func (b *Base[K]) EntityKey() (K, bool) { return b.id.Get() }

// IDSlot exposes the key storage to schema declarations.
func (b *Base[K]) IDSlot() *schema.Value[K] { return &b.id }

func (b *Base[K]) IsCached() bool  { return b.cached.Load() }
func (b *Base[K]) IsDeleted() bool { return b.deleted.Load() }

// DeletedAt returns when the entity was marked deleted.
func (b *Base[K]) DeletedAt() (time.Time, bool) {
	at := b.deletedAt.Load()
	if at == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, at), true
}

// Cache inserts the entity into the live tier of its owning cache.
// false means the cache kept a different entity already live under the key.
func (b *Base[K]) Cache() (bool, error) {
	if b.home == nil {
		return false, ErrUnbound
	}
	return b.home.insert(b)
}

// Uncache moves the entity into the recycle tier of its owning cache.
func (b *Base[K]) Uncache() error {
	if b.home == nil {
		return ErrUnbound
	}
	return b.home.retire(b, false)
}

// MarkDeleted flags the entity deleted upstream and retires it.
func (b *Base[K]) MarkDeleted() error {
	if b.home == nil {
		return ErrUnbound
	}
	return b.home.retire(b, true)
}

// Refresh re-requests the entity's own record and applies it.
func (b *Base[K]) Refresh(ctx context.Context) error {
	if b.home == nil {
		return ErrUnbound
	}
	return b.home.refresh(ctx, b)
}

func (b *Base[K]) String() string {
	home := "-"
	if b.home != nil {
		home = b.home.cacheName()
	}
	if k, ok := b.EntityKey(); ok {
		return fmt.Sprintf("%s(id=%v, cached=%t, deleted=%t)", home, k, b.IsCached(), b.IsDeleted())
	}
	return fmt.Sprintf("%s(partial, cached=%t, deleted=%t)", home, b.IsCached(), b.IsDeleted())
}

func (b *Base[K]) key() (K, error) {
	k, ok := b.EntityKey()
	if !ok {
		return k, model.ErrPartialEntity
	}
	return k, nil
}

func (b *Base[K]) markLive() {
	b.deleted.Store(false)
	b.deletedAt.Store(0)
	b.cached.Store(true)
}

// BaseSchema builds the root schema of entities keyed by K under wireKey.
func BaseSchema[K comparable](name, wireKey string, codec schema.Codec[K]) *schema.Schema[*Base[K]] {
	return schema.MustBuild(name, func() *Base[K] { return &Base[K]{} }, nil,
		schema.F("id", wireKey, func(b *Base[K]) *schema.Value[K] { return &b.id }, codec),
	)
}

// SnowflakeBase is the root schema of every snowflake-keyed resource.
var SnowflakeBase = BaseSchema("Base", "id", schema.Key)

// binding ties one entity to its owning cache.
type binding[K comparable, E Entity[K]] struct {
	c *Cache[K, E]
	e E
}

func (bd *binding[K, E]) cacheName() string { return bd.c.name }

func (bd *binding[K, E]) insert(b *Base[K]) (bool, error) {
	k, err := b.key()
	if err != nil {
		return false, err
	}
	return bd.c.Set(k, bd.e)
}

func (bd *binding[K, E]) retire(b *Base[K], deleted bool) error {
	k, err := b.key()
	if err != nil {
		return err
	}
	return bd.c.retire(k, bd.e, deleted)
}

func (bd *binding[K, E]) refresh(ctx context.Context, b *Base[K]) error {
	k, err := b.key()
	if err != nil {
		return err
	}
	_, err = bd.c.Fetch(ctx, k)
	return err
}
