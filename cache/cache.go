// Package cache mirrors server-owned resources into in-process entities.
//
// A Cache owns two tiers per key: live entities reachable through Get, and
// recycled entities that were retired but may be revived, keeping their
// identity, when a record for the same key arrives again.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	platformerrors "github.com/jmgilman/go/errors"
	"golang.org/x/sync/singleflight"

	"github.com/Borislavv/go-ash-mirror/config"
	"github.com/Borislavv/go-ash-mirror/internal/cache/db"
	"github.com/Borislavv/go-ash-mirror/internal/shared/cachedtime"
	"github.com/Borislavv/go-ash-mirror/model"
	"github.com/Borislavv/go-ash-mirror/schema"
)

// Options configure a Cache. Only Normalize is usually required.
type Options[K comparable, E Entity[K]] struct {
	// Normalize turns raw keys into K. Defaults to accepting K and model.Keyed[K] values only.
	Normalize model.Normalizer[K]

	// KeyOf extracts the raw key of a record. Defaults to the wire key of the schema's "id" attribute.
	KeyOf func(rec schema.Record) (any, bool)

	// Construct builds empty entities carrying extra context (e.g. a parent resource).
	// Defaults to the schema constructor.
	Construct func() E

	// Owner is the coordinator that provisioned the cache.
	Owner Coordinator

	// Fetch requests the record of one key. Nil makes Fetch fail with ErrNoFetcher.
	Fetch func(ctx context.Context, owner Coordinator, key K) (schema.Record, error)

	// Recycle bounds the recycle tier. Nil means unbounded.
	Recycle *config.RecycleCfg

	// KeepExisting makes Set refuse to replace a different live entity.
	KeepExisting bool

	// Counters collects the cache metrics. Defaults to counters of its own.
	Counters *Counters

	Logger *slog.Logger
}

// Cache is a keyed store of entities of one resource kind.
// One mutex guards the live and recycled tiers together.
type Cache[K comparable, E Entity[K]] struct {
	mu       sync.Mutex
	name     string
	schema   *schema.Schema[E]
	opts     Options[K, E]
	live     map[K]E
	recycled *db.Recycle[K, E]
	ttl      time.Duration
	logger   *slog.Logger
	counters *Counters
	flight   singleflight.Group
}

func New[K comparable, E Entity[K]](name string, s *schema.Schema[E], opts Options[K, E]) *Cache[K, E] {
	if opts.Normalize == nil {
		opts.Normalize = exactKey[K]
	}
	if opts.KeyOf == nil {
		wireKey := "id"
		if f, ok := s.Field("id"); ok {
			wireKey = f.WireKey()
		}
		opts.KeyOf = func(rec schema.Record) (any, bool) {
			raw, ok := rec[wireKey]
			return raw, ok && raw != nil
		}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Counters == nil {
		opts.Counters = NewCounters()
	}

	var capacity int
	var ttl time.Duration
	if opts.Recycle.Enabled() {
		capacity, ttl = opts.Recycle.Capacity, opts.Recycle.TTL
	}

	return &Cache[K, E]{
		name:     name,
		schema:   s,
		opts:     opts,
		live:     make(map[K]E),
		recycled: db.NewRecycle[K, E](capacity),
		ttl:      ttl,
		logger:   opts.Logger.With("cache", name),
		counters: opts.Counters,
	}
}

func (c *Cache[K, E]) Name() string              { return c.name }
func (c *Cache[K, E]) Schema() *schema.Schema[E] { return c.schema }
func (c *Cache[K, E]) Owner() Coordinator        { return c.opts.Owner }
func (c *Cache[K, E]) Metrics() Metrics          { return c.counters.snapshot() }

// Key normalizes a raw key.
func (c *Cache[K, E]) Key(raw any) (K, error) {
	return c.opts.Normalize(raw)
}

// badKey logs lookups keyed by a partial entity, which are otherwise silent misses.
func (c *Cache[K, E]) badKey(op string, raw any, err error) {
	if errors.Is(err, model.ErrPartialEntity) {
		c.logger.Debug("lookup keyed by a partial entity", "op", op, "type", fmt.Sprintf("%T", raw))
	}
}

// Get looks a key up in the live tier. Keys that do not normalize are a miss;
// a partial entity used as the key is a miss too and is logged at debug level.
func (c *Cache[K, E]) Get(raw any) (E, bool) {
	var zero E
	k, err := c.Key(raw)
	if err != nil {
		c.counters.misses.Add(1)
		c.badKey("get", raw, err)
		return zero, false
	}

	c.mu.Lock()
	e, ok := c.live[k]
	c.mu.Unlock()

	if ok {
		c.counters.hits.Add(1)
	} else {
		c.counters.misses.Add(1)
	}
	return e, ok
}

// Set makes e the live entity of key and drops any recycled occupant.
// It returns false when KeepExisting is set and a different entity is live under key.
func (c *Cache[K, E]) Set(raw any, e E) (bool, error) {
	k, err := c.Key(raw)
	if err != nil {
		return false, err
	}
	if err = c.checkKey(k, e); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err = c.adopt(e); err != nil {
		return false, err
	}

	b := e.Object()
	if cur, ok := c.live[k]; ok && cur.Object() != b {
		if c.opts.KeepExisting {
			return false, nil
		}
		cur.Object().cached.Store(false)
	}
	if prev, ok := c.recycled.Take(k); ok && prev.Object() != b {
		c.counters.purged.Add(1)
	}

	c.live[k] = e
	b.markLive()
	return true, nil
}

// Pop removes key from the live tier without recycling it.
func (c *Cache[K, E]) Pop(raw any) (E, bool) {
	var zero E
	k, err := c.Key(raw)
	if err != nil {
		c.badKey("pop", raw, err)
		return zero, false
	}

	c.mu.Lock()
	e, ok := c.live[k]
	if ok {
		delete(c.live, k)
		e.Object().cached.Store(false)
	}
	c.mu.Unlock()

	return e, ok
}

// Recycle retires e under key, replacing any previous recycled occupant.
// If e is live under key it leaves the live tier.
func (c *Cache[K, E]) Recycle(raw any, e E) error {
	k, err := c.Key(raw)
	if err != nil {
		return err
	}
	if err = c.checkKey(k, e); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if err = c.adopt(e); err != nil {
		return err
	}
	return c.retireLocked(k, e, false)
}

func (c *Cache[K, E]) retire(k K, e E, deleted bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retireLocked(k, e, deleted)
}

func (c *Cache[K, E]) retireLocked(k K, e E, deleted bool) error {
	b := e.Object()
	if cur, ok := c.live[k]; ok {
		if cur.Object() != b {
			return platformerrors.WrapWithContext(ErrOccupied, platformerrors.CodeConflict,
				fmt.Sprintf("%s: recycle %v", c.name, k), map[string]interface{}{"cache": c.name, "key": fmt.Sprint(k)})
		}
		delete(c.live, k)
	}

	b.cached.Store(false)
	if deleted {
		b.deletedAt.Store(cachedtime.UnixNano())
		b.deleted.Store(true)
	}

	for _, slot := range c.recycled.Put(k, e, cachedtime.UnixNano()) {
		if slot.Val.Object() == b {
			continue
		}
		c.counters.evicted.Add(1)
		c.logger.Debug("recycled entity evicted", "key", slot.Key)
	}
	c.counters.recycled.Add(1)
	return nil
}

// Unrecycle removes and returns the entity recycled under key.
func (c *Cache[K, E]) Unrecycle(raw any) (E, bool) {
	var zero E
	k, err := c.Key(raw)
	if err != nil {
		c.badKey("unrecycle", raw, err)
		return zero, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recycled.Take(k)
}

// Purge drops the entity recycled under key for good.
func (c *Cache[K, E]) Purge(raw any) bool {
	k, err := c.Key(raw)
	if err != nil {
		c.badKey("purge", raw, err)
		return false
	}

	c.mu.Lock()
	ok := c.recycled.Remove(k)
	c.mu.Unlock()

	if ok {
		c.counters.purged.Add(1)
	}
	return ok
}

// PurgeExpired drops recycled entities retired longer than the recycle TTL before now.
func (c *Cache[K, E]) PurgeExpired(now time.Time) int {
	if c.ttl <= 0 {
		return 0
	}

	c.mu.Lock()
	purged := c.recycled.PurgeOlderThan(now.Add(-c.ttl).UnixNano())
	c.mu.Unlock()

	if n := len(purged); n > 0 {
		c.counters.purged.Add(int64(n))
		c.logger.Debug("expired recycled entities purged", "count", n)
		return n
	}
	return 0
}

// NewEntity applies rec: a recycled entity of the same key is revived and updated,
// a live one is updated in place, otherwise a fresh entity is decoded and cached.
// The returned entity is always live.
func (c *Cache[K, E]) NewEntity(rec schema.Record) (E, error) {
	e, err := c.apply(rec)
	if err != nil {
		return e, err
	}
	if h, ok := any(e).(Hydrator); ok {
		b := e.Object()
		b.hydrating.Lock()
		err = h.Hydrate(rec)
		b.hydrating.Unlock()
		if err != nil {
			return e, err
		}
	}
	return e, nil
}

// NewMany applies every record in order and stops at the first error.
func (c *Cache[K, E]) NewMany(recs []schema.Record) ([]E, error) {
	out := make([]E, 0, len(recs))
	for i, rec := range recs {
		e, err := c.NewEntity(rec)
		if err != nil {
			return out, fmt.Errorf("%s record %d: %w", c.name, i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (c *Cache[K, E]) apply(rec schema.Record) (E, error) {
	var zero E
	raw, ok := c.opts.KeyOf(rec)
	if !ok {
		return zero, platformerrors.Wrapf(model.ErrInvalidKey, platformerrors.CodeInvalidInput, "%s: record has no key", c.name)
	}
	k, err := c.Key(raw)
	if err != nil {
		return zero, err
	}
	fp, fpOK := schema.Fingerprint(rec)

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.recycled.Peek(k); ok {
		if err = c.schema.Update(e, rec); err != nil {
			return zero, err
		}
		c.recycled.Remove(k)
		c.live[k] = e

		b := e.Object()
		b.markLive()
		storeFingerprint(b, fp, fpOK)
		c.counters.revived.Add(1)
		return e, nil
	}

	if e, ok := c.live[k]; ok {
		b := e.Object()
		if fpOK && fp != 0 && b.fingerprint.Load() == fp {
			c.counters.unchanged.Add(1)
			return e, nil
		}
		if err = c.schema.Update(e, rec); err != nil {
			return zero, err
		}
		storeFingerprint(b, fp, fpOK)
		c.counters.updated.Add(1)
		return e, nil
	}

	e, err := c.schema.Unmarshal(rec, c.opts.Construct)
	if err != nil {
		return zero, err
	}
	b := e.Object()
	if id, ok := b.EntityKey(); !ok {
		b.id.Set(k)
	} else if id != k {
		return zero, keyMismatch(c.name, k, id)
	}
	c.bind(e)
	c.live[k] = e
	b.markLive()
	storeFingerprint(b, fp, fpOK)
	c.counters.created.Add(1)
	return e, nil
}

// fetched is the outcome of one coalesced request, applied at most once.
type fetched[E any] struct {
	rec  schema.Record
	once sync.Once
	e    E
	err  error
}

// Fetch requests the record of key through the coordinator and applies it.
// Concurrent fetches of one key share a single request and a single application
// of its record. A call whose ctx is done before the record is applied returns
// the context error and leaves the cache untouched.
func (c *Cache[K, E]) Fetch(ctx context.Context, raw any) (E, error) {
	var zero E
	k, err := c.Key(raw)
	if err != nil {
		return zero, err
	}
	if c.opts.Fetch == nil {
		return zero, platformerrors.Wrapf(ErrNoFetcher, platformerrors.CodeNotImplemented, "%s: fetch %v", c.name, k)
	}

	shared := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(fmt.Sprint(k), func() (any, error) {
		rec, err := c.opts.Fetch(shared, c.opts.Owner, k)
		if err != nil {
			return nil, err
		}
		return &fetched[E]{rec: rec}, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		if err = ctx.Err(); err != nil {
			return zero, err
		}
		f := res.Val.(*fetched[E])
		f.once.Do(func() { f.e, f.err = c.NewEntity(f.rec) })
		return f.e, f.err
	}
}

func (c *Cache[K, E]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.live)
}

func (c *Cache[K, E]) RecycledLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recycled.Len()
}

// Keys returns the keys of the live tier in no particular order.
func (c *Cache[K, E]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, len(c.live))
	for k := range c.live {
		keys = append(keys, k)
	}
	return keys
}

// Walk visits a snapshot of the live tier until fn returns false.
func (c *Cache[K, E]) Walk(fn func(K, E) bool) {
	c.mu.Lock()
	snapshot := make([]db.Slot[K, E], 0, len(c.live))
	for k, e := range c.live {
		snapshot = append(snapshot, db.Slot[K, E]{Key: k, Val: e})
	}
	c.mu.Unlock()

	for _, s := range snapshot {
		if !fn(s.Key, s.Val) {
			return
		}
	}
}

// Clear drops both tiers.
func (c *Cache[K, E]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.live {
		e.Object().cached.Store(false)
	}
	clear(c.live)
	c.counters.purged.Add(int64(len(c.recycled.Clear())))
}

// construct builds an empty bound entity, as the schema would before decoding.
func (c *Cache[K, E]) construct() (E, error) {
	var e E
	if c.opts.Construct != nil {
		e = c.opts.Construct()
	} else {
		var err error
		if e, err = c.schema.New(); err != nil {
			return e, err
		}
	}
	c.bind(e)
	return e, nil
}

// Partial returns a bound entity without key, e.g. to stage a creation request.
func (c *Cache[K, E]) Partial() (E, error) {
	return c.construct()
}

func (c *Cache[K, E]) bind(e E) {
	e.Object().home = &binding[K, E]{c: c, e: e}
}

// adopt binds an unbound entity and rejects entities owned by another cache.
func (c *Cache[K, E]) adopt(e E) error {
	b := e.Object()
	switch home := b.home.(type) {
	case nil:
		c.bind(e)
		return nil
	case *binding[K, E]:
		if home.c == c {
			return nil
		}
	}
	return platformerrors.WrapWithContext(ErrForeignEntity, platformerrors.CodeConflict,
		fmt.Sprintf("%s does not own %s", c.name, b.home.cacheName()),
		map[string]interface{}{"cache": c.name, "owner": b.home.cacheName()})
}

func (c *Cache[K, E]) checkKey(k K, e E) error {
	id, ok := e.Object().EntityKey()
	if !ok {
		return model.ErrPartialEntity
	}
	if id != k {
		return keyMismatch(c.name, k, id)
	}
	return nil
}

func keyMismatch[K comparable](name string, want, got K) error {
	return platformerrors.WrapWithContext(ErrKeyMismatch, platformerrors.CodeInvalidInput,
		fmt.Sprintf("%s: key %v does not match entity key %v", name, want, got),
		map[string]interface{}{"cache": name, "key": fmt.Sprint(want), "entity_key": fmt.Sprint(got)})
}

func storeFingerprint[K comparable](b *Base[K], fp uint64, ok bool) {
	if !ok {
		fp = 0
	}
	b.fingerprint.Store(fp)
}

func exactKey[K comparable](raw any) (K, error) {
	switch v := raw.(type) {
	case K:
		return v, nil
	case model.Keyed[K]:
		if k, ok := v.EntityKey(); ok {
			return k, nil
		}
		var zero K
		return zero, model.ErrPartialEntity
	}
	var zero K
	return zero, platformerrors.Wrapf(model.ErrInvalidKey, platformerrors.CodeInvalidInput, "unsupported key %T", raw)
}
