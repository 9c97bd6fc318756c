package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Borislavv/go-ash-mirror/config"
	"github.com/Borislavv/go-ash-mirror/model"
	"github.com/Borislavv/go-ash-mirror/rest"
	"github.com/Borislavv/go-ash-mirror/schema"
)

type testUser struct {
	Base[model.Snowflake]
	Name     schema.Value[string]
	hydrated atomic.Int64
	fields   int
}

func (u *testUser) Hydrate(rec schema.Record) error {
	u.hydrated.Add(1)
	u.fields = len(rec)
	return nil
}

var testUserSchema = schema.MustBuild("User", func() *testUser { return &testUser{} },
	[]schema.Parent[*testUser]{
		schema.Inherit(SnowflakeBase, func(u *testUser) *Base[model.Snowflake] { return u.Object() }),
	},
	schema.F("name", "name", func(u *testUser) *schema.Value[string] { return &u.Name }, schema.String),
)

type testOwner struct{}

func (testOwner) Rest() rest.Requester { return nil }

func newTestCache(t *testing.T, mutate ...func(*Options[model.Snowflake, *testUser])) *Cache[model.Snowflake, *testUser] {
	t.Helper()
	opts := Options[model.Snowflake, *testUser]{
		Normalize: model.SnowflakeKey,
		Owner:     testOwner{},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, fn := range mutate {
		fn(&opts)
	}
	return New("users", testUserSchema, opts)
}

// TestCache_EndToEnd follows one key through creation, update, deletion and revival.
func TestCache_EndToEnd(t *testing.T) {
	c := newTestCache(t)

	first, err := c.NewEntity(schema.Record{"id": json.Number("5")})
	require.NoError(t, err)
	k, ok := first.EntityKey()
	require.True(t, ok)
	require.Equal(t, model.Snowflake(5), k)
	require.False(t, first.Name.IsSet())
	require.True(t, first.IsCached())

	second, err := c.NewEntity(schema.Record{"id": "5", "name": "x"})
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, "x", second.Name.Or(""))

	require.NoError(t, first.MarkDeleted())
	require.True(t, first.IsDeleted())
	require.False(t, first.IsCached())
	_, ok = first.DeletedAt()
	require.True(t, ok)
	_, ok = c.Get(5)
	require.False(t, ok)
	require.Equal(t, 1, c.RecycledLen())

	third, err := c.NewEntity(schema.Record{"id": 5, "name": "y"})
	require.NoError(t, err)
	require.Same(t, first, third)
	require.Equal(t, "y", third.Name.Or(""))
	require.False(t, third.IsDeleted())
	require.True(t, third.IsCached())
	_, ok = third.DeletedAt()
	require.False(t, ok)
	require.Zero(t, c.RecycledLen())

	got, ok := c.Get("5")
	require.True(t, ok)
	require.Same(t, first, got)

	m := c.Metrics()
	require.Equal(t, int64(1), m.Created)
	require.Equal(t, int64(1), m.Updated)
	require.Equal(t, int64(1), m.Revived)
	require.Equal(t, int64(1), m.Recycled)
	require.Equal(t, int64(3), first.hydrated.Load())
}

// TestCache_Get_EquivalentKeyForms finds one entity through every accepted key form.
func TestCache_Get_EquivalentKeyForms(t *testing.T) {
	c := newTestCache(t)
	u, err := c.NewEntity(schema.Record{"id": "175928847299117063"})
	require.NoError(t, err)

	for _, raw := range []any{
		model.Snowflake(175928847299117063),
		uint64(175928847299117063),
		int64(175928847299117063),
		"175928847299117063",
		json.Number("175928847299117063"),
		u,
	} {
		got, ok := c.Get(raw)
		require.True(t, ok, "%T", raw)
		require.Same(t, u, got)
	}

	for _, raw := range []any{"abc", -1, nil, 1.5, &testUser{}} {
		_, ok := c.Get(raw)
		require.False(t, ok, "%v", raw)
	}
}

// TestCache_Get_PartialKeyIsLogged reports lookups keyed by a partial entity at debug level.
func TestCache_Get_PartialKeyIsLogged(t *testing.T) {
	var buf bytes.Buffer
	c := newTestCache(t, func(o *Options[model.Snowflake, *testUser]) {
		o.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	})
	_, err := c.NewEntity(schema.Record{"id": "4"})
	require.NoError(t, err)

	partial, err := c.Partial()
	require.NoError(t, err)

	_, ok := c.Get(partial)
	require.False(t, ok)
	require.Equal(t, int64(1), c.Metrics().Misses)
	require.Contains(t, buf.String(), "lookup keyed by a partial entity")
	require.Contains(t, buf.String(), "op=get")

	_, ok = c.Pop(partial)
	require.False(t, ok)
	require.Contains(t, buf.String(), "op=pop")
	require.Equal(t, 1, c.Len())

	buf.Reset()
	_, ok = c.Get("not-a-key")
	require.False(t, ok)
	require.Empty(t, buf.String())
}

// TestCache_NewEntity_Unchanged skips a record identical to the last one applied.
func TestCache_NewEntity_Unchanged(t *testing.T) {
	c := newTestCache(t)
	rec := schema.Record{"id": "1", "name": "a"}

	_, err := c.NewEntity(rec)
	require.NoError(t, err)
	_, err = c.NewEntity(schema.Record{"name": "a", "id": "1"})
	require.NoError(t, err)

	m := c.Metrics()
	require.Equal(t, int64(1), m.Created)
	require.Equal(t, int64(1), m.Unchanged)
	require.Zero(t, m.Updated)
}

// TestCache_NewEntity_MismatchLeavesEntityUntouched rejects a bad record without partial updates.
func TestCache_NewEntity_MismatchLeavesEntityUntouched(t *testing.T) {
	c := newTestCache(t)
	u, err := c.NewEntity(schema.Record{"id": "1", "name": "a"})
	require.NoError(t, err)

	_, err = c.NewEntity(schema.Record{"id": "1", "name": 42})
	require.ErrorIs(t, err, schema.ErrSchemaMismatch)
	require.Equal(t, "a", u.Name.Or(""))

	_, err = c.NewEntity(schema.Record{"id": "2", "name": 42})
	require.ErrorIs(t, err, schema.ErrSchemaMismatch)
	require.Equal(t, 1, c.Len())
}

// TestCache_NewEntity_RequiresKey rejects records without a usable key.
func TestCache_NewEntity_RequiresKey(t *testing.T) {
	c := newTestCache(t)

	_, err := c.NewEntity(schema.Record{"name": "a"})
	require.ErrorIs(t, err, model.ErrInvalidKey)

	_, err = c.NewEntity(schema.Record{"id": nil})
	require.ErrorIs(t, err, model.ErrInvalidKey)

	_, err = c.NewEntity(schema.Record{"id": "x"})
	require.ErrorIs(t, err, model.ErrInvalidKey)
	require.Zero(t, c.Len())
}

// TestCache_NewMany_StopsAtFirstError returns the entities applied before the failure.
func TestCache_NewMany_StopsAtFirstError(t *testing.T) {
	c := newTestCache(t)

	out, err := c.NewMany([]schema.Record{{"id": "1"}, {"id": "2"}, {"id": "bad"}, {"id": "4"}})
	require.ErrorIs(t, err, model.ErrInvalidKey)
	require.Len(t, out, 2)
	require.Equal(t, 2, c.Len())
}

// TestCache_SetPop covers direct live-tier manipulation.
func TestCache_SetPop(t *testing.T) {
	c := newTestCache(t)
	u := &testUser{}
	u.IDSlot().Set(7)

	ok, err := c.Set(7, u)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, u.IsCached())

	popped, ok := c.Pop("7")
	require.True(t, ok)
	require.Same(t, u, popped)
	require.False(t, u.IsCached())
	require.Zero(t, c.RecycledLen())

	_, ok = c.Pop(7)
	require.False(t, ok)

	_, err = c.Set(8, u)
	require.ErrorIs(t, err, ErrKeyMismatch)

	_, err = c.Set(9, &testUser{})
	require.ErrorIs(t, err, model.ErrPartialEntity)
}

// TestCache_Set_ReplacementPolicy replaces or keeps a different live entity.
func TestCache_Set_ReplacementPolicy(t *testing.T) {
	for _, keep := range []bool{false, true} {
		c := newTestCache(t, func(o *Options[model.Snowflake, *testUser]) { o.KeepExisting = keep })

		old, err := c.NewEntity(schema.Record{"id": "1"})
		require.NoError(t, err)

		fresh := &testUser{}
		fresh.IDSlot().Set(1)
		ok, err := c.Set(1, fresh)
		require.NoError(t, err)
		require.Equal(t, !keep, ok)

		got, _ := c.Get(1)
		if keep {
			require.Same(t, old, got)
			require.True(t, old.IsCached())
		} else {
			require.Same(t, fresh, got)
			require.False(t, old.IsCached())
		}
	}
}

// TestCache_Set_RejectsForeignEntity refuses entities owned by another cache.
func TestCache_Set_RejectsForeignEntity(t *testing.T) {
	a, b := newTestCache(t), newTestCache(t)

	u, err := a.NewEntity(schema.Record{"id": "1"})
	require.NoError(t, err)

	_, err = b.Set(1, u)
	require.ErrorIs(t, err, ErrForeignEntity)
	require.ErrorIs(t, b.Recycle(1, u), ErrForeignEntity)
}

// TestCache_Set_ClearsRecycledOccupant keeps a key out of both tiers at once.
func TestCache_Set_ClearsRecycledOccupant(t *testing.T) {
	c := newTestCache(t)
	u, err := c.NewEntity(schema.Record{"id": "1"})
	require.NoError(t, err)
	require.NoError(t, u.Uncache())
	require.Equal(t, 1, c.RecycledLen())

	ok, err := u.Cache()
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, c.RecycledLen())
	require.Equal(t, 1, c.Len())
}

// TestCache_RecycleUnrecyclePurge moves entities between tiers explicitly.
func TestCache_RecycleUnrecyclePurge(t *testing.T) {
	c := newTestCache(t)
	u, err := c.NewEntity(schema.Record{"id": "1"})
	require.NoError(t, err)

	other := &testUser{}
	other.IDSlot().Set(1)
	require.ErrorIs(t, c.Recycle(1, other), ErrOccupied)

	require.NoError(t, c.Recycle(1, u))
	require.Zero(t, c.Len())
	require.False(t, u.IsCached())
	require.False(t, u.IsDeleted())

	got, ok := c.Unrecycle(1)
	require.True(t, ok)
	require.Same(t, u, got)
	_, ok = c.Unrecycle(1)
	require.False(t, ok)

	require.NoError(t, c.Recycle(1, u))
	require.True(t, c.Purge("1"))
	require.False(t, c.Purge("1"))

	fresh, err := c.NewEntity(schema.Record{"id": "1"})
	require.NoError(t, err)
	require.NotSame(t, u, fresh)
	require.Equal(t, int64(1), c.Metrics().Purged)
}

// TestCache_Recycle_CapacityEvictsOldest bounds the recycle tier by capacity.
func TestCache_Recycle_CapacityEvictsOldest(t *testing.T) {
	c := newTestCache(t, func(o *Options[model.Snowflake, *testUser]) {
		o.Recycle = &config.RecycleCfg{Capacity: 2}
	})

	users := make([]*testUser, 0, 3)
	for _, id := range []string{"1", "2", "3"} {
		u, err := c.NewEntity(schema.Record{"id": id})
		require.NoError(t, err)
		users = append(users, u)
	}
	for _, u := range users {
		require.NoError(t, u.Uncache())
	}

	require.Equal(t, 2, c.RecycledLen())
	require.Equal(t, int64(1), c.Metrics().Evicted)

	revived, err := c.NewEntity(schema.Record{"id": "3"})
	require.NoError(t, err)
	require.Same(t, users[2], revived)

	fresh, err := c.NewEntity(schema.Record{"id": "1"})
	require.NoError(t, err)
	require.NotSame(t, users[0], fresh)
}

// TestCache_PurgeExpired drops recycled entities older than the TTL.
func TestCache_PurgeExpired(t *testing.T) {
	c := newTestCache(t, func(o *Options[model.Snowflake, *testUser]) {
		o.Recycle = &config.RecycleCfg{TTL: time.Minute}
	})
	u, err := c.NewEntity(schema.Record{"id": "1"})
	require.NoError(t, err)
	require.NoError(t, u.MarkDeleted())

	require.Zero(t, c.PurgeExpired(time.Now()))
	require.Equal(t, 1, c.RecycledLen())

	require.Equal(t, 1, c.PurgeExpired(time.Now().Add(2*time.Minute)))
	require.Zero(t, c.RecycledLen())

	unbounded := newTestCache(t)
	v, err := unbounded.NewEntity(schema.Record{"id": "1"})
	require.NoError(t, err)
	require.NoError(t, v.Uncache())
	require.Zero(t, unbounded.PurgeExpired(time.Now().Add(time.Hour)))
}

// TestCache_Fetch_AppliesRecord requests through the owner and caches the result.
func TestCache_Fetch_AppliesRecord(t *testing.T) {
	var calls atomic.Int64
	c := newTestCache(t, func(o *Options[model.Snowflake, *testUser]) {
		o.Fetch = func(ctx context.Context, owner Coordinator, k model.Snowflake) (schema.Record, error) {
			if _, ok := owner.(testOwner); !ok {
				return nil, errors.New("unexpected owner")
			}
			return schema.Record{"id": k.String(), "name": fmt.Sprintf("fetched-%d", calls.Add(1))}, nil
		}
	})
	require.Equal(t, testOwner{}, c.Owner())

	u, err := c.Fetch(context.Background(), "9")
	require.NoError(t, err)
	require.Equal(t, "fetched-1", u.Name.Or(""))
	require.True(t, u.IsCached())

	require.NoError(t, u.Refresh(context.Background()))
	require.Equal(t, "fetched-2", u.Name.Or(""))
	require.Equal(t, 1, c.Len())
}

// TestCache_Fetch_Coalesces shares one request among concurrent fetches of a key.
func TestCache_Fetch_Coalesces(t *testing.T) {
	var calls atomic.Int64
	started := make(chan struct{})
	release := make(chan struct{})
	c := newTestCache(t, func(o *Options[model.Snowflake, *testUser]) {
		o.Fetch = func(ctx context.Context, _ Coordinator, k model.Snowflake) (schema.Record, error) {
			if calls.Add(1) == 1 {
				close(started)
			}
			<-release
			return schema.Record{"id": k.String()}, nil
		}
	})

	const callers = 8
	results := make([]*testUser, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Go(func() {
			u, err := c.Fetch(context.Background(), 3)
			require.NoError(t, err)
			results[i] = u
		})
	}

	<-started
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int64(1), calls.Load())
	for _, u := range results {
		require.Same(t, results[0], u)
	}
	require.Equal(t, 1, c.Len())
}

// TestCache_Fetch_CoalescedAppliesOnce applies and hydrates a shared record once for all callers.
func TestCache_Fetch_CoalescedAppliesOnce(t *testing.T) {
	c := newTestCache(t, func(o *Options[model.Snowflake, *testUser]) {
		o.Fetch = func(ctx context.Context, _ Coordinator, k model.Snowflake) (schema.Record, error) {
			time.Sleep(20 * time.Millisecond)
			return schema.Record{"id": k.String(), "name": "shared"}, nil
		}
	})

	const callers = 8
	results := make([]*testUser, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Go(func() {
			results[i], errs[i] = c.Fetch(context.Background(), 5)
		})
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		require.Same(t, results[0], results[i])
	}
	u := results[0]
	require.Equal(t, int64(1), u.hydrated.Load())
	require.Equal(t, 2, u.fields)
	require.Equal(t, "shared", u.Name.Or(""))

	m := c.Metrics()
	require.Equal(t, int64(1), m.Created)
	require.Zero(t, m.Updated)
	require.Zero(t, m.Unchanged)
}

// TestCache_NewEntity_SerializesHydration never overlaps hydrations of one entity.
func TestCache_NewEntity_SerializesHydration(t *testing.T) {
	c := newTestCache(t)

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Go(func() {
			_, _ = c.NewEntity(schema.Record{"id": "6", "name": fmt.Sprintf("w%d", i)})
		})
	}
	wg.Wait()

	u, ok := c.Get(6)
	require.True(t, ok)
	require.Equal(t, int64(writers), u.hydrated.Load())
	require.Equal(t, 2, u.fields)
	require.Equal(t, 1, c.Len())
}

// TestCache_Fetch_CancelledLeavesCacheUntouched returns the context error without applying the record.
func TestCache_Fetch_CancelledLeavesCacheUntouched(t *testing.T) {
	done := make(chan struct{})
	release := make(chan struct{})
	c := newTestCache(t, func(o *Options[model.Snowflake, *testUser]) {
		o.Fetch = func(ctx context.Context, _ Coordinator, k model.Snowflake) (schema.Record, error) {
			defer close(done)
			<-release
			return schema.Record{"id": k.String()}, nil
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Fetch(ctx, 3)
	require.ErrorIs(t, err, context.Canceled)

	close(release)
	<-done
	time.Sleep(10 * time.Millisecond)
	require.Zero(t, c.Len())
	require.Zero(t, c.Metrics().Created)
}

// TestCache_Fetch_Errors surfaces missing fetchers and request failures.
func TestCache_Fetch_Errors(t *testing.T) {
	_, err := newTestCache(t).Fetch(context.Background(), 1)
	require.ErrorIs(t, err, ErrNoFetcher)

	boom := errors.New("boom")
	c := newTestCache(t, func(o *Options[model.Snowflake, *testUser]) {
		o.Fetch = func(context.Context, Coordinator, model.Snowflake) (schema.Record, error) {
			return nil, boom
		}
	})
	_, err = c.Fetch(context.Background(), 1)
	require.ErrorIs(t, err, boom)

	_, err = c.Fetch(context.Background(), "nope")
	require.ErrorIs(t, err, model.ErrInvalidKey)
}

// TestBase_Transitions requires an owning cache and a key.
func TestBase_Transitions(t *testing.T) {
	loose := &testUser{}
	_, err := loose.Cache()
	require.ErrorIs(t, err, ErrUnbound)
	require.ErrorIs(t, loose.Uncache(), ErrUnbound)
	require.ErrorIs(t, loose.MarkDeleted(), ErrUnbound)
	require.ErrorIs(t, loose.Refresh(context.Background()), ErrUnbound)

	c := newTestCache(t)
	partial, err := c.Partial()
	require.NoError(t, err)
	_, err = partial.Cache()
	require.ErrorIs(t, err, model.ErrPartialEntity)
	require.Contains(t, partial.String(), "partial")

	require.NoError(t, c.Schema().Update(partial, schema.Record{"id": "4"}))
	ok, err := partial.Cache()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "users(id=4, cached=true, deleted=false)", partial.String())
}

// TestCache_KeysWalkClear inspects and empties the cache.
func TestCache_KeysWalkClear(t *testing.T) {
	c := newTestCache(t)
	_, err := c.NewMany([]schema.Record{{"id": "1"}, {"id": "2"}, {"id": "3"}})
	require.NoError(t, err)
	u, _ := c.Get(3)
	require.NoError(t, u.Uncache())

	require.ElementsMatch(t, []model.Snowflake{1, 2}, c.Keys())

	var seen int
	c.Walk(func(k model.Snowflake, e *testUser) bool {
		seen++
		return false
	})
	require.Equal(t, 1, seen)

	c.Clear()
	require.Zero(t, c.Len())
	require.Zero(t, c.RecycledLen())
}
