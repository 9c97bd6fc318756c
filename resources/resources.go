// Package resources declares the mirrored upstream resources and the caches
// that keep them: users, channels, guilds with their bans and emojis, invites.
package resources

import (
	"context"
	"log/slog"

	platformerrors "github.com/jmgilman/go/errors"

	"github.com/Borislavv/go-ash-mirror/cache"
	"github.com/Borislavv/go-ash-mirror/config"
	"github.com/Borislavv/go-ash-mirror/model"
	"github.com/Borislavv/go-ash-mirror/rest"
	"github.com/Borislavv/go-ash-mirror/schema"
)

// ErrDetached is returned by request helpers of resources built outside a cache.
var ErrDetached = platformerrors.New(platformerrors.CodeInternal, "resource is not attached to a coordinator")

// Coordinator gives resources access to the request client and to sibling caches.
type Coordinator interface {
	cache.Coordinator
	Users() *UserCache
	Channels() *ChannelCache
	Guilds() *GuildCache
	Invites() *InviteCache
}

// Env is what every resource cache is provisioned with.
type Env struct {
	Owner        Coordinator
	Recycle      *config.RecycleCfg
	KeepExisting bool
	Logger       *slog.Logger
}

func options[K comparable, E cache.Entity[K]](env Env, norm model.Normalizer[K]) cache.Options[K, E] {
	return cache.Options[K, E]{
		Normalize:    norm,
		Owner:        env.Owner,
		Recycle:      env.Recycle,
		KeepExisting: env.KeepExisting,
		Logger:       env.Logger,
	}
}

func requester(owner cache.Coordinator) (rest.Requester, error) {
	if owner == nil {
		return nil, ErrDetached
	}
	r := owner.Rest()
	if r == nil {
		return nil, ErrDetached
	}
	return r, nil
}

func do(ctx context.Context, owner cache.Coordinator, call rest.Call) (any, error) {
	r, err := requester(owner)
	if err != nil {
		return nil, err
	}
	return r.Do(ctx, call)
}

func doRecord(ctx context.Context, owner cache.Coordinator, call rest.Call) (schema.Record, error) {
	v, err := do(ctx, owner, call)
	if err != nil {
		return nil, err
	}
	return rest.Record(v)
}

func doRecords(ctx context.Context, owner cache.Coordinator, call rest.Call) ([]schema.Record, error) {
	v, err := do(ctx, owner, call)
	if err != nil {
		return nil, err
	}
	return rest.Records(v)
}

func keyOf[K comparable](b *cache.Base[K]) (K, error) {
	k, ok := b.EntityKey()
	if !ok {
		return k, model.ErrPartialEntity
	}
	return k, nil
}

func snowflakeField[T any](attr, wireKey string, slot func(T) *schema.Value[model.Snowflake]) *schema.Field[T] {
	return schema.F(attr, wireKey, slot, schema.Key)
}

// keyStrings normalizes a key set into the decimal strings request bodies carry.
func keyStrings(raw any) ([]string, error) {
	keys, err := model.SnowflakeSet(raw)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, k.String())
	}
	return ids, nil
}
