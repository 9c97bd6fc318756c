package resources

import (
	"context"
	"time"

	"github.com/Borislavv/go-ash-mirror/cache"
	"github.com/Borislavv/go-ash-mirror/model"
	"github.com/Borislavv/go-ash-mirror/rest"
	"github.com/Borislavv/go-ash-mirror/schema"
)

// GuildCache keeps guilds. Every guild owns its emoji and ban caches;
// their activity is counted on counters shared across all guilds.
type GuildCache struct {
	*cache.Cache[model.Snowflake, *Guild]
	env    Env
	emojis *cache.Counters
	bans   *cache.Counters
}

func NewGuildCache(env Env) *GuildCache {
	gc := &GuildCache{env: env, emojis: cache.NewCounters(), bans: cache.NewCounters()}

	opts := options[model.Snowflake, *Guild](env, model.SnowflakeKey)
	opts.Construct = gc.newGuild
	opts.Fetch = func(ctx context.Context, owner cache.Coordinator, k model.Snowflake) (schema.Record, error) {
		return doRecord(ctx, owner, rest.Call{Route: rest.GetGuild, Path: map[string]any{"guild_id": k}})
	}
	gc.Cache = cache.New("guilds", GuildSchema, opts)
	return gc
}

func (gc *GuildCache) newGuild() *Guild {
	g := &Guild{guilds: gc, Channels: newGuildChannels(gc.env.Owner)}
	g.Emojis = newEmojiCache(gc.env, g, gc.emojis)
	g.Bans = newBanCache(gc.env, g, gc.bans)
	return g
}

// Create creates a guild upstream. "name" is required.
func (gc *GuildCache) Create(ctx context.Context, fields map[string]any) (*Guild, error) {
	if err := schema.ValidateKeys("GuildCache.Create", fields, []string{"name"}, rest.CreateGuild.JSON); err != nil {
		return nil, err
	}
	rec, err := doRecord(ctx, gc.Owner(), rest.Call{Route: rest.CreateGuild, JSON: fields})
	if err != nil {
		return nil, err
	}
	return gc.NewEntity(rec)
}

// BulkFetch requests a page of the guilds the client is a member of.
// Nil bounds and a non-positive limit are omitted.
func (gc *GuildCache) BulkFetch(ctx context.Context, before, after any, limit int) ([]*Guild, error) {
	query := make(map[string]any, 3)
	if before != nil {
		k, err := model.SnowflakeKey(before)
		if err != nil {
			return nil, err
		}
		query["before"] = k
	}
	if after != nil {
		k, err := model.SnowflakeKey(after)
		if err != nil {
			return nil, err
		}
		query["after"] = k
	}
	if limit > 0 {
		query["limit"] = limit
	}

	recs, err := doRecords(ctx, gc.Owner(), rest.Call{Route: rest.GetUserGuilds, Query: query})
	if err != nil {
		return nil, err
	}
	return gc.NewMany(recs)
}

// FetchPreview requests the public preview of a guild and applies it.
func (gc *GuildCache) FetchPreview(ctx context.Context, raw any) (*Guild, error) {
	k, err := gc.Key(raw)
	if err != nil {
		return nil, err
	}
	rec, err := doRecord(ctx, gc.Owner(), rest.Call{Route: rest.GetGuildPreview, Path: map[string]any{"guild_id": k}})
	if err != nil {
		return nil, err
	}
	return gc.NewEntity(rec)
}

// Metrics sums the guild cache metrics with those of every emoji and ban cache.
func (gc *GuildCache) Metrics() cache.Metrics {
	return gc.Cache.Metrics().Add(gc.emojis.Metrics()).Add(gc.bans.Metrics())
}

// EmojiMetrics reports the combined activity of the guild emoji caches.
func (gc *GuildCache) EmojiMetrics() cache.Metrics { return gc.emojis.Metrics() }

// BanMetrics reports the combined activity of the guild ban caches.
func (gc *GuildCache) BanMetrics() cache.Metrics { return gc.bans.Metrics() }

// PurgeExpired purges the guild cache and the emoji and ban caches of every live guild.
func (gc *GuildCache) PurgeExpired(now time.Time) int {
	n := gc.Cache.PurgeExpired(now)
	gc.Walk(func(_ model.Snowflake, g *Guild) bool {
		n += g.Emojis.PurgeExpired(now)
		n += g.Bans.PurgeExpired(now)
		return true
	})
	return n
}
