package resources

import (
	"context"
	"fmt"

	"github.com/Borislavv/go-ash-mirror/cache"
	"github.com/Borislavv/go-ash-mirror/model"
	"github.com/Borislavv/go-ash-mirror/rest"
	"github.com/Borislavv/go-ash-mirror/schema"
)

// GuildBan is keyed by the banned user.
type GuildBan struct {
	cache.Base[model.Snowflake]

	Reason schema.Value[string]

	User  *User
	Guild *Guild

	bans *BanCache
}

// banUserKey reads the key of a ban from its nested user object.
var banUserKey = schema.Codec[model.Snowflake]{
	Kind: schema.Key.Kind,
	Decode: func(raw any) (model.Snowflake, error) {
		switch user := raw.(type) {
		case schema.Record:
			return model.SnowflakeKey(user["id"])
		case map[string]any:
			return model.SnowflakeKey(user["id"])
		}
		return 0, fmt.Errorf("expected user object, got %T", raw)
	},
	Encode: func(k model.Snowflake) (any, error) {
		return map[string]any{"id": k.String()}, nil
	},
}

var GuildBanSchema = schema.MustBuild("GuildBan", func() *GuildBan { return &GuildBan{} },
	[]schema.Parent[*GuildBan]{schema.Inherit(cache.SnowflakeBase, (*GuildBan).Object)},
	schema.F("id", "user", (*GuildBan).IDSlot, banUserKey),
	schema.F("reason", "reason", func(b *GuildBan) *schema.Value[string] { return &b.Reason }, schema.String),
)

// Hydrate mirrors the banned user into the user cache.
func (b *GuildBan) Hydrate(rec schema.Record) error {
	if b.bans == nil || b.bans.env.Owner == nil {
		return nil
	}
	user, ok := rec.Object("user")
	if !ok {
		return nil
	}
	u, err := b.bans.env.Owner.Users().NewEntity(user)
	if err != nil {
		return err
	}
	b.User = u
	return nil
}

// BanCache keeps the bans of one guild.
type BanCache struct {
	*cache.Cache[model.Snowflake, *GuildBan]
	env   Env
	guild *Guild
}

func newBanCache(env Env, g *Guild, counters *cache.Counters) *BanCache {
	bc := &BanCache{env: env, guild: g}

	opts := options[model.Snowflake, *GuildBan](env, model.SnowflakeKey)
	opts.Counters = counters
	opts.KeyOf = func(rec schema.Record) (any, bool) {
		user, ok := rec.Object("user")
		if !ok {
			return nil, false
		}
		id, ok := user["id"]
		return id, ok && id != nil
	}
	opts.Construct = func() *GuildBan { return &GuildBan{Guild: g, bans: bc} }
	opts.Fetch = func(ctx context.Context, owner cache.Coordinator, k model.Snowflake) (schema.Record, error) {
		gid, err := keyOf(g.Object())
		if err != nil {
			return nil, err
		}
		return doRecord(ctx, owner, rest.Call{
			Route: rest.GetGuildBan,
			Path:  map[string]any{"guild_id": gid, "user_id": k},
		})
	}
	bc.Cache = cache.New("guild_bans", GuildBanSchema, opts)
	return bc
}

// FetchAll requests every ban of the guild.
func (bc *BanCache) FetchAll(ctx context.Context) ([]*GuildBan, error) {
	gid, err := keyOf(bc.guild.Object())
	if err != nil {
		return nil, err
	}
	recs, err := doRecords(ctx, bc.Owner(), rest.Call{Route: rest.GetGuildBans, Path: map[string]any{"guild_id": gid}})
	if err != nil {
		return nil, err
	}
	return bc.NewMany(recs)
}

// Add bans user. Accepted fields are delete_message_days and reason.
func (bc *BanCache) Add(ctx context.Context, user any, fields map[string]any) (*GuildBan, error) {
	if err := schema.ValidateKeys("BanCache.Add", fields, nil, rest.CreateGuildBan.JSON); err != nil {
		return nil, err
	}
	uid, err := model.SnowflakeKey(user)
	if err != nil {
		return nil, err
	}
	gid, err := keyOf(bc.guild.Object())
	if err != nil {
		return nil, err
	}

	v, err := do(ctx, bc.Owner(), rest.Call{
		Route: rest.CreateGuildBan,
		Path:  map[string]any{"guild_id": gid, "user_id": uid},
		JSON:  fields,
	})
	if err != nil {
		return nil, err
	}

	rec, err := rest.Record(v)
	if err != nil {
		// The upstream answers a ban with an empty body: mirror what was sent.
		rec = schema.Record{"user": map[string]any{"id": uid.String()}}
		if reason, ok := fields["reason"]; ok {
			rec["reason"] = reason
		}
	}
	return bc.NewEntity(rec)
}

// Remove lifts the ban of user and marks a mirrored ban deleted.
func (bc *BanCache) Remove(ctx context.Context, user any) error {
	uid, err := model.SnowflakeKey(user)
	if err != nil {
		return err
	}
	gid, err := keyOf(bc.guild.Object())
	if err != nil {
		return err
	}
	if _, err = do(ctx, bc.Owner(), rest.Call{
		Route: rest.RemoveGuildBan,
		Path:  map[string]any{"guild_id": gid, "user_id": uid},
	}); err != nil {
		return err
	}

	if ban, ok := bc.Get(uid); ok {
		return ban.MarkDeleted()
	}
	return nil
}
