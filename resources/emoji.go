package resources

import (
	"context"

	"github.com/Borislavv/go-ash-mirror/cache"
	"github.com/Borislavv/go-ash-mirror/model"
	"github.com/Borislavv/go-ash-mirror/rest"
	"github.com/Borislavv/go-ash-mirror/schema"
)

type GuildEmoji struct {
	cache.Base[model.Snowflake]

	Name          schema.Value[string]
	RoleIDs       schema.Value[[]model.Snowflake]
	RequireColons schema.Value[bool]
	Managed       schema.Value[bool]
	Animated      schema.Value[bool]
	Available     schema.Value[bool]

	// User is the creator of the emoji when the upstream discloses it.
	User  *User
	Guild *Guild

	emojis *EmojiCache
}

var GuildEmojiSchema = schema.MustBuild("GuildEmoji", func() *GuildEmoji { return &GuildEmoji{} },
	[]schema.Parent[*GuildEmoji]{schema.Inherit(cache.SnowflakeBase, (*GuildEmoji).Object)},
	schema.F("name", "name", func(e *GuildEmoji) *schema.Value[string] { return &e.Name }, schema.String),
	schema.F("role_ids", "roles", func(e *GuildEmoji) *schema.Value[[]model.Snowflake] { return &e.RoleIDs }, schema.Array(schema.Key)),
	schema.F("require_colons", "require_colons", func(e *GuildEmoji) *schema.Value[bool] { return &e.RequireColons }, schema.Bool),
	schema.F("managed", "managed", func(e *GuildEmoji) *schema.Value[bool] { return &e.Managed }, schema.Bool),
	schema.F("animated", "animated", func(e *GuildEmoji) *schema.Value[bool] { return &e.Animated }, schema.Bool),
	schema.F("available", "available", func(e *GuildEmoji) *schema.Value[bool] { return &e.Available }, schema.Bool),
)

// Hydrate mirrors the emoji creator into the user cache.
func (e *GuildEmoji) Hydrate(rec schema.Record) error {
	if e.emojis == nil || e.emojis.env.Owner == nil {
		return nil
	}
	user, ok := rec.Object("user")
	if !ok {
		return nil
	}
	u, err := e.emojis.env.Owner.Users().NewEntity(user)
	if err != nil {
		return err
	}
	e.User = u
	return nil
}

// Modify patches the emoji. A "roles" field is normalized into a key set.
func (e *GuildEmoji) Modify(ctx context.Context, fields map[string]any) error {
	if e.emojis == nil {
		return ErrDetached
	}
	args := make(map[string]any, len(fields))
	for k, v := range fields {
		args[k] = v
	}
	if roles, ok := args["roles"]; ok {
		ids, err := keyStrings(roles)
		if err != nil {
			return err
		}
		args["roles"] = ids
	}
	if err := schema.ValidateKeys("GuildEmoji.Modify", args, nil, rest.ModifyGuildEmoji.JSON); err != nil {
		return err
	}

	path, err := e.path()
	if err != nil {
		return err
	}
	rec, err := doRecord(ctx, e.emojis.Owner(), rest.Call{Route: rest.ModifyGuildEmoji, Path: path, JSON: args})
	if err != nil {
		return err
	}
	_, err = e.emojis.NewEntity(rec)
	return err
}

// Delete deletes the emoji upstream and marks the mirror deleted.
func (e *GuildEmoji) Delete(ctx context.Context) error {
	if e.emojis == nil {
		return ErrDetached
	}
	path, err := e.path()
	if err != nil {
		return err
	}
	if _, err = do(ctx, e.emojis.Owner(), rest.Call{Route: rest.DeleteGuildEmoji, Path: path}); err != nil {
		return err
	}
	return e.MarkDeleted()
}

func (e *GuildEmoji) path() (map[string]any, error) {
	id, err := keyOf(e.Object())
	if err != nil {
		return nil, err
	}
	gid, err := keyOf(e.emojis.guild.Object())
	if err != nil {
		return nil, err
	}
	return map[string]any{"guild_id": gid, "emoji_id": id}, nil
}

// EmojiCache keeps the emojis of one guild.
type EmojiCache struct {
	*cache.Cache[model.Snowflake, *GuildEmoji]
	env   Env
	guild *Guild
}

func newEmojiCache(env Env, g *Guild, counters *cache.Counters) *EmojiCache {
	ec := &EmojiCache{env: env, guild: g}

	opts := options[model.Snowflake, *GuildEmoji](env, model.SnowflakeKey)
	opts.Counters = counters
	opts.Construct = func() *GuildEmoji { return &GuildEmoji{Guild: g, emojis: ec} }
	opts.Fetch = func(ctx context.Context, owner cache.Coordinator, k model.Snowflake) (schema.Record, error) {
		gid, err := keyOf(g.Object())
		if err != nil {
			return nil, err
		}
		return doRecord(ctx, owner, rest.Call{
			Route: rest.GetGuildEmoji,
			Path:  map[string]any{"guild_id": gid, "emoji_id": k},
		})
	}
	ec.Cache = cache.New("guild_emojis", GuildEmojiSchema, opts)
	return ec
}

// FetchAll requests every emoji of the guild.
func (ec *EmojiCache) FetchAll(ctx context.Context) ([]*GuildEmoji, error) {
	gid, err := keyOf(ec.guild.Object())
	if err != nil {
		return nil, err
	}
	recs, err := doRecords(ctx, ec.Owner(), rest.Call{Route: rest.GetGuildEmojis, Path: map[string]any{"guild_id": gid}})
	if err != nil {
		return nil, err
	}
	return ec.NewMany(recs)
}

// Create uploads a new emoji. "name" and "image" are required.
func (ec *EmojiCache) Create(ctx context.Context, fields map[string]any) (*GuildEmoji, error) {
	args := make(map[string]any, len(fields))
	for k, v := range fields {
		args[k] = v
	}
	if roles, ok := args["roles"]; ok {
		ids, err := keyStrings(roles)
		if err != nil {
			return nil, err
		}
		args["roles"] = ids
	}
	if err := schema.ValidateKeys("EmojiCache.Create", args, []string{"name", "image"}, rest.CreateGuildEmoji.JSON); err != nil {
		return nil, err
	}
	gid, err := keyOf(ec.guild.Object())
	if err != nil {
		return nil, err
	}

	rec, err := doRecord(ctx, ec.Owner(), rest.Call{
		Route: rest.CreateGuildEmoji,
		Path:  map[string]any{"guild_id": gid},
		JSON:  args,
	})
	if err != nil {
		return nil, err
	}
	return ec.NewEntity(rec)
}
