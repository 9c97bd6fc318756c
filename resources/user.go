package resources

import (
	"context"

	"github.com/Borislavv/go-ash-mirror/cache"
	"github.com/Borislavv/go-ash-mirror/model"
	"github.com/Borislavv/go-ash-mirror/rest"
	"github.com/Borislavv/go-ash-mirror/schema"
)

type User struct {
	cache.Base[model.Snowflake]

	Name          schema.Value[string]
	Discriminator schema.Value[string]
	Avatar        schema.Value[string]
	Bot           schema.Value[bool]
	System        schema.Value[bool]
	MFAEnabled    schema.Value[bool]
	Locale        schema.Value[string]
	Verified      schema.Value[bool]
	Email         schema.Value[string]
	Flags         schema.Value[int]
	PremiumType   schema.Value[int]
	PublicFlags   schema.Value[int]
}

var UserSchema = schema.MustBuild("User", func() *User { return &User{} },
	[]schema.Parent[*User]{schema.Inherit(cache.SnowflakeBase, (*User).Object)},
	schema.F("name", "username", func(u *User) *schema.Value[string] { return &u.Name }, schema.String),
	schema.F("discriminator", "discriminator", func(u *User) *schema.Value[string] { return &u.Discriminator }, schema.String),
	schema.F("avatar", "avatar", func(u *User) *schema.Value[string] { return &u.Avatar }, schema.String),
	schema.F("bot", "bot", func(u *User) *schema.Value[bool] { return &u.Bot }, schema.Bool),
	schema.F("system", "system", func(u *User) *schema.Value[bool] { return &u.System }, schema.Bool),
	schema.F("mfa_enabled", "mfa_enabled", func(u *User) *schema.Value[bool] { return &u.MFAEnabled }, schema.Bool),
	schema.F("locale", "locale", func(u *User) *schema.Value[string] { return &u.Locale }, schema.String),
	schema.F("verified", "verified", func(u *User) *schema.Value[bool] { return &u.Verified }, schema.Bool),
	schema.F("email", "email", func(u *User) *schema.Value[string] { return &u.Email }, schema.String),
	schema.F("flags", "flags", func(u *User) *schema.Value[int] { return &u.Flags }, schema.Int),
	schema.F("premium_type", "premium_type", func(u *User) *schema.Value[int] { return &u.PremiumType }, schema.Int),
	schema.F("public_flags", "public_flags", func(u *User) *schema.Value[int] { return &u.PublicFlags }, schema.Int),
)

// Tag returns "name#discriminator".
func (u *User) Tag() string {
	return u.Name.Or("") + "#" + u.Discriminator.Or("0000")
}

type UserCache struct {
	*cache.Cache[model.Snowflake, *User]
}

func NewUserCache(env Env) *UserCache {
	opts := options[model.Snowflake, *User](env, model.SnowflakeKey)
	opts.Fetch = func(ctx context.Context, owner cache.Coordinator, k model.Snowflake) (schema.Record, error) {
		return doRecord(ctx, owner, rest.Call{Route: rest.GetUser, Path: map[string]any{"user_id": k}})
	}
	return &UserCache{Cache: cache.New("users", UserSchema, opts)}
}
