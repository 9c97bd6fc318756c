package resources

import (
	"context"
	"time"

	"github.com/Borislavv/go-ash-mirror/cache"
	"github.com/Borislavv/go-ash-mirror/model"
	"github.com/Borislavv/go-ash-mirror/rest"
	"github.com/Borislavv/go-ash-mirror/schema"
)

// InviteBase is the root schema of resources keyed by an invite code.
var InviteBase = cache.BaseSchema("InviteBase", "code",
	schema.FromNormalizer("code", model.StringKey, func(k string) any { return k }))

type Invite struct {
	cache.Base[string]

	TargetType    schema.Value[int]
	PresenceCount schema.Value[int]
	MemberCount   schema.Value[int]
	ExpiresAt     schema.Value[time.Time]
	Uses          schema.Value[int]
	MaxUses       schema.Value[int]
	MaxAge        schema.Value[int]
	Temporary     schema.Value[bool]
	CreatedAt     schema.Value[time.Time]

	Guild      *Guild
	Channel    *Channel
	Inviter    *User
	TargetUser *User

	invites *InviteCache
}

var InviteSchema = schema.MustBuild("Invite", func() *Invite { return &Invite{} },
	[]schema.Parent[*Invite]{schema.Inherit(InviteBase, (*Invite).Object)},
	schema.F("target_type", "target_type", func(i *Invite) *schema.Value[int] { return &i.TargetType }, schema.Int),
	schema.F("presence_count", "approximate_presence_count", func(i *Invite) *schema.Value[int] { return &i.PresenceCount }, schema.Int),
	schema.F("member_count", "approximate_member_count", func(i *Invite) *schema.Value[int] { return &i.MemberCount }, schema.Int),
	schema.F("expires_at", "expires_at", func(i *Invite) *schema.Value[time.Time] { return &i.ExpiresAt }, schema.Time),
	schema.F("uses", "uses", func(i *Invite) *schema.Value[int] { return &i.Uses }, schema.Int),
	schema.F("max_uses", "max_uses", func(i *Invite) *schema.Value[int] { return &i.MaxUses }, schema.Int),
	schema.F("max_age", "max_age", func(i *Invite) *schema.Value[int] { return &i.MaxAge }, schema.Int),
	schema.F("temporary", "temporary", func(i *Invite) *schema.Value[bool] { return &i.Temporary }, schema.Bool),
	schema.F("created_at", "created_at", func(i *Invite) *schema.Value[time.Time] { return &i.CreatedAt }, schema.Time),
)

// Code is the invite key.
func (i *Invite) Code() string {
	k, _ := i.EntityKey()
	return k
}

// Hydrate mirrors the guild, channel, inviter and target user of an invite record.
func (i *Invite) Hydrate(rec schema.Record) error {
	if i.invites == nil || i.invites.env.Owner == nil {
		return nil
	}
	owner := i.invites.env.Owner

	if guild, ok := rec.Object("guild"); ok {
		g, err := owner.Guilds().NewEntity(guild)
		if err != nil {
			return err
		}
		i.Guild = g
	}
	if channel, ok := rec.Object("channel"); ok {
		ch, err := owner.Channels().NewEntity(channel)
		if err != nil {
			return err
		}
		i.Channel = ch
	}
	if inviter, ok := rec.Object("inviter"); ok {
		u, err := owner.Users().NewEntity(inviter)
		if err != nil {
			return err
		}
		i.Inviter = u
	}
	if target, ok := rec.Object("target_user"); ok {
		u, err := owner.Users().NewEntity(target)
		if err != nil {
			return err
		}
		i.TargetUser = u
	}
	return nil
}

func (i *Invite) Delete(ctx context.Context) error {
	if i.invites == nil {
		return ErrDetached
	}
	_, err := i.invites.Delete(ctx, i)
	return err
}

type InviteCache struct {
	*cache.Cache[string, *Invite]
	env Env
}

func NewInviteCache(env Env) *InviteCache {
	ic := &InviteCache{env: env}

	opts := options[string, *Invite](env, model.StringKey)
	opts.Construct = func() *Invite { return &Invite{invites: ic} }
	opts.Fetch = func(ctx context.Context, owner cache.Coordinator, code string) (schema.Record, error) {
		return doRecord(ctx, owner, rest.Call{
			Route: rest.GetInvite,
			Path:  map[string]any{"invite_code": code},
			Query: map[string]any{"with_counts": true},
		})
	}
	ic.Cache = cache.New("invites", InviteSchema, opts)
	return ic
}

// Delete revokes an invite upstream and marks the mirror deleted.
func (ic *InviteCache) Delete(ctx context.Context, raw any) (*Invite, error) {
	code, err := ic.Key(raw)
	if err != nil {
		return nil, err
	}
	v, err := do(ctx, ic.Owner(), rest.Call{Route: rest.DeleteInvite, Path: map[string]any{"invite_code": code}})
	if err != nil {
		return nil, err
	}

	inv, ok := ic.Get(code)
	if rec, recErr := rest.Record(v); recErr == nil {
		if inv, err = ic.NewEntity(rec); err != nil {
			return nil, err
		}
		ok = true
	}
	if !ok {
		return nil, nil
	}
	return inv, inv.MarkDeleted()
}

// GuildVanityURL is the vanity invite of a guild. It is not cached on its own:
// the invite it names lives in the invite cache.
type GuildVanityURL struct {
	Code schema.Value[string]
	Uses schema.Value[int]

	Guild *Guild
}

var VanityURLSchema = schema.MustBuild("GuildVanityURL", func() *GuildVanityURL { return &GuildVanityURL{} }, nil,
	schema.F("code", "code", func(v *GuildVanityURL) *schema.Value[string] { return &v.Code }, schema.String),
	schema.F("uses", "uses", func(v *GuildVanityURL) *schema.Value[int] { return &v.Uses }, schema.Int),
)

// Invite returns the mirrored invite of the vanity code.
func (v *GuildVanityURL) Invite() (*Invite, bool) {
	code, ok := v.Code.Get()
	if !ok || v.Guild == nil || v.Guild.guilds == nil || v.Guild.guilds.env.Owner == nil {
		return nil, false
	}
	return v.Guild.guilds.env.Owner.Invites().Get(code)
}
