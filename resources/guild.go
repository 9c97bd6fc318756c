package resources

import (
	"context"
	"strings"
	"time"

	"github.com/Borislavv/go-ash-mirror/cache"
	"github.com/Borislavv/go-ash-mirror/model"
	"github.com/Borislavv/go-ash-mirror/rest"
	"github.com/Borislavv/go-ash-mirror/schema"
)

type VerificationLevel int

const (
	VerificationNone VerificationLevel = iota
	VerificationLow
	VerificationMedium
	VerificationHigh
	VerificationVeryHigh
)

type Guild struct {
	cache.Base[model.Snowflake]

	Name                        schema.Value[string]
	Icon                        schema.Value[string]
	Splash                      schema.Value[string]
	DiscoverySplash             schema.Value[string]
	OwnerID                     schema.Value[model.Snowflake]
	AFKChannelID                schema.Value[model.Snowflake]
	AFKTimeout                  schema.Value[int]
	VerificationLevel           schema.Value[VerificationLevel]
	DefaultMessageNotifications schema.Value[int]
	ExplicitContentFilter       schema.Value[int]
	Features                    schema.Value[[]string]
	MFALevel                    schema.Value[int]
	SystemChannelID             schema.Value[model.Snowflake]
	SystemChannelFlags          schema.Value[int]
	RulesChannelID              schema.Value[model.Snowflake]
	PublicUpdatesChannelID      schema.Value[model.Snowflake]
	JoinedAt                    schema.Value[time.Time]
	Large                       schema.Value[bool]
	Unavailable                 schema.Value[bool]
	MemberCount                 schema.Value[int]
	MaxPresences                schema.Value[int]
	MaxMembers                  schema.Value[int]
	VanityURLCode               schema.Value[string]
	Description                 schema.Value[string]
	Banner                      schema.Value[string]
	PremiumTier                 schema.Value[int]
	PremiumSubscriptionCount    schema.Value[int]
	PreferredLocale             schema.Value[string]
	ApproximateMemberCount      schema.Value[int]
	ApproximatePresenceCount    schema.Value[int]

	// Channels holds the keys of the guild channels mirrored in the channel cache.
	Channels *GuildChannels
	Emojis   *EmojiCache
	Bans     *BanCache

	guilds *GuildCache
}

var GuildSchema = schema.MustBuild("Guild", func() *Guild { return &Guild{} },
	[]schema.Parent[*Guild]{schema.Inherit(cache.SnowflakeBase, (*Guild).Object)},
	schema.F("name", "name", func(g *Guild) *schema.Value[string] { return &g.Name }, schema.String),
	schema.F("icon", "icon", func(g *Guild) *schema.Value[string] { return &g.Icon }, schema.String),
	schema.F("splash", "splash", func(g *Guild) *schema.Value[string] { return &g.Splash }, schema.String),
	schema.F("discovery_splash", "discovery_splash", func(g *Guild) *schema.Value[string] { return &g.DiscoverySplash }, schema.String),
	snowflakeField("owner_id", "owner_id", func(g *Guild) *schema.Value[model.Snowflake] { return &g.OwnerID }),
	snowflakeField("afk_channel_id", "afk_channel_id", func(g *Guild) *schema.Value[model.Snowflake] { return &g.AFKChannelID }),
	schema.F("afk_timeout", "afk_timeout", func(g *Guild) *schema.Value[int] { return &g.AFKTimeout }, schema.Int),
	schema.F("verification_level", "verification_level", func(g *Guild) *schema.Value[VerificationLevel] { return &g.VerificationLevel },
		schema.IntEnum("verification_level", VerificationNone, VerificationLow, VerificationMedium, VerificationHigh, VerificationVeryHigh)),
	schema.F("default_message_notifications", "default_message_notifications", func(g *Guild) *schema.Value[int] { return &g.DefaultMessageNotifications }, schema.Int),
	schema.F("explicit_content_filter", "explicit_content_filter", func(g *Guild) *schema.Value[int] { return &g.ExplicitContentFilter }, schema.Int),
	schema.F("features", "features", func(g *Guild) *schema.Value[[]string] { return &g.Features }, schema.Array(schema.String)),
	schema.F("mfa_level", "mfa_level", func(g *Guild) *schema.Value[int] { return &g.MFALevel }, schema.Int),
	snowflakeField("system_channel_id", "system_channel_id", func(g *Guild) *schema.Value[model.Snowflake] { return &g.SystemChannelID }),
	schema.F("system_channel_flags", "system_channel_flags", func(g *Guild) *schema.Value[int] { return &g.SystemChannelFlags }, schema.Int),
	snowflakeField("rules_channel_id", "rules_channel_id", func(g *Guild) *schema.Value[model.Snowflake] { return &g.RulesChannelID }),
	snowflakeField("public_updates_channel_id", "public_updates_channel_id", func(g *Guild) *schema.Value[model.Snowflake] { return &g.PublicUpdatesChannelID }),
	schema.F("joined_at", "joined_at", func(g *Guild) *schema.Value[time.Time] { return &g.JoinedAt }, schema.Time),
	schema.F("large", "large", func(g *Guild) *schema.Value[bool] { return &g.Large }, schema.Bool),
	schema.F("unavailable", "unavailable", func(g *Guild) *schema.Value[bool] { return &g.Unavailable }, schema.Bool),
	schema.F("member_count", "member_count", func(g *Guild) *schema.Value[int] { return &g.MemberCount }, schema.Int),
	schema.F("max_presences", "max_presences", func(g *Guild) *schema.Value[int] { return &g.MaxPresences }, schema.Int),
	schema.F("max_members", "max_members", func(g *Guild) *schema.Value[int] { return &g.MaxMembers }, schema.Int),
	schema.F("vanity_url_code", "vanity_url_code", func(g *Guild) *schema.Value[string] { return &g.VanityURLCode }, schema.String),
	schema.F("description", "description", func(g *Guild) *schema.Value[string] { return &g.Description }, schema.String),
	schema.F("banner", "banner", func(g *Guild) *schema.Value[string] { return &g.Banner }, schema.String),
	schema.F("premium_tier", "premium_tier", func(g *Guild) *schema.Value[int] { return &g.PremiumTier }, schema.Int),
	schema.F("premium_subscription_count", "premium_subscription_count", func(g *Guild) *schema.Value[int] { return &g.PremiumSubscriptionCount }, schema.Int),
	schema.F("preferred_locale", "preferred_locale", func(g *Guild) *schema.Value[string] { return &g.PreferredLocale }, schema.String),
	schema.F("approximate_member_count", "approximate_member_count", func(g *Guild) *schema.Value[int] { return &g.ApproximateMemberCount }, schema.Int),
	schema.F("approximate_presence_count", "approximate_presence_count", func(g *Guild) *schema.Value[int] { return &g.ApproximatePresenceCount }, schema.Int),
)

// previewAttrs are the attributes shared with the guild preview resource.
var previewAttrs = []string{
	"id", "name", "icon", "splash", "discovery_splash", "features",
	"approximate_member_count", "approximate_presence_count", "description",
}

func (g *Guild) owner() (Coordinator, error) {
	if g.guilds == nil || g.guilds.env.Owner == nil {
		return nil, ErrDetached
	}
	return g.guilds.env.Owner, nil
}

// Hydrate mirrors the nested channels and emojis of a guild record into their caches.
func (g *Guild) Hydrate(rec schema.Record) error {
	owner, err := g.owner()
	if err != nil {
		return nil
	}
	gid, err := keyOf(g.Object())
	if err != nil {
		return err
	}

	if channels, ok := rec.Objects("channels"); ok {
		for _, raw := range channels {
			ch, err := owner.Channels().NewEntity(raw)
			if err != nil {
				return err
			}
			if !ch.GuildID.IsSet() {
				ch.GuildID.Set(gid)
			}
			if err = g.Channels.Add(ch); err != nil {
				return err
			}
		}
	}

	if emojis, ok := rec.Objects("emojis"); ok {
		if _, err = g.Emojis.NewMany(emojis); err != nil {
			return err
		}
	}
	return nil
}

// Modify patches the guild upstream and applies the returned record.
func (g *Guild) Modify(ctx context.Context, fields map[string]any) error {
	if err := schema.ValidateKeys("Guild.Modify", fields, nil, rest.ModifyGuild.JSON); err != nil {
		return err
	}
	owner, err := g.owner()
	if err != nil {
		return err
	}
	gid, err := keyOf(g.Object())
	if err != nil {
		return err
	}

	rec, err := doRecord(ctx, owner, rest.Call{
		Route: rest.ModifyGuild,
		Path:  map[string]any{"guild_id": gid},
		JSON:  fields,
	})
	if err != nil {
		return err
	}
	_, err = g.guilds.NewEntity(rec)
	return err
}

// Delete deletes the guild upstream and marks the mirror deleted.
func (g *Guild) Delete(ctx context.Context) error {
	owner, err := g.owner()
	if err != nil {
		return err
	}
	gid, err := keyOf(g.Object())
	if err != nil {
		return err
	}
	if _, err = do(ctx, owner, rest.Call{Route: rest.DeleteGuild, Path: map[string]any{"guild_id": gid}}); err != nil {
		return err
	}
	return g.MarkDeleted()
}

// Prune starts a member prune when remove is true, otherwise it only counts the
// members a prune would remove. A "roles" parameter is normalized into include_roles.
func (g *Guild) Prune(ctx context.Context, remove bool, params map[string]any) (int, error) {
	args := make(map[string]any, len(params))
	for k, v := range params {
		args[k] = v
	}

	if roles, ok := args["roles"]; ok {
		delete(args, "roles")
		ids, err := keyStrings(roles)
		if err != nil {
			return 0, err
		}
		if remove {
			args["include_roles"] = ids
		} else {
			args["include_roles"] = strings.Join(ids, ",")
		}
	}

	call := rest.Call{Route: rest.BeginGuildPrune, JSON: args}
	accepted := rest.BeginGuildPrune.JSON
	if !remove {
		call = rest.Call{Route: rest.GetGuildPruneCount, Query: args}
		accepted = rest.GetGuildPruneCount.Query
	}
	if err := schema.ValidateKeys("Guild.Prune", args, nil, accepted); err != nil {
		return 0, err
	}

	owner, err := g.owner()
	if err != nil {
		return 0, err
	}
	gid, err := keyOf(g.Object())
	if err != nil {
		return 0, err
	}
	call.Path = map[string]any{"guild_id": gid}

	rec, err := doRecord(ctx, owner, call)
	if err != nil {
		return 0, err
	}
	raw, ok := rec["pruned"]
	if !ok || raw == nil {
		return 0, nil
	}
	return schema.Int.Decode(raw)
}

func (g *Guild) FetchPreview(ctx context.Context) (*Guild, error) {
	if g.guilds == nil {
		return nil, ErrDetached
	}
	return g.guilds.FetchPreview(ctx, g)
}

func (g *Guild) FetchVoiceRegions(ctx context.Context) ([]*VoiceRegion, error) {
	owner, err := g.owner()
	if err != nil {
		return nil, err
	}
	gid, err := keyOf(g.Object())
	if err != nil {
		return nil, err
	}

	recs, err := doRecords(ctx, owner, rest.Call{Route: rest.GetGuildVoiceRegions, Path: map[string]any{"guild_id": gid}})
	if err != nil {
		return nil, err
	}
	regions := make([]*VoiceRegion, 0, len(recs))
	for _, rec := range recs {
		r, err := VoiceRegionSchema.Unmarshal(rec, nil)
		if err != nil {
			return nil, err
		}
		regions = append(regions, r)
	}
	return regions, nil
}

// FetchVanityURL requests the vanity invite of the guild and mirrors it into the invite cache.
func (g *Guild) FetchVanityURL(ctx context.Context) (*GuildVanityURL, error) {
	owner, err := g.owner()
	if err != nil {
		return nil, err
	}
	gid, err := keyOf(g.Object())
	if err != nil {
		return nil, err
	}

	rec, err := doRecord(ctx, owner, rest.Call{Route: rest.GetGuildVanityURL, Path: map[string]any{"guild_id": gid}})
	if err != nil {
		return nil, err
	}
	vanity, err := VanityURLSchema.Unmarshal(rec, func() *GuildVanityURL { return &GuildVanityURL{Guild: g} })
	if err != nil {
		return nil, err
	}

	if code, ok := vanity.Code.Get(); ok && code != "" {
		inv, err := owner.Invites().NewEntity(rec)
		if err != nil {
			return nil, err
		}
		inv.Guild = g
		if err = g.setVanityCode(gid, code); err != nil {
			return nil, err
		}
	}
	return vanity, nil
}

// setVanityCode records code on a live guild through its cache so the stored
// fingerprint no longer matches the record the guild was last applied from.
func (g *Guild) setVanityCode(gid model.Snowflake, code string) error {
	if !g.IsCached() {
		g.VanityURLCode.Set(code)
		return nil
	}
	_, err := g.guilds.NewEntity(schema.Record{"id": gid.String(), "vanity_url_code": code})
	return err
}

// ToPreview encodes the attributes the guild shares with its preview.
func (g *Guild) ToPreview() (schema.Record, error) {
	return GuildSchema.Marshal(g, previewAttrs...)
}

type VoiceRegion struct {
	ID         schema.Value[string]
	Name       schema.Value[string]
	VIP        schema.Value[bool]
	Optimal    schema.Value[bool]
	Deprecated schema.Value[bool]
	Custom     schema.Value[bool]
}

var VoiceRegionSchema = schema.MustBuild("VoiceRegion", func() *VoiceRegion { return &VoiceRegion{} }, nil,
	schema.F("id", "id", func(r *VoiceRegion) *schema.Value[string] { return &r.ID }, schema.String),
	schema.F("name", "name", func(r *VoiceRegion) *schema.Value[string] { return &r.Name }, schema.String),
	schema.F("vip", "vip", func(r *VoiceRegion) *schema.Value[bool] { return &r.VIP }, schema.Bool),
	schema.F("optimal", "optimal", func(r *VoiceRegion) *schema.Value[bool] { return &r.Optimal }, schema.Bool),
	schema.F("deprecated", "deprecated", func(r *VoiceRegion) *schema.Value[bool] { return &r.Deprecated }, schema.Bool),
	schema.F("custom", "custom", func(r *VoiceRegion) *schema.Value[bool] { return &r.Custom }, schema.Bool),
)
