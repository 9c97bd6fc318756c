package resources

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Borislavv/go-ash-mirror/cache"
	"github.com/Borislavv/go-ash-mirror/model"
	"github.com/Borislavv/go-ash-mirror/rest"
	"github.com/Borislavv/go-ash-mirror/schema"
)

type ChannelType int

const (
	GuildText          ChannelType = 0
	DM                 ChannelType = 1
	GuildVoice         ChannelType = 2
	GroupDM            ChannelType = 3
	GuildCategory      ChannelType = 4
	GuildNews          ChannelType = 5
	GuildStore         ChannelType = 6
	GuildNewsThread    ChannelType = 10
	GuildPublicThread  ChannelType = 11
	GuildPrivateThread ChannelType = 12
	GuildStageVoice    ChannelType = 13
)

type Channel struct {
	cache.Base[model.Snowflake]

	Type             schema.Value[ChannelType]
	GuildID          schema.Value[model.Snowflake]
	Position         schema.Value[int]
	Name             schema.Value[string]
	Topic            schema.Value[string]
	NSFW             schema.Value[bool]
	LastMessageID    schema.Value[model.Snowflake]
	Bitrate          schema.Value[int]
	UserLimit        schema.Value[int]
	RateLimitPerUser schema.Value[int]
	ParentID         schema.Value[model.Snowflake]
	LastPinTimestamp schema.Value[time.Time]
}

var ChannelSchema = schema.MustBuild("Channel", func() *Channel { return &Channel{} },
	[]schema.Parent[*Channel]{schema.Inherit(cache.SnowflakeBase, (*Channel).Object)},
	schema.F("type", "type", func(c *Channel) *schema.Value[ChannelType] { return &c.Type }, schema.IntEnum[ChannelType]("channel_type")),
	snowflakeField("guild_id", "guild_id", func(c *Channel) *schema.Value[model.Snowflake] { return &c.GuildID }),
	schema.F("position", "position", func(c *Channel) *schema.Value[int] { return &c.Position }, schema.Int),
	schema.F("name", "name", func(c *Channel) *schema.Value[string] { return &c.Name }, schema.String),
	schema.F("topic", "topic", func(c *Channel) *schema.Value[string] { return &c.Topic }, schema.String),
	schema.F("nsfw", "nsfw", func(c *Channel) *schema.Value[bool] { return &c.NSFW }, schema.Bool),
	snowflakeField("last_message_id", "last_message_id", func(c *Channel) *schema.Value[model.Snowflake] { return &c.LastMessageID }),
	schema.F("bitrate", "bitrate", func(c *Channel) *schema.Value[int] { return &c.Bitrate }, schema.Int),
	schema.F("user_limit", "user_limit", func(c *Channel) *schema.Value[int] { return &c.UserLimit }, schema.Int),
	schema.F("rate_limit_per_user", "rate_limit_per_user", func(c *Channel) *schema.Value[int] { return &c.RateLimitPerUser }, schema.Int),
	snowflakeField("parent_id", "parent_id", func(c *Channel) *schema.Value[model.Snowflake] { return &c.ParentID }),
	schema.F("last_pin_timestamp", "last_pin_timestamp", func(c *Channel) *schema.Value[time.Time] { return &c.LastPinTimestamp }, schema.Time),
)

type ChannelCache struct {
	*cache.Cache[model.Snowflake, *Channel]
}

func NewChannelCache(env Env) *ChannelCache {
	opts := options[model.Snowflake, *Channel](env, model.SnowflakeKey)
	opts.Fetch = func(ctx context.Context, owner cache.Coordinator, k model.Snowflake) (schema.Record, error) {
		return doRecord(ctx, owner, rest.Call{Route: rest.GetChannel, Path: map[string]any{"channel_id": k}})
	}
	return &ChannelCache{Cache: cache.New("channels", ChannelSchema, opts)}
}

// GuildChannels is the set of channel keys of one guild, resolved against the
// global channel cache on read.
type GuildChannels struct {
	owner Coordinator
	mu    sync.Mutex
	keys  map[model.Snowflake]struct{}
}

func newGuildChannels(owner Coordinator) *GuildChannels {
	return &GuildChannels{owner: owner, keys: make(map[model.Snowflake]struct{})}
}

func (gc *GuildChannels) Add(raw any) error {
	k, err := model.SnowflakeKey(raw)
	if err != nil {
		return err
	}
	gc.mu.Lock()
	gc.keys[k] = struct{}{}
	gc.mu.Unlock()
	return nil
}

func (gc *GuildChannels) Remove(raw any) bool {
	k, err := model.SnowflakeKey(raw)
	if err != nil {
		return false
	}
	gc.mu.Lock()
	defer gc.mu.Unlock()
	if _, ok := gc.keys[k]; !ok {
		return false
	}
	delete(gc.keys, k)
	return true
}

func (gc *GuildChannels) Has(raw any) bool {
	k, err := model.SnowflakeKey(raw)
	if err != nil {
		return false
	}
	gc.mu.Lock()
	defer gc.mu.Unlock()
	_, ok := gc.keys[k]
	return ok
}

func (gc *GuildChannels) Len() int {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return len(gc.keys)
}

// Keys returns the member keys in ascending order.
func (gc *GuildChannels) Keys() []model.Snowflake {
	gc.mu.Lock()
	keys := make([]model.Snowflake, 0, len(gc.keys))
	for k := range gc.keys {
		keys = append(keys, k)
	}
	gc.mu.Unlock()

	slices.Sort(keys)
	return keys
}

// Get returns a member channel that is live in the channel cache.
func (gc *GuildChannels) Get(raw any) (*Channel, bool) {
	if !gc.Has(raw) || gc.owner == nil {
		return nil, false
	}
	return gc.owner.Channels().Get(raw)
}

// All returns the live member channels in key order.
func (gc *GuildChannels) All() []*Channel {
	if gc.owner == nil {
		return nil
	}
	channels := gc.owner.Channels()
	out := make([]*Channel, 0, gc.Len())
	for _, k := range gc.Keys() {
		if ch, ok := channels.Get(k); ok {
			out = append(out, ch)
		}
	}
	return out
}
