package rest

import "net/http"

var (
	GetGuild = &Route{
		Name: "get_guild", Method: http.MethodGet, Path: "/guilds/{guild_id}",
		Query: []string{"with_counts"},
	}
	CreateGuild = &Route{
		Name: "create_guild", Method: http.MethodPost, Path: "/guilds",
		JSON: []string{
			"name", "region", "icon", "verification_level", "default_message_notifications",
			"explicit_content_filter", "roles", "channels", "afk_channel_id", "afk_timeout",
			"system_channel_id", "system_channel_flags",
		},
	}
	GetUserGuilds = &Route{
		Name: "get_user_client_guilds", Method: http.MethodGet, Path: "/users/@me/guilds",
		Query: []string{"before", "after", "limit"},
	}
	GetGuildPreview = &Route{
		Name: "get_guild_preview", Method: http.MethodGet, Path: "/guilds/{guild_id}/preview",
	}
	ModifyGuild = &Route{
		Name: "modify_guild", Method: http.MethodPatch, Path: "/guilds/{guild_id}",
		JSON: []string{
			"name", "region", "verification_level", "default_message_notifications",
			"explicit_content_filter", "afk_channel_id", "afk_timeout", "icon", "owner_id",
			"splash", "discovery_splash", "banner", "system_channel_id", "system_channel_flags",
			"rules_channel_id", "public_updates_channel_id", "preferred_locale", "features",
			"description",
		},
	}
	DeleteGuild = &Route{
		Name: "delete_guild", Method: http.MethodDelete, Path: "/guilds/{guild_id}",
	}
	GetGuildVoiceRegions = &Route{
		Name: "get_guild_voice_regions", Method: http.MethodGet, Path: "/guilds/{guild_id}/regions",
	}
	GetGuildVanityURL = &Route{
		Name: "get_guild_vanity_url", Method: http.MethodGet, Path: "/guilds/{guild_id}/vanity-url",
	}
	BeginGuildPrune = &Route{
		Name: "begin_guild_prune", Method: http.MethodPost, Path: "/guilds/{guild_id}/prune",
		JSON: []string{"days", "compute_prune_count", "include_roles", "reason"},
	}
	GetGuildPruneCount = &Route{
		Name: "get_guild_prune_count", Method: http.MethodGet, Path: "/guilds/{guild_id}/prune",
		Query: []string{"days", "include_roles"},
	}

	GetGuildBans = &Route{
		Name: "get_guild_bans", Method: http.MethodGet, Path: "/guilds/{guild_id}/bans",
	}
	GetGuildBan = &Route{
		Name: "get_guild_ban", Method: http.MethodGet, Path: "/guilds/{guild_id}/bans/{user_id}",
	}
	CreateGuildBan = &Route{
		Name: "create_guild_ban", Method: http.MethodPut, Path: "/guilds/{guild_id}/bans/{user_id}",
		JSON: []string{"delete_message_days", "reason"},
	}
	RemoveGuildBan = &Route{
		Name: "remove_guild_ban", Method: http.MethodDelete, Path: "/guilds/{guild_id}/bans/{user_id}",
	}

	GetGuildEmojis = &Route{
		Name: "get_guild_emojis", Method: http.MethodGet, Path: "/guilds/{guild_id}/emojis",
	}
	GetGuildEmoji = &Route{
		Name: "get_guild_emoji", Method: http.MethodGet, Path: "/guilds/{guild_id}/emojis/{emoji_id}",
	}
	CreateGuildEmoji = &Route{
		Name: "create_guild_emoji", Method: http.MethodPost, Path: "/guilds/{guild_id}/emojis",
		JSON: []string{"name", "image", "roles"},
	}
	ModifyGuildEmoji = &Route{
		Name: "modify_guild_emoji", Method: http.MethodPatch, Path: "/guilds/{guild_id}/emojis/{emoji_id}",
		JSON: []string{"name", "roles"},
	}
	DeleteGuildEmoji = &Route{
		Name: "delete_guild_emoji", Method: http.MethodDelete, Path: "/guilds/{guild_id}/emojis/{emoji_id}",
	}

	GetInvite = &Route{
		Name: "get_invite", Method: http.MethodGet, Path: "/invites/{invite_code}",
		Query: []string{"with_counts", "with_expiration"},
	}
	DeleteInvite = &Route{
		Name: "delete_invite", Method: http.MethodDelete, Path: "/invites/{invite_code}",
	}

	GetChannel = &Route{
		Name: "get_channel", Method: http.MethodGet, Path: "/channels/{channel_id}",
	}
	GetUser = &Route{
		Name: "get_user", Method: http.MethodGet, Path: "/users/{user_id}",
	}
)
