package models

import "time"

// Media kinds as reported by the X API.
const (
	MediaPhoto       = "photo"
	MediaVideo       = "video"
	MediaAnimatedGif = "animated_gif"
)

// Interval bounds (minutes) for the per-guild sweep cadence.
const (
	IntervalMin     = 5
	IntervalMax     = 60
	IntervalDefault = 5
)

// Media is one attachment on a tweet.
type Media struct {
	Kind        string `json:"kind"` // "photo", "video" or "animated_gif"
	URL         string `json:"url"`
	ExpandedURL string `json:"expanded_url"` // link to the media on the platform
}

// Tweet is one post fetched from a followed account. IDs are opaque strings;
// the source orders them by recency, but they are not assumed to be numeric.
type Tweet struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"author_id"`
	AuthorHandle string    `json:"author_handle"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"created_at"`
	Media        []Media   `json:"media,omitempty"`
}

// Account is a resolved X account reference.
type Account struct {
	ID          string `json:"id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
}

// GuildConfig is the per-guild notification configuration. FollowedAccounts
// maps an account ID to the ID of the last tweet delivered to this guild; the
// empty string means nothing has been delivered yet. The watermark is only
// ever advanced to the ID of a successfully delivered tweet.
type GuildConfig struct {
	GuildID          string            `json:"guild_id"`
	ChannelID        string            `json:"channel_id,omitempty"`
	IntervalMinutes  int               `json:"interval_minutes"`
	FollowedAccounts map[string]string `json:"followed_accounts"`
}

// Clone returns a deep copy so sweeps can work on a snapshot while commands
// mutate the store.
func (g *GuildConfig) Clone() *GuildConfig {
	c := *g
	c.FollowedAccounts = make(map[string]string, len(g.FollowedAccounts))
	for id, mark := range g.FollowedAccounts {
		c.FollowedAccounts[id] = mark
	}
	return &c
}
