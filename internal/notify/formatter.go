package notify

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"tweetwatch/internal/models"
)

const embedColor = 0x1DA1F2

// Format renders one tweet as a Discord embed. It is pure and never fails.
//
// Only the first photo attachment is shown inline; video and animated-gif
// attachments cannot be embedded by the platform and are rendered as a "view
// media" link instead. Any further attachments are dropped from the embed.
func Format(tweet models.Tweet) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("New post from @%s", authorLabel(tweet)),
		Description: tweet.Text,
		URL:         statusURL(tweet),
		Color:       embedColor,
	}

	if !tweet.CreatedAt.IsZero() {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: "Posted " + tweet.CreatedAt.UTC().Format("02-01-2006 15:04:05 UTC"),
		}
	}

	for _, media := range tweet.Media {
		switch media.Kind {
		case models.MediaPhoto:
			if embed.Image == nil {
				embed.Image = &discordgo.MessageEmbedImage{URL: media.URL}
			}
		case models.MediaVideo, models.MediaAnimatedGif:
			if len(embed.Fields) == 0 {
				link := media.ExpandedURL
				if link == "" {
					link = media.URL
				}
				embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
					Name:  "Media",
					Value: fmt.Sprintf("[View the video/GIF](%s)", link),
				})
			}
		}
	}

	return embed
}

func authorLabel(tweet models.Tweet) string {
	if tweet.AuthorHandle != "" {
		return tweet.AuthorHandle
	}
	return tweet.AuthorID
}

func statusURL(tweet models.Tweet) string {
	if tweet.AuthorHandle != "" {
		return fmt.Sprintf("https://twitter.com/%s/status/%s", tweet.AuthorHandle, tweet.ID)
	}
	// The /i/ path resolves without knowing the handle.
	return fmt.Sprintf("https://twitter.com/i/status/%s", tweet.ID)
}
