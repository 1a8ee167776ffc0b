package twitter

import (
	"context"

	"tweetwatch/internal/models"
)

// TimelineAPI is the read side of the client consumed by the sweep engine.
type TimelineAPI interface {
	FetchTimeline(ctx context.Context, accountID string, count int) ([]models.Tweet, error)
}

// AccountAPI is the side of the client consumed by the command handlers.
type AccountAPI interface {
	Login(ctx context.Context, username, password string) error
	ResolveAccount(ctx context.Context, ref string) (*models.Account, error)
}
