package journal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS deliveries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    guild_id TEXT NOT NULL,
    account_id TEXT NOT NULL,
    tweet_id TEXT NOT NULL,
    channel_id TEXT NOT NULL,
    delivered_at DATETIME NOT NULL,
    UNIQUE(guild_id, account_id, tweet_id)
);

CREATE INDEX IF NOT EXISTS idx_deliveries_guild_account ON deliveries(guild_id, account_id);
`

// Entry is one recorded delivery.
type Entry struct {
	ID          int64     `db:"id"`
	GuildID     string    `db:"guild_id"`
	AccountID   string    `db:"account_id"`
	TweetID     string    `db:"tweet_id"`
	ChannelID   string    `db:"channel_id"`
	DeliveredAt time.Time `db:"delivered_at"`
}

// Journal is an append-only sqlite log of every delivered notification. It
// exists for operators: the single watermark in the guild state only records
// the newest delivered ID, while the journal keeps a history of recent
// deliveries per (guild, account).
type Journal struct {
	db *sqlx.DB
}

// Open creates (or opens) the journal database at path.
func Open(path string) (*Journal, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate journal schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record logs one delivery. Re-recording the same (guild, account, tweet) is
// ignored, so a crash-induced redelivery does not duplicate history.
func (j *Journal) Record(ctx context.Context, guildID, accountID, tweetID, channelID string, deliveredAt time.Time) error {
	query := `
		INSERT OR IGNORE INTO deliveries (guild_id, account_id, tweet_id, channel_id, delivered_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := j.db.ExecContext(ctx, query, guildID, accountID, tweetID, channelID, deliveredAt.UTC()); err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}

// Recent returns the most recent deliveries for a (guild, account), newest
// first.
func (j *Journal) Recent(ctx context.Context, guildID, accountID string, limit int) ([]Entry, error) {
	var entries []Entry
	query := `
		SELECT * FROM deliveries
		WHERE guild_id = ? AND account_id = ?
		ORDER BY id DESC
		LIMIT ?
	`
	if err := j.db.SelectContext(ctx, &entries, query, guildID, accountID, limit); err != nil {
		return nil, fmt.Errorf("failed to query deliveries: %w", err)
	}
	return entries, nil
}

// Count returns the total number of recorded deliveries.
func (j *Journal) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := j.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM deliveries`); err != nil {
		return 0, fmt.Errorf("failed to count deliveries: %w", err)
	}
	return count, nil
}
