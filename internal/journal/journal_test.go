package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()

	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordAndRecent(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, j.Record(ctx, "guild1", "acct1", "101", "chan1", now))
	require.NoError(t, j.Record(ctx, "guild1", "acct1", "102", "chan1", now))
	require.NoError(t, j.Record(ctx, "guild1", "acct2", "55", "chan1", now))
	require.NoError(t, j.Record(ctx, "guild2", "acct1", "101", "chan2", now))

	entries, err := j.Recent(ctx, "guild1", "acct1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, "102", entries[0].TweetID)
	assert.Equal(t, "101", entries[1].TweetID)
	assert.Equal(t, "chan1", entries[0].ChannelID)
}

func TestRecord_DuplicateIgnored(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, "guild1", "acct1", "101", "chan1", time.Now()))
	require.NoError(t, j.Record(ctx, "guild1", "acct1", "101", "chan1", time.Now()))

	count, err := j.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRecent_Limit(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3", "4", "5"} {
		require.NoError(t, j.Record(ctx, "guild1", "acct1", id, "chan1", time.Now()))
	}

	entries, err := j.Recent(ctx, "guild1", "acct1", 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "5", entries[0].TweetID)
}

func TestRecent_EmptyForUnknownAccount(t *testing.T) {
	j := openTestJournal(t)

	entries, err := j.Recent(context.Background(), "guild1", "ghost", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
