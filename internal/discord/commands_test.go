package discord

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweetwatch/internal/models"
	"tweetwatch/internal/state"
	"tweetwatch/internal/twitter"
)

// memStorage is an in-memory storage backend for tests.
type memStorage struct {
	files map[string][]byte
}

func (m *memStorage) Store(filename string, data []byte) error {
	m.files[filename] = data
	return nil
}

func (m *memStorage) Retrieve(filename string) ([]byte, error) {
	data, ok := m.files[filename]
	if !ok {
		return nil, fmt.Errorf("not found: %s", filename)
	}
	return data, nil
}

func (m *memStorage) List(prefix string) ([]string, error) { return nil, nil }
func (m *memStorage) Delete(filename string) error         { return nil }

// fakeSocial is a canned twitter.AccountAPI.
type fakeSocial struct {
	accounts   map[string]*models.Account // keyed by command ref
	loginErr   error
	resolveErr error
	logins     []string
}

func (f *fakeSocial) Login(ctx context.Context, username, password string) error {
	if f.loginErr != nil {
		return f.loginErr
	}
	f.logins = append(f.logins, username)
	return nil
}

func (f *fakeSocial) ResolveAccount(ctx context.Context, ref string) (*models.Account, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	if account, ok := f.accounts[ref]; ok {
		return account, nil
	}
	return nil, twitter.ErrNotFound
}

// fakeSched records cadence changes.
type fakeSched struct {
	intervals []time.Duration
}

func (f *fakeSched) SetInterval(d time.Duration) {
	f.intervals = append(f.intervals, d)
}

func newTestCommands() (*Commands, *state.Store, *fakeSocial, *fakeSched) {
	store := state.NewStore(&memStorage{files: make(map[string][]byte)})
	social := &fakeSocial{accounts: make(map[string]*models.Account)}
	sched := &fakeSched{}
	return NewCommands(store, social, sched), store, social, sched
}

func TestConfigSettings_RejectsOutOfRangeInterval(t *testing.T) {
	commands, store, _, sched := newTestCommands()

	message := commands.configSettings("guild1", "chan1", 3)

	assert.Equal(t, "The interval must be between 5 and 60 minutes.", message)
	_, ok := store.Guild("guild1")
	assert.False(t, ok, "rejected command must not mutate state")
	assert.Empty(t, sched.intervals)
}

func TestConfigSettings_UpdatesStateAndCadence(t *testing.T) {
	commands, store, _, sched := newTestCommands()

	message := commands.configSettings("guild1", "chan1", 10)

	assert.Equal(t, "Settings updated. New posts will be sent to <#chan1> every 10 minutes.", message)

	guild, ok := store.Guild("guild1")
	require.True(t, ok)
	assert.Equal(t, "chan1", guild.ChannelID)
	assert.Equal(t, 10, guild.IntervalMinutes)

	// The sweep cadence is recomputed as the minimum across guilds.
	require.Len(t, sched.intervals, 1)
	assert.Equal(t, 10*time.Minute, sched.intervals[0])
}

func TestConfigSettings_CadenceIsGlobalMinimum(t *testing.T) {
	commands, _, _, sched := newTestCommands()

	commands.configSettings("guild1", "chan1", 30)
	commands.configSettings("guild2", "chan2", 10)
	commands.configSettings("guild3", "chan3", 60)

	assert.Equal(t, []time.Duration{30 * time.Minute, 10 * time.Minute, 10 * time.Minute}, sched.intervals)
}

func TestConfigAccount(t *testing.T) {
	commands, _, social, _ := newTestCommands()

	message := commands.configAccount(context.Background(), "scraper", "secret")
	assert.Equal(t, "X account configuration updated.", message)
	assert.Equal(t, []string{"scraper"}, social.logins)

	social.loginErr = twitter.ErrAuthExpired
	message = commands.configAccount(context.Background(), "scraper", "bad")
	assert.Equal(t, "An error occurred while configuring the X account.", message)
}

func TestFollow(t *testing.T) {
	commands, store, social, _ := newTestCommands()
	social.accounts["@jdoe"] = &models.Account{ID: "42", Handle: "jdoe", DisplayName: "Jane Doe"}

	t.Run("requires configured guild", func(t *testing.T) {
		message := commands.follow(context.Background(), "guild1", "@jdoe")
		assert.Equal(t, "Configure the bot with /config-settings first.", message)
	})

	commands.configSettings("guild1", "chan1", 5)

	t.Run("success", func(t *testing.T) {
		message := commands.follow(context.Background(), "guild1", "@jdoe")
		assert.Equal(t, "Now following Jane Doe (@jdoe).", message)

		guild, _ := store.Guild("guild1")
		assert.Contains(t, guild.FollowedAccounts, "42")
	})

	t.Run("unknown account", func(t *testing.T) {
		message := commands.follow(context.Background(), "guild1", "@ghost")
		assert.Equal(t, "X account not found.", message)
	})

	t.Run("resolver outage", func(t *testing.T) {
		social.resolveErr = twitter.ErrUnreachable
		defer func() { social.resolveErr = nil }()

		message := commands.follow(context.Background(), "guild1", "@jdoe")
		assert.Equal(t, "An error occurred while following the account.", message)
	})
}

func TestUnfollow(t *testing.T) {
	commands, store, social, _ := newTestCommands()
	social.accounts["@jdoe"] = &models.Account{ID: "42", Handle: "jdoe", DisplayName: "Jane Doe"}

	t.Run("requires configured guild", func(t *testing.T) {
		message := commands.unfollow(context.Background(), "guild1", "42")
		assert.Equal(t, "No configuration found for this server.", message)
	})

	commands.configSettings("guild1", "chan1", 5)
	commands.follow(context.Background(), "guild1", "@jdoe")

	t.Run("not followed", func(t *testing.T) {
		message := commands.unfollow(context.Background(), "guild1", "999")
		assert.Equal(t, "This account was not followed.", message)
	})

	t.Run("by handle", func(t *testing.T) {
		message := commands.unfollow(context.Background(), "guild1", "@jdoe")
		assert.Equal(t, "The account is no longer followed.", message)

		guild, _ := store.Guild("guild1")
		assert.NotContains(t, guild.FollowedAccounts, "42")
	})
}
