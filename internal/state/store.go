package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"tweetwatch/internal/models"
	"tweetwatch/internal/storage"
)

// StateFile is the name of the persisted guild-state document.
const StateFile = "guilds.json"

var (
	// ErrNotConfigured is returned when a guild runs /follow before
	// /config-settings.
	ErrNotConfigured = errors.New("guild is not configured")

	// ErrIntervalOutOfRange is returned for intervals outside [5,60] minutes.
	ErrIntervalOutOfRange = fmt.Errorf("interval must be between %d and %d minutes",
		models.IntervalMin, models.IntervalMax)

	// ErrNotFollowed is returned when unfollowing an account the guild does
	// not follow.
	ErrNotFollowed = errors.New("account is not followed")
)

// Store owns all per-guild configuration, including the per-account delivery
// watermarks. Commands and the sweep loop access it concurrently; every
// accessor takes the lock and sweeps only ever see cloned snapshots.
type Store struct {
	mu      sync.RWMutex
	guilds  map[string]*models.GuildConfig
	backend storage.StorageInterface
}

// NewStore creates an empty store persisting through the given backend.
func NewStore(backend storage.StorageInterface) *Store {
	return &Store{
		guilds:  make(map[string]*models.GuildConfig),
		backend: backend,
	}
}

// Load restores persisted guild state. A missing or corrupt document yields an
// empty store rather than an error so a fresh deployment can start cold.
func (s *Store) Load() {
	data, err := s.backend.Retrieve(StateFile)
	if err != nil {
		logrus.Warnf("No persisted guild state found, starting empty: %v", err)
		return
	}

	var guilds map[string]*models.GuildConfig
	if err := json.Unmarshal(data, &guilds); err != nil {
		logrus.Errorf("Failed to decode persisted guild state, starting empty: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, g := range guilds {
		if g == nil {
			continue
		}
		g.GuildID = id
		if g.IntervalMinutes < models.IntervalMin || g.IntervalMinutes > models.IntervalMax {
			g.IntervalMinutes = models.IntervalDefault
		}
		if g.FollowedAccounts == nil {
			g.FollowedAccounts = make(map[string]string)
		}
		s.guilds[id] = g
	}

	logrus.Infof("Loaded configuration for %d guilds", len(s.guilds))
}

// Save rewrites the full guild-state document. On failure the in-memory state
// remains authoritative; the next successful save catches up.
func (s *Store) Save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.guilds, "", "  ")
	s.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("failed to marshal guild state: %w", err)
	}

	if err := s.backend.Store(StateFile, data); err != nil {
		return fmt.Errorf("failed to persist guild state: %w", err)
	}

	return nil
}

// GuildIDs returns all known guild IDs in a deterministic (sorted) order.
func (s *Store) GuildIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.guilds))
	for id := range s.guilds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Guild returns a snapshot of one guild's configuration.
func (s *Store) Guild(guildID string) (*models.GuildConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.guilds[guildID]
	if !ok {
		return nil, false
	}
	return g.Clone(), true
}

// SetSettings configures the target channel and sweep interval for a guild,
// creating its record on first use. Interval bounds are enforced before any
// state is touched.
func (s *Store) SetSettings(guildID, channelID string, intervalMinutes int) error {
	if intervalMinutes < models.IntervalMin || intervalMinutes > models.IntervalMax {
		return ErrIntervalOutOfRange
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.guilds[guildID]
	if !ok {
		g = &models.GuildConfig{
			GuildID:          guildID,
			IntervalMinutes:  models.IntervalDefault,
			FollowedAccounts: make(map[string]string),
		}
		s.guilds[guildID] = g
	}

	g.ChannelID = channelID
	g.IntervalMinutes = intervalMinutes
	return nil
}

// Follow starts tracking an account for a guild with an unset watermark, so
// the next sweep delivers its most recent posts. The guild must have been
// configured first.
func (s *Store) Follow(guildID, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.guilds[guildID]
	if !ok {
		return ErrNotConfigured
	}

	if _, followed := g.FollowedAccounts[accountID]; !followed {
		g.FollowedAccounts[accountID] = ""
	}
	return nil
}

// Unfollow stops tracking an account and discards its watermark.
func (s *Store) Unfollow(guildID, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.guilds[guildID]
	if !ok {
		return ErrNotConfigured
	}

	if _, followed := g.FollowedAccounts[accountID]; !followed {
		return ErrNotFollowed
	}

	delete(g.FollowedAccounts, accountID)
	return nil
}

// AdvanceWatermark records that tweetID was delivered to the guild for the
// given account. It is a no-op if the account was unfollowed while the sweep
// was in flight, so an unfollow never gets resurrected by a racing delivery.
func (s *Store) AdvanceWatermark(guildID, accountID, tweetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.guilds[guildID]
	if !ok {
		return
	}
	if _, followed := g.FollowedAccounts[accountID]; !followed {
		return
	}
	g.FollowedAccounts[accountID] = tweetID
}

// MinInterval returns the smallest configured sweep interval across all
// guilds, or the default when no guild is configured. The scheduler runs every
// guild at this single global cadence; a guild with a larger configured
// interval is still swept every MinInterval.
func (s *Store) MinInterval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	min := models.IntervalDefault
	first := true
	for _, g := range s.guilds {
		if first || g.IntervalMinutes < min {
			min = g.IntervalMinutes
			first = false
		}
	}
	return time.Duration(min) * time.Minute
}
