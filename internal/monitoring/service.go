package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"tweetwatch/internal/alerts"
	"tweetwatch/internal/config"
	"tweetwatch/internal/journal"
	"tweetwatch/internal/models"
	"tweetwatch/internal/notify"
	"tweetwatch/internal/state"
	"tweetwatch/internal/twitter"
)

// ChatClient is the chat-platform surface the sweep engine needs.
type ChatClient interface {
	ResolveChannel(channelID string) error
	SendEmbed(channelID string, embed *discordgo.MessageEmbed) error
}

// Service runs sweeps: for every guild with a configured channel it polls
// each followed account, delivers the new tweets in chronological order and
// advances the per-account watermark after each successful send.
type Service struct {
	config     *config.Config
	store      *state.Store
	timeline   twitter.TimelineAPI
	chat       ChatClient
	dispatcher *notify.Dispatcher
	journal    *journal.Journal // optional
	alerter    alerts.Notifier  // optional

	sweepMu sync.Mutex // one sweep at a time; cron and /trigger can race

	mu          sync.RWMutex
	metrics     Metrics
	authAlerted bool
}

// Metrics holds sweep metrics, exposed as JSON on the ops server.
type Metrics struct {
	TotalDelivered     int            `json:"total_delivered"`
	LastSweep          time.Time      `json:"last_sweep"`
	LastSweepDuration  string         `json:"last_sweep_duration"`
	LastSweepDelivered int            `json:"last_sweep_delivered"`
	GuildsSwept        int            `json:"guilds_swept"`
	GuildsSkipped      int            `json:"guilds_skipped"`
	AccountErrors      int            `json:"account_errors"`
	DeliveredByGuild   map[string]int `json:"delivered_by_guild"`
}

// NewService creates the sweep engine. journal and alerter may be nil.
func NewService(cfg *config.Config, store *state.Store, timeline twitter.TimelineAPI, chat ChatClient, jrnl *journal.Journal, alerter alerts.Notifier) *Service {
	return &Service{
		config:     cfg,
		store:      store,
		timeline:   timeline,
		chat:       chat,
		dispatcher: notify.NewDispatcher(chat),
		journal:    jrnl,
		alerter:    alerter,
		metrics: Metrics{
			DeliveredByGuild: make(map[string]int),
		},
	}
}

// RunSweep performs one full pass over all guilds. Every failure is contained
// at the narrowest possible scope: a failing account does not stall its guild,
// a failing guild does not stall the sweep, and a failed delivery only stops
// watermark advancement for its own account until the next sweep.
func (s *Service) RunSweep(ctx context.Context) error {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	start := time.Now()
	logrus.Info("Starting sweep")

	var delivered, skipped, accountErrors int
	deliveredByGuild := make(map[string]int)
	swept := 0

	for _, guildID := range s.store.GuildIDs() {
		if ctx.Err() != nil {
			logrus.Warn("Sweep interrupted by shutdown, stopping before next guild")
			break
		}

		guild, ok := s.store.Guild(guildID)
		if !ok {
			continue
		}
		if guild.ChannelID == "" {
			logrus.Debugf("Guild %s has no channel configured, skipping", guildID)
			continue
		}

		if err := s.chat.ResolveChannel(guild.ChannelID); err != nil {
			logrus.Errorf("Channel %s not reachable for guild %s, skipping guild: %v",
				guild.ChannelID, guildID, err)
			skipped++
			continue
		}

		swept++
		n, errs := s.sweepGuild(ctx, guild)
		delivered += n
		accountErrors += errs
		if n > 0 {
			deliveredByGuild[guildID] = n
		}
	}

	// Full rewrite once per sweep; watermarks were already advanced in memory
	// per delivered item, so a write failure costs at most one redelivery
	// window, never a lost watermark.
	if err := s.store.Save(); err != nil {
		logrus.Errorf("Failed to persist guild state after sweep: %v", err)
	}

	s.updateMetrics(delivered, swept, skipped, accountErrors, deliveredByGuild, time.Since(start))

	logrus.Infof("Sweep completed in %v: %d delivered, %d guilds swept, %d skipped, %d account errors",
		time.Since(start), delivered, swept, skipped, accountErrors)
	return nil
}

// sweepGuild polls every followed account of one guild. Accounts are visited
// in sorted order so test runs and log output are deterministic.
func (s *Service) sweepGuild(ctx context.Context, guild *models.GuildConfig) (delivered, accountErrors int) {
	accountIDs := make([]string, 0, len(guild.FollowedAccounts))
	for id := range guild.FollowedAccounts {
		accountIDs = append(accountIDs, id)
	}
	sort.Strings(accountIDs)

	for _, accountID := range accountIDs {
		if ctx.Err() != nil {
			return delivered, accountErrors
		}

		n, err := s.sweepAccount(ctx, guild, accountID)
		delivered += n
		if err != nil {
			accountErrors++
		}
	}

	return delivered, accountErrors
}

// sweepAccount fetches one account's timeline and delivers whatever is newer
// than the guild's watermark. A fetch error means zero new items this sweep; a
// delivery error stops watermark advancement at the last delivered item so the
// remainder is re-offered next sweep.
func (s *Service) sweepAccount(ctx context.Context, guild *models.GuildConfig, accountID string) (int, error) {
	tweets, err := s.timeline.FetchTimeline(ctx, accountID, s.config.FetchCount)
	if err != nil {
		switch {
		case errors.Is(err, twitter.ErrAuthExpired):
			logrus.Errorf("Authentication expired fetching account %s, skipping until re-login: %v", accountID, err)
			s.alertAuthExpired(err)
		case errors.Is(err, twitter.ErrRateLimited):
			logrus.Warnf("Rate limited fetching account %s, will retry next sweep", accountID)
		default:
			logrus.Errorf("Failed to fetch timeline for account %s: %v", accountID, err)
		}
		return 0, err
	}
	s.clearAuthAlert()

	watermark := guild.FollowedAccounts[accountID]
	fresh := SelectNew(tweets, watermark)
	if len(fresh) == 0 {
		logrus.Debugf("No new tweets for account %s in guild %s", accountID, guild.GuildID)
		return 0, nil
	}

	logrus.Infof("Delivering %d new tweets for account %s to guild %s",
		len(fresh), accountID, guild.GuildID)

	delivered := 0
	for _, tweet := range fresh {
		embed := notify.Format(tweet)
		if err := s.dispatcher.Deliver(guild.ChannelID, embed); err != nil {
			// The watermark stays at the last delivered tweet; this one and
			// everything after it are still "new" next sweep.
			logrus.Errorf("Stopping deliveries for account %s in guild %s after failed send of tweet %s",
				accountID, guild.GuildID, tweet.ID)
			return delivered, nil
		}

		s.store.AdvanceWatermark(guild.GuildID, accountID, tweet.ID)
		s.recordDelivery(ctx, guild, accountID, tweet)
		delivered++

		if ctx.Err() != nil {
			// Shutdown requested: the current item completed and its watermark
			// is committed, the rest waits for the next process lifetime.
			return delivered, nil
		}
	}

	return delivered, nil
}

func (s *Service) recordDelivery(ctx context.Context, guild *models.GuildConfig, accountID string, tweet models.Tweet) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(ctx, guild.GuildID, accountID, tweet.ID, guild.ChannelID, time.Now()); err != nil {
		logrus.Errorf("Failed to journal delivery of tweet %s: %v", tweet.ID, err)
	}
}

// alertAuthExpired notifies the operator once per credential outage.
func (s *Service) alertAuthExpired(cause error) {
	s.mu.Lock()
	alreadySent := s.authAlerted
	s.authAlerted = true
	s.mu.Unlock()

	if alreadySent || s.alerter == nil {
		return
	}
	if err := s.alerter.AuthExpired(cause.Error()); err != nil {
		logrus.Errorf("Failed to send auth-expired alert: %v", err)
	}
}

func (s *Service) clearAuthAlert() {
	s.mu.Lock()
	s.authAlerted = false
	s.mu.Unlock()
}

func (s *Service) updateMetrics(delivered, swept, skipped, accountErrors int, byGuild map[string]int, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.TotalDelivered += delivered
	s.metrics.LastSweep = time.Now()
	s.metrics.LastSweepDuration = duration.String()
	s.metrics.LastSweepDelivered = delivered
	s.metrics.GuildsSwept = swept
	s.metrics.GuildsSkipped = skipped
	s.metrics.AccountErrors = accountErrors

	for guildID, n := range byGuild {
		s.metrics.DeliveredByGuild[guildID] += n
	}
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}
