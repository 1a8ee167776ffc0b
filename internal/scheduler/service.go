package scheduler

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Service drives the sweep loop at a fixed cadence. The cadence is the global
// minimum of all per-guild intervals; /config-settings recomputes it and calls
// SetInterval, which reschedules the single cron entry.
type Service struct {
	cron *cron.Cron
	run  func()

	mu       sync.Mutex
	entryID  cron.EntryID
	interval time.Duration
	started  bool
}

// NewService creates a scheduler that invokes run every interval.
func NewService(interval time.Duration, run func()) *Service {
	return &Service{
		cron:     cron.New(),
		run:      run,
		interval: interval,
	}
}

// Start begins the periodic sweeps
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.entryID = s.cron.Schedule(cron.Every(s.interval), cron.FuncJob(s.run))
	s.cron.Start()
	s.started = true

	logrus.Infof("Scheduler started, sweeping every %v", s.interval)
	return nil
}

// Interval returns the current sweep interval.
func (s *Service) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// SetInterval reschedules the sweep cadence. A no-op if the interval is
// unchanged or the scheduler has not started yet.
func (s *Service) SetInterval(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if interval == s.interval {
		return
	}
	s.interval = interval

	if !s.started {
		return
	}

	s.cron.Remove(s.entryID)
	s.entryID = s.cron.Schedule(cron.Every(interval), cron.FuncJob(s.run))
	logrus.Infof("Scheduler interval changed to %v", interval)
}

// Stop halts the scheduler and waits for an in-flight sweep to finish, so a
// delivery is never cut off between the send and its watermark commit.
func (s *Service) Stop() {
	s.mu.Lock()
	started := s.started
	s.started = false
	s.mu.Unlock()

	if !started {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	logrus.Info("Scheduler stopped")
}
