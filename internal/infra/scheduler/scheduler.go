// Package scheduler runs the daemon's periodic progression jobs.
//
// Two jobs are registered on a gocron scheduler:
//   - rollover: once a day at the day boundary, clears yesterday's missions
//     so widgets see the new day before the user's first action
//   - flush: on an interval, retries a progression write that failed
//
// Both are safe to run at any time; the store's own day check makes a
// rollover idempotent within a day.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/blank-marketing/blank/internal/infra/metrics"
)

// Job tags.
const (
	TagRollover = "rollover"
	TagFlush    = "flush"
)

// LastRolloverKey is the kv entry recording the last scheduled rollover.
const LastRolloverKey = "last_rollover"

// Target is the progression store as seen by the scheduler.
type Target interface {
	Rollover() bool
	Dirty() bool
	Flush(ctx context.Context) error
}

// Marker records scheduler bookkeeping. Implemented by sqlite.DB.
type Marker interface {
	SetKV(ctx context.Context, key, value string) error
}

// Config configures the scheduler.
type Config struct {
	Location      *time.Location // Zone the rollover hour is read in
	RolloverHour  int            // Local hour of the day boundary (0-23)
	FlushInterval time.Duration  // 0 disables the flush job
	FlushTimeout  time.Duration
}

// DefaultConfig returns production defaults: midnight rollover, a flush
// retry every minute.
func DefaultConfig() Config {
	return Config{
		Location:      time.UTC,
		RolloverHour:  0,
		FlushInterval: time.Minute,
		FlushTimeout:  5 * time.Second,
	}
}

// Scheduler owns the gocron scheduler and the jobs it runs.
type Scheduler struct {
	cfg    Config
	target Target
	marker Marker
	clock  func() time.Time
	log    *zap.Logger

	cron *gocron.Scheduler

	mu        sync.Mutex
	started   bool
	rollovers int
}

// NewScheduler creates a scheduler for target. marker may be nil.
func NewScheduler(cfg Config, target Target, marker Marker, log *zap.Logger) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	cron := gocron.NewScheduler(cfg.Location)
	cron.SingletonModeAll()

	return &Scheduler{
		cfg:    cfg,
		target: target,
		marker: marker,
		clock:  time.Now,
		log:    log.Named("scheduler"),
		cron:   cron,
	}
}

// Start registers the jobs and starts the scheduler without blocking.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	at := fmt.Sprintf("%02d:00", s.cfg.RolloverHour)
	if _, err := s.cron.Every(1).Day().At(at).Tag(TagRollover).Do(s.RunRollover); err != nil {
		return fmt.Errorf("schedule rollover: %w", err)
	}

	if s.cfg.FlushInterval > 0 {
		_, err := s.cron.Every(s.cfg.FlushInterval).WaitForSchedule().Tag(TagFlush).Do(s.RunFlush)
		if err != nil {
			s.cron.Clear()
			return fmt.Errorf("schedule flush: %w", err)
		}
	}

	s.cron.StartAsync()
	s.started = true
	s.log.Info("scheduler started",
		zap.String("rollover_at", at),
		zap.Stringer("location", s.cfg.Location),
		zap.Duration("flush_interval", s.cfg.FlushInterval))
	return nil
}

// Stop halts the scheduler. Running jobs finish first.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.cron.Stop()
	s.cron.Clear()
	s.started = false
	s.log.Info("scheduler stopped")
}

// Len returns the number of registered jobs.
func (s *Scheduler) Len() int {
	return s.cron.Len()
}

// NextRun returns when the job with tag runs next; ok is false if none.
func (s *Scheduler) NextRun(tag string) (time.Time, bool) {
	jobs, err := s.cron.FindJobsByTag(tag)
	if err != nil || len(jobs) == 0 {
		return time.Time{}, false
	}
	return jobs[0].NextRun(), true
}

// Rollovers returns how many scheduled rollovers cleared missions.
func (s *Scheduler) Rollovers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rollovers
}

// RunRollover is the rollover job body.
func (s *Scheduler) RunRollover() {
	if !s.target.Rollover() {
		s.log.Debug("rollover: already on the current day")
		return
	}

	s.mu.Lock()
	s.rollovers++
	s.mu.Unlock()
	metrics.DayRollovers.Inc()

	if s.marker != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FlushTimeout)
		defer cancel()
		stamp := s.clock().In(s.cfg.Location).Format(time.RFC3339)
		if err := s.marker.SetKV(ctx, LastRolloverKey, stamp); err != nil {
			s.log.Warn("record rollover failed", zap.Error(err))
		}
	}
	s.log.Info("day rolled over")
}

// RunFlush is the flush job body.
func (s *Scheduler) RunFlush() {
	if !s.target.Dirty() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FlushTimeout)
	defer cancel()
	if err := s.target.Flush(ctx); err != nil {
		s.log.Warn("flush retry failed", zap.Error(err))
	}
}
