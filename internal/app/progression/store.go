// Package progression implements the Blank progression engine: the single
// source of truth for one user's XP balance, rank, achievements, daily
// missions, login streak and reward redemptions.
//
// Every mutation goes through an action method (RecordLogin, AwardXP,
// CompleteMission, PurchaseReward, ConsumeBonusAnalysis, Rollover, Reset).
// Actions are serialized by one mutex, so each is atomic and readers never
// observe a half-applied change. State is written through to the repository
// after every action; write failures are logged and retried, never fatal.
package progression

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/blank-marketing/blank/internal/domain"
	"github.com/blank-marketing/blank/internal/infra/catalog"
	"github.com/blank-marketing/blank/internal/infra/metrics"
)

// DefaultKey names the store when Options.Key is empty.
const DefaultKey = "blank-progression"

const defaultPersistTimeout = 5 * time.Second

// Options configures a Store.
type Options struct {
	Key        string                       // Record key, one per local user
	Catalog    *catalog.Catalog             // Validated reference tables (default catalog if nil)
	Repository domain.ProgressionRepository // nil keeps the state in memory only
	Clock      domain.Clock                 // SystemClock if nil
	Days       DayPolicy                    // DefaultDayPolicy if zero
	Logger     *zap.Logger                  // Nop if nil
	Sinks      []domain.EventSink
}

// Store owns one ProgressionState.
type Store struct {
	key     string
	catalog *catalog.Catalog
	repo    domain.ProgressionRepository
	clock   domain.Clock
	days    DayPolicy
	log     *zap.Logger

	persistTimeout time.Duration

	mu      sync.Mutex
	state   domain.ProgressionState
	dirty   bool           // last write-through failed
	pending []domain.Event // events of the running action

	sinkMu sync.RWMutex
	sinks  []domain.EventSink
}

// New loads the record for opts.Key, or starts from first-use defaults.
// A record that does not decode is backed up and replaced by defaults.
// Storage errors and records written by a newer schema are fatal, so the
// saved record is never overwritten with state that was not loaded from it.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.Clock == nil {
		opts.Clock = domain.SystemClock{}
	}
	if opts.Days.Location == nil {
		opts.Days = DefaultDayPolicy().WithCutoff(opts.Days.CutoffHour)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Catalog == nil {
		c, err := catalog.Load("")
		if err != nil {
			return nil, err
		}
		opts.Catalog = c
	}

	s := &Store{
		key:            opts.Key,
		catalog:        opts.Catalog,
		repo:           opts.Repository,
		clock:          opts.Clock,
		days:           opts.Days,
		log:            opts.Logger.Named("progression").With(zap.String("key", opts.Key)),
		persistTimeout: defaultPersistTimeout,
		sinks:          opts.Sinks,
		state:          domain.NewProgressionState(),
	}

	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	st, err := s.repo.LoadProgression(ctx, s.key)
	switch {
	case errors.Is(err, domain.ErrStateNotFound):
		s.log.Info("no saved progression, starting fresh")
		return nil
	case errors.Is(err, domain.ErrCorruptState):
		metrics.PersistFailures.WithLabelValues("load").Inc()
		backup, berr := s.repo.BackupProgression(ctx, s.key)
		if berr != nil {
			return fmt.Errorf("load %s: %w (backup failed: %v)", s.key, err, berr)
		}
		s.log.Warn("progression record is corrupt, starting from defaults",
			zap.String("backup", backup), zap.Error(err))
		return nil
	case err != nil:
		// The record may be intact; starting fresh would overwrite it.
		metrics.PersistFailures.WithLabelValues("load").Inc()
		return fmt.Errorf("load %s: %w", s.key, err)
	}

	if err := migrate(st); err != nil {
		return fmt.Errorf("load %s: %w", s.key, err)
	}
	s.state = *st
	s.normalizeLocked()
	s.pending = nil // unlocks found while loading are not news

	s.log.Info("progression loaded",
		zap.Int64("total_xp", s.state.TotalXP),
		zap.Int64("current_xp", s.state.CurrentXP),
		zap.Int("streak", s.state.LoginStreak))
	return nil
}

// migrate upgrades a record in place to ProgressionSchemaVersion.
func migrate(st *domain.ProgressionState) error {
	if st.Version > domain.ProgressionSchemaVersion {
		return fmt.Errorf("%w: version %d", domain.ErrUnsupportedSchema, st.Version)
	}
	if st.Version == 0 {
		// Unversioned client records kept no longest streak and no mission day.
		if st.MissionDay.IsZero() && len(st.CompletedMissionIDs) > 0 {
			st.MissionDay = st.LastLoginDate
		}
	}
	st.Version = domain.ProgressionSchemaVersion
	return nil
}

// normalizeLocked re-establishes the invariants on a loaded record.
func (s *Store) normalizeLocked() {
	st := &s.state
	if st.UnlockedAchievements == nil {
		st.UnlockedAchievements = []string{}
	}
	if st.CompletedMissionIDs == nil {
		st.CompletedMissionIDs = []string{}
	}
	if st.TotalXP < 0 {
		st.TotalXP = 0
	}
	if st.CurrentXP < 0 {
		st.CurrentXP = 0
	}
	if st.CurrentXP > st.TotalXP {
		st.CurrentXP = st.TotalXP
	}
	if st.BonusAnalysisCount < 0 {
		st.BonusAnalysisCount = 0
	}
	if st.LongestStreak < st.LoginStreak {
		st.LongestStreak = st.LoginStreak
	}
	st.Level = s.catalog.LevelFor(st.TotalXP)
	s.unlockQualifyingLocked()
}

// ─── Commit & Events ────────────────────────────────────────────────────────

// commitLocked writes the state through and hands back the action's events.
func (s *Store) commitLocked() []domain.Event {
	s.persistLocked()
	evs := s.pending
	s.pending = nil
	return evs
}

func (s *Store) persistLocked() {
	s.state.UpdatedAt = s.clock.Now().UTC()
	if s.repo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()

	if err := s.repo.SaveProgression(ctx, s.key, s.state.Clone()); err != nil {
		s.dirty = true
		metrics.PersistFailures.WithLabelValues("save").Inc()
		s.log.Warn("persist progression failed, keeping in-memory state", zap.Error(err))
		return
	}
	s.dirty = false
}

func (s *Store) emitLocked(ev domain.Event) {
	ev.Key = s.key
	ev.At = s.clock.Now()
	s.pending = append(s.pending, ev)
}

// publish runs outside the store lock so sinks may read the store.
func (s *Store) publish(evs []domain.Event) {
	if len(evs) == 0 {
		return
	}
	s.sinkMu.RLock()
	sinks := s.sinks
	s.sinkMu.RUnlock()
	for _, ev := range evs {
		for _, sink := range sinks {
			sink.Publish(ev)
		}
	}
}

// Subscribe adds an event sink.
func (s *Store) Subscribe(sink domain.EventSink) {
	s.sinkMu.Lock()
	s.sinks = append(s.sinks, sink)
	s.sinkMu.Unlock()
}

// Flush retries a failed write-through. No-op when nothing is pending.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty || s.repo == nil {
		return nil
	}
	if err := s.repo.SaveProgression(ctx, s.key, s.state.Clone()); err != nil {
		metrics.PersistFailures.WithLabelValues("flush").Inc()
		return fmt.Errorf("flush %s: %w", s.key, err)
	}
	s.dirty = false
	s.log.Info("pending progression write flushed")
	return nil
}

// Dirty reports whether the last write-through failed.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Reset wipes the state back to first-use defaults and deletes the record.
func (s *Store) Reset() {
	s.mu.Lock()
	s.state = domain.NewProgressionState()
	s.state.Level = s.catalog.LevelFor(0)
	s.dirty = false
	if s.repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
		if err := s.repo.DeleteProgression(ctx, s.key); err != nil {
			// A later Flush writes the defaults over the old record.
			s.dirty = true
			metrics.PersistFailures.WithLabelValues("delete").Inc()
			s.log.Warn("delete progression failed", zap.Error(err))
		}
		cancel()
	}
	s.emitLocked(domain.Event{Type: domain.EventStateReset})
	evs := s.pending
	s.pending = nil
	s.mu.Unlock()

	s.log.Info("progression reset")
	s.publish(evs)
}

// ─── Read Accessors ─────────────────────────────────────────────────────────

// Key returns the record key.
func (s *Store) Key() string { return s.key }

// Catalog returns the reference tables the store was built with.
func (s *Store) Catalog() *catalog.Catalog { return s.catalog }

// State returns a deep copy of the raw state.
func (s *Store) State() domain.ProgressionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// CurrentRank returns the highest rank with MinXP <= TotalXP.
func (s *Store) CurrentRank() domain.Rank {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.RankFor(s.state.TotalXP)
}

// NextRank returns the lowest rank above TotalXP; ok is false when maxed.
func (s *Store) NextRank() (domain.Rank, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.NextRank(s.state.TotalXP)
}

// RankProgress returns progress toward the next rank in [0, 100].
// A user at the top rank reports 0.
func (s *Store) RankProgress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return rankProgress(s.catalog, s.state.TotalXP)
}

func rankProgress(c *catalog.Catalog, totalXP int64) float64 {
	next, ok := c.NextRank(totalXP)
	if !ok {
		return 0
	}
	cur := c.RankFor(totalXP)
	span := next.MinXP - cur.MinXP
	if span <= 0 {
		return 0
	}
	pct := float64(totalXP-cur.MinXP) / float64(span) * 100
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct
}

// IsPremiumTrialActive reports whether a premium trial runs past now.
func (s *Store) IsPremiumTrialActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.premiumActiveLocked(s.clock.Now())
}

func (s *Store) premiumActiveLocked(now time.Time) bool {
	return s.state.PremiumTrialUntil != nil && s.state.PremiumTrialUntil.After(now)
}

// Redemptions returns up to limit ledger entries, newest first.
// limit <= 0 returns the whole ledger.
func (s *Store) Redemptions(limit int) []domain.Redemption {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.state.Redemptions)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.Redemption, 0, limit)
	for i := n - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.state.Redemptions[i])
	}
	return out
}

// View is the read model served to dashboard widgets.
type View struct {
	State          domain.ProgressionState `json:"state"`
	Rank           domain.Rank             `json:"rank"`
	NextRank       *domain.Rank            `json:"nextRank"`
	RankProgress   float64                 `json:"rankProgress"`
	XPToNextRank   int64                   `json:"xpToNextRank"`
	PremiumActive  bool                    `json:"premiumTrialActive"`
	Today          domain.Date             `json:"today"`
	CompletedToday []string                `json:"completedToday"`
	NextMilestone  *StreakMilestone        `json:"nextMilestone"` // nil past the last milestone
}

// StreakMilestone is a streak length that pays a one-time bonus.
type StreakMilestone struct {
	Streak int   `json:"streak"`
	Bonus  int64 `json:"bonus"`
}

// View returns a consistent snapshot of state and derived values.
func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	today := s.todayAt(now)
	v := View{
		State:          s.state.Clone(),
		Rank:           s.catalog.RankFor(s.state.TotalXP),
		RankProgress:   rankProgress(s.catalog, s.state.TotalXP),
		PremiumActive:  s.premiumActiveLocked(now),
		Today:          today,
		CompletedToday: []string{},
	}
	if next, ok := s.catalog.NextRank(s.state.TotalXP); ok {
		v.NextRank = &next
		v.XPToNextRank = next.MinXP - s.state.TotalXP
	}
	if s.state.MissionDay.Equal(today) {
		v.CompletedToday = append(v.CompletedToday, s.state.CompletedMissionIDs...)
	}
	for _, streak := range s.catalog.MilestoneStreaks() {
		if streak > s.state.LoginStreak {
			v.NextMilestone = &StreakMilestone{Streak: streak, Bonus: s.catalog.MilestoneBonus(streak)}
			break
		}
	}
	return v
}

func (s *Store) today() domain.Date {
	return s.todayAt(s.clock.Now())
}

// todayAt never returns a day earlier than one already recorded, so a clock
// rollback or a day policy change cannot replay a login or a mission day.
func (s *Store) todayAt(now time.Time) domain.Date {
	today := s.days.Today(now)
	if today.Before(s.state.LastLoginDate) {
		today = s.state.LastLoginDate
	}
	if today.Before(s.state.MissionDay) {
		today = s.state.MissionDay
	}
	return today
}
