package progression

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/blank-marketing/blank/internal/domain"
	"github.com/blank-marketing/blank/internal/infra/metrics"
)

// XP sources used as the metrics label and in logs.
const (
	SourceManual    = "manual"
	SourceLogin     = "login"
	SourceMilestone = "streak_milestone"
	SourceMission   = "mission"
)

// AwardResult summarizes what a single XP award changed.
type AwardResult struct {
	Amount       int64    `json:"amount"`
	TotalXP      int64    `json:"totalXP"`
	CurrentXP    int64    `json:"currentXP"`
	RankUp       bool     `json:"rankUp"`
	Rank         string   `json:"rank"`
	Achievements []string `json:"achievements"` // Newly unlocked, ascending by requiredXP
}

// AwardXP grants amount XP to both the lifetime total and the balance.
// amount must be positive and must not overflow the lifetime total.
func (s *Store) AwardXP(amount int64) (AwardResult, error) {
	return s.awardFrom(amount, SourceManual)
}

func (s *Store) awardFrom(amount int64, source string) (AwardResult, error) {
	if amount <= 0 {
		return AwardResult{}, fmt.Errorf("%w: %d", domain.ErrInvalidXPAmount, amount)
	}

	s.mu.Lock()
	if amount > math.MaxInt64-s.state.TotalXP {
		total := s.state.TotalXP
		s.mu.Unlock()
		return AwardResult{}, fmt.Errorf("%w: %d would overflow total %d", domain.ErrInvalidXPAmount, amount, total)
	}
	res := s.awardLocked(amount, source)
	evs := s.commitLocked()
	s.mu.Unlock()

	s.publish(evs)
	return res, nil
}

// awardLocked is the award primitive every earning action funnels through.
// Both counters grow by the same amount, so CurrentXP <= TotalXP holds.
func (s *Store) awardLocked(amount int64, source string) AwardResult {
	st := &s.state
	prevLevel := st.Level

	// Catalog-driven awards saturate instead of wrapping.
	if amount > math.MaxInt64-st.TotalXP {
		amount = math.MaxInt64 - st.TotalXP
	}
	st.TotalXP += amount
	st.CurrentXP += amount
	st.Level = s.catalog.LevelFor(st.TotalXP)

	metrics.XPAwarded.WithLabelValues(source).Add(float64(amount))
	metrics.XPTotal.Set(float64(st.TotalXP))
	metrics.XPBalance.Set(float64(st.CurrentXP))

	rank := s.catalog.RankFor(st.TotalXP)
	res := AwardResult{
		Amount:       amount,
		TotalXP:      st.TotalXP,
		CurrentXP:    st.CurrentXP,
		Rank:         rank.ID,
		Achievements: s.unlockQualifyingLocked(),
	}

	s.emitLocked(domain.Event{Type: domain.EventXPAwarded, XP: amount})
	if st.Level > prevLevel {
		res.RankUp = true
		s.emitLocked(domain.Event{Type: domain.EventRankUp, RankID: rank.ID})
		s.log.Info("rank up", zap.String("rank", rank.ID), zap.Int64("total_xp", st.TotalXP))
	}

	s.log.Debug("xp awarded",
		zap.String("source", source),
		zap.Int64("amount", amount),
		zap.Int64("total_xp", st.TotalXP))
	return res
}

// unlockQualifyingLocked appends every achievement reached by TotalXP that
// is not yet unlocked, checking in ascending requiredXP order.
func (s *Store) unlockQualifyingLocked() []string {
	unlocked := []string{}
	for _, a := range s.catalog.Achievements {
		if a.RequiredXP > s.state.TotalXP {
			break
		}
		if s.state.HasAchievement(a.ID) {
			continue
		}
		s.state.UnlockedAchievements = append(s.state.UnlockedAchievements, a.ID)
		unlocked = append(unlocked, a.ID)

		metrics.AchievementsUnlocked.Inc()
		s.emitLocked(domain.Event{Type: domain.EventAchievementUnlocked, AchievementID: a.ID})
		s.log.Info("achievement unlocked", zap.String("achievement", a.ID))
	}
	return unlocked
}
