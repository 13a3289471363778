package progression

import (
	"go.uber.org/zap"

	"github.com/blank-marketing/blank/internal/domain"
	"github.com/blank-marketing/blank/internal/infra/metrics"
)

// LoginResult reports what a RecordLogin call did.
type LoginResult struct {
	Counted        bool        `json:"counted"` // false on a repeat login the same day
	Streak         int         `json:"streak"`
	XPAwarded      int64       `json:"xpAwarded"`      // streak * base XP
	MilestoneBonus int64       `json:"milestoneBonus"` // extra XP for reaching a milestone
	Achievements   []string    `json:"achievements"`
	Today          domain.Date `json:"today"`
}

// RecordLogin counts today's login toward the streak.
//
// The first login of a day extends the streak if the previous one was
// yesterday and restarts it at 1 otherwise. It awards streak*BaseXP, plus
// the milestone bonus when the new streak is a milestone length. Further
// logins the same day change nothing.
func (s *Store) RecordLogin() LoginResult {
	s.mu.Lock()

	today := s.today()
	rolled := s.refreshDayLocked(today)

	st := &s.state
	if st.LastLoginDate.Equal(today) {
		res := LoginResult{Streak: st.LoginStreak, Today: today, Achievements: []string{}}
		// A rollover may have cleared missions even though the login is a repeat.
		var evs []domain.Event
		if rolled {
			evs = s.commitLocked()
		}
		s.mu.Unlock()

		metrics.Logins.WithLabelValues("repeat").Inc()
		s.publish(evs)
		return res
	}

	kind := "first"
	switch {
	case !st.LastLoginDate.IsZero() && today.DaysSince(st.LastLoginDate) == 1:
		st.LoginStreak++
		kind = "consecutive"
	default:
		if !st.LastLoginDate.IsZero() {
			kind = "reset"
		}
		st.LoginStreak = 1
	}
	st.LastLoginDate = today
	if st.LoginStreak > st.LongestStreak {
		st.LongestStreak = st.LoginStreak
	}

	res := LoginResult{Counted: true, Streak: st.LoginStreak, Today: today}

	res.XPAwarded = int64(st.LoginStreak) * s.catalog.Login.BaseXP
	award := s.awardLocked(res.XPAwarded, SourceLogin)
	res.Achievements = award.Achievements

	// The milestone bonus fires on the login that reaches the milestone,
	// so it is granted once per crossing.
	if bonus := s.catalog.MilestoneBonus(st.LoginStreak); bonus > 0 {
		res.MilestoneBonus = bonus
		award = s.awardLocked(bonus, SourceMilestone)
		res.Achievements = append(res.Achievements, award.Achievements...)
		s.emitLocked(domain.Event{Type: domain.EventStreakMilestone, Streak: st.LoginStreak, XP: bonus})
	}

	s.emitLocked(domain.Event{Type: domain.EventLogin, Streak: st.LoginStreak, XP: res.XPAwarded + res.MilestoneBonus})
	evs := s.commitLocked()
	s.mu.Unlock()

	metrics.Logins.WithLabelValues(kind).Inc()
	s.log.Info("login recorded",
		zap.String("kind", kind),
		zap.Int("streak", res.Streak),
		zap.Int64("xp", res.XPAwarded),
		zap.Int64("milestone_bonus", res.MilestoneBonus))

	s.publish(evs)
	return res
}
