package progression

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/blank-marketing/blank/internal/domain"
	"github.com/blank-marketing/blank/internal/infra/metrics"
)

// MissionStatus is one daily mission with today's completion flag.
type MissionStatus struct {
	domain.DailyMission
	Completed bool `json:"completed"`
}

// CompleteMission marks a daily mission done and awards its XP.
// It returns false, with no XP, when the mission was already completed
// today. An id missing from the catalog is an error.
func (s *Store) CompleteMission(id string) (bool, error) {
	m, ok := s.catalog.Mission(id)
	if !ok {
		return false, fmt.Errorf("%w: %q", domain.ErrUnknownMission, id)
	}

	s.mu.Lock()
	rolled := s.refreshDayLocked(s.today())

	if s.state.HasCompletedMission(id) {
		var evs []domain.Event
		if rolled {
			evs = s.commitLocked()
		}
		s.mu.Unlock()
		s.publish(evs)
		return false, nil
	}

	s.state.CompletedMissionIDs = append(s.state.CompletedMissionIDs, id)
	s.awardLocked(m.XPReward, SourceMission)
	s.emitLocked(domain.Event{Type: domain.EventMissionCompleted, MissionID: id, XP: m.XPReward})
	evs := s.commitLocked()
	s.mu.Unlock()

	metrics.MissionsCompleted.WithLabelValues(id).Inc()
	s.log.Info("mission completed", zap.String("mission", id), zap.Int64("xp", m.XPReward))

	s.publish(evs)
	return true, nil
}

// Missions lists the catalog's daily missions with today's status.
func (s *Store) Missions() []MissionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.state.MissionDay.Equal(s.today())
	out := make([]MissionStatus, 0, len(s.catalog.Missions))
	for _, m := range s.catalog.Missions {
		out = append(out, MissionStatus{
			DailyMission: m,
			Completed:    current && s.state.HasCompletedMission(m.ID),
		})
	}
	return out
}

// Rollover applies the day boundary now instead of waiting for the next
// action. Calling it again on the same day changes nothing.
// It reports whether the completed-mission set was cleared.
func (s *Store) Rollover() bool {
	s.mu.Lock()
	rolled := s.refreshDayLocked(s.today())
	var evs []domain.Event
	if rolled {
		evs = s.commitLocked()
	}
	s.mu.Unlock()

	s.publish(evs)
	return rolled
}

// refreshDayLocked moves the mission day marker to today, clearing the
// completed set if it belonged to another day. Returns true on change.
func (s *Store) refreshDayLocked(today domain.Date) bool {
	st := &s.state
	if st.MissionDay.Equal(today) {
		return false
	}

	prev := st.MissionDay
	cleared := len(st.CompletedMissionIDs)
	st.CompletedMissionIDs = []string{}
	st.MissionDay = today

	if !prev.IsZero() {
		s.emitLocked(domain.Event{Type: domain.EventDayRollover})
		s.log.Info("mission day rolled over",
			zap.Stringer("from", prev),
			zap.Stringer("to", today),
			zap.Int("cleared", cleared))
	}
	return true
}
