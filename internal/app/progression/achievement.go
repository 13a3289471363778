package progression

import (
	"fmt"

	"github.com/blank-marketing/blank/internal/domain"
)

// AchievementStatus pairs a catalog achievement with whether it is unlocked.
type AchievementStatus struct {
	domain.Achievement
	Unlocked bool `json:"unlocked"`
}

// Achievements lists every achievement in unlock order.
func (s *Store) Achievements() []AchievementStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]AchievementStatus, 0, len(s.catalog.Achievements))
	for _, a := range s.catalog.Achievements {
		out = append(out, AchievementStatus{Achievement: a, Unlocked: s.state.HasAchievement(a.ID)})
	}
	return out
}

// Achievement returns one achievement and its unlock state.
func (s *Store) Achievement(id string) (AchievementStatus, error) {
	a, ok := s.catalog.Achievement(id)
	if !ok {
		return AchievementStatus{}, fmt.Errorf("%w: %q", domain.ErrUnknownAchievement, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return AchievementStatus{Achievement: a, Unlocked: s.state.HasAchievement(id)}, nil
}
