package progression

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blank-marketing/blank/internal/domain"
	"github.com/blank-marketing/blank/internal/infra/metrics"
)

// PurchaseReward spends the reward's cost from the XP balance and applies
// its effect. It returns false, with no state change, when the balance is
// short. TotalXP and rank standing are never reduced by spending.
func (s *Store) PurchaseReward(id string) (bool, error) {
	r, ok := s.catalog.Reward(id)
	if !ok {
		return false, fmt.Errorf("%w: %q", domain.ErrUnknownReward, id)
	}

	s.mu.Lock()
	st := &s.state
	if st.CurrentXP < r.Cost {
		balance := st.CurrentXP
		s.mu.Unlock()

		metrics.RewardsRejected.WithLabelValues("insufficient_xp").Inc()
		s.log.Info("reward rejected",
			zap.String("reward", id),
			zap.Int64("cost", r.Cost),
			zap.Int64("balance", balance))
		return false, nil
	}

	now := s.clock.Now()
	st.CurrentXP -= r.Cost

	red := domain.Redemption{
		ID:       uuid.NewString(),
		RewardID: r.ID,
		Type:     r.Type,
		Cost:     r.Cost,
		At:       now.UTC(),
	}

	switch r.Type {
	case domain.RewardBonusAnalysis:
		st.BonusAnalysisCount += r.Quantity
		red.Quantity = r.Quantity
	case domain.RewardPremiumTrial:
		// An unexpired trial is extended, an expired one restarts from now.
		base := now
		if st.PremiumTrialUntil != nil && st.PremiumTrialUntil.After(now) {
			base = *st.PremiumTrialUntil
		}
		until := base.Add(r.TrialDuration()).UTC()
		st.PremiumTrialUntil = &until
		red.TrialUntil = &until
	}

	st.Redemptions = append(st.Redemptions, red)
	if n := len(st.Redemptions); n > domain.MaxRedemptions {
		st.Redemptions = append([]domain.Redemption(nil), st.Redemptions[n-domain.MaxRedemptions:]...)
	}

	metrics.XPBalance.Set(float64(st.CurrentXP))
	s.emitLocked(domain.Event{Type: domain.EventRewardPurchased, RewardID: r.ID, XP: r.Cost})
	evs := s.commitLocked()
	s.mu.Unlock()

	metrics.RewardsPurchased.WithLabelValues(r.ID).Inc()
	s.log.Info("reward purchased",
		zap.String("reward", r.ID),
		zap.String("redemption", red.ID),
		zap.Int64("cost", r.Cost))

	s.publish(evs)
	return true, nil
}

// ConsumeBonusAnalysis spends one bonus-analysis credit on behalf of an
// analysis tool. It returns false when no credit is left. The store does
// not check which feature consumed the credit.
func (s *Store) ConsumeBonusAnalysis() bool {
	s.mu.Lock()
	if s.state.BonusAnalysisCount <= 0 {
		s.mu.Unlock()
		return false
	}
	s.state.BonusAnalysisCount--
	left := s.state.BonusAnalysisCount
	s.emitLocked(domain.Event{Type: domain.EventBonusConsumed})
	evs := s.commitLocked()
	s.mu.Unlock()

	metrics.BonusAnalysisConsumed.Inc()
	s.log.Debug("bonus analysis consumed", zap.Int("remaining", left))

	s.publish(evs)
	return true
}
