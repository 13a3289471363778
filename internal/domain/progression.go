// Package domain holds the pure types of the Blank progression engine.
// XP, ranks, achievements, daily missions, login streaks and the reward
// shop are modelled here with no infrastructure dependency.
package domain

import (
	"slices"
	"time"
)

// ProgressionSchemaVersion is written into every persisted record.
// Version 0 is the unversioned layout written by the original web client.
const ProgressionSchemaVersion = 1

// MaxRedemptions bounds the redemption ledger kept inside the record.
const MaxRedemptions = 100

// ─── Progression State ──────────────────────────────────────────────────────

// ProgressionState is the single persisted record for one local user.
// JSON names follow the layout the dashboard stored in local storage.
type ProgressionState struct {
	Version int `json:"version"`

	TotalXP   int64 `json:"totalXP"`   // Lifetime XP, never decreases
	CurrentXP int64 `json:"currentXP"` // Spendable balance, <= TotalXP
	Level     int   `json:"level"`     // Cached 1-based rank index

	LoginStreak   int  `json:"loginStreak"`
	LongestStreak int  `json:"longestStreak"`
	LastLoginDate Date `json:"lastLoginDate"`

	UnlockedAchievements []string `json:"unlockedAchievements"` // Append-only

	CompletedMissionIDs []string `json:"completedMissionIds"`
	MissionDay          Date     `json:"missionDay"` // Day CompletedMissionIDs belongs to

	BonusAnalysisCount int        `json:"bonusAnalysisCount"`
	PremiumTrialUntil  *time.Time `json:"premiumTrialUntil"`

	Redemptions []Redemption `json:"redemptions,omitempty"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// NewProgressionState returns the first-use defaults.
func NewProgressionState() ProgressionState {
	return ProgressionState{
		Version:              ProgressionSchemaVersion,
		Level:                1,
		UnlockedAchievements: []string{},
		CompletedMissionIDs:  []string{},
	}
}

// HasAchievement reports whether id has been unlocked.
func (s ProgressionState) HasAchievement(id string) bool {
	return slices.Contains(s.UnlockedAchievements, id)
}

// HasCompletedMission reports whether id is in the completed set.
// The caller is responsible for checking MissionDay first.
func (s ProgressionState) HasCompletedMission(id string) bool {
	return slices.Contains(s.CompletedMissionIDs, id)
}

// Clone returns a deep copy safe to hand to readers.
func (s ProgressionState) Clone() ProgressionState {
	cp := s
	cp.UnlockedAchievements = slices.Clone(s.UnlockedAchievements)
	cp.CompletedMissionIDs = slices.Clone(s.CompletedMissionIDs)
	cp.Redemptions = slices.Clone(s.Redemptions)
	if cp.UnlockedAchievements == nil {
		cp.UnlockedAchievements = []string{}
	}
	if cp.CompletedMissionIDs == nil {
		cp.CompletedMissionIDs = []string{}
	}
	if s.PremiumTrialUntil != nil {
		until := *s.PremiumTrialUntil
		cp.PremiumTrialUntil = &until
	}
	return cp
}

// Redemption is one entry in the reward redemption ledger.
type Redemption struct {
	ID         string     `json:"id"`
	RewardID   string     `json:"rewardId"`
	Type       RewardType `json:"type"`
	Cost       int64      `json:"cost"`
	Quantity   int        `json:"quantity,omitempty"`
	TrialUntil *time.Time `json:"trialUntil,omitempty"`
	At         time.Time  `json:"at"`
}

// ─── Reference Tables ───────────────────────────────────────────────────────

// Rank is one step of the rank ladder, ordered by MinXP.
type Rank struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	MinXP    int64    `json:"minXP" yaml:"min_xp"`
	Color    string   `json:"color" yaml:"color"`
	Icon     string   `json:"icon" yaml:"icon"`
	Benefits []string `json:"benefits" yaml:"benefits"`
}

// Achievement unlocks once TotalXP reaches RequiredXP.
type Achievement struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	RequiredXP  int64  `json:"requiredXP" yaml:"required_xp"`
	Icon        string `json:"icon" yaml:"icon"`
}

// RewardType selects the effect a purchased reward has.
type RewardType string

const (
	RewardBonusAnalysis RewardType = "bonus_analysis"
	RewardPremiumTrial  RewardType = "premium_trial"
)

// Valid reports whether t is a known reward type.
func (t RewardType) Valid() bool {
	switch t {
	case RewardBonusAnalysis, RewardPremiumTrial:
		return true
	}
	return false
}

// Reward is an item in the XP shop.
type Reward struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description" yaml:"description"`
	Cost        int64      `json:"cost" yaml:"cost"`
	Type        RewardType `json:"type" yaml:"type"`
	Icon        string     `json:"icon" yaml:"icon"`
	Quantity    int        `json:"quantity,omitempty" yaml:"quantity"`     // bonus_analysis credits granted
	TrialDays   int        `json:"trialDays,omitempty" yaml:"trial_days"` // premium_trial length
}

// TrialDuration returns the premium trial length granted by r.
func (r Reward) TrialDuration() time.Duration {
	return time.Duration(r.TrialDays) * 24 * time.Hour
}

// DailyMission is a task that can be completed once per day.
type DailyMission struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Icon     string `json:"icon" yaml:"icon"`
	XPReward int64  `json:"xpReward" yaml:"xp_reward"`
}

// LoginRules configures the streak award.
// A counted login awards Streak*BaseXP plus Milestones[Streak] if present.
type LoginRules struct {
	BaseXP     int64         `json:"baseXP" yaml:"base_xp"`
	Milestones map[int]int64 `json:"milestones" yaml:"milestones"`
}

// ─── Events ─────────────────────────────────────────────────────────────────

// EventType categorizes store events pushed to widgets.
type EventType string

const (
	EventXPAwarded           EventType = "xp_awarded"
	EventRankUp              EventType = "rank_up"
	EventAchievementUnlocked EventType = "achievement_unlocked"
	EventStreakMilestone     EventType = "streak_milestone"
	EventLogin               EventType = "login"
	EventMissionCompleted    EventType = "mission_completed"
	EventRewardPurchased     EventType = "reward_purchased"
	EventBonusConsumed       EventType = "bonus_consumed"
	EventDayRollover         EventType = "day_rollover"
	EventStateReset          EventType = "state_reset"
)

// Event describes one observable change to a progression store.
type Event struct {
	Type          EventType `json:"type"`
	Key           string    `json:"key"`
	At            time.Time `json:"at"`
	XP            int64     `json:"xp,omitempty"`
	RankID        string    `json:"rankId,omitempty"`
	AchievementID string    `json:"achievementId,omitempty"`
	MissionID     string    `json:"missionId,omitempty"`
	RewardID      string    `json:"rewardId,omitempty"`
	Streak        int       `json:"streak,omitempty"`
}
