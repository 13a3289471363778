// Package catalog provides the static reference tables of the progression
// engine: the rank ladder, achievements, the XP shop and daily missions.
// Tables ship with the binary (Default) and may be replaced by a YAML file.
// They are validated and sorted exactly once, at startup.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/blank-marketing/blank/internal/domain"
)

// Catalog holds every static table the store consults.
type Catalog struct {
	Ranks        []domain.Rank         `json:"ranks" yaml:"ranks"`
	Achievements []domain.Achievement  `json:"achievements" yaml:"achievements"`
	Rewards      []domain.Reward       `json:"rewards" yaml:"rewards"`
	Missions     []domain.DailyMission `json:"missions" yaml:"missions"`
	Login        domain.LoginRules     `json:"login" yaml:"login"`

	rewardIdx  map[string]int
	missionIdx map[string]int
}

// Load reads a YAML catalog from path and validates it.
// Sections missing from the file keep their Default() values.
// An empty path returns the validated default catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		c := Default()
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrInvalidCatalog, path, err)
	}
	c.fillDefaults(Default())

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) fillDefaults(def *Catalog) {
	if len(c.Ranks) == 0 {
		c.Ranks = def.Ranks
	}
	if len(c.Achievements) == 0 {
		c.Achievements = def.Achievements
	}
	if len(c.Rewards) == 0 {
		c.Rewards = def.Rewards
	}
	if len(c.Missions) == 0 {
		c.Missions = def.Missions
	}
	if c.Login.BaseXP == 0 {
		c.Login.BaseXP = def.Login.BaseXP
	}
	if c.Login.Milestones == nil {
		c.Login.Milestones = def.Login.Milestones
	}
}

// Validate checks every table, sorts ranks ascending by MinXP and
// achievements ascending by RequiredXP, and builds the lookup indexes.
// All problems are reported together, each wrapping ErrInvalidCatalog.
func (c *Catalog) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidCatalog}, args...)...))
	}

	// Ranks
	if len(c.Ranks) == 0 {
		bad("at least one rank is required")
	}
	seen := make(map[string]bool)
	for _, r := range c.Ranks {
		if r.ID == "" {
			bad("rank with empty id")
		} else if seen[r.ID] {
			bad("duplicate rank id %q", r.ID)
		}
		seen[r.ID] = true
		if r.MinXP < 0 {
			bad("rank %q: minXP %d is negative", r.ID, r.MinXP)
		}
	}
	sort.SliceStable(c.Ranks, func(i, j int) bool { return c.Ranks[i].MinXP < c.Ranks[j].MinXP })
	for i := 1; i < len(c.Ranks); i++ {
		if c.Ranks[i].MinXP == c.Ranks[i-1].MinXP {
			bad("ranks %q and %q share minXP %d", c.Ranks[i-1].ID, c.Ranks[i].ID, c.Ranks[i].MinXP)
		}
	}

	// Achievements (requiredXP need not be sorted in the source)
	seen = make(map[string]bool)
	for _, a := range c.Achievements {
		if a.ID == "" {
			bad("achievement with empty id")
		} else if seen[a.ID] {
			bad("duplicate achievement id %q", a.ID)
		}
		seen[a.ID] = true
		if a.RequiredXP < 0 {
			bad("achievement %q: requiredXP %d is negative", a.ID, a.RequiredXP)
		}
	}
	sort.SliceStable(c.Achievements, func(i, j int) bool {
		return c.Achievements[i].RequiredXP < c.Achievements[j].RequiredXP
	})

	// Rewards
	c.rewardIdx = make(map[string]int, len(c.Rewards))
	for i := range c.Rewards {
		r := &c.Rewards[i]
		if r.ID == "" {
			bad("reward with empty id")
		} else if _, dup := c.rewardIdx[r.ID]; dup {
			bad("duplicate reward id %q", r.ID)
		}
		c.rewardIdx[r.ID] = i
		if r.Cost <= 0 {
			bad("reward %q: cost must be positive, got %d", r.ID, r.Cost)
		}
		if !r.Type.Valid() {
			bad("reward %q: unknown type %q", r.ID, r.Type)
		}
		if r.Quantity < 0 {
			bad("reward %q: negative quantity %d", r.ID, r.Quantity)
		}
		if r.Type == domain.RewardBonusAnalysis && r.Quantity == 0 {
			r.Quantity = 1
		}
		if r.Type == domain.RewardPremiumTrial && r.TrialDays <= 0 {
			bad("reward %q: premium_trial needs trial_days > 0", r.ID)
		}
	}

	// Missions
	c.missionIdx = make(map[string]int, len(c.Missions))
	for i, m := range c.Missions {
		if m.ID == "" {
			bad("mission with empty id")
		} else if _, dup := c.missionIdx[m.ID]; dup {
			bad("duplicate mission id %q", m.ID)
		}
		c.missionIdx[m.ID] = i
		if m.XPReward <= 0 {
			bad("mission %q: xpReward must be positive, got %d", m.ID, m.XPReward)
		}
	}

	// Login rules
	if c.Login.BaseXP <= 0 {
		bad("login base_xp must be positive, got %d", c.Login.BaseXP)
	}
	for streak, bonus := range c.Login.Milestones {
		if streak <= 0 || bonus <= 0 {
			bad("login milestone %d: %d must both be positive", streak, bonus)
		}
	}

	return errors.Join(errs...)
}

// ─── Lookups ────────────────────────────────────────────────────────────────

// Reward finds a reward by id.
func (c *Catalog) Reward(id string) (domain.Reward, bool) {
	i, ok := c.rewardIdx[id]
	if !ok {
		return domain.Reward{}, false
	}
	return c.Rewards[i], true
}

// Mission finds a daily mission by id.
func (c *Catalog) Mission(id string) (domain.DailyMission, bool) {
	i, ok := c.missionIdx[id]
	if !ok {
		return domain.DailyMission{}, false
	}
	return c.Missions[i], true
}

// Achievement finds an achievement by id.
func (c *Catalog) Achievement(id string) (domain.Achievement, bool) {
	for _, a := range c.Achievements {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Achievement{}, false
}

// RankIndex returns the index of the highest rank with MinXP <= totalXP.
// The lowest rank is the fallback when no rank qualifies.
func (c *Catalog) RankIndex(totalXP int64) int {
	idx := 0
	for i, r := range c.Ranks {
		if r.MinXP <= totalXP {
			idx = i
		}
	}
	return idx
}

// RankFor returns the rank a user with totalXP holds.
func (c *Catalog) RankFor(totalXP int64) domain.Rank {
	return c.Ranks[c.RankIndex(totalXP)]
}

// NextRank returns the lowest rank with MinXP > totalXP.
// ok is false at the top of the ladder.
func (c *Catalog) NextRank(totalXP int64) (domain.Rank, bool) {
	for _, r := range c.Ranks {
		if r.MinXP > totalXP {
			return r, true
		}
	}
	return domain.Rank{}, false
}

// LevelFor returns the cached level value for totalXP (1-based rank index).
func (c *Catalog) LevelFor(totalXP int64) int {
	return c.RankIndex(totalXP) + 1
}

// MilestoneBonus returns the extra XP for reaching streak, or 0.
func (c *Catalog) MilestoneBonus(streak int) int64 {
	return c.Login.Milestones[streak]
}

// MilestoneStreaks returns the configured milestone streak lengths, ascending.
func (c *Catalog) MilestoneStreaks() []int {
	out := make([]int, 0, len(c.Login.Milestones))
	for k := range c.Login.Milestones {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
