package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/blank-marketing/blank/internal/domain"
)

func validCatalog(t *testing.T) *Catalog {
	t.Helper()
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("Default().Validate() error: %v", err)
	}
	return c
}

// ─── Validation ─────────────────────────────────────────────────────────────

func TestDefault_Valid(t *testing.T) {
	c := validCatalog(t)

	if len(c.Ranks) != 5 {
		t.Errorf("ranks = %d, want 5", len(c.Ranks))
	}
	if c.Ranks[0].MinXP != 0 {
		t.Errorf("lowest rank minXP = %d, want 0", c.Ranks[0].MinXP)
	}
	if c.Login.BaseXP != 10 {
		t.Errorf("login base XP = %d, want 10", c.Login.BaseXP)
	}
	want := map[int]int64{3: 30, 7: 100, 14: 200, 30: 500}
	for streak, bonus := range want {
		if got := c.MilestoneBonus(streak); got != bonus {
			t.Errorf("MilestoneBonus(%d) = %d, want %d", streak, got, bonus)
		}
	}
}

func TestValidate_SortsRanksAndAchievements(t *testing.T) {
	c := Default()
	c.Ranks = []domain.Rank{
		{ID: "c", MinXP: 5000},
		{ID: "a", MinXP: 0},
		{ID: "b", MinXP: 1000},
	}
	c.Achievements = []domain.Achievement{
		{ID: "big", RequiredXP: 900},
		{ID: "small", RequiredXP: 5},
		{ID: "mid", RequiredXP: 50},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}

	for i, id := range []string{"a", "b", "c"} {
		if c.Ranks[i].ID != id {
			t.Errorf("Ranks[%d] = %q, want %q", i, c.Ranks[i].ID, id)
		}
	}
	for i, id := range []string{"small", "mid", "big"} {
		if c.Achievements[i].ID != id {
			t.Errorf("Achievements[%d] = %q, want %q", i, c.Achievements[i].ID, id)
		}
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Catalog)
	}{
		{"no ranks", func(c *Catalog) { c.Ranks = nil }},
		{"negative rank xp", func(c *Catalog) { c.Ranks[0].MinXP = -1 }},
		{"duplicate rank id", func(c *Catalog) { c.Ranks[1].ID = c.Ranks[0].ID }},
		{"duplicate rank threshold", func(c *Catalog) { c.Ranks[1].MinXP = c.Ranks[2].MinXP }},
		{"negative achievement", func(c *Catalog) { c.Achievements[0].RequiredXP = -10 }},
		{"zero cost reward", func(c *Catalog) { c.Rewards[0].Cost = 0 }},
		{"unknown reward type", func(c *Catalog) { c.Rewards[0].Type = "mystery_box" }},
		{"trial without days", func(c *Catalog) { c.Rewards[2].TrialDays = 0 }},
		{"duplicate reward", func(c *Catalog) { c.Rewards[1].ID = c.Rewards[0].ID }},
		{"zero mission xp", func(c *Catalog) { c.Missions[0].XPReward = 0 }},
		{"empty mission id", func(c *Catalog) { c.Missions[0].ID = "" }},
		{"zero login xp", func(c *Catalog) { c.Login.BaseXP = 0 }},
		{"bad milestone", func(c *Catalog) { c.Login.Milestones[5] = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if !errors.Is(err, domain.ErrInvalidCatalog) {
				t.Errorf("Validate() = %v, want ErrInvalidCatalog", err)
			}
		})
	}
}

func TestValidate_DefaultsBonusQuantity(t *testing.T) {
	c := Default()
	c.Rewards[0].Quantity = 0
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	r, _ := c.Reward(c.Rewards[0].ID)
	if r.Quantity != 1 {
		t.Errorf("quantity = %d, want default 1", r.Quantity)
	}
}

// ─── Rank Lookups ───────────────────────────────────────────────────────────

func TestRankLookups(t *testing.T) {
	c := Default()
	c.Ranks = []domain.Rank{{ID: "r0", MinXP: 0}, {ID: "r1", MinXP: 1000}, {ID: "r2", MinXP: 5000}}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}

	tests := []struct {
		xp       int64
		current  string
		next     string
		hasNext  bool
		level    int
	}{
		{0, "r0", "r1", true, 1},
		{999, "r0", "r1", true, 1},
		{1000, "r1", "r2", true, 2},
		{1500, "r1", "r2", true, 2},
		{5000, "r2", "", false, 3},
		{99999, "r2", "", false, 3},
	}
	for _, tt := range tests {
		if got := c.RankFor(tt.xp).ID; got != tt.current {
			t.Errorf("RankFor(%d) = %q, want %q", tt.xp, got, tt.current)
		}
		next, ok := c.NextRank(tt.xp)
		if ok != tt.hasNext || next.ID != tt.next {
			t.Errorf("NextRank(%d) = (%q, %v), want (%q, %v)", tt.xp, next.ID, ok, tt.next, tt.hasNext)
		}
		if got := c.LevelFor(tt.xp); got != tt.level {
			t.Errorf("LevelFor(%d) = %d, want %d", tt.xp, got, tt.level)
		}
	}
}

func TestRankFor_FallbackToLowest(t *testing.T) {
	c := Default()
	c.Ranks = []domain.Rank{{ID: "entry", MinXP: 100}, {ID: "pro", MinXP: 500}}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if got := c.RankFor(0).ID; got != "entry" {
		t.Errorf("RankFor(0) = %q, want fallback %q", got, "entry")
	}
}

func TestLookups_Unknown(t *testing.T) {
	c := validCatalog(t)
	if _, ok := c.Reward("nope"); ok {
		t.Error("Reward(nope) should not be found")
	}
	if _, ok := c.Mission("nope"); ok {
		t.Error("Mission(nope) should not be found")
	}
	if _, ok := c.Mission("keyword_research"); !ok {
		t.Error("Mission(keyword_research) should be found")
	}
	if _, ok := c.Achievement("nope"); ok {
		t.Error("Achievement(nope) should not be found")
	}
	if a, ok := c.Achievement("xp_1000"); !ok || a.RequiredXP != 1000 {
		t.Errorf("Achievement(xp_1000) = %+v, %v", a, ok)
	}
}

func TestMilestoneStreaks_Sorted(t *testing.T) {
	c := validCatalog(t)
	got := c.MilestoneStreaks()
	want := []int{3, 7, 14, 30}
	if len(got) != len(want) {
		t.Fatalf("MilestoneStreaks() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("MilestoneStreaks()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

// ─── YAML Loading ───────────────────────────────────────────────────────────

func TestLoad_EmptyPathUsesDefault(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if len(c.Rewards) != len(Default().Rewards) {
		t.Errorf("rewards = %d, want default %d", len(c.Rewards), len(Default().Rewards))
	}
}

func TestLoad_YAMLOverridesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	yamlDoc := `
ranks:
  - id: pro
    name: Pro
    min_xp: 1000
  - id: rookie
    name: Rookie
    min_xp: 0
missions:
  - id: write_post
    name: 글 쓰기
    xp_reward: 15
login:
  base_xp: 5
  milestones:
    2: 20
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if c.Ranks[0].ID != "rookie" {
		t.Errorf("ranks not sorted: first = %q", c.Ranks[0].ID)
	}
	if m, ok := c.Mission("write_post"); !ok || m.XPReward != 15 {
		t.Errorf("Mission(write_post) = %+v, %v", m, ok)
	}
	if c.Login.BaseXP != 5 || c.MilestoneBonus(2) != 20 || c.MilestoneBonus(3) != 0 {
		t.Errorf("login rules = %+v, want overridden", c.Login)
	}
	// Rewards absent from the file keep the defaults.
	if _, ok := c.Reward("extra_analysis"); !ok {
		t.Error("default rewards should be kept")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte("ranks: [this is: not valid"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, domain.ErrInvalidCatalog) {
		t.Errorf("Load() = %v, want ErrInvalidCatalog", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() of missing file should fail")
	}
}
