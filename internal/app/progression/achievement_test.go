package progression_test

import (
	"errors"
	"testing"
	"time"

	"github.com/blank-marketing/blank/internal/domain"
)

func TestAchievements_Status(t *testing.T) {
	f := newFixture(t)
	mustAward(t, f.store, 500)

	list := f.store.Achievements()
	if len(list) == 0 {
		t.Fatal("Achievements() is empty")
	}
	for i, a := range list {
		if i > 0 && a.RequiredXP < list[i-1].RequiredXP {
			t.Errorf("achievement %q out of order", a.ID)
		}
		if want := a.RequiredXP <= 500; a.Unlocked != want {
			t.Errorf("%s unlocked = %v, want %v", a.ID, a.Unlocked, want)
		}
	}

	got, err := f.store.Achievement("xp_500")
	if err != nil || !got.Unlocked {
		t.Errorf("Achievement(xp_500) = %+v, %v, want unlocked", got, err)
	}
	got, err = f.store.Achievement("xp_1000")
	if err != nil || got.Unlocked {
		t.Errorf("Achievement(xp_1000) = %+v, %v, want locked", got, err)
	}
	if _, err := f.store.Achievement("nope"); !errors.Is(err, domain.ErrUnknownAchievement) {
		t.Errorf("Achievement(nope) error = %v, want ErrUnknownAchievement", err)
	}
}

func TestView_NextMilestone(t *testing.T) {
	f := newFixture(t)

	v := f.store.View()
	if v.NextMilestone == nil || v.NextMilestone.Streak != 3 || v.NextMilestone.Bonus != 30 {
		t.Fatalf("NextMilestone at streak 0 = %+v, want 3/30", v.NextMilestone)
	}

	for day := 0; day < 3; day++ {
		f.store.RecordLogin()
		f.clock.Advance(24 * time.Hour)
	}
	v = f.store.View()
	if v.NextMilestone == nil || v.NextMilestone.Streak != 7 || v.NextMilestone.Bonus != 100 {
		t.Errorf("NextMilestone at streak 3 = %+v, want 7/100", v.NextMilestone)
	}
}
