package progression_test

import (
	"testing"
	"time"

	"github.com/blank-marketing/blank/internal/app/progression"
	"github.com/blank-marketing/blank/internal/domain"
)

func TestDayPolicy_Today(t *testing.T) {
	kst := time.FixedZone("KST", 9*60*60)
	tests := []struct {
		name   string
		policy progression.DayPolicy
		at     time.Time
		want   domain.Date
	}{
		{"utc noon", progression.DayPolicy{Location: time.UTC}, time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC), domain.Date{Year: 2025, Month: 7, Day: 1}},
		{"kst ahead of utc", progression.DayPolicy{Location: kst}, time.Date(2025, 7, 1, 16, 0, 0, 0, time.UTC), domain.Date{Year: 2025, Month: 7, Day: 2}},
		{"before cutoff", progression.DayPolicy{Location: time.UTC, CutoffHour: 4}, time.Date(2025, 7, 1, 3, 59, 0, 0, time.UTC), domain.Date{Year: 2025, Month: 6, Day: 30}},
		{"at cutoff", progression.DayPolicy{Location: time.UTC, CutoffHour: 4}, time.Date(2025, 7, 1, 4, 0, 0, 0, time.UTC), domain.Date{Year: 2025, Month: 7, Day: 1}},
		{"cutoff across year", progression.DayPolicy{Location: time.UTC, CutoffHour: 2}, time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC), domain.Date{Year: 2025, Month: 12, Day: 31}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.Today(tt.at); !got.Equal(tt.want) {
				t.Errorf("Today() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDayPolicy_WithCutoffClamps(t *testing.T) {
	p := progression.DefaultDayPolicy()
	if got := p.WithCutoff(-3).CutoffHour; got != 0 {
		t.Errorf("WithCutoff(-3) = %d, want 0", got)
	}
	if got := p.WithCutoff(30).CutoffHour; got != 23 {
		t.Errorf("WithCutoff(30) = %d, want 23", got)
	}
}

func TestNewDayPolicy(t *testing.T) {
	p, err := progression.NewDayPolicy("", 5)
	if err != nil {
		t.Fatalf("NewDayPolicy(\"\") error: %v", err)
	}
	if p.Location == nil || p.CutoffHour != 5 {
		t.Errorf("default policy = %+v", p)
	}

	if _, err := progression.NewDayPolicy("Mars/Olympus_Mons", 0); err == nil {
		t.Error("unknown time zone should fail")
	}
}
