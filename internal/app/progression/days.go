package progression

import (
	"time"

	"github.com/blank-marketing/blank/internal/domain"
)

// DefaultTimezone is the dashboard's home time zone.
const DefaultTimezone = "Asia/Seoul"

// DayPolicy decides which calendar day an instant belongs to.
// Instants before CutoffHour:00 local time count as the previous day, so a
// 01:30 login with CutoffHour 4 still extends yesterday's streak window.
type DayPolicy struct {
	Location   *time.Location
	CutoffHour int // 0-23
}

// DefaultDayPolicy uses Asia/Seoul with a midnight boundary.
func DefaultDayPolicy() DayPolicy {
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		// No tzdata on the host; KST has no DST so a fixed zone is exact.
		loc = time.FixedZone("KST", 9*60*60)
	}
	return DayPolicy{Location: loc}
}

// NewDayPolicy builds a policy from a time zone name and cutoff hour.
func NewDayPolicy(timezone string, cutoffHour int) (DayPolicy, error) {
	if timezone == "" {
		return DefaultDayPolicy().WithCutoff(cutoffHour), nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return DayPolicy{}, err
	}
	return DayPolicy{Location: loc}.WithCutoff(cutoffHour), nil
}

// WithCutoff returns a copy with the cutoff hour clamped to 0-23.
func (p DayPolicy) WithCutoff(hour int) DayPolicy {
	if hour < 0 {
		hour = 0
	}
	if hour > 23 {
		hour = 23
	}
	p.CutoffHour = hour
	return p
}

// Today returns the calendar day t falls on under this policy.
func (p DayPolicy) Today(t time.Time) domain.Date {
	loc := p.Location
	if loc == nil {
		loc = time.Local
	}
	lt := t.In(loc)
	d := domain.DateOf(lt)
	if lt.Hour() < p.CutoffHour {
		d = d.AddDays(-1)
	}
	return d
}
