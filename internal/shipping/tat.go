package shipping

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultTATDays is used when a TAT text carries no number.
const DefaultTATDays = 3

// MaxTATDays is the longest turn-around time accepted from the carrier.
const MaxTATDays = 60

var (
	rangeDaysRe  = regexp.MustCompile(`(\d+)\s*-\s*(\d+)\s*(?:business\s+)?days?`)
	singleDaysRe = regexp.MustCompile(`(\d+)\s*(?:business\s+)?days?`)
	bareNumberRe = regexp.MustCompile(`\d+`)
)

// ExtractDays turns a TAT text into a day count. A range takes its upper
// bound, then "N day(s)", then any bare integer; otherwise DefaultTATDays.
func ExtractDays(text string) int {
	s := strings.ToLower(strings.TrimSpace(text))

	if m := rangeDaysRe.FindStringSubmatch(s); m != nil {
		if n, err := strconv.Atoi(m[2]); err == nil {
			return n
		}
	}
	if m := singleDaysRe.FindStringSubmatch(s); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	if m := bareNumberRe.FindString(s); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return n
		}
	}
	return DefaultTATDays
}

// Calendar decides which days count toward a delivery estimate.
type Calendar interface {
	IsBusinessDay(day time.Time) bool
}

// WeekdayCalendar counts Monday through Friday. Public holidays are not known.
type WeekdayCalendar struct{}

func (WeekdayCalendar) IsBusinessDay(day time.Time) bool {
	switch day.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}

// AdvanceBusinessDays moves pickup forward by days weekdays.
func AdvanceBusinessDays(pickup time.Time, days int) time.Time {
	return AdvanceOn(WeekdayCalendar{}, pickup, days)
}

// AdvanceOn steps one calendar day at a time from pickup and stops once days
// business days of cal have been counted. days is clamped to MaxTATDays, and a
// calendar with no business days stops after a year of scanning.
func AdvanceOn(cal Calendar, pickup time.Time, days int) time.Time {
	days = min(days, MaxTATDays)
	d := pickup
	limit := pickup.AddDate(1, 0, 0)
	for counted := 0; counted < days && d.Before(limit); {
		d = d.AddDate(0, 0, 1)
		if cal.IsBusinessDay(d) {
			counted++
		}
	}
	return d
}
