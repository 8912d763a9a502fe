package l1observations

import (
	"fmt"
	"sort"
	"time"
)

// Day is a calendar date interpreted in a site's timezone.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDay parses a YYYY-MM-DD date string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid day %q (want YYYY-MM-DD): %w", s, err)
	}
	return DayOf(t, time.UTC), nil
}

// DayOf returns the calendar day containing t when viewed in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return Day{Year: y, Month: m, Day: d}
}

// String formats the day as YYYY-MM-DD.
func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Label formats the day for frame titles, e.g. "August 01, 2025".
func (d Day) Label() string {
	return d.Start(time.UTC).Format("January 02, 2006")
}

// Start returns local midnight at the start of the day.
func (d Day) Start(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Contains reports whether t falls on this day in loc.
func (d Day) Contains(t time.Time, loc *time.Location) bool {
	return DayOf(t, loc) == d
}

// Before orders days chronologically.
func (d Day) Before(o Day) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// FilterDay returns the observations that fall on day in loc. It returns
// ErrNoRows when nothing matches.
func FilterDay(obs []Observation, day Day, loc *time.Location) ([]Observation, error) {
	out := make([]Observation, 0, len(obs))
	for _, o := range obs {
		if day.Contains(o.Timestamp, loc) {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRows, day)
	}
	return out, nil
}

// AvailableDays lists the distinct days present in obs, oldest first.
func AvailableDays(obs []Observation, loc *time.Location) []Day {
	seen := make(map[Day]struct{})
	for _, o := range obs {
		seen[DayOf(o.Timestamp, loc)] = struct{}{}
	}
	days := make([]Day, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}
