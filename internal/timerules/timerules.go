// Package timerules holds the day and time-window rules for in-person slots.
// All predicates are evaluated in America/Buenos_Aires regardless of the host zone.
package timerules

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	// BusinessTimezone is the IANA zone all rules are evaluated in.
	BusinessTimezone = "America/Buenos_Aires"
	// WindowStart and WindowEnd bound the allowed start times, both inclusive.
	WindowStart = "10:00"
	WindowEnd   = "17:00"
	// SlotStep is the spacing of the informational slot list.
	SlotStep = 30 * time.Minute
	// DefaultDurationMinutes is the length of a slot created through the standard flow.
	DefaultDurationMinutes = 120

	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

var businessLoc = loadLocation(BusinessTimezone)

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("-03", -3*60*60)
	}
	return loc
}

// Location returns the business timezone.
func Location() *time.Location { return businessLoc }

// LoadLocation resolves an IANA zone name, falling back to the business timezone
// for an empty name.
func LoadLocation(name string) (*time.Location, error) {
	if strings.TrimSpace(name) == "" || name == BusinessTimezone {
		return businessLoc, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

func allowedWeekday(d time.Weekday) bool {
	return d >= time.Tuesday && d <= time.Saturday
}

// AllowedDay reports whether a YYYY-MM-DD date falls on Tuesday through Saturday in loc.
// A nil loc means the business timezone. Malformed dates are not allowed.
func AllowedDay(date string, loc *time.Location) bool {
	if loc == nil {
		loc = businessLoc
	}
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return false
	}
	return allowedWeekday(d.Weekday())
}

// AllowedDayTime applies the weekday rule to an instant, seen from the business timezone.
func AllowedDayTime(t time.Time) bool {
	return allowedWeekday(t.In(businessLoc).Weekday())
}

// parseClock parses a strict HH:MM value into minutes after midnight.
func parseClock(hhmm string) (int, bool) {
	s := strings.TrimSpace(hhmm)
	if len(s) != 5 || s[2] != ':' {
		return 0, false
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

var (
	windowStartMin, _ = parseClock(WindowStart)
	windowEndMin, _   = parseClock(WindowEnd)
)

// AllowedTime reports whether a 24-hour HH:MM value is within 10:00..17:00 inclusive.
func AllowedTime(hhmm string) bool {
	m, ok := parseClock(hhmm)
	if !ok {
		return false
	}
	return m >= windowStartMin && m <= windowEndMin
}

// ValidOption reports whether a slot passes both the day and the time rule.
func ValidOption(date, start string) bool {
	return AllowedDay(date, businessLoc) && AllowedTime(start)
}

// GenerateTimeSlots lists the half-hour start times of the allowed window.
// Every call returns a new slice.
func GenerateTimeSlots() []string {
	var slots []string
	for m := windowStartMin; m <= windowEndMin; m += int(SlotStep / time.Minute) {
		slots = append(slots, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return slots
}

// AllowedWeekdays lists the weekdays the day rule accepts, in order.
func AllowedWeekdays() []time.Weekday {
	return []time.Weekday{time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday}
}

// DeadlineFromDate returns 23:59:59 of a YYYY-MM-DD date in the business timezone.
func DeadlineFromDate(date string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), businessLoc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid deadline date %q: %w", date, err)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, businessLoc), nil
}

// FormatDeadline renders t as RFC 3339 with the business offset (e.g. 2025-03-04T23:59:59-03:00).
func FormatDeadline(t time.Time) string {
	return t.In(businessLoc).Format(time.RFC3339)
}

// ParseDeadline accepts an empty string (no deadline), a plain date (end of that day)
// or an RFC 3339 timestamp. The result is expressed in the business timezone.
func ParseDeadline(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if len(s) == len(dateLayout) {
		t, err := DeadlineFromDate(s)
		if err != nil {
			return nil, err
		}
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid deadline %q: %w", s, err)
	}
	t = t.In(businessLoc)
	return &t, nil
}

// InBusinessZone converts t for display.
func InBusinessZone(t time.Time) time.Time { return t.In(businessLoc) }
