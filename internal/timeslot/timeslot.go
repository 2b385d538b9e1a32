package timeslot

import (
	"fmt"
	"net/http"
	"time"

	"github.com/nekogravitycat/timetable-backend/internal/pkg/apperror"
)

var (
	ErrInvalidRange = apperror.New(http.StatusBadRequest, "start time must be before end time")
	ErrInvalidClock = apperror.New(http.StatusBadRequest, "time must be formatted as HH:MM")
	ErrInvalidDay   = apperror.New(http.StatusBadRequest, "invalid day of week")
)

// Weekday is a day of the recurring teaching week. Monday sorts first.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Weekdays lists every valid day in week order.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// ParseWeekday parses the full English day name, e.g. "Monday".
func ParseWeekday(s string) (Weekday, error) {
	for i := 1; i < len(weekdayNames); i++ {
		if weekdayNames[i] == s {
			return Weekday(i), nil
		}
	}
	return 0, ErrInvalidDay
}

// WeekdayOf returns the weekday of t in t's own location.
func WeekdayOf(t time.Time) Weekday {
	if t.Weekday() == time.Sunday {
		return Sunday
	}
	return Weekday(t.Weekday())
}

func (d Weekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// Clock is a wall-clock time of day in minutes since midnight.
type Clock int

const minutesPerDay = 24 * 60

// ParseClock parses a zero-padded "HH:MM" value between 00:00 and 23:59.
func ParseClock(s string) (Clock, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, ErrInvalidClock
	}
	h, ok := twoDigits(s[0:2])
	if !ok || h > 23 {
		return 0, ErrInvalidClock
	}
	m, ok := twoDigits(s[3:5])
	if !ok || m > 59 {
		return 0, ErrInvalidClock
	}
	return Clock(h*60 + m), nil
}

func twoDigits(s string) (int, bool) {
	if s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Interval is the half-open range [Start, End) within a single day.
type Interval struct {
	Start Clock
	End   Clock
}

// NewInterval builds an interval, rejecting empty and inverted ranges.
func NewInterval(start, end Clock) (Interval, error) {
	if start < 0 || end > minutesPerDay || start >= end {
		return Interval{}, ErrInvalidRange
	}
	return Interval{Start: start, End: end}, nil
}

// ParseInterval parses two "HH:MM" values into an interval.
func ParseInterval(start, end string) (Interval, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Interval{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Interval{}, err
	}
	return NewInterval(s, e)
}

// Valid reports whether the interval is non-empty.
func (i Interval) Valid() bool {
	return i.Start >= 0 && i.End <= minutesPerDay && i.Start < i.End
}

// Overlaps reports whether a and b share at least one minute.
// Back-to-back intervals (a.End == b.Start) do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// Intersect returns the shared part of a and b. ok is false when they do not overlap.
func Intersect(a, b Interval) (Interval, bool) {
	if !Overlaps(a, b) {
		return Interval{}, false
	}
	return Interval{Start: max(a.Start, b.Start), End: min(a.End, b.End)}, true
}

func (i Interval) String() string {
	return i.Start.String() + "-" + i.End.String()
}
