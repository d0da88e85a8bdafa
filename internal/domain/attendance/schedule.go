package attendance

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidClock = errors.New("clock time must be HH:MM")

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

func ParseClock(value string) (Clock, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	return Clock{Hour: parsed.Hour(), Minute: parsed.Minute()}, nil
}

// On places the clock time on the calendar day of date, in date's location.
func (c Clock) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), c.Hour, c.Minute, 0, 0, date.Location())
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

type Schedule struct {
	Start             Clock
	End               Clock
	PlannedMinutes    int
	LunchBreakMinutes int
}

func NewSchedule(start, end string, plannedMinutes, lunchMinutes int) (Schedule, error) {
	startClock, err := ParseClock(start)
	if err != nil {
		return Schedule{}, err
	}
	endClock, err := ParseClock(end)
	if err != nil {
		return Schedule{}, err
	}
	return Schedule{
		Start:             startClock,
		End:               endClock,
		PlannedMinutes:    plannedMinutes,
		LunchBreakMinutes: lunchMinutes,
	}, nil
}

// DirectionMatcher classifies a device by name. Matching is case-sensitive
// substring containment.
type DirectionMatcher struct {
	Entry []string
	Exit  []string
}

func (m DirectionMatcher) IsEntry(deviceName string) bool {
	return containsAny(deviceName, m.Entry)
}

func (m DirectionMatcher) IsExit(deviceName string) bool {
	return containsAny(deviceName, m.Exit)
}

func containsAny(value string, patterns []string) bool {
	for _, pattern := range patterns {
		if pattern != "" && strings.Contains(value, pattern) {
			return true
		}
	}
	return false
}
