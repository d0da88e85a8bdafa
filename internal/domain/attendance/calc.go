package attendance

import (
	"sort"
	"time"
)

// Compute derives the attendance of one worker for the calendar day of date.
// Events are expected to belong to that day; they need not be sorted.
func Compute(date time.Time, events []Transaction, schedule Schedule, matcher DirectionMatcher) Day {
	day := AbsentDay(date)
	if len(events) == 0 {
		return day
	}

	sorted := make([]Transaction, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EventTime.Before(sorted[j].EventTime)
	})

	for _, event := range sorted {
		if matcher.IsEntry(event.DeviceName) {
			day.EntryIn++
		} else if matcher.IsExit(event.DeviceName) {
			day.EntryOut++
		}
	}

	firstIn := sorted[0].EventTime
	lastOut := sorted[len(sorted)-1].EventTime
	day.FirstIn = &firstIn
	day.LastOut = &lastOut
	day.TransactionCount = len(sorted)
	day.Lateness = Known(LateMinutes(firstIn, schedule.Start.On(day.Date)))

	if len(sorted) == 1 {
		day.Status = StatusIncomplete
		day.Overwork = Incomplete()
		day.Actual = Incomplete()
		return day
	}

	day.Status = StatusPresent
	day.Overwork = Known(OverworkMinutes(lastOut, schedule.End.On(day.Date)))
	day.Intervals = PairIntervals(sorted)
	day.Actual = Known(int(TotalDuration(day.Intervals) / time.Minute))
	return day
}

// ComputeFromSummary applies the lateness and overwork rules to a day known
// only by its first and last scan. A nil lastOut marks the day incomplete.
func ComputeFromSummary(date time.Time, firstIn, lastOut *time.Time, schedule Schedule) Day {
	day := AbsentDay(date)
	if firstIn == nil {
		return day
	}
	day.FirstIn = firstIn
	day.Lateness = Known(LateMinutes(*firstIn, schedule.Start.On(day.Date)))
	if lastOut == nil || !lastOut.After(*firstIn) {
		day.LastOut = firstIn
		day.Status = StatusIncomplete
		day.Overwork = Incomplete()
		day.Actual = Incomplete()
		return day
	}
	day.LastOut = lastOut
	day.Status = StatusPresent
	day.Overwork = Known(OverworkMinutes(*lastOut, schedule.End.On(day.Date)))
	day.Actual = Known(int(lastOut.Sub(*firstIn) / time.Minute))
	return day
}

// AbsentDay is a day without scans. A zero date stands for "no records at
// all" and keeps an empty Date.
func AbsentDay(date time.Time) Day {
	day := Day{
		Status:   StatusAbsent,
		Lateness: Absent(),
		Overwork: Absent(),
		Actual:   Absent(),
	}
	if !date.IsZero() {
		day.Date = dayStart(date)
	}
	return day
}

// LateMinutes is the whole minutes between the planned start and the first
// scan, clamped at zero.
func LateMinutes(firstIn, plannedStart time.Time) int {
	return clampedMinutes(firstIn.Sub(plannedStart))
}

// OverworkMinutes is the whole minutes between the planned end and the last
// scan, clamped at zero.
func OverworkMinutes(lastOut, plannedEnd time.Time) int {
	return clampedMinutes(lastOut.Sub(plannedEnd))
}

func clampedMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}

// PairIntervals pairs sorted events as (0,1), (2,3), ... treating the first
// of each pair as IN. A trailing unpaired event is dropped.
func PairIntervals(sorted []Transaction) []Interval {
	intervals := make([]Interval, 0, len(sorted)/2)
	for i := 0; i+1 < len(sorted); i += 2 {
		intervals = append(intervals, Interval{In: sorted[i].EventTime, Out: sorted[i+1].EventTime})
	}
	return intervals
}

func TotalDuration(intervals []Interval) time.Duration {
	var total time.Duration
	for _, interval := range intervals {
		total += interval.Duration()
	}
	return total
}

// OnDay keeps the events whose wall-clock date equals date's.
func OnDay(events []Transaction, date time.Time) []Transaction {
	y, m, d := date.Date()
	out := make([]Transaction, 0, len(events))
	for _, event := range events {
		ey, em, ed := event.EventTime.In(date.Location()).Date()
		if ey == y && em == m && ed == d {
			out = append(out, event)
		}
	}
	return out
}

func dayStart(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
}
