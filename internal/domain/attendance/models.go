package attendance

import (
	"strings"
	"time"
)

const (
	StatusPresent    = "Present"
	StatusAbsent     = "Absent"
	StatusIncomplete = "Incomplete"
)

const unknownDepartment = "N/A"

type Worker struct {
	PIN        int
	FirstName  string
	LastName   string
	Department string
}

func (w Worker) FullName() string {
	return strings.TrimSpace(w.FirstName + " " + w.LastName)
}

func (w Worker) DepartmentName() string {
	if strings.TrimSpace(w.Department) == "" {
		return unknownDepartment
	}
	return w.Department
}

// Transaction is one badge scan as reported by the device.
type Transaction struct {
	DeviceName string
	EventTime  time.Time
}

type Interval struct {
	In  time.Time
	Out time.Time
}

func (i Interval) Duration() time.Duration {
	return i.Out.Sub(i.In)
}

// Day is the attendance of one worker on one calendar day. FirstIn and
// LastOut are nil when Status is StatusAbsent.
type Day struct {
	Date             time.Time
	Status           string
	FirstIn          *time.Time
	LastOut          *time.Time
	EntryIn          int
	EntryOut         int
	TransactionCount int
	Lateness         Minutes
	Overwork         Minutes
	Actual           Minutes
	Intervals        []Interval
}

func (d Day) Weekday() string {
	if d.Date.IsZero() {
		return ""
	}
	return d.Date.Weekday().String()
}

// Timeline renders the paired intervals as "08:00 - 12:00 -> 13:00 - 17:00".
func (d Day) Timeline() string {
	parts := make([]string, 0, len(d.Intervals))
	for _, interval := range d.Intervals {
		parts = append(parts, interval.In.Format("15:04")+" - "+interval.Out.Format("15:04"))
	}
	return strings.Join(parts, " -> ")
}

type metricState uint8

const (
	metricAbsent metricState = iota
	metricIncomplete
	metricKnown
)

// Minutes is a whole-minute metric that may be missing. Absent means the
// day has no data; Incomplete means there was data but not enough to
// derive the value.
type Minutes struct {
	state metricState
	value int
}

func Absent() Minutes     { return Minutes{state: metricAbsent} }
func Incomplete() Minutes { return Minutes{state: metricIncomplete} }
func Known(v int) Minutes { return Minutes{state: metricKnown, value: v} }

func (m Minutes) Value() (int, bool) {
	return m.value, m.state == metricKnown
}

func (m Minutes) IsAbsent() bool     { return m.state == metricAbsent }
func (m Minutes) IsIncomplete() bool { return m.state == metricIncomplete }

// Cell returns the value for a spreadsheet cell: the minute count, or nil
// for a missing metric.
func (m Minutes) Cell() any {
	if v, ok := m.Value(); ok {
		return v
	}
	return nil
}
