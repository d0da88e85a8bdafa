package reports

import (
	"fmt"
	"strings"
	"time"

	"attendance/internal/domain/attendance"
	"attendance/internal/platform/export"
)

type Variant string

const (
	// VariantOverview lists the device's own first-in/last-out summaries.
	VariantOverview Variant = "overview"
	// VariantTimeline pairs each active day's scans into IN/OUT intervals.
	VariantTimeline Variant = "timeline"
	// VariantDetailed walks every calendar day of an explicit date range.
	VariantDetailed Variant = "detailed"
)

func ParseVariant(value string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(value))); v {
	case VariantOverview, VariantTimeline, VariantDetailed:
		return v, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVariant, value)
}

// Request selects what a run covers. PINs defaults to the configured range;
// StartDate and EndDate are required by VariantDetailed only.
type Request struct {
	Variant   Variant
	PINs      []int
	StartDate time.Time
	EndDate   time.Time
}

func (r Request) Params() map[string]any {
	params := map[string]any{"variant": string(r.Variant)}
	if len(r.PINs) > 0 {
		params["pins"] = r.PINs
	}
	if !r.StartDate.IsZero() {
		params["startDate"] = r.StartDate.Format(dateLayout)
	}
	if !r.EndDate.IsZero() {
		params["endDate"] = r.EndDate.Format(dateLayout)
	}
	return params
}

type Row struct {
	Worker attendance.Worker
	Day    attendance.Day
}

type Result struct {
	Variant     Variant
	Rows        []Row
	Table       export.Table
	BaseName    string
	PinsScanned int
	PinsSkipped int
	DaysSkipped int
}

func (r Result) Records() int {
	return len(r.Rows)
}
