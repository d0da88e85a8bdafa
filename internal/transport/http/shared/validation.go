package shared

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"attendance/internal/transport/http/api"
)

type ValidationIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Validator collects field issues for a request and rejects it with a
// single validation_error response.
type Validator struct {
	issues []ValidationIssue
}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) Add(field, reason string) {
	if v == nil || strings.TrimSpace(reason) == "" {
		return
	}
	v.issues = append(v.issues, ValidationIssue{Field: strings.TrimSpace(field), Reason: strings.TrimSpace(reason)})
}

// Enum accepts an empty value or one of allowed, case-insensitively.
func (v *Validator) Enum(field, value string, allowed ...string) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" || slices.Contains(allowed, value) {
		return
	}
	v.Add(field, "must be one of "+strings.Join(allowed, ", "))
}

func (v *Validator) PINs(field string, pins []int) {
	if slices.ContainsFunc(pins, func(pin int) bool { return pin <= 0 }) {
		v.Add(field, "must contain positive worker PINs")
	}
}

// DateRange parses an inclusive YYYY-MM-DD window in loc. Blank bounds are
// issues only when required; an inverted window flags both fields.
func (v *Validator) DateRange(startField, startRaw, endField, endRaw string, loc *time.Location, required bool) (time.Time, time.Time) {
	start := v.date(startField, startRaw, loc, required)
	end := v.date(endField, endRaw, loc, required)
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		v.Add(startField, "must be on or before "+endField)
		v.Add(endField, "must be on or after "+startField)
	}
	return start, end
}

func (v *Validator) date(field, raw string, loc *time.Location, required bool) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if required {
			v.Add(field, "is required for this report")
		}
		return time.Time{}
	}
	parsed, err := ParseDate(raw, loc)
	if err != nil {
		v.Add(field, "must be a valid date in YYYY-MM-DD format")
		return time.Time{}
	}
	return parsed
}

func (v *Validator) HasIssues() bool {
	return v != nil && len(v.issues) > 0
}

// Issues returns the collected issues ordered by field, then reason.
func (v *Validator) Issues() []ValidationIssue {
	if !v.HasIssues() {
		return nil
	}
	out := slices.Clone(v.issues)
	slices.SortStableFunc(out, func(a, b ValidationIssue) int {
		if c := strings.Compare(a.Field, b.Field); c != 0 {
			return c
		}
		return strings.Compare(a.Reason, b.Reason)
	})
	return out
}

// Reject writes a 400 listing every issue and reports whether it did.
func (v *Validator) Reject(w http.ResponseWriter, requestID string) bool {
	if !v.HasIssues() {
		return false
	}
	api.FailWithDetails(w, http.StatusBadRequest, "validation_error", "payload validation failed",
		map[string]any{"fields": v.Issues()}, requestID)
	return true
}
