package shared

import "time"

// ParseDate accepts YYYY-MM-DD in loc, or a full RFC3339 timestamp.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if loc == nil {
		loc = time.Local
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed.In(loc), nil
	}
	return time.ParseInLocation("2006-01-02", value, loc)
}
