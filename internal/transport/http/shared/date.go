package shared

import "time"

// ParseDate reads the wire format for dates, which is YYYY-MM-DD. Full
// RFC3339 timestamps are also accepted from callers that send whole instants;
// the time portion is kept and truncated downstream where only the day
// matters.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.DateOnly, value); err == nil {
		return parsed, nil
	}
	return time.Parse(time.RFC3339, value)
}
