package shared

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FormatDuration renders a duration given in (possibly fractional) seconds as m:ss.
//
// Unparseable or negative input renders as 0:00.
func FormatDuration(duration string) string {
	seconds, err := strconv.ParseFloat(strings.TrimSpace(duration), 64)
	if err != nil || seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "0:00"
	}

	minutes := int(math.Floor(seconds / 60))
	remaining := int(math.Floor(math.Mod(seconds, 60)))
	return fmt.Sprintf("%d:%02d", minutes, remaining)
}

// ParseTime parses server timestamps: RFC 3339, SQL-style datetimes, dates, or unix seconds.
func ParseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty timestamp", ErrInvalidInput)
	}

	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(secs, 0), nil
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: unrecognized timestamp %q", ErrInvalidInput, value)
}

// FormatDate renders a server timestamp as a long-form date, returning the input unchanged when it cannot be parsed.
func FormatDate(value string) string {
	t, err := ParseTime(value)
	if err != nil {
		return value
	}
	return t.Format("January 2, 2006")
}
