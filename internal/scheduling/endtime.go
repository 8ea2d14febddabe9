package scheduling

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimestamp is returned when a start time cannot be parsed.
var ErrInvalidTimestamp = errors.New("scheduling: invalid timestamp")

const (
	defaultOffset = "+00:00"
	wallLayout    = "2006-01-02T15:04:05"
)

var trailingOffset = regexp.MustCompile(`([+-])(\d{2}):(\d{2})$`)

// ResolveEndTime adds d to start and renders the result with the same literal
// UTC offset start carried. A start without an offset (or with Z) is read as
// UTC and rendered with +00:00. The offset is treated as fixed for the length
// of the appointment; no DST lookup happens.
func ResolveEndTime(start string, d time.Duration) (string, error) {
	start = strings.TrimSpace(start)
	if start == "" {
		return "", fmt.Errorf("%w: empty start time", ErrInvalidTimestamp)
	}

	offsetStr := defaultOffset
	offsetSeconds := 0
	var instant time.Time
	var err error

	if m := trailingOffset.FindStringSubmatch(start); m != nil {
		offsetStr = m[0]
		hours, _ := strconv.Atoi(m[2])
		minutes, _ := strconv.Atoi(m[3])
		offsetSeconds = (hours*60 + minutes) * 60
		if m[1] == "-" {
			offsetSeconds = -offsetSeconds
		}
		instant, err = time.Parse(time.RFC3339Nano, start)
	} else {
		instant, err = parseNaiveUTC(strings.TrimSuffix(start, "Z"))
	}
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidTimestamp, start, err)
	}

	zone := time.FixedZone(offsetStr, offsetSeconds)
	return instant.Add(d).In(zone).Format(wallLayout) + offsetStr, nil
}

func parseNaiveUTC(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range []string{"2006-01-02T15:04:05.999999999", "2006-01-02T15:04"} {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
