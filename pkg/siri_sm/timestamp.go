package siri_sm

import (
	"fmt"
	"strings"
	"time"
)

const XSDDateTimeFormat = "2006-01-02T15:04:05Z07:00"
const XSDDateTimeNoZoneFormat = "2006-01-02T15:04:05"
const SpacedDateTimeFormat = "2006-01-02 15:04:05"

// ParseTimestamp reads the feed's fixed offset ISO-8601 timestamps. A missing
// zone designator is read as UTC. Fractional seconds are discarded.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	for _, layout := range []string{XSDDateTimeFormat, XSDDateTimeNoZoneFormat, SpacedDateTimeFormat} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.Truncate(time.Second), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", value)
}
