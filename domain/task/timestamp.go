package task

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultOffset is the fixed UTC offset task timestamps are rendered in.
const DefaultOffset = -3 * time.Hour

// Clock returns the current time for task timestamps.
type Clock func() time.Time

// NewClock returns a Clock in a fixed zone at the given UTC offset, truncated to seconds.
func NewClock(offset time.Duration) Clock {
	zone := time.FixedZone(zoneName(offset), int(offset/time.Second))
	return func() time.Time {
		return time.Now().In(zone).Truncate(time.Second)
	}
}

func zoneName(offset time.Duration) string {
	if offset == 0 {
		return "UTC"
	}
	return fmt.Sprintf("UTC%+d", int(offset/time.Hour))
}

// Timestamp is a second-precision RFC 3339 instant, e.g. 2024-05-01T10:30:00-03:00.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t, dropping sub-second precision.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.Truncate(time.Second)}
}

// ParseTimestamp parses an RFC 3339 string.
func ParseTimestamp(s string) (Timestamp, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Timestamp{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return Timestamp{Time: t}, nil
}

// String formats the timestamp as RFC 3339.
func (t Timestamp) String() string {
	return t.Format(time.RFC3339)
}

// MarshalJSON encodes the timestamp as an RFC 3339 string.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes an RFC 3339 string.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
