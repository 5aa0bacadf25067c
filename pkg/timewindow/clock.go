package timewindow

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const secondsPerDay = 24 * 60 * 60

// Clock is a time of day with second precision, stored as seconds since midnight.
type Clock int32

// NewClock builds a Clock from hour, minute and second components.
func NewClock(hour, minute, second int) (Clock, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return 0, fmt.Errorf("invalid clock %02d:%02d:%02d", hour, minute, second)
	}
	return Clock(hour*3600 + minute*60 + second), nil
}

// MustClock is NewClock for literals; it panics on invalid input.
func MustClock(hour, minute int) Clock {
	c, err := NewClock(hour, minute, 0)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseClock accepts "15:04", "15:04:05" and RFC3339-ish timestamps whose time part is used.
func ParseClock(raw string) (Clock, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("empty clock value")
	}
	for _, layout := range []string{"15:04:05", "15:04", "15:04:05.999999999", "15:04:05Z07:00"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return ClockOf(t), nil
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ClockOf(t), nil
	}
	return 0, fmt.Errorf("invalid clock value %q", raw)
}

// ClockOf extracts the wall-clock time of day from t.
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

// FromDuration converts an offset since midnight into a Clock. Offsets past
// 24h (GTFS allows them for trips running after midnight) wrap around.
func FromDuration(d time.Duration) Clock {
	secs := int64(d / time.Second)
	secs %= secondsPerDay
	if secs < 0 {
		secs += secondsPerDay
	}
	return Clock(secs)
}

// Hour returns the hour component.
func (c Clock) Hour() int { return int(c) / 3600 }

// Minute returns the minute component.
func (c Clock) Minute() int { return int(c) % 3600 / 60 }

// Second returns the second component.
func (c Clock) Second() int { return int(c) % 60 }

// Duration returns the offset from midnight.
func (c Clock) Duration() time.Duration { return time.Duration(c) * time.Second }

func (c Clock) Before(other Clock) bool { return c < other }

func (c Clock) After(other Clock) bool { return c > other }

// String renders HH:MM, or HH:MM:SS when seconds are present.
func (c Clock) String() string {
	if c.Second() != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", c.Hour(), c.Minute(), c.Second())
	}
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// Value stores the clock as HH:MM:SS, which both postgres TIME and sqlite TEXT accept.
func (c Clock) Value() (driver.Value, error) {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour(), c.Minute(), c.Second()), nil
}

// Scan reads TIME columns returned as text or as timestamps.
func (c *Clock) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*c = 0
		return nil
	case time.Time:
		*c = ClockOf(v)
		return nil
	case []byte:
		parsed, err := ParseClock(string(v))
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	case string:
		parsed, err := ParseClock(v)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	case int64:
		*c = Clock(v % secondsPerDay)
		return nil
	default:
		return fmt.Errorf("unsupported type %T for Clock", value)
	}
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("clock must be a string: %w", err)
	}
	parsed, err := ParseClock(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
