// Package timeutil provides the millisecond-precision UTC timestamp type
// used across the wire formats, the order book, and the backtest clock.
package timeutil

import (
	"fmt"
	"time"
)

// Timestamp is a UTC instant truncated to millisecond precision, matching
// the resolution Hyperliquid's REST and WS payloads use.
type Timestamp struct {
	t time.Time
}

// Now returns the current instant. Not used by the backtest engine, which
// must derive its clock from replayed data rather than wall time.
func Now() Timestamp { return FromTime(time.Now()) }

// FromTime truncates an arbitrary time.Time to UTC millisecond precision.
func FromTime(t time.Time) Timestamp {
	return Timestamp{t: t.UTC().Truncate(time.Millisecond)}
}

// FromUnixMillis builds a Timestamp from epoch milliseconds, the format
// Hyperliquid sends in WS payloads and REST order responses.
func FromUnixMillis(ms int64) Timestamp {
	return Timestamp{t: time.UnixMilli(ms).UTC()}
}

// ParseISO8601 parses an RFC3339 timestamp string.
func ParseISO8601(s string) (Timestamp, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Timestamp{}, fmt.Errorf("timeutil: parse %q: %w", s, err)
	}
	return FromTime(t), nil
}

func (ts Timestamp) UnixMillis() int64 { return ts.t.UnixMilli() }
func (ts Timestamp) Time() time.Time   { return ts.t }
func (ts Timestamp) IsZero() bool      { return ts.t.IsZero() }

func (ts Timestamp) Add(d time.Duration) Timestamp {
	return FromTime(ts.t.Add(d))
}

func (ts Timestamp) Sub(other Timestamp) time.Duration {
	return ts.t.Sub(other.t)
}

func (ts Timestamp) Before(other Timestamp) bool { return ts.t.Before(other.t) }
func (ts Timestamp) After(other Timestamp) bool  { return ts.t.After(other.t) }

func (ts Timestamp) String() string {
	return ts.t.Format(time.RFC3339Nano)
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%d", ts.t.UnixMilli())), nil
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var ms int64
	if _, err := fmt.Sscanf(string(data), "%d", &ms); err != nil {
		return fmt.Errorf("timeutil: unmarshal %q: %w", data, err)
	}
	ts.t = time.UnixMilli(ms).UTC()
	return nil
}

// Interval names the candle/bar granularities the backtest and data engine
// bucket trades into.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval1d  Interval = "1d"
)

// Duration returns the wall-clock span of one bar at this interval.
func (iv Interval) Duration() time.Duration {
	switch iv {
	case Interval1m:
		return time.Minute
	case Interval5m:
		return 5 * time.Minute
	case Interval15m:
		return 15 * time.Minute
	case Interval1h:
		return time.Hour
	case Interval4h:
		return 4 * time.Hour
	case Interval1d:
		return 24 * time.Hour
	default:
		return 0
	}
}

// AlignToInterval floors ts to the start of the bar it belongs to.
func (ts Timestamp) AlignToInterval(iv Interval) Timestamp {
	d := iv.Duration()
	if d <= 0 {
		return ts
	}
	floored := ts.t.Truncate(d)
	return Timestamp{t: floored}
}
