package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// Timestamp is a time.Time that decodes malformed values to the zero time
// instead of failing the surrounding document.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t in UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

// UnixMilliOrZero returns the epoch offset, with the zero time mapped to 0.
func (ts Timestamp) UnixMilliOrZero() int64 {
	if ts.IsZero() {
		return 0
	}
	return ts.UnixMilli()
}

// MarshalJSON encodes RFC 3339 with milliseconds, or "" for the zero time.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(ts.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
}

// UnmarshalJSON accepts RFC 3339 strings; anything else becomes the zero time.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	ts.Time = time.Time{}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil
	}
	ts.Time = parsed.UTC()
	return nil
}
