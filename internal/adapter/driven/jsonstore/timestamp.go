package jsonstore

import (
	"encoding/json"
	"fmt"
	"time"
)

// naiveLayouts are timezone-less ISO-8601 forms found in documents written by
// earlier versions of the store. They are read as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// isoTime is a timestamp stored as an ISO-8601 string. It is written as
// RFC 3339 in UTC.
type isoTime struct {
	time.Time
}

func newISOTime(t time.Time) isoTime {
	return isoTime{Time: t.UTC()}
}

func isoTimePtr(t time.Time) *isoTime {
	it := newISOTime(t)
	return &it
}

func (t isoTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *isoTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed.UTC()
		return nil
	}
	for _, layout := range naiveLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

// timePtr converts an optional stored timestamp to the domain form.
func timePtr(t *isoTime) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}
