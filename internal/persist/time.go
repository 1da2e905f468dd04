package persist

import (
	"bytes"
	"encoding/json"
	"time"
)

// flexTime accepts RFC 3339 strings and millisecond epochs.
type flexTime struct {
	time.Time
}

func (f *flexTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		f.Time = time.Time{}
		return nil
	}
	if ms, ok := parseMillis(b); ok {
		f.Time = time.UnixMilli(ms).UTC()
		return nil
	}
	return json.Unmarshal(b, &f.Time)
}
