package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// dateLayouts are the publication date formats accepted from clients.
var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// Date is a timestamp that also decodes from a bare calendar date, which is
// what HTML date inputs send.
type Date struct {
	time.Time
}

// UnmarshalJSON accepts RFC 3339 timestamps, zone-less timestamps and
// YYYY-MM-DD dates. Zone-less values are taken as UTC.
func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			d.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid date %q: use YYYY-MM-DD or RFC 3339", s)
}
