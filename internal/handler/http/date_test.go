package http

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{`"1965-08-01"`, time.Date(1965, 8, 1, 0, 0, 0, 0, time.UTC)},
		{`"1965-08-01T10:30:00"`, time.Date(1965, 8, 1, 10, 30, 0, 0, time.UTC)},
		{`"1965-08-01T10:30:00+02:00"`, time.Date(1965, 8, 1, 8, 30, 0, 0, time.UTC)},
		{`"1965-08-01T10:30:00.5Z"`, time.Date(1965, 8, 1, 10, 30, 0, 500_000_000, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Date
			require.NoError(t, json.Unmarshal([]byte(tt.in), &d))
			assert.True(t, tt.want.Equal(d.Time), d.Time)
			assert.Equal(t, time.UTC, d.Location())
		})
	}
}

func TestDate_UnmarshalJSON_Empty(t *testing.T) {
	for _, in := range []string{`null`, `""`} {
		var d Date
		require.NoError(t, json.Unmarshal([]byte(in), &d))
		assert.True(t, d.IsZero())
	}
}

func TestDate_UnmarshalJSON_Invalid(t *testing.T) {
	for _, in := range []string{`"01/08/1965"`, `19650801`, `"tomorrow"`} {
		var d Date
		assert.Error(t, json.Unmarshal([]byte(in), &d), in)
	}
}
