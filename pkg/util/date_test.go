package util

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	want := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)

	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"rfc3339", "2024-10-10T10:10:10Z", want},
		{"rfc3339 nano", "2024-10-10T10:10:10.250Z", want.Add(250 * time.Millisecond)},
		{"offset", "2024-10-10T12:10:10+02:00", want},
		{"iso without zone", "2024-10-10T10:10:10", want},
		{"space separated", "2024-10-10 10:10:10", want},
		{"space separated fraction", "2024-10-10 10:10:10.5", want.Add(500 * time.Millisecond)},
		{"date", "2024-10-10", time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)},
		{"unix seconds", strconv.FormatInt(want.Unix(), 10), want},
		{"unix millis", strconv.FormatInt(want.UnixMilli(), 10), want},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTime(tt.in)
			require.True(t, ok)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestParseTimeRejects(t *testing.T) {
	for _, in := range []string{"", "yesterday", "-5", "10/10/2024"} {
		_, ok := ParseTime(in)
		assert.False(t, ok, in)
	}
}
