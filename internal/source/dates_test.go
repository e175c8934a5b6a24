package source

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalendarDay(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	at := time.Date(2024, 3, 2, 3, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), CalendarDay(at, est))
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), CalendarDay(at, time.UTC))
}

func TestRelativeDay(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		token    string
		expected time.Time
	}{
		{"now", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"45m", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"13h", time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)},
		{"4d", time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)},
		{"2w", time.Date(2024, 2, 25, 0, 0, 0, 0, time.UTC)},
		{"4 D", time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range testCases {
		t.Run(tc.token, func(t *testing.T) {
			day, ok := RelativeDay(tc.token, now, time.UTC)
			assert.True(t, ok)
			assert.Equal(t, tc.expected, day)
		})
	}

	for _, bad := range []string{"", "4", "d4", "4 days ago", "March rent"} {
		_, ok := RelativeDay(bad, now, time.UTC)
		assert.False(t, ok, bad)
	}
}
