package source

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidDate = errors.New("invalid date")

// Clock supplies the processing time for relative dates
type Clock func() time.Time

// CalendarDay strips time of day, keeping the calendar date t has in loc.
// The result is midnight UTC.
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// parseTime tries each layout, reading zoneless values in loc
func parseTime(value string, loc *time.Location, layouts ...string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
}

// parseDay tries each layout in loc and returns the calendar day
func parseDay(value string, loc *time.Location, layouts ...string) (time.Time, error) {
	t, err := parseTime(value, loc, layouts...)
	if err != nil {
		return time.Time{}, err
	}
	return CalendarDay(t, loc), nil
}

var relativeToken = regexp.MustCompile(`(?i)^(now|(\d+)\s*([mhdw]))$`)

// RelativeDay resolves tokens such as "now", "45m", "3h", "4d" or "2w" against now
func RelativeDay(token string, now time.Time, loc *time.Location) (time.Time, bool) {
	m := relativeToken.FindStringSubmatch(strings.TrimSpace(token))
	if m == nil {
		return time.Time{}, false
	}
	if strings.EqualFold(m[1], "now") {
		return CalendarDay(now, loc), true
	}

	n, err := strconv.Atoi(m[2])
	if err != nil {
		return time.Time{}, false
	}
	var at time.Time
	switch strings.ToLower(m[3]) {
	case "m":
		at = now.Add(-time.Duration(n) * time.Minute)
	case "h":
		at = now.Add(-time.Duration(n) * time.Hour)
	case "d":
		at = now.In(loc).AddDate(0, 0, -n)
	case "w":
		at = now.In(loc).AddDate(0, 0, -7*n)
	}
	return CalendarDay(at, loc), true
}
