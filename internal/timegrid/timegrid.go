// Package timegrid converts between clock strings and minute offsets on the
// studio's daily grid.
package timegrid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// ErrFormat is returned for clock, slot or date strings that cannot be parsed.
var ErrFormat = errors.New("bad time format")

// separators accepted between the two ends of a slot range.
var dashes = strings.NewReplacer(
	"‐", "-", // hyphen
	"‒", "-", // figure dash
	"–", "-", // en dash
	"—", "-", // em dash
	"−", "-", // minus sign
)

// TimeToMinutes parses "HH:MM" into minutes since midnight.
func TimeToMinutes(text string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(text), ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrFormat, text)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: %q", ErrFormat, text)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrFormat, text)
	}
	return h*60 + m, nil
}

// ParseSlotStart returns the start offset of a range such as "15:00–16:00".
// The end is ignored; bookings always last one slot.
func ParseSlotStart(text string) (int, error) {
	start, _, _ := strings.Cut(dashes.Replace(text), "-")
	return TimeToMinutes(start)
}

// MinutesToClock formats a minute offset as "HH:MM".
func MinutesToClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// MinutesToRange formats start and duration as "HH:MM–HH:MM" with an en dash.
func MinutesToRange(start, duration int) string {
	return MinutesToClock(start) + "–" + MinutesToClock(start+duration)
}

// ParseDate parses an ISO calendar date.
func ParseDate(text string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(text))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrFormat, text)
	}
	return d, nil
}

// IsWeekend reports whether d is a Saturday or Sunday.
func IsWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
