// Package availability lists the bookable slots of a hall for one day.
package availability

import (
	"iter"
	"slices"

	"github.com/you/studio-booking/internal/domain"
	"github.com/you/studio-booking/internal/timegrid"
)

// Interval is a half-open [Start, End) range in minutes since midnight.
type Interval struct {
	Start int
	End   int
}

type Grid struct {
	WorkStart    int
	WorkEnd      int
	SlotDuration int
	Buffer       int
}

func DefaultGrid() Grid {
	return Grid{
		WorkStart:    domain.WorkStart,
		WorkEnd:      domain.WorkEnd,
		SlotDuration: domain.SlotDuration,
		Buffer:       domain.Buffer,
	}
}

// Conflicts reports whether two intervals are closer than buffer minutes.
func Conflicts(a, b Interval, buffer int) bool {
	return !(a.End+buffer <= b.Start || a.Start >= b.End+buffer)
}

// Slots yields the free grid slots as "HH:MM–HH:MM" strings. The sequence has
// no state of its own and can be ranged over any number of times.
func Slots(busy []Interval, g Grid) iter.Seq[string] {
	return func(yield func(string) bool) {
		if g.SlotDuration <= 0 {
			return
		}
		for start := g.WorkStart; start+g.SlotDuration <= g.WorkEnd; start += g.SlotDuration {
			cand := Interval{Start: start, End: start + g.SlotDuration}
			if slices.ContainsFunc(busy, func(b Interval) bool { return Conflicts(cand, b, g.Buffer) }) {
				continue
			}
			if !yield(timegrid.MinutesToRange(cand.Start, g.SlotDuration)) {
				return
			}
		}
	}
}

// List collects Slots into a slice; never nil.
func List(busy []Interval, g Grid) []string {
	out := slices.Collect(Slots(busy, g))
	if out == nil {
		out = []string{}
	}
	return out
}

// FromBookings converts confirmed bookings into busy intervals.
func FromBookings(bs []domain.Booking) []Interval {
	out := make([]Interval, 0, len(bs))
	for _, b := range bs {
		if b.Status != domain.StatusConfirmed {
			continue
		}
		out = append(out, Interval{Start: b.StartMin, End: b.EndMin})
	}
	return out
}
