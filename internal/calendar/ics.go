// Package calendar renders single-event iCalendar files for confirmed
// bookings and keeps them on disk for download.
package calendar

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/you/studio-booking/internal/domain"
	"github.com/you/studio-booking/internal/timegrid"
)

const ContentType = "text/calendar; charset=utf-8"

// Event is the data put into one VEVENT.
type Event struct {
	UID         string
	Start       time.Time // local wall time, written without zone
	End         time.Time
	Summary     string
	Description string
	Location    string
}

// EventFor builds the event of booking b held in hall h at studio.
func EventFor(b *domain.Booking, h *domain.Hall, studio string) (Event, error) {
	day, err := timegrid.ParseDate(b.Date)
	if err != nil {
		return Event{}, err
	}
	hall := b.HallID
	if h != nil && h.Title != "" {
		hall = fmt.Sprintf("%s, %s", h.ID, h.Title)
	}
	contact := strings.TrimSpace(b.Name + " " + b.Phone)
	return Event{
		UID:         b.ID,
		Start:       day.Add(time.Duration(b.StartMin) * time.Minute),
		End:         day.Add(time.Duration(b.EndMin) * time.Minute),
		Summary:     fmt.Sprintf("Photo session at %s (hall %s)", studio, hall),
		Description: fmt.Sprintf("Booking %s\nCustomer: %s", b.ID, contact),
		Location:    studio,
	}, nil
}

// Render serializes the calendar document. Properties keep the order they
// are set in, lines end in CRLF and are folded at 75 octets. DTSTAMP is now
// in UTC; DTSTART and DTEND are floating local times.
func Render(e Event, prodID string, now time.Time) []byte {
	cal := ics.NewCalendar()
	cal.SetProductId("-//" + escape(prodID) + "//EN")
	ev := cal.AddEvent(escape(e.UID))
	ev.SetProperty(ics.ComponentPropertyDtstamp, now.UTC().Format("20060102T150405Z"))
	ev.SetProperty(ics.ComponentPropertyDtStart, e.Start.Format("20060102T150405"))
	ev.SetProperty(ics.ComponentPropertyDtEnd, e.End.Format("20060102T150405"))
	ev.SetProperty(ics.ComponentPropertySummary, escape(e.Summary))
	ev.SetProperty(ics.ComponentPropertyDescription, escape(e.Description))
	ev.SetProperty(ics.ComponentPropertyLocation, escape(e.Location))
	return []byte(cal.Serialize())
}

var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	";", `\;`,
	",", `\,`,
	"\r\n", `\n`,
	"\n", `\n`,
)

// escape applies RFC 5545 TEXT escaping.
func escape(s string) string {
	return textEscaper.Replace(s)
}
