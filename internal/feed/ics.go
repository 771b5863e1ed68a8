// Package feed renders the mirrored event list as an iCalendar feed.
package feed

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/fhdsa/eventbridge/internal/normalize"
	"github.com/fhdsa/eventbridge/internal/storage/models"
)

// CalendarName is the X-WR-CALNAME of the feed.
const CalendarName = "Action Network Events"

// UID returns the iCalendar UID for a source event.
func UID(sourceID string) string {
	return sourceID + "@actionnetwork"
}

// Render builds an iCalendar document from events. Events whose start or end
// cannot be parsed are left out.
func Render(events []models.Event, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//eventbridge//Action Network mirror//EN")
	cal.SetXWRCalName(CalendarName)

	for _, ev := range events {
		start, ok := normalize.ParseTimestamp(ev.Start)
		if !ok {
			continue
		}
		end, ok := normalize.ParseTimestamp(ev.End)
		if !ok {
			continue
		}

		vevent := cal.AddEvent(UID(ev.SourceID))
		vevent.SetDtStampTime(now.UTC())
		if modified, ok := normalize.ParseTimestamp(ev.LastModified); ok {
			vevent.SetModifiedAt(modified.UTC())
		}
		vevent.SetStartAt(start.UTC())
		vevent.SetEndAt(end.UTC())
		vevent.SetSummary(ev.Title)
		if desc := normalize.WithRegistration(normalize.PlainText(ev.Description), ev.RegistrationURL); desc != "" {
			vevent.SetDescription(desc)
		}
		if ev.Location != "" {
			vevent.SetLocation(ev.Location)
		}
		if ev.RegistrationURL != "" {
			vevent.SetURL(ev.RegistrationURL)
		}
	}

	return cal.Serialize()
}
