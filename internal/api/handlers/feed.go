package handlers

import (
	"net/http"
	"time"

	"github.com/fhdsa/eventbridge/internal/feed"
)

// CalendarFeed returns a handler serving the last pass's active events as
// an iCalendar feed.
func CalendarFeed(syncer Syncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := feed.Render(syncer.Snapshot(), time.Now())
		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", `inline; filename="events.ics"`)
		w.Write([]byte(body))
	}
}
