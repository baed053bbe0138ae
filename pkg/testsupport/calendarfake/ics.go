package calendarfake

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/goliatone/kronos-sync/calendars"
)

const icsProductID = "-//KRONOS//Calendar//IT"

type icsEvent struct {
	uid     string
	start   time.Time
	end     time.Time // exclusive
	summary string
	desc    string
}

func (s *Server) ics(w http.ResponseWriter, r *http.Request) {
	kind := calendars.ICSKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		writeDetail(w, http.StatusNotFound, "Unknown calendar")
		return
	}
	year, ok := queryYear(w, r)
	if !ok {
		return
	}

	events := s.icsEvents(kind, year)

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=kronos_%s_%d.ics", kind, year))
	writeICS(w, fmt.Sprintf("KRONOS %s %d", kind, year), events)
}

func (s *Server) icsEvents(kind calendars.ICSKind, year int) []icsEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []icsEvent
	if kind == calendars.ICSHolidays || kind == calendars.ICSCombined {
		for _, h := range s.holidays {
			d, err := time.Parse(dateLayout, h.Date)
			if h.Year != year || err != nil {
				continue
			}
			events = append(events, icsEvent{
				uid:     h.ID + "@kronos",
				start:   d,
				end:     d.AddDate(0, 0, 1),
				summary: h.Name,
				desc:    "Holiday (" + string(h.Scope) + ")",
			})
		}
	}
	if kind == calendars.ICSClosures || kind == calendars.ICSCombined {
		for _, c := range s.closures {
			start, err1 := time.Parse(dateLayout, c.StartDate)
			end, err2 := time.Parse(dateLayout, c.EndDate)
			if c.Year != year || err1 != nil || err2 != nil {
				continue
			}
			events = append(events, icsEvent{
				uid:     c.ID + "@kronos",
				start:   start,
				end:     end.AddDate(0, 0, 1),
				summary: c.Name,
				desc:    c.Description,
			})
		}
	}
	return events
}

func writeICS(w io.Writer, name string, events []icsEvent) {
	stamp := time.Now().UTC().Format("20060102T150405Z")

	fmt.Fprint(w, "BEGIN:VCALENDAR\r\n")
	fmt.Fprint(w, "VERSION:2.0\r\n")
	fmt.Fprintf(w, "PRODID:%s\r\n", icsProductID)
	fmt.Fprintf(w, "X-WR-CALNAME:%s\r\n", name)
	fmt.Fprint(w, "CALSCALE:GREGORIAN\r\n")
	for _, e := range events {
		fmt.Fprint(w, "BEGIN:VEVENT\r\n")
		fmt.Fprintf(w, "UID:%s\r\n", e.uid)
		fmt.Fprintf(w, "DTSTAMP:%s\r\n", stamp)
		fmt.Fprintf(w, "DTSTART;VALUE=DATE:%s\r\n", e.start.Format("20060102"))
		fmt.Fprintf(w, "DTEND;VALUE=DATE:%s\r\n", e.end.Format("20060102"))
		fmt.Fprintf(w, "SUMMARY:%s\r\n", e.summary)
		if e.desc != "" {
			fmt.Fprintf(w, "DESCRIPTION:%s\r\n", e.desc)
		}
		fmt.Fprint(w, "END:VEVENT\r\n")
	}
	fmt.Fprint(w, "END:VCALENDAR\r\n")
}
