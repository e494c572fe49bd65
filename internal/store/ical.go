package store

import (
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/normanking/aide/pkg/types"
)

// WriteICS serializes events as an iCalendar document, one VEVENT per
// calendar event. All-day events are emitted with DATE-valued start/end.
func WriteICS(w io.Writer, events []types.CalendarEvent) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//aide//calendar export//EN")

	for _, ev := range events {
		ve := cal.AddEvent(ev.ID)
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		if ev.Location != "" {
			ve.SetLocation(ev.Location)
		}

		start := time.UnixMilli(ev.Start).UTC()
		end := time.UnixMilli(ev.End).UTC()
		if ev.AllDay {
			ve.SetAllDayStartAt(start)
			if ev.End > 0 {
				ve.SetAllDayEndAt(end)
			}
		} else {
			ve.SetStartAt(start)
			ve.SetEndAt(end)
		}
		ve.SetDtStampTime(time.Now().UTC())
	}

	if err := cal.SerializeTo(w); err != nil {
		return fmt.Errorf("serialize calendar: %w", err)
	}
	return nil
}
