package store

import (
	"sort"
	"time"

	"github.com/normanking/aide/pkg/types"
)

const eventsKey = "calendar-events"

// defaultEventDuration is applied when an add supplies no end time.
const defaultEventDuration = time.Hour

// EventPatch is a merge patch for a calendar event. Nil fields are left
// unchanged. Applying the same patch twice is idempotent.
type EventPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Start       *int64  `json:"start,omitempty"`
	End         *int64  `json:"end,omitempty"`
	AllDay      *bool   `json:"allDay,omitempty"`
	Location    *string `json:"location,omitempty"`
	Color       *string `json:"color,omitempty"`
}

func (p EventPatch) apply(ev *types.CalendarEvent) {
	if p.Title != nil {
		ev.Title = *p.Title
	}
	if p.Description != nil {
		ev.Description = *p.Description
	}
	if p.Start != nil {
		ev.Start = *p.Start
	}
	if p.End != nil {
		ev.End = *p.End
	}
	if p.AllDay != nil {
		ev.AllDay = *p.AllDay
	}
	if p.Location != nil {
		ev.Location = *p.Location
	}
	if p.Color != nil {
		ev.Color = *p.Color
	}
}

// Events is the calendar event collection.
type Events struct {
	c *collection[types.CalendarEvent]
}

// NewEvents binds the event collection to its blob.
func NewEvents(blobs *Blobs) *Events {
	return &Events{c: newCollection(blobs, eventsKey, func(ev *types.CalendarEvent) *string {
		return &ev.ID
	})}
}

// List returns all events in insertion order.
func (e *Events) List() []types.CalendarEvent {
	return e.c.List()
}

// Add stores a new event, assigning its ID and defaulting missing times:
// a zero Start becomes now, a zero End becomes Start plus one hour unless
// the event is all-day.
func (e *Events) Add(ev types.CalendarEvent) types.CalendarEvent {
	if ev.Start == 0 {
		ev.Start = types.NowMillis()
	}
	if ev.End == 0 && !ev.AllDay {
		ev.End = ev.Start + defaultEventDuration.Milliseconds()
	}
	return e.c.Add(ev)
}

// Update merge-patches the event with the given id.
func (e *Events) Update(id string, patch EventPatch) (types.CalendarEvent, bool) {
	return e.c.Update(id, patch.apply)
}

// Delete removes the event with the given id.
func (e *Events) Delete(id string) bool {
	return e.c.Delete(id)
}

// RangeOverlap returns events overlapping [start, end]: starting inside,
// ending inside, or spanning the whole range.
func (e *Events) RangeOverlap(start, end int64) []types.CalendarEvent {
	var out []types.CalendarEvent
	for _, ev := range e.c.List() {
		switch {
		case ev.Start >= start && ev.Start <= end:
			out = append(out, ev)
		case ev.End >= start && ev.End <= end:
			out = append(out, ev)
		case ev.Start <= start && ev.End >= end:
			out = append(out, ev)
		}
	}
	return out
}

// Upcoming returns up to count future events ordered by start time.
func (e *Events) Upcoming(count int) []types.CalendarEvent {
	now := types.NowMillis()
	var out []types.CalendarEvent
	for _, ev := range e.c.List() {
		if ev.Start >= now {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	if len(out) > count {
		out = out[:count]
	}
	return out
}
