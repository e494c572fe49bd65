package command

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/normanking/aide/internal/gateway"
	"github.com/normanking/aide/internal/store"
	"github.com/normanking/aide/pkg/types"
)

// EventStore is the calendar collection the executor mutates.
type EventStore interface {
	Add(ev types.CalendarEvent) types.CalendarEvent
	Update(id string, patch store.EventPatch) (types.CalendarEvent, bool)
	Delete(id string) bool
}

// BookmarkStore is the bookmark collection the executor mutates.
type BookmarkStore interface {
	Add(bm types.Bookmark) types.Bookmark
	Update(id string, patch store.BookmarkPatch) (types.Bookmark, bool)
	Delete(id string) bool
}

// QuoteSource resolves stock search commands.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (*gateway.Quote, error)
}

// Executor applies parsed commands to local collections. Execute is total:
// it always produces a user-facing result string and never returns an
// error, because a failed side effect must not fail the chat turn that
// carried it.
type Executor struct {
	events    EventStore
	bookmarks BookmarkStore
	stocks    QuoteSource
}

// NewExecutor creates an Executor.
func NewExecutor(events EventStore, bookmarks BookmarkStore, stocks QuoteSource) *Executor {
	return &Executor{events: events, bookmarks: bookmarks, stocks: stocks}
}

const (
	msgCannotExecute = "Could not execute command"
	msgExecuteError  = "Error executing command"
)

// Execute runs cmd and describes the outcome.
func (e *Executor) Execute(ctx context.Context, cmd *Command) (result string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("command execution panicked")
			result = msgExecuteError
		}
	}()

	if cmd == nil {
		return msgCannotExecute
	}

	switch cmd.Kind {
	case KindCalendar:
		return e.executeCalendar(cmd)
	case KindBookmark:
		return e.executeBookmark(cmd)
	case KindStocks:
		return e.executeStocks(ctx, cmd)
	default:
		return msgCannotExecute
	}
}

func (e *Executor) executeCalendar(cmd *Command) string {
	data := cmd.Calendar
	if e.events == nil || data == nil {
		return msgCannotExecute
	}

	switch {
	case cmd.Action == ActionAdd && data.Title != "":
		ev := types.CalendarEvent{
			Title: data.Title,
			Start: data.Start,
			End:   data.End,
		}
		if data.Description != nil {
			ev.Description = *data.Description
		}
		if data.AllDay != nil {
			ev.AllDay = *data.AllDay
		}
		if data.Location != nil {
			ev.Location = *data.Location
		}
		added := e.events.Add(ev)
		return fmt.Sprintf("Added event %q to your calendar", added.Title)

	case cmd.Action == ActionDelete && data.ID != "":
		e.events.Delete(data.ID)
		return "Event deleted successfully"

	case cmd.Action == ActionUpdate && data.ID != "":
		patch := store.EventPatch{
			Description: data.Description,
			AllDay:      data.AllDay,
			Location:    data.Location,
		}
		if data.Title != "" {
			patch.Title = &data.Title
		}
		if data.Start != 0 {
			patch.Start = &data.Start
		}
		if data.End != 0 {
			patch.End = &data.End
		}
		if _, ok := e.events.Update(data.ID, patch); ok {
			return "Event updated successfully"
		}
		return "Failed to update event"
	}
	return msgCannotExecute
}

func (e *Executor) executeBookmark(cmd *Command) string {
	data := cmd.Bookmark
	if e.bookmarks == nil || data == nil {
		return msgCannotExecute
	}

	switch {
	case cmd.Action == ActionAdd && data.Title != "" && data.URL != "":
		bm := types.Bookmark{
			Title: data.Title,
			URL:   data.URL,
			Tags:  data.Tags,
		}
		if data.Description != nil {
			bm.Description = *data.Description
		}
		if data.Category != nil {
			bm.Category = *data.Category
		}
		added := e.bookmarks.Add(bm)
		return fmt.Sprintf("Added bookmark %q to your collection", added.Title)

	case cmd.Action == ActionDelete && data.ID != "":
		e.bookmarks.Delete(data.ID)
		return "Bookmark deleted successfully"

	case cmd.Action == ActionUpdate && data.ID != "":
		patch := store.BookmarkPatch{
			Description: data.Description,
			Category:    data.Category,
		}
		if data.Title != "" {
			patch.Title = &data.Title
		}
		if data.URL != "" {
			patch.URL = &data.URL
		}
		if data.Tags != nil {
			patch.Tags = &data.Tags
		}
		if _, ok := e.bookmarks.Update(data.ID, patch); ok {
			return "Bookmark updated successfully"
		}
		return "Failed to update bookmark"
	}
	return msgCannotExecute
}

func (e *Executor) executeStocks(ctx context.Context, cmd *Command) string {
	data := cmd.Stocks
	if e.stocks == nil || data == nil || cmd.Action != ActionSearch || data.Symbol == "" {
		return msgCannotExecute
	}

	quote, err := e.stocks.Quote(ctx, data.Symbol)
	if err != nil {
		log.Warn().Err(err).Str("symbol", data.Symbol).Msg("stock command failed")
		return msgExecuteError
	}
	if quote == nil {
		return "Could not find stock information"
	}
	return fmt.Sprintf("Retrieved latest stock quote for %s", quote.Symbol)
}
