// Package command parses and executes the command blocks the model may
// embed in its replies. The wire format is the literal substring
// [COMMAND:{...json...}], exactly the grammar spelled out in the prompt
// templates, so the two must stay in lockstep.
package command

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"
)

// Kind is the command's target collection.
type Kind string

const (
	KindCalendar Kind = "calendar"
	KindBookmark Kind = "bookmark"
	KindStocks   Kind = "stocks"
)

// Action is what the command does to its target.
type Action string

const (
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionSearch Action = "search"
)

// CalendarData is the payload for calendar commands. Pointer fields
// distinguish "absent" from zero for updates.
type CalendarData struct {
	ID          string  `json:"id,omitempty"`
	Title       string  `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Start       int64   `json:"start,omitempty"`
	End         int64   `json:"end,omitempty"`
	AllDay      *bool   `json:"allDay,omitempty"`
	Location    *string `json:"location,omitempty"`
}

// BookmarkData is the payload for bookmark commands.
type BookmarkData struct {
	ID          string   `json:"id,omitempty"`
	Title       string   `json:"title,omitempty"`
	URL         string   `json:"url,omitempty"`
	Description *string  `json:"description,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// StocksData is the payload for stock commands.
type StocksData struct {
	Symbol string `json:"symbol,omitempty"`
}

// Command is one decoded command block. Exactly one of the typed payloads
// is set, matching Kind.
type Command struct {
	Kind   Kind
	Action Action

	Calendar *CalendarData
	Bookmark *BookmarkData
	Stocks   *StocksData
}

// commandEnvelope is the raw wire shape.
type commandEnvelope struct {
	Type   string          `json:"type"`
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

const commandPrefix = "[COMMAND:"

// findBlock locates the first command block in text. The payload is a full
// JSON value, so the closing ] cannot be found with a pattern scan: any ]
// inside the payload (an array, a bracket in a string) would end the match
// early. Instead the payload is decoded with a json.Decoder and the block
// ends at the first ] after the decoded value.
func findBlock(text string) (block, payload string, ok bool) {
	start := strings.Index(text, commandPrefix)
	if start < 0 {
		return "", "", false
	}

	rest := text[start+len(commandPrefix):]
	dec := json.NewDecoder(strings.NewReader(rest))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return "", "", false
	}

	tail := rest[dec.InputOffset():]
	trimmed := strings.TrimLeft(tail, " \t\r\n")
	if !strings.HasPrefix(trimmed, "]") {
		return "", "", false
	}

	end := len(rest) - len(trimmed) + 1
	return text[start : start+len(commandPrefix)+end], string(raw), true
}

// Parse scans text for the first command block. It returns the text with
// the block stripped plus the decoded command. Parsing never fails: any
// malformed block yields the original text and a nil command.
func Parse(text string) (string, *Command) {
	block, payload, ok := findBlock(text)
	if !ok {
		if strings.Contains(text, commandPrefix) {
			log.Debug().Msg("malformed command block ignored")
		}
		return text, nil
	}

	var envelope commandEnvelope
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		log.Debug().Err(err).Msg("malformed command block ignored")
		return text, nil
	}

	cmd := &Command{Kind: Kind(envelope.Type), Action: Action(envelope.Action)}
	if err := decodePayload(cmd, envelope.Data); err != nil {
		log.Debug().Err(err).Str("type", envelope.Type).Msg("command payload rejected")
		return text, nil
	}

	// only the first block is stripped; anything after it stays verbatim
	clean := strings.TrimSpace(strings.Replace(text, block, "", 1))
	return clean, cmd
}

func decodePayload(cmd *Command, data json.RawMessage) error {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	switch cmd.Kind {
	case KindCalendar:
		cmd.Calendar = &CalendarData{}
		return json.Unmarshal(data, cmd.Calendar)
	case KindBookmark:
		cmd.Bookmark = &BookmarkData{}
		return json.Unmarshal(data, cmd.Bookmark)
	case KindStocks:
		cmd.Stocks = &StocksData{}
		return json.Unmarshal(data, cmd.Stocks)
	default:
		// unknown kinds still parse; the executor reports them
		return nil
	}
}
