// Package types defines shared types used across all aide modules.
package types

import "time"

// NowMillis returns the current wall-clock time as epoch milliseconds,
// the timestamp unit used throughout the persisted collections.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// ═══════════════════════════════════════════════════════════════════════════════
// COLLECTION RECORDS
// ═══════════════════════════════════════════════════════════════════════════════

// CalendarEvent is a single entry in the calendar collection.
// Timestamps are epoch milliseconds. Invariant: End >= Start unless AllDay.
type CalendarEvent struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Start       int64  `json:"start"`
	End         int64  `json:"end"`
	AllDay      bool   `json:"allDay"`
	Location    string `json:"location,omitempty"`
	Color       string `json:"color,omitempty"`
}

// Bookmark is a single entry in the bookmarks collection.
type Bookmark struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	CreatedAt   int64    `json:"createdAt"`
	Favicon     string   `json:"favicon,omitempty"`
}

// Preferences holds the persisted per-user preference blob.
type Preferences struct {
	DefaultLocation string   `json:"defaultLocation,omitempty"`
	PreferredTopics []string `json:"preferredTopics,omitempty"`
	SearchProvider  string   `json:"preferredSearchProvider,omitempty"`
	AIProvider      string   `json:"aiProvider,omitempty"`
}

// ═══════════════════════════════════════════════════════════════════════════════
// QUERY PIPELINE
// ═══════════════════════════════════════════════════════════════════════════════

// Source identifies which external data domain a user turn is about.
// It is the output of intent classification and selects the prompt template.
type Source string

const (
	SourceGeneral   Source = "general"
	SourceCalendar  Source = "calendar"
	SourceBookmarks Source = "bookmarks"
	SourceWeather   Source = "weather"
	SourceMusic     Source = "music"
	SourceNews      Source = "news"
	SourceStocks    Source = "stocks"
	SourceSearch    Source = "search"
)

// IsValid reports whether s is one of the known sources.
func (s Source) IsValid() bool {
	switch s {
	case SourceGeneral, SourceCalendar, SourceBookmarks, SourceWeather,
		SourceMusic, SourceNews, SourceStocks, SourceSearch:
		return true
	}
	return false
}

// SearchProvider selects which web search backend services a search turn.
type SearchProvider string

const (
	SearchSearXNG  SearchProvider = "searxng"
	SearchExa      SearchProvider = "exa"
	SearchCombined SearchProvider = "combined"
)

// Query is the ephemeral per-turn pipeline value. It is constructed fresh
// for each user message and never persisted. Enrichment stages return
// updated copies rather than mutating in place, so the classifier's
// last-writer-wins priority is an explicit fold over stages.
type Query struct {
	// Text is the raw user input.
	Text string

	// Source is the winning enrichment domain, SourceGeneral when none.
	Source Source

	// Context is the provider-shaped payload fetched for Source.
	// It is JSON-serialized into the prompt; the pipeline never
	// inspects its structure beyond that.
	Context any

	// UseAlternate forces the alternate LLM provider for this turn.
	UseAlternate bool

	// SearchProvider is the caller's provider preference for search
	// enrichment; empty means "let the classifier decide".
	SearchProvider SearchProvider
}

// NewQuery builds the starting pipeline value for one user turn.
func NewQuery(text string) Query {
	return Query{Text: text, Source: SourceGeneral}
}

// WithContext returns a copy of q carrying the given source and payload.
func (q Query) WithContext(src Source, ctx any) Query {
	q.Source = src
	q.Context = ctx
	return q
}

// UserContext carries known user facts prefixed to every prompt.
type UserContext struct {
	Location string
	Topics   []string
}

// ═══════════════════════════════════════════════════════════════════════════════
// CONVERSATION TRANSCRIPT
// ═══════════════════════════════════════════════════════════════════════════════

// Role identifies who produced a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one entry in the conversation transcript. The transcript is
// append-only and display order equals insertion order; the only mutation
// is a retry replacing the most recent assistant message in place.
type Message struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"createdAt"`
	IsError   bool   `json:"isError,omitempty"`
	SourceTag string `json:"sourceTag,omitempty"`
}
