// Package enricher attaches external context to a user query before it is
// sent to the model. Enrichment is a fold over an ordered list of candidate
// stages: every stage that matches the classified intents AND comes back
// with data overwrites the query's source and context, so the last
// successful stage wins. A stage whose gateway fails or returns nothing
// leaves the query as the previous stage left it; enrichment itself never
// fails the turn.
package enricher

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/normanking/aide/internal/classifier"
	"github.com/normanking/aide/internal/gateway"
	"github.com/normanking/aide/pkg/types"
)

const fallbackLocation = "New York"

// maxSearchContext caps how many search hits are embedded in the prompt.
const maxSearchContext = 5

// WeatherSource yields current conditions for a location.
type WeatherSource interface {
	Current(ctx context.Context, location string) (*gateway.Conditions, error)
}

// NewsSource yields headlines for a topic.
type NewsSource interface {
	Headlines(ctx context.Context, topic string) ([]gateway.Article, error)
}

// StockSource yields quotes, company data and symbol lookups.
type StockSource interface {
	Quote(ctx context.Context, symbol string) (*gateway.Quote, error)
	Overview(ctx context.Context, symbol string) (*gateway.Overview, error)
	SearchSymbols(ctx context.Context, keywords string) ([]gateway.SymbolMatch, error)
}

// SearchSource yields web search results from the preferred provider.
type SearchSource interface {
	Run(ctx context.Context, term string, choice types.SearchProvider) ([]gateway.SearchResult, error)
}

// MusicSource yields catalog matches and recommendations.
type MusicSource interface {
	Search(ctx context.Context, term string) ([]gateway.Track, error)
	Recommend(ctx context.Context, seedIDs []string) ([]gateway.Track, error)
}

// EventSource is the local calendar snapshot.
type EventSource interface {
	List() []types.CalendarEvent
}

// BookmarkSource is the local bookmark snapshot.
type BookmarkSource interface {
	List() []types.Bookmark
}

// PreferenceSource supplies stored user preferences.
type PreferenceSource interface {
	Load() types.Preferences
}

// StockContext is the payload attached to stock turns.
type StockContext struct {
	Quote   *gateway.Quote    `json:"quote"`
	Company *gateway.Overview `json:"company"`
}

// SearchContext is the payload attached to web-search turns.
type SearchContext struct {
	Results  []gateway.SearchResult `json:"results"`
	Query    string                 `json:"query"`
	Provider types.SearchProvider   `json:"provider"`
}

// MusicContext is the payload attached to music turns.
type MusicContext struct {
	Tracks          []gateway.Track `json:"tracks"`
	Recommendations []gateway.Track `json:"recommendations,omitempty"`
}

// Enricher wires the classifier's intents to gateways and local snapshots.
type Enricher struct {
	weather   WeatherSource
	news      NewsSource
	stocks    StockSource
	search    SearchSource
	music     MusicSource
	events    EventSource
	bookmarks BookmarkSource
	prefs     PreferenceSource
}

// New creates an Enricher. Any nil gateway disables its stage.
func New(weather WeatherSource, news NewsSource, stocks StockSource, search SearchSource, music MusicSource, events EventSource, bookmarks BookmarkSource, prefs PreferenceSource) *Enricher {
	return &Enricher{
		weather:   weather,
		news:      news,
		stocks:    stocks,
		search:    search,
		music:     music,
		events:    events,
		bookmarks: bookmarks,
		prefs:     prefs,
	}
}

type stage func(ctx context.Context, q types.Query, intents classifier.Result) (types.Query, bool)

// Enrich runs the stage chain in its fixed order. The returned query is a
// copy; the input is never mutated.
func (e *Enricher) Enrich(ctx context.Context, q types.Query, intents classifier.Result) types.Query {
	stages := []stage{
		e.enrichStocks,
		e.enrichSearch,
		e.enrichWeather,
		e.enrichMusic,
		e.enrichNews,
		e.enrichCalendar,
		e.enrichBookmarks,
	}
	for _, s := range stages {
		if next, ok := s(ctx, q, intents); ok {
			q = next
		}
	}
	return q
}

func (e *Enricher) enrichStocks(ctx context.Context, q types.Query, intents classifier.Result) (types.Query, bool) {
	if e.stocks == nil || intents.Stocks == nil {
		return q, false
	}

	symbol := intents.Stocks.Symbol
	if symbol == "" && intents.Stocks.Company != "" {
		matches, err := e.stocks.SearchSymbols(ctx, intents.Stocks.Company)
		if err != nil {
			log.Warn().Err(err).Str("company", intents.Stocks.Company).Msg("symbol lookup failed")
		} else if len(matches) > 0 {
			symbol = matches[0].Symbol
		}
	}
	if symbol == "" {
		return q, false
	}

	var (
		wg       sync.WaitGroup
		quote    *gateway.Quote
		company  *gateway.Overview
		quoteErr error
		compErr  error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		quote, quoteErr = e.stocks.Quote(ctx, symbol)
	}()
	go func() {
		defer wg.Done()
		company, compErr = e.stocks.Overview(ctx, symbol)
	}()
	wg.Wait()

	if quoteErr != nil || compErr != nil {
		log.Warn().AnErr("quote", quoteErr).AnErr("overview", compErr).Str("symbol", symbol).Msg("stock lookup failed")
		return q, false
	}
	if quote == nil && company == nil {
		return q, false
	}
	return q.WithContext(types.SourceStocks, StockContext{Quote: quote, Company: company}), true
}

func (e *Enricher) enrichSearch(ctx context.Context, q types.Query, intents classifier.Result) (types.Query, bool) {
	if e.search == nil || intents.Search == nil {
		return q, false
	}

	provider := q.SearchProvider
	if provider == "" {
		provider = intents.Search.Provider
	}
	results, err := e.search.Run(ctx, intents.Search.Term, provider)
	if err != nil {
		log.Warn().Err(err).Str("term", intents.Search.Term).Msg("web search failed")
		return q, false
	}
	if len(results) == 0 {
		return q, false
	}
	if len(results) > maxSearchContext {
		results = results[:maxSearchContext]
	}
	next := q.WithContext(types.SourceSearch, SearchContext{
		Results:  results,
		Query:    intents.Search.Term,
		Provider: provider,
	})
	next.SearchProvider = provider
	return next, true
}

func (e *Enricher) enrichWeather(ctx context.Context, q types.Query, intents classifier.Result) (types.Query, bool) {
	if e.weather == nil || intents.Weather == nil {
		return q, false
	}

	location := intents.Weather.Location
	if location == "" {
		location = e.defaultLocation()
	}
	cond, err := e.weather.Current(ctx, location)
	if err != nil {
		log.Warn().Err(err).Str("location", location).Msg("weather lookup failed")
		return q, false
	}
	if cond == nil {
		return q, false
	}
	return q.WithContext(types.SourceWeather, cond), true
}

func (e *Enricher) enrichMusic(ctx context.Context, q types.Query, intents classifier.Result) (types.Query, bool) {
	if e.music == nil || intents.Music == nil {
		return q, false
	}

	tracks, err := e.music.Search(ctx, intents.Music.Term)
	if err != nil {
		log.Warn().Err(err).Str("term", intents.Music.Term).Msg("music search failed")
		return q, false
	}
	if len(tracks) == 0 {
		return q, false
	}

	mc := MusicContext{Tracks: tracks}
	if intents.Music.Recommendations {
		seeds := make([]string, 0, 2)
		for _, t := range tracks {
			if len(seeds) == 2 {
				break
			}
			seeds = append(seeds, t.ID)
		}
		recs, err := e.music.Recommend(ctx, seeds)
		if err != nil {
			log.Warn().Err(err).Msg("music recommendations failed")
		} else {
			mc.Recommendations = recs
		}
	}
	return q.WithContext(types.SourceMusic, mc), true
}

func (e *Enricher) enrichNews(ctx context.Context, q types.Query, intents classifier.Result) (types.Query, bool) {
	if e.news == nil || intents.News == nil {
		return q, false
	}

	articles, err := e.news.Headlines(ctx, intents.News.Topic)
	if err != nil {
		log.Warn().Err(err).Str("topic", intents.News.Topic).Msg("news lookup failed")
		return q, false
	}
	if len(articles) == 0 {
		return q, false
	}
	return q.WithContext(types.SourceNews, articles), true
}

func (e *Enricher) enrichCalendar(_ context.Context, q types.Query, intents classifier.Result) (types.Query, bool) {
	if e.events == nil || !intents.Calendar {
		return q, false
	}
	return q.WithContext(types.SourceCalendar, e.events.List()), true
}

func (e *Enricher) enrichBookmarks(_ context.Context, q types.Query, intents classifier.Result) (types.Query, bool) {
	if e.bookmarks == nil || !intents.Bookmarks {
		return q, false
	}
	return q.WithContext(types.SourceBookmarks, e.bookmarks.List()), true
}

func (e *Enricher) defaultLocation() string {
	if e.prefs != nil {
		if loc := strings.TrimSpace(e.prefs.Load().DefaultLocation); loc != "" {
			return loc
		}
	}
	return fallbackLocation
}
