// Package classifier turns free-text user input into enrichment intents
// using ordered keyword and regex heuristics. Classification is pure: it
// never touches the network or the store, it only reports what matched and
// which parameters it could extract.
package classifier

import (
	"regexp"
	"strings"

	"github.com/normanking/aide/pkg/types"
)

// StockIntent carries the extracted ticker, or the company name when only
// a free-text company reference was found and a symbol lookup is needed.
type StockIntent struct {
	Symbol  string
	Company string
}

// SearchIntent carries the cleaned search term and the provider preference.
type SearchIntent struct {
	Term     string
	Provider types.SearchProvider
}

// WeatherIntent carries the extracted location. Empty means the caller
// should fall back to the configured default location.
type WeatherIntent struct {
	Location string
}

// MusicIntent carries the catalog search term.
type MusicIntent struct {
	Term            string
	Recommendations bool
}

// NewsIntent carries the headline topic.
type NewsIntent struct {
	Topic string
}

// Result reports every intent that matched plus the winning Source.
//
// Predicates are not mutually exclusive: a single input can match several
// intents. The chain below is evaluated in a fixed order (stocks, search,
// weather, music, news, calendar, bookmarks) and every match overwrites
// Source, so the LAST matching category in that order wins. That
// last-writer-wins rule is deliberate and load-bearing; callers that apply
// the individual intents must walk them in the same order.
type Result struct {
	Source types.Source

	Stocks    *StockIntent
	Search    *SearchIntent
	Weather   *WeatherIntent
	Music     *MusicIntent
	News      *NewsIntent
	Calendar  bool
	Bookmarks bool
}

var (
	stockSymbolPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)stock (?:of|for|price|quote) ([A-Za-z]+)`),
		regexp.MustCompile(`(?i)([A-Za-z]{1,5}) stock`),
		regexp.MustCompile(`(?i)symbol (?:is|:) ([A-Za-z]+)`),
	}
	stockCompanyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:about|for|of) ([A-Za-z\s]+?)(?:'s)? stock`),
		regexp.MustCompile(`(?i)([A-Za-z\s]+?)(?:'s)? (?:stock|share|price)`),
	}

	searchStripPattern = regexp.MustCompile(`(?i)^(search for|search|find|look up|google|tell me about)`)

	weatherLocationPattern = regexp.MustCompile(`(?i)weather (?:in|at|for) ([a-zA-Z\s,]+)`)

	musicTermPattern = regexp.MustCompile(`(?i)(?:find|search|play|recommend|about) (.*?)(?:\s+by\s+|$)`)

	newsTopicPattern = regexp.MustCompile(`(?i)(?:news|articles?|headlines?) (?:about|on|regarding) (.*?)(?:\s+in\s+|$)`)

	whQuestionPattern = regexp.MustCompile(`^(what|who|when|where|why|how) (is|are|was|were|did|do|does)`)
)

var newsStopwords = map[string]bool{
	"news": true, "article": true, "headline": true, "latest": true,
	"recent": true, "tell": true, "about": true, "what": true,
}

// Classify evaluates the full rule chain against text.
func Classify(text string) Result {
	lower := strings.ToLower(text)
	res := Result{Source: types.SourceGeneral}

	if intent := classifyStocks(text, lower); intent != nil {
		res.Stocks = intent
		res.Source = types.SourceStocks
	}
	if intent := classifySearch(text, lower); intent != nil {
		res.Search = intent
		res.Source = types.SourceSearch
	}
	if intent := classifyWeather(text, lower); intent != nil {
		res.Weather = intent
		res.Source = types.SourceWeather
	}
	if intent := classifyMusic(text, lower); intent != nil {
		res.Music = intent
		res.Source = types.SourceMusic
	}
	if intent := classifyNews(text, lower); intent != nil {
		res.News = intent
		res.Source = types.SourceNews
	}
	if classifyCalendar(lower) {
		res.Calendar = true
		res.Source = types.SourceCalendar
	}
	if classifyBookmarks(lower) {
		res.Bookmarks = true
		res.Source = types.SourceBookmarks
	}
	return res
}

// PickSearchProvider chooses a web-search backend from the query wording.
// Academic or factual-question phrasing selects exa, recency wording selects
// searxng, everything else gets the combined fallback chain.
func PickSearchProvider(text string) types.SearchProvider {
	lower := strings.ToLower(text)

	academic := []string{"research", "academic", "scientific", "study", "paper", "fact", "precise"}
	for _, kw := range academic {
		if strings.Contains(lower, kw) {
			return types.SearchExa
		}
	}
	if whQuestionPattern.MatchString(lower) {
		return types.SearchExa
	}

	recency := []string{"latest", "recent", "current", "today", "news"}
	for _, kw := range recency {
		if strings.Contains(lower, kw) {
			return types.SearchSearXNG
		}
	}
	return types.SearchCombined
}

func containsAny(lower string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func classifyStocks(text, lower string) *StockIntent {
	if !containsAny(lower, "stock", "price", "market", "invest", "finance") {
		return nil
	}
	for _, p := range stockSymbolPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return &StockIntent{Symbol: strings.ToUpper(strings.TrimSpace(m[1]))}
		}
	}
	for _, p := range stockCompanyPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return &StockIntent{Company: strings.TrimSpace(m[1])}
		}
	}
	return &StockIntent{}
}

func classifySearch(text, lower string) *SearchIntent {
	matched := containsAny(lower, "search", "find", "look up", "google") ||
		strings.HasPrefix(lower, "what is") ||
		strings.HasPrefix(lower, "who is") ||
		strings.HasPrefix(lower, "when did") ||
		strings.HasPrefix(lower, "how to")
	if !matched {
		return nil
	}
	term := strings.TrimSpace(searchStripPattern.ReplaceAllString(text, ""))
	if term == "" {
		return nil
	}
	return &SearchIntent{Term: term, Provider: PickSearchProvider(text)}
}

func classifyWeather(text, lower string) *WeatherIntent {
	if !containsAny(lower, "weather", "temperature", "forecast") {
		return nil
	}
	intent := &WeatherIntent{}
	if m := weatherLocationPattern.FindStringSubmatch(text); m != nil {
		intent.Location = strings.TrimSpace(m[1])
	}
	return intent
}

func classifyMusic(text, lower string) *MusicIntent {
	if !containsAny(lower, "music", "song", "artist", "playlist", "spotify") {
		return nil
	}
	m := musicTermPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	term := strings.TrimSpace(m[1])
	if term == "" {
		return nil
	}
	return &MusicIntent{
		Term:            term,
		Recommendations: containsAny(lower, "recommend", "similar"),
	}
}

func classifyNews(text, lower string) *NewsIntent {
	if !containsAny(lower, "news", "article", "report", "update", "headline") {
		return nil
	}
	if m := newsTopicPattern.FindStringSubmatch(text); m != nil {
		if topic := strings.TrimSpace(m[1]); topic != "" {
			return &NewsIntent{Topic: topic}
		}
	}
	// keyword fallback: first word long enough to carry meaning
	for _, word := range strings.Fields(text) {
		if len(word) > 3 && !newsStopwords[strings.ToLower(word)] {
			return &NewsIntent{Topic: word}
		}
	}
	return &NewsIntent{Topic: "latest"}
}

func classifyCalendar(lower string) bool {
	if containsAny(lower, "add event", "create event", "schedule", "appointment") {
		return true
	}
	return strings.Contains(lower, "calendar") &&
		containsAny(lower, "add", "create", "remove", "delete", "update", "edit")
}

func classifyBookmarks(lower string) bool {
	if containsAny(lower, "add bookmark", "save bookmark", "bookmark this") {
		return true
	}
	return strings.Contains(lower, "bookmark") &&
		containsAny(lower, "add", "save", "remove", "delete")
}
