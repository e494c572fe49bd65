// Package prompt renders the model prompt for an enriched query. Rendering
// is synchronous and side-effect free: the context payload is serialized
// verbatim and the command grammar the model may answer with is spelled out
// with concrete examples, byte-for-byte the format the parser accepts.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/normanking/aide/pkg/types"
)

const calendarTemplate = `[CONTEXT: The user is asking about their calendar or wants to modify calendar events. Calendar context: %s]

You can create, update, or delete calendar events by returning a command in your response.

To add an event, include a command like this:
[COMMAND:{"type":"calendar","action":"add","data":{"title":"Meeting with John","description":"Discuss project timeline","start":1652918400000,"end":1652925600000,"allDay":false,"location":"Office"}}]

To delete an event, include a command like this:
[COMMAND:{"type":"calendar","action":"delete","data":{"id":"event-id-to-delete"}}]

To update an event, include a command like this:
[COMMAND:{"type":"calendar","action":"update","data":{"id":"event-id-to-update","title":"Updated title","description":"Updated description"}}]

User query: %s

Respond in a helpful, conversational way. If you're executing a command, explain what you're doing.
Please include all necessary details in your command, including timestamps for the event. For calendar events, convert date strings to timestamps in milliseconds.`

const bookmarksTemplate = `[CONTEXT: The user is asking about their bookmarks or wants to modify bookmarks. Bookmark context: %s]

You can create, update, or delete bookmarks by returning a command in your response.

To add a bookmark, include a command like this:
[COMMAND:{"type":"bookmark","action":"add","data":{"title":"Example Website","url":"https://example.com","description":"An example website"}}]

To delete a bookmark, include a command like this:
[COMMAND:{"type":"bookmark","action":"delete","data":{"id":"bookmark-id-to-delete"}}]

To update a bookmark, include a command like this:
[COMMAND:{"type":"bookmark","action":"update","data":{"id":"bookmark-id-to-update","title":"Updated title","description":"Updated description"}}]

User query: %s

Respond in a helpful, conversational way. If you're executing a command, explain what you're doing.`

const stocksTemplate = `[CONTEXT: The user is asking about stocks or financial information. Financial data: %s]

You can search for stock information by returning a command in your response.

To search for a stock quote, include a command like this:
[COMMAND:{"type":"stocks","action":"search","data":{"symbol":"AAPL"}}]

User query: %s

Respond in a helpful, conversational way. Provide a comprehensive analysis of the stock data provided, including current price, changes, and relevant company information if available. If no specific financial metrics are available, provide general information about the company and industry.`

const searchTemplate = `[CONTEXT: The user is asking for web search results. I've used %s to find information about "%s": %s]

User query: %s

Respond in a helpful, conversational way. Use the search results to provide an informative answer. Cite sources when appropriate by including the website name in parentheses. If articles have publication dates or authors, consider mentioning that information to provide context about how recent the information is.`

// Build renders the prompt for q. General queries pass through unchanged;
// every other source wraps the raw text in its template. When userCtx is
// non-nil its known facts are prefixed regardless of source.
func Build(q types.Query, userCtx *types.UserContext) string {
	body := render(q)
	if preamble := userPreamble(userCtx); preamble != "" {
		return preamble + "\n\n" + body
	}
	return body
}

func render(q types.Query) string {
	switch q.Source {
	case types.SourceCalendar:
		return fmt.Sprintf(calendarTemplate, contextJSON(q.Context), q.Text)
	case types.SourceBookmarks:
		return fmt.Sprintf(bookmarksTemplate, contextJSON(q.Context), q.Text)
	case types.SourceStocks:
		return fmt.Sprintf(stocksTemplate, contextJSON(q.Context), q.Text)
	case types.SourceWeather:
		return fmt.Sprintf("[CONTEXT: The user is asking about weather. Weather data: %s]\n\nUser query: %s", contextJSON(q.Context), q.Text)
	case types.SourceMusic:
		return fmt.Sprintf("[CONTEXT: The user is asking about music. Catalog results: %s]\n\nUser query: %s", contextJSON(q.Context), q.Text)
	case types.SourceNews:
		return fmt.Sprintf("[CONTEXT: The user is asking about news. News results: %s]\n\nUser query: %s. Please summarize the main points from these news articles and provide insights. Include sources when relevant.", contextJSON(q.Context), q.Text)
	case types.SourceSearch:
		return renderSearch(q)
	default:
		return q.Text
	}
}

// searchPayload is the context shape the search enrichment stage attaches;
// declared structurally here so rendering does not depend on the enricher.
type searchPayload struct {
	Results  json.RawMessage      `json:"results"`
	Query    string               `json:"query"`
	Provider types.SearchProvider `json:"provider"`
}

func renderSearch(q types.Query) string {
	raw := contextJSON(q.Context)

	var payload searchPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return fmt.Sprintf(searchTemplate, "combined web search engines", q.Text, raw, q.Text)
	}

	var providerInfo string
	switch payload.Provider {
	case types.SearchExa:
		providerInfo = "Exa search engine"
	case types.SearchSearXNG:
		providerInfo = "SearXNG search engine"
	default:
		providerInfo = "combined web search engines"
	}
	results := "[]"
	if len(payload.Results) > 0 {
		results = string(payload.Results)
	}
	return fmt.Sprintf(searchTemplate, providerInfo, payload.Query, results, q.Text)
}

func userPreamble(userCtx *types.UserContext) string {
	if userCtx == nil {
		return ""
	}
	var facts []string
	if userCtx.Location != "" {
		facts = append(facts, fmt.Sprintf("The user's location is %s.", userCtx.Location))
	}
	if len(userCtx.Topics) > 0 {
		facts = append(facts, fmt.Sprintf("The user is interested in: %s.", strings.Join(userCtx.Topics, ", ")))
	}
	if len(facts) == 0 {
		return ""
	}
	return "[USER CONTEXT: " + strings.Join(facts, " ") + "]"
}

func contextJSON(ctx any) string {
	if ctx == nil {
		return "null"
	}
	b, err := json.Marshal(ctx)
	if err != nil {
		return "null"
	}
	return string(b)
}
