package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/normanking/aide/pkg/types"
)

func TestBuild_GeneralPassesThrough(t *testing.T) {
	q := types.NewQuery("hello there")
	assert.Equal(t, "hello there", Build(q, nil))
}

func TestBuild_CalendarEmbedsCommandGrammar(t *testing.T) {
	q := types.NewQuery("add a meeting tomorrow").
		WithContext(types.SourceCalendar, []types.CalendarEvent{{ID: "e1", Title: "Standup"}})

	out := Build(q, nil)
	assert.Contains(t, out, `[COMMAND:{"type":"calendar","action":"add"`)
	assert.Contains(t, out, `[COMMAND:{"type":"calendar","action":"delete"`)
	assert.Contains(t, out, `[COMMAND:{"type":"calendar","action":"update"`)
	assert.Contains(t, out, `"Standup"`)
	assert.Contains(t, out, "User query: add a meeting tomorrow")
	assert.Contains(t, out, "timestamps in milliseconds")
}

func TestBuild_BookmarksEmbedsCommandGrammar(t *testing.T) {
	q := types.NewQuery("save this link").
		WithContext(types.SourceBookmarks, []types.Bookmark{})

	out := Build(q, nil)
	assert.Contains(t, out, `[COMMAND:{"type":"bookmark","action":"add"`)
	assert.Contains(t, out, "User query: save this link")
}

func TestBuild_StocksEmbedsSearchCommand(t *testing.T) {
	q := types.NewQuery("how is AAPL doing").
		WithContext(types.SourceStocks, map[string]string{"symbol": "AAPL"})

	out := Build(q, nil)
	assert.Contains(t, out, `[COMMAND:{"type":"stocks","action":"search","data":{"symbol":"AAPL"}}]`)
}

func TestBuild_SearchNamesProviderAndCitations(t *testing.T) {
	payload := map[string]any{
		"results":  []map[string]string{{"title": "Go", "url": "https://go.dev"}},
		"query":    "golang",
		"provider": "exa",
	}
	q := types.NewQuery("search for golang").WithContext(types.SourceSearch, payload)

	out := Build(q, nil)
	assert.Contains(t, out, "Exa search engine")
	assert.Contains(t, out, `"golang"`)
	assert.Contains(t, out, "Cite sources")
}

func TestBuild_NewsAsksForSummaries(t *testing.T) {
	q := types.NewQuery("news about go").WithContext(types.SourceNews, []string{})
	out := Build(q, nil)
	assert.Contains(t, out, "summarize the main points")
	assert.Contains(t, out, "Include sources when relevant")
}

func TestBuild_UserContextPrefixedToEveryTemplate(t *testing.T) {
	userCtx := &types.UserContext{Location: "Lisbon", Topics: []string{"jazz", "golang"}}

	general := Build(types.NewQuery("hi"), userCtx)
	assert.True(t, strings.HasPrefix(general, "[USER CONTEXT:"))
	assert.Contains(t, general, "Lisbon")
	assert.Contains(t, general, "jazz, golang")

	weather := Build(types.NewQuery("weather?").WithContext(types.SourceWeather, nil), userCtx)
	assert.True(t, strings.HasPrefix(weather, "[USER CONTEXT:"))
}

func TestBuild_EmptyUserContextAddsNothing(t *testing.T) {
	out := Build(types.NewQuery("hi"), &types.UserContext{})
	assert.Equal(t, "hi", out)
}

func TestBuild_IsPure(t *testing.T) {
	q := types.NewQuery("weather in Oslo").WithContext(types.SourceWeather, map[string]int{"temp": 3})
	first := Build(q, nil)
	second := Build(q, nil)
	assert.Equal(t, first, second)
}
