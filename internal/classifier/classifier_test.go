package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/aide/pkg/types"
)

func TestClassify_WeatherParis(t *testing.T) {
	res := Classify("What's the weather in Paris?")
	assert.Equal(t, types.SourceWeather, res.Source)
	require.NotNil(t, res.Weather)
	assert.Equal(t, "Paris", res.Weather.Location)
}

func TestClassify_WeatherNoLocation(t *testing.T) {
	res := Classify("is the temperature dropping tonight")
	assert.Equal(t, types.SourceWeather, res.Source)
	require.NotNil(t, res.Weather)
	assert.Empty(t, res.Weather.Location)
}

func TestClassify_LastWriterWins(t *testing.T) {
	// both the stock and calendar predicates match; calendar sits later in
	// the fixed chain (stocks, search, weather, music, news, calendar,
	// bookmarks) so it must win
	res := Classify("add the AAPL stock earnings call to my calendar")
	assert.Equal(t, types.SourceCalendar, res.Source)
	require.NotNil(t, res.Stocks)
	assert.Equal(t, "AAPL", res.Stocks.Symbol)
	assert.True(t, res.Calendar)
}

func TestClassify_StockSymbolExtraction(t *testing.T) {
	tests := []struct {
		input  string
		symbol string
	}{
		{"show me the stock price MSFT", "MSFT"},
		{"how is TSLA stock doing", "TSLA"},
		{"the market symbol is NVDA", "NVDA"},
	}
	for _, tt := range tests {
		res := Classify(tt.input)
		require.NotNil(t, res.Stocks, tt.input)
		assert.Equal(t, tt.symbol, res.Stocks.Symbol, tt.input)
	}
}

func TestClassify_StockCompanyFallback(t *testing.T) {
	res := Classify("Apple's share price")
	require.NotNil(t, res.Stocks)
	assert.Empty(t, res.Stocks.Symbol)
	assert.Equal(t, "Apple", res.Stocks.Company)
}

func TestClassify_SearchTermStripping(t *testing.T) {
	res := Classify("search for the history of jazz")
	assert.Equal(t, types.SourceSearch, res.Source)
	require.NotNil(t, res.Search)
	assert.Equal(t, "the history of jazz", res.Search.Term)
}

func TestClassify_MusicTermAndRecommendations(t *testing.T) {
	res := Classify("recommend songs like Blue Train by Coltrane")
	assert.Equal(t, types.SourceMusic, res.Source)
	require.NotNil(t, res.Music)
	assert.Equal(t, "songs like Blue Train", res.Music.Term)
	assert.True(t, res.Music.Recommendations)
}

func TestClassify_NewsTopicFallback(t *testing.T) {
	res := Classify("news about climate change")
	require.NotNil(t, res.News)
	assert.Equal(t, "climate change", res.News.Topic)

	res = Classify("latest technology news")
	require.NotNil(t, res.News)
	assert.Equal(t, "technology", res.News.Topic)
}

func TestClassify_BookmarkVerbs(t *testing.T) {
	res := Classify("bookmark this page")
	assert.Equal(t, types.SourceBookmarks, res.Source)
	assert.True(t, res.Bookmarks)

	res = Classify("show my bookmarks")
	assert.False(t, res.Bookmarks)
}

func TestClassify_NoMatchIsGeneral(t *testing.T) {
	res := Classify("hello there")
	assert.Equal(t, types.SourceGeneral, res.Source)
	assert.Nil(t, res.Stocks)
	assert.Nil(t, res.Search)
	assert.Nil(t, res.Weather)
	assert.Nil(t, res.Music)
	assert.Nil(t, res.News)
	assert.False(t, res.Calendar)
	assert.False(t, res.Bookmarks)
}

func TestPickSearchProvider(t *testing.T) {
	tests := []struct {
		input string
		want  types.SearchProvider
	}{
		{"find research papers on transformers", types.SearchExa},
		{"what is the capital of France", types.SearchExa},
		{"latest golang release", types.SearchSearXNG},
		{"look up chess openings", types.SearchCombined},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PickSearchProvider(tt.input), tt.input)
	}
}
