package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
)

// Quote is a real-time stock quote.
type Quote struct {
	Symbol           string  `json:"symbol"`
	Price            float64 `json:"price"`
	Change           float64 `json:"change"`
	ChangePercent    float64 `json:"changePercent"`
	High             float64 `json:"high"`
	Low              float64 `json:"low"`
	Volume           int64   `json:"volume"`
	LatestTradingDay string  `json:"latestTradingDay"`
}

// Overview is company background for a symbol.
type Overview struct {
	Symbol        string `json:"Symbol"`
	Name          string `json:"Name"`
	Description   string `json:"Description"`
	Exchange      string `json:"Exchange"`
	Currency      string `json:"Currency"`
	Country       string `json:"Country"`
	Sector        string `json:"Sector"`
	Industry      string `json:"Industry"`
	MarketCap     string `json:"MarketCapitalization"`
	PERatio       string `json:"PERatio"`
	DividendYield string `json:"DividendYield"`
	EPS           string `json:"EPS"`
}

// SymbolMatch is one hit from a symbol search.
type SymbolMatch struct {
	Symbol string
	Name   string
	Region string
}

// Stocks fetches quotes and company data from an alphavantage-style API,
// whose JSON uses positional keys ("01. symbol") that are remapped here
// into typed structs.
type Stocks struct {
	client *resty.Client
	apiKey string
}

// NewStocks creates the stocks adapter.
func NewStocks(endpoint, apiKey string) *Stocks {
	return &Stocks{client: newClient(endpoint), apiKey: apiKey}
}

func (s *Stocks) query(ctx context.Context, params map[string]string) ([]byte, error) {
	req := s.client.R().SetContext(ctx).SetQueryParam("apikey", s.apiKey)
	for k, v := range params {
		req.SetQueryParam(k, v)
	}
	resp, err := req.Get("/query")
	if err != nil {
		return nil, fmt.Errorf("stocks request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("stocks status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

// Quote returns the latest quote for a symbol, or nil when the provider
// knows nothing about it.
func (s *Stocks) Quote(ctx context.Context, symbol string) (*Quote, error) {
	body, err := s.query(ctx, map[string]string{
		"function": "GLOBAL_QUOTE",
		"symbol":   symbol,
	})
	if err != nil {
		return nil, err
	}

	var envelope struct {
		GlobalQuote map[string]string `json:"Global Quote"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode quote response: %w", err)
	}
	raw := envelope.GlobalQuote
	if len(raw) == 0 {
		return nil, nil
	}

	return &Quote{
		Symbol:           raw["01. symbol"],
		Price:            parseFloat(raw["05. price"]),
		Change:           parseFloat(raw["09. change"]),
		ChangePercent:    parseFloat(strings.TrimSuffix(raw["10. change percent"], "%")),
		High:             parseFloat(raw["03. high"]),
		Low:              parseFloat(raw["04. low"]),
		Volume:           parseInt(raw["06. volume"]),
		LatestTradingDay: raw["07. latest trading day"],
	}, nil
}

// Overview returns company background for a symbol, or nil when unknown.
func (s *Stocks) Overview(ctx context.Context, symbol string) (*Overview, error) {
	body, err := s.query(ctx, map[string]string{
		"function": "OVERVIEW",
		"symbol":   symbol,
	})
	if err != nil {
		return nil, err
	}

	var ov Overview
	if err := json.Unmarshal(body, &ov); err != nil {
		return nil, fmt.Errorf("decode overview response: %w", err)
	}
	if ov.Symbol == "" {
		return nil, nil
	}
	return &ov, nil
}

// SearchSymbols resolves free-text keywords (usually a company name) to
// candidate ticker symbols, best match first.
func (s *Stocks) SearchSymbols(ctx context.Context, keywords string) ([]SymbolMatch, error) {
	body, err := s.query(ctx, map[string]string{
		"function": "SYMBOL_SEARCH",
		"keywords": keywords,
	})
	if err != nil {
		return nil, err
	}

	var envelope struct {
		BestMatches []map[string]string `json:"bestMatches"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode symbol search response: %w", err)
	}

	matches := make([]SymbolMatch, 0, len(envelope.BestMatches))
	for _, m := range envelope.BestMatches {
		matches = append(matches, SymbolMatch{
			Symbol: m["1. symbol"],
			Name:   m["2. name"],
			Region: m["4. region"],
		})
	}
	return matches, nil
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n
}
