package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/normanking/aide/pkg/types"
)

// SearchResult is one normalized web search hit, regardless of backend.
type SearchResult struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Snippet  string `json:"snippet"`
	Date     string `json:"date,omitempty"`
	Author   string `json:"author,omitempty"`
	Source   string `json:"source,omitempty"`
	Provider string `json:"provider"`
}

const maxSearchResults = 10

// Search composes two web search backends: a SearXNG instance and the Exa
// API. Combined mode queries SearXNG first and falls back to Exa only when
// SearXNG returns zero results; the single-provider entry points exist so
// an explicit provider preference is honored exactly.
type Search struct {
	searxng *resty.Client
	exa     *resty.Client
	exaKey  string
}

// NewSearch creates the composed search adapter.
func NewSearch(searxngEndpoint, exaEndpoint, exaKey string) *Search {
	return &Search{
		searxng: newClient(searxngEndpoint),
		exa:     newClient(exaEndpoint),
		exaKey:  exaKey,
	}
}

// Run dispatches to the backend named by choice. An unrecognized choice
// behaves as combined.
func (s *Search) Run(ctx context.Context, term string, choice types.SearchProvider) ([]SearchResult, error) {
	switch choice {
	case types.SearchSearXNG:
		return s.SearXNG(ctx, term)
	case types.SearchExa:
		return s.Exa(ctx, term)
	default:
		return s.Combined(ctx, term)
	}
}

// Combined tries SearXNG first; Exa serves only as the zero-result fallback.
func (s *Search) Combined(ctx context.Context, term string) ([]SearchResult, error) {
	results, err := s.SearXNG(ctx, term)
	if err != nil {
		log.Debug().Err(err).Msg("searxng failed, falling back to exa")
	} else if len(results) > 0 {
		return results, nil
	}
	return s.Exa(ctx, term)
}

type searxngResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
		Engine  string `json:"engine"`
	} `json:"results"`
}

// SearXNG queries the SearXNG JSON endpoint.
func (s *Search) SearXNG(ctx context.Context, term string) ([]SearchResult, error) {
	resp, err := s.searxng.R().
		SetContext(ctx).
		SetQueryParam("q", term).
		SetQueryParam("format", "json").
		Get("/search")
	if err != nil {
		return nil, fmt.Errorf("searxng request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("searxng status %d", resp.StatusCode())
	}

	var body searxngResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("decode searxng response: %w", err)
	}

	results := make([]SearchResult, 0, len(body.Results))
	for _, r := range body.Results {
		if len(results) == maxSearchResults {
			break
		}
		results = append(results, SearchResult{
			Title:    orDefault(r.Title, "No Title"),
			URL:      r.URL,
			Snippet:  r.Content,
			Source:   hostOf(r.URL),
			Provider: string(types.SearchSearXNG),
		})
	}
	return results, nil
}

type exaRequest struct {
	Query         string `json:"query"`
	NumResults    int    `json:"numResults"`
	Highlights    bool   `json:"highlights"`
	UseAutoprompt bool   `json:"useAutoprompt"`
}

type exaResponse struct {
	Results []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		Text          string `json:"text"`
		Snippet       string `json:"snippet"`
		PublishedDate string `json:"publishedDate"`
		Author        string `json:"author"`
	} `json:"results"`
}

// Exa queries the Exa search API.
func (s *Search) Exa(ctx context.Context, term string) ([]SearchResult, error) {
	resp, err := s.exa.R().
		SetContext(ctx).
		SetHeader("X-API-Key", s.exaKey).
		SetBody(&exaRequest{
			Query:         term,
			NumResults:    maxSearchResults,
			Highlights:    true,
			UseAutoprompt: true,
		}).
		Post("/search")
	if err != nil {
		return nil, fmt.Errorf("exa request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("exa status %d", resp.StatusCode())
	}

	var body exaResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("decode exa response: %w", err)
	}

	results := make([]SearchResult, 0, len(body.Results))
	for _, r := range body.Results {
		snippet := r.Text
		if snippet == "" {
			snippet = r.Snippet
		}
		results = append(results, SearchResult{
			Title:    orDefault(r.Title, "No Title"),
			URL:      r.URL,
			Snippet:  snippet,
			Date:     r.PublishedDate,
			Author:   r.Author,
			Source:   hostOf(r.URL),
			Provider: string(types.SearchExa),
		})
	}
	return results, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
