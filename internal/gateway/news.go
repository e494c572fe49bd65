package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// Article is one news item from the headlines feed.
type Article struct {
	Title       string   `json:"title"`
	Link        string   `json:"link"`
	Description string   `json:"description"`
	PubDate     string   `json:"pubDate"`
	SourceID    string   `json:"source_id"`
	Creator     []string `json:"creator,omitempty"`
	Category    []string `json:"category,omitempty"`
}

// News fetches headlines from a newsdata-style API.
type News struct {
	client   *resty.Client
	apiKey   string
	language string
}

// NewNews creates the news adapter. Language defaults to English.
func NewNews(endpoint, apiKey string) *News {
	return &News{client: newClient(endpoint), apiKey: apiKey, language: "en"}
}

type newsResponse struct {
	Status       string    `json:"status"`
	TotalResults int       `json:"totalResults"`
	Results      []Article `json:"results"`
}

// Headlines returns articles matching a topic. An empty slice means the
// feed had nothing for it; that is not an error.
func (n *News) Headlines(ctx context.Context, topic string) ([]Article, error) {
	resp, err := n.client.R().
		SetContext(ctx).
		SetQueryParam("apikey", n.apiKey).
		SetQueryParam("q", topic).
		SetQueryParam("language", n.language).
		Get("/news")
	if err != nil {
		return nil, fmt.Errorf("news request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("news status %d", resp.StatusCode())
	}

	var body newsResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("decode news response: %w", err)
	}
	if body.Status != "success" {
		return nil, fmt.Errorf("news provider status %q", body.Status)
	}
	return body.Results, nil
}
