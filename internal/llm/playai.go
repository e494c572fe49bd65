package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// PlayAIProvider implements the Provider interface for the PlayAI
// conversation API. PlayAI has no system-instruction field, so a non-empty
// SystemPrompt is prepended as the first user-visible context message.
type PlayAIProvider struct {
	baseProvider
}

// NewPlayAIProvider creates a new PlayAI provider.
func NewPlayAIProvider(cfg *ProviderConfig) *PlayAIProvider {
	return &PlayAIProvider{
		baseProvider: newBaseProvider(cfg, "playai"),
	}
}

// Chat sends a chat request to PlayAI.
func (p *PlayAIProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if p.config.APIKey == "" {
		return nil, &Error{Kind: InvalidCredential, Provider: p.Name(), Message: "API key not configured"}
	}

	start := time.Now()

	model := req.Model
	if model == "" {
		model = p.config.Model
	}

	playReq := playAIChatRequest{
		UserID: p.config.UserID,
		Model:  model,
	}
	if req.SystemPrompt != "" {
		playReq.Messages = append(playReq.Messages, playAIMessage{
			Role:    "user",
			Content: "[Context for this conversation]\n" + req.SystemPrompt,
		})
	}
	for _, msg := range req.Messages {
		role := msg.Role
		if role == "system" {
			role = "user"
		}
		playReq.Messages = append(playReq.Messages, playAIMessage{Role: role, Content: msg.Content})
	}

	body, err := json.Marshal(playReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.config.Endpoint+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, transportError(p.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := readLimitedBody(resp.Body, MaxErrorBodySize)
		return nil, statusError(p.Name(), resp.StatusCode, bodyBytes)
	}

	var playResp playAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&playResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if playResp.Message.Content == "" {
		return nil, &Error{Kind: RequestFailed, Provider: p.Name(), Message: "empty message in response"}
	}

	return &ChatResponse{
		Content:  playResp.Message.Content,
		Model:    model,
		Duration: time.Since(start),
	}, nil
}

// PlayAI API types
type playAIChatRequest struct {
	UserID   string          `json:"user_id"`
	Messages []playAIMessage `json:"messages"`
	Model    string          `json:"model"`
}

type playAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type playAIChatResponse struct {
	ID      string `json:"id"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
}
