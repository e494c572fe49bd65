package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geminiConfig(endpoint string) *ProviderConfig {
	return &ProviderConfig{Endpoint: endpoint, APIKey: "test-key", Model: "gemini-1.5-pro"}
}

func TestGemini_ChatWireFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-1.5-pro:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.Query().Get("key"), "key must never ride in the URL")

		var req geminiGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 2)
		assert.Equal(t, "user", req.Contents[0].Role)
		assert.Equal(t, "model", req.Contents[1].Role, "assistant role must map to model")

		w.Write([]byte(`{
			"candidates": [{"content": {"parts": [{"text": "hello "}, {"text": "world"}], "role": "model"}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 7, "candidatesTokenCount": 3}
		}`))
	}))
	defer srv.Close()

	p := NewGeminiProvider(geminiConfig(srv.URL))
	resp, err := p.Chat(context.Background(), &ChatRequest{
		Messages: []Message{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hey"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello world", resp.Content)
	assert.Equal(t, 10, resp.TokensUsed)
	assert.Equal(t, "STOP", resp.FinishReason)
}

func TestGemini_ErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		kind   ErrorKind
	}{
		{http.StatusTooManyRequests, RateLimited},
		{http.StatusUnauthorized, InvalidCredential},
		{http.StatusForbidden, InvalidCredential},
		{http.StatusInternalServerError, RequestFailed},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			w.Write([]byte(`{"error": "nope"}`))
		}))

		p := NewGeminiProvider(geminiConfig(srv.URL))
		_, err := p.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}})
		require.Error(t, err)

		var classified *Error
		require.True(t, errors.As(err, &classified), "status %d", tt.status)
		assert.Equal(t, tt.kind, classified.Kind, "status %d", tt.status)
		assert.Equal(t, tt.status, classified.Status)
		srv.Close()
	}
}

func TestGemini_MissingKeyIsInvalidCredential(t *testing.T) {
	p := NewGeminiProvider(&ProviderConfig{Endpoint: "http://unused.invalid"})
	assert.False(t, p.Available())

	_, err := p.Chat(context.Background(), &ChatRequest{})
	assert.True(t, IsInvalidCredential(err))
}

func TestPlayAI_ChatWireFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat", r.URL.Path)
		assert.Equal(t, "Bearer play-key", r.Header.Get("Authorization"))

		var req playAIChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "user-1", req.UserID)
		assert.Equal(t, "gpt-4o", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[0].Content, "[Context for this conversation]")
		assert.Equal(t, "user", req.Messages[0].Role)

		w.Write([]byte(`{"id": "c1", "message": {"role": "assistant", "content": "sure thing"}}`))
	}))
	defer srv.Close()

	p := NewPlayAIProvider(&ProviderConfig{Endpoint: srv.URL, APIKey: "play-key", UserID: "user-1"})
	resp, err := p.Chat(context.Background(), &ChatRequest{
		SystemPrompt: "the user lives in Lisbon",
		Messages:     []Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "sure thing", resp.Content)
}

type scriptedProvider struct {
	name      string
	available bool
	resp      *ChatResponse
	err       error
	calls     int
}

func (s *scriptedProvider) Chat(context.Context, *ChatRequest) (*ChatResponse, error) {
	s.calls++
	return s.resp, s.err
}

func (s *scriptedProvider) Name() string    { return s.name }
func (s *scriptedProvider) Available() bool { return s.available }

func TestChain_FallsThroughToNextProvider(t *testing.T) {
	failing := &scriptedProvider{name: "a", available: true, err: &Error{Kind: RateLimited, Provider: "a"}}
	working := &scriptedProvider{name: "b", available: true, resp: &ChatResponse{Content: "ok"}}

	chain := NewChain(failing, working)
	resp, err := chain.Chat(context.Background(), &ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, working.calls)
}

func TestChain_SkipsUnavailableProviders(t *testing.T) {
	unconfigured := &scriptedProvider{name: "a", available: false}
	working := &scriptedProvider{name: "b", available: true, resp: &ChatResponse{Content: "ok"}}

	chain := NewChain(unconfigured, working)
	_, err := chain.Chat(context.Background(), &ChatRequest{})
	require.NoError(t, err)
	assert.Zero(t, unconfigured.calls)
}

func TestChain_ReturnsLastError(t *testing.T) {
	first := &scriptedProvider{name: "a", available: true, err: &Error{Kind: RateLimited, Provider: "a"}}
	second := &scriptedProvider{name: "b", available: true, err: &Error{Kind: InvalidCredential, Provider: "b"}}

	chain := NewChain(first, second)
	_, err := chain.Chat(context.Background(), &ChatRequest{})
	require.Error(t, err)
	assert.True(t, IsInvalidCredential(err))
}

func TestChain_NoProvidersConfigured(t *testing.T) {
	chain := NewChain(&scriptedProvider{name: "a", available: false})
	assert.False(t, chain.Available())

	_, err := chain.Chat(context.Background(), &ChatRequest{})
	require.Error(t, err)
	assert.Equal(t, RequestFailed, KindOf(err))
}

func TestMetrics_CountsCallsAndErrors(t *testing.T) {
	inner := &scriptedProvider{name: "a", available: true, resp: &ChatResponse{Content: "ok", TokensUsed: 12}}
	wrapped := WithMetrics(inner)

	_, err := wrapped.Chat(context.Background(), &ChatRequest{})
	require.NoError(t, err)

	inner.resp = nil
	inner.err = &Error{Kind: RequestFailed, Provider: "a", Message: "boom"}
	_, err = wrapped.Chat(context.Background(), &ChatRequest{})
	require.Error(t, err)

	stats := wrapped.Snapshot()
	assert.Equal(t, int64(2), stats.Calls)
	assert.Equal(t, int64(1), stats.Errors)
	assert.Equal(t, int64(12), stats.Tokens)
	assert.Contains(t, stats.LastError, "boom")
}

func TestRegistry_SnapshotAll(t *testing.T) {
	reg := NewRegistry()
	a := reg.Register(&scriptedProvider{name: "a", available: true, resp: &ChatResponse{Content: "ok"}})
	reg.Register(&scriptedProvider{name: "b", available: true})

	_, _ = a.Chat(context.Background(), &ChatRequest{})

	got, ok := reg.Get("a")
	require.True(t, ok)
	assert.Equal(t, int64(1), got.Snapshot().Calls)
	assert.Len(t, reg.SnapshotAll(), 2)
}
