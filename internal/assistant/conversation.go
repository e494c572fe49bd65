// Package assistant orchestrates one conversation: it walks each user turn
// through classification, enrichment, prompt building, the model call and
// command execution, and owns the transcript those steps append to.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/normanking/aide/internal/classifier"
	"github.com/normanking/aide/internal/command"
	"github.com/normanking/aide/internal/llm"
	"github.com/normanking/aide/internal/prompt"
	"github.com/normanking/aide/pkg/types"
)

// ErrBusy is returned when a turn arrives while another is still in flight.
// There is no queue: one turn runs end-to-end before the next may begin.
var ErrBusy = errors.New("a message is already being processed")

const apologyText = "I'm sorry, I wasn't able to get a response right now. Please try again in a moment."

// QueryEnricher attaches external context to a classified query.
type QueryEnricher interface {
	Enrich(ctx context.Context, q types.Query, intents classifier.Result) types.Query
}

// CommandRunner applies a parsed command and describes the outcome.
type CommandRunner interface {
	Execute(ctx context.Context, cmd *command.Command) string
}

// PreferenceStore persists learned user preferences.
type PreferenceStore interface {
	Load() types.Preferences
	SetLocation(location string)
	AddTopic(topic string)
	SetAIProvider(provider string)
}

// Notifier surfaces out-of-band failure notices (the UI toast equivalent).
type Notifier interface {
	Notify(title, body string)
}

// Conversation is one chat session. It is safe for concurrent callers in
// the sense that a second Send while one is running is rejected, never
// interleaved.
type Conversation struct {
	enricher  QueryEnricher
	executor  CommandRunner
	prefs     PreferenceStore
	notifier  Notifier
	primary   llm.Provider
	alternate llm.Provider

	mu       sync.Mutex
	busy     bool
	messages []types.Message
	failures int // consecutive model failures, reset on success
}

// New creates a Conversation. primary and alternate are the two model
// providers; the stored ai_provider preference picks which one leads.
func New(enricher QueryEnricher, executor CommandRunner, prefs PreferenceStore, notifier Notifier, primary, alternate llm.Provider) *Conversation {
	return &Conversation{
		enricher:  enricher,
		executor:  executor,
		prefs:     prefs,
		notifier:  notifier,
		primary:   primary,
		alternate: alternate,
	}
}

// Messages returns a copy of the transcript.
func (c *Conversation) Messages() []types.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Send processes one user turn and returns the resulting assistant (or
// system) message. A model failure still yields a message, flagged IsError.
func (c *Conversation) Send(ctx context.Context, text string) (types.Message, error) {
	if err := c.acquire(); err != nil {
		return types.Message{}, err
	}
	defer c.release()

	return c.run(ctx, text, false)
}

// RetryLast re-submits the most recent user message. On success the most
// recent assistant message is replaced in place, so a failed turn never
// leaves a duplicate.
func (c *Conversation) RetryLast(ctx context.Context) (types.Message, error) {
	if err := c.acquire(); err != nil {
		return types.Message{}, err
	}
	defer c.release()

	text, ok := c.lastUserText()
	if !ok {
		return types.Message{}, errors.New("no user message to retry")
	}
	return c.run(ctx, text, true)
}

func (c *Conversation) acquire() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrBusy
	}
	c.busy = true
	return nil
}

func (c *Conversation) release() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

func (c *Conversation) run(ctx context.Context, text string, retry bool) (types.Message, error) {
	if !retry {
		c.learnPreferences(text)

		if provider, ok := matchProviderSwitch(text); ok {
			c.append(types.Message{Role: types.RoleUser, Text: text})
			if c.prefs != nil {
				c.prefs.SetAIProvider(provider)
			}
			msg := c.append(types.Message{
				Role: types.RoleSystem,
				Text: fmt.Sprintf("Switched AI provider to %s.", provider),
			})
			return msg, nil
		}

		c.append(types.Message{Role: types.RoleUser, Text: text})
	}

	q := types.NewQuery(text)
	q.UseAlternate = wantsAlternate(text, c.alternateName())
	if c.prefs != nil {
		// a stored search preference beats the classifier's heuristic
		q.SearchProvider = types.SearchProvider(c.prefs.Load().SearchProvider)
	}

	intents := classifier.Classify(text)
	if c.enricher != nil {
		q = c.enricher.Enrich(ctx, q, intents)
	}

	promptText := prompt.Build(q, c.userContext())

	resp, err := c.chat(ctx, promptText, q.UseAlternate)
	if err != nil {
		return c.recordFailure(err, retry), nil
	}
	c.mu.Lock()
	c.failures = 0
	c.mu.Unlock()

	clean, cmd := command.Parse(resp.Content)
	assistantText := clean

	if cmd != nil && c.executor != nil {
		result := c.executor.Execute(ctx, cmd)
		c.append(types.Message{Role: types.RoleSystem, Text: result})

		marker := "✅"
		if isFailureResult(result) {
			marker = "❌"
		}
		assistantText = strings.TrimSpace(assistantText + "\n\n" + marker + " " + result)
	}

	msg := types.Message{
		Role:      types.RoleAssistant,
		Text:      assistantText,
		SourceTag: string(q.Source),
	}
	if retry {
		return c.replaceLastAssistant(msg), nil
	}
	return c.append(msg), nil
}

// chat orders the two providers for this turn and walks the chain.
func (c *Conversation) chat(ctx context.Context, promptText string, useAlternate bool) (*llm.ChatResponse, error) {
	first, second := c.primary, c.alternate
	if c.preferredProvider() == c.alternateName() {
		first, second = second, first
	}
	if useAlternate {
		first, second = c.alternate, c.primary
	}

	providers := make([]llm.Provider, 0, 2)
	if first != nil {
		providers = append(providers, first)
	}
	if second != nil {
		providers = append(providers, second)
	}
	chain := llm.NewChain(providers...)

	return chain.Chat(ctx, &llm.ChatRequest{
		Messages: append(c.history(), llm.Message{Role: "user", Content: promptText}),
	})
}

// history converts the prior transcript into model messages, skipping
// error placeholders and system notices.
func (c *Conversation) history() []llm.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []llm.Message
	for _, m := range c.messages {
		if m.IsError || m.Role == types.RoleSystem {
			continue
		}
		out = append(out, llm.Message{Role: string(m.Role), Content: m.Text})
	}
	// the current user message is re-sent as the built prompt
	if n := len(out); n > 0 && out[n-1].Role == string(types.RoleUser) {
		out = out[:n-1]
	}
	return out
}

func (c *Conversation) recordFailure(err error, retry bool) types.Message {
	c.mu.Lock()
	c.failures++
	priorFailures := c.failures - 1
	c.mu.Unlock()

	log.Error().Err(err).Int("consecutive", priorFailures+1).Msg("model call failed")
	c.notifyFailure(err, priorFailures)

	msg := types.Message{
		Role:    types.RoleAssistant,
		Text:    apologyText,
		IsError: true,
	}
	if retry {
		return c.replaceLastAssistant(msg)
	}
	return c.append(msg)
}

func (c *Conversation) notifyFailure(err error, priorFailures int) {
	if c.notifier == nil {
		return
	}
	if priorFailures >= 2 {
		c.notifier.Notify("Still can't reach the AI service",
			"Several attempts in a row have failed. Please check your API credentials in the settings.")
		return
	}
	switch llm.KindOf(err) {
	case llm.RateLimited:
		c.notifier.Notify("AI request failed", "The provider is rate limiting requests. Try again shortly.")
	case llm.InvalidCredential:
		c.notifier.Notify("AI request failed", "The provider rejected the API key.")
	default:
		c.notifier.Notify("AI request failed", "The request could not be completed. Try again.")
	}
}

func (c *Conversation) append(msg types.Message) types.Message {
	msg.ID = uuid.NewString()
	msg.CreatedAt = types.NowMillis()

	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
	return msg
}

// replaceLastAssistant swaps the most recent assistant message for msg,
// keeping its position in the transcript. With no assistant message yet it
// appends instead.
func (c *Conversation) replaceLastAssistant(msg types.Message) types.Message {
	msg.ID = uuid.NewString()
	msg.CreatedAt = types.NowMillis()

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == types.RoleAssistant {
			c.messages[i] = msg
			return msg
		}
	}
	c.messages = append(c.messages, msg)
	return msg
}

func (c *Conversation) lastUserText() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == types.RoleUser {
			return c.messages[i].Text, true
		}
	}
	return "", false
}

func (c *Conversation) userContext() *types.UserContext {
	if c.prefs == nil {
		return nil
	}
	p := c.prefs.Load()
	if p.DefaultLocation == "" && len(p.PreferredTopics) == 0 {
		return nil
	}
	return &types.UserContext{Location: p.DefaultLocation, Topics: p.PreferredTopics}
}

func (c *Conversation) preferredProvider() string {
	if c.prefs == nil {
		return ""
	}
	return c.prefs.Load().AIProvider
}

func (c *Conversation) alternateName() string {
	if c.alternate == nil {
		return ""
	}
	return c.alternate.Name()
}

func isFailureResult(result string) bool {
	return strings.HasPrefix(result, "Could not") ||
		strings.HasPrefix(result, "Error") ||
		strings.HasPrefix(result, "Failed")
}
