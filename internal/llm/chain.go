package llm

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Chain tries a fixed, ordered list of providers until one succeeds.
// Unconfigured providers are skipped; when every provider fails the last
// classified error is returned so the caller sees the most recent failure
// mode, not the first.
type Chain struct {
	providers []Provider
}

// NewChain builds a fallback chain. Order is significant.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Name returns the chain identifier.
func (c *Chain) Name() string { return "chain" }

// Available reports whether at least one provider is configured.
func (c *Chain) Available() bool {
	for _, p := range c.providers {
		if p.Available() {
			return true
		}
	}
	return false
}

// Chat walks the chain in order.
func (c *Chain) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	var lastErr error
	for _, p := range c.providers {
		if !p.Available() {
			continue
		}
		resp, err := p.Chat(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		log.Warn().Err(err).Str("provider", p.Name()).Msg("provider failed, trying next")

		if ctx.Err() != nil {
			break
		}
	}
	if lastErr == nil {
		lastErr = &Error{Kind: RequestFailed, Provider: c.Name(), Message: "no provider configured"}
	}
	return nil, lastErr
}
