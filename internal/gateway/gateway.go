// Package gateway holds one adapter per external capability: weather,
// news, stocks, web search, and music. Every adapter follows the same
// contract: typed parameters in, typed data (or nil / an empty slice,
// meaning "no data") out, and an error only for transport or provider
// failures. Gateways never retry; callers decide what absence of data
// means for the turn being enriched.
package gateway

import (
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 15 * time.Second

// newClient builds the shared resty client used by all adapters.
func newClient(baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetTimeout(defaultTimeout)
}
