package llm

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// MetricsProvider wraps a provider with call accounting. It is transparent
// to callers and safe for concurrent use.
type MetricsProvider struct {
	provider Provider

	totalCalls  int64
	totalErrors int64
	totalTokens int64

	mu           sync.RWMutex
	totalLatency time.Duration
	minLatency   time.Duration
	maxLatency   time.Duration
	lastError    string
}

// WithMetrics wraps p in a MetricsProvider.
func WithMetrics(p Provider) *MetricsProvider {
	return &MetricsProvider{provider: p}
}

// Name returns the wrapped provider's identifier.
func (m *MetricsProvider) Name() string { return m.provider.Name() }

// Available delegates to the wrapped provider.
func (m *MetricsProvider) Available() bool { return m.provider.Available() }

// Chat delegates to the wrapped provider, recording latency and outcome.
func (m *MetricsProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()
	resp, err := m.provider.Chat(ctx, req)
	elapsed := time.Since(start)

	atomic.AddInt64(&m.totalCalls, 1)

	m.mu.Lock()
	m.totalLatency += elapsed
	if m.minLatency == 0 || elapsed < m.minLatency {
		m.minLatency = elapsed
	}
	if elapsed > m.maxLatency {
		m.maxLatency = elapsed
	}
	if err != nil {
		m.lastError = err.Error()
	}
	m.mu.Unlock()

	if err != nil {
		atomic.AddInt64(&m.totalErrors, 1)
		log.Debug().Err(err).Str("provider", m.Name()).Dur("latency", elapsed).Msg("model call failed")
		return nil, err
	}

	atomic.AddInt64(&m.totalTokens, int64(resp.TokensUsed))
	log.Debug().Str("provider", m.Name()).Dur("latency", elapsed).Int("tokens", resp.TokensUsed).Msg("model call ok")
	return resp, nil
}

// Stats is a point-in-time snapshot of a provider's counters.
type Stats struct {
	Provider   string        `json:"provider"`
	Calls      int64         `json:"calls"`
	Errors     int64         `json:"errors"`
	Tokens     int64         `json:"tokens"`
	AvgLatency time.Duration `json:"avg_latency"`
	MinLatency time.Duration `json:"min_latency"`
	MaxLatency time.Duration `json:"max_latency"`
	LastError  string        `json:"last_error,omitempty"`
}

// Snapshot returns the current counters.
func (m *MetricsProvider) Snapshot() Stats {
	calls := atomic.LoadInt64(&m.totalCalls)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var avg time.Duration
	if calls > 0 {
		avg = m.totalLatency / time.Duration(calls)
	}
	return Stats{
		Provider:   m.Name(),
		Calls:      calls,
		Errors:     atomic.LoadInt64(&m.totalErrors),
		Tokens:     atomic.LoadInt64(&m.totalTokens),
		AvgLatency: avg,
		MinLatency: m.minLatency,
		MaxLatency: m.maxLatency,
		LastError:  m.lastError,
	}
}

// Registry keeps the metrics-wrapped providers by name so the CLI can list
// per-provider counters.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*MetricsProvider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]*MetricsProvider)}
}

// Register wraps p with metrics, stores it, and returns the wrapper.
func (r *Registry) Register(p Provider) *MetricsProvider {
	wrapped := WithMetrics(p)
	r.mu.Lock()
	r.providers[p.Name()] = wrapped
	r.mu.Unlock()
	return wrapped
}

// Get returns the wrapped provider by name.
func (r *Registry) Get(name string) (*MetricsProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// SnapshotAll returns stats for every registered provider.
func (r *Registry) SnapshotAll() []Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make([]Stats, 0, len(r.providers))
	for _, p := range r.providers {
		stats = append(stats, p.Snapshot())
	}
	return stats
}
