package store

import (
	"encoding/json"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/normanking/aide/pkg/types"
)

const preferencesKey = "preferences"

// Prefs persists the user preference blob.
type Prefs struct {
	blobs *Blobs
}

// NewPrefs binds the preference blob.
func NewPrefs(blobs *Blobs) *Prefs {
	return &Prefs{blobs: blobs}
}

// Load returns the stored preferences. A missing or corrupt blob yields
// zero-value preferences; this never fails.
func (p *Prefs) Load() types.Preferences {
	var prefs types.Preferences

	raw, err := p.blobs.Get(preferencesKey)
	if err != nil {
		log.Error().Err(err).Msg("preferences read failed")
		return prefs
	}
	if raw == nil {
		return prefs
	}
	if err := json.Unmarshal(raw, &prefs); err != nil {
		p.blobs.Quarantine(preferencesKey, raw, []byte("{}"))
		return types.Preferences{}
	}
	return prefs
}

// Save writes the preference blob.
func (p *Prefs) Save(prefs types.Preferences) {
	raw, err := json.Marshal(prefs)
	if err != nil {
		log.Error().Err(err).Msg("preferences encode failed")
		return
	}
	if err := p.blobs.Put(preferencesKey, raw); err != nil {
		log.Error().Err(err).Msg("preferences write failed")
	}
}

// SetLocation records a learned default location.
func (p *Prefs) SetLocation(location string) {
	prefs := p.Load()
	prefs.DefaultLocation = location
	p.Save(prefs)
}

// AddTopic records a learned topic of interest, once.
func (p *Prefs) AddTopic(topic string) {
	prefs := p.Load()
	if slices.Contains(prefs.PreferredTopics, topic) {
		return
	}
	prefs.PreferredTopics = append(prefs.PreferredTopics, topic)
	p.Save(prefs)
}

// SetAIProvider records the user's chosen model provider.
func (p *Prefs) SetAIProvider(provider string) {
	prefs := p.Load()
	prefs.AIProvider = provider
	p.Save(prefs)
}

// SetSearchProvider records the user's chosen web search provider.
func (p *Prefs) SetSearchProvider(provider string) {
	prefs := p.Load()
	prefs.SearchProvider = provider
	p.Save(prefs)
}
