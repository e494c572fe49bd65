package assistant

import (
	"regexp"
	"strings"
)

// Preference learning mines user turns for durable facts: a stated home
// location, recurring topics of interest, an explicit provider choice.
// Learned values persist across sessions via the PreferenceStore.

var (
	locationPattern = regexp.MustCompile(`(?i)(?:i am|i'm|i live) in ([a-zA-Z\s,]+)`)
	topicPattern    = regexp.MustCompile(`(?i)(?:i like|i'm interested in|tell me about) ([a-zA-Z\s,]+)`)

	providerSwitchPattern = regexp.MustCompile(`(?i)^(?:use|switch to) ([a-z]+)$`)
)

// knownProviders guards the switch phrase against arbitrary words.
var knownProviders = map[string]bool{
	"gemini": true,
	"playai": true,
}

// ExtractedPreferences is what one user turn taught us.
type ExtractedPreferences struct {
	Location string
	Topic    string
}

// ExtractPreferences mines a single user turn.
func ExtractPreferences(text string) ExtractedPreferences {
	var out ExtractedPreferences
	if m := locationPattern.FindStringSubmatch(text); m != nil {
		out.Location = strings.TrimSpace(m[1])
	}
	if m := topicPattern.FindStringSubmatch(text); m != nil {
		out.Topic = strings.ToLower(strings.TrimSpace(m[1]))
	}
	return out
}

func (c *Conversation) learnPreferences(text string) {
	if c.prefs == nil {
		return
	}
	learned := ExtractPreferences(text)
	if learned.Location != "" {
		c.prefs.SetLocation(learned.Location)
	}
	if learned.Topic != "" {
		c.prefs.AddTopic(learned.Topic)
	}
}

// matchProviderSwitch recognizes a turn that is nothing but a provider
// switch ("use playai"). Those turns never reach the model.
func matchProviderSwitch(text string) (string, bool) {
	m := providerSwitchPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", false
	}
	provider := strings.ToLower(m[1])
	if !knownProviders[provider] {
		return "", false
	}
	return provider, true
}

// wantsAlternate reports whether a longer turn asks for the alternate
// provider in passing ("summarize this, use playai").
func wantsAlternate(text, alternateName string) bool {
	if alternateName == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), "use "+strings.ToLower(alternateName))
}
