package assistant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/aide/internal/classifier"
	"github.com/normanking/aide/internal/command"
	"github.com/normanking/aide/internal/llm"
	"github.com/normanking/aide/internal/store"
	"github.com/normanking/aide/pkg/types"
)

type fakeProvider struct {
	name    string
	replies []string
	errs    []error
	calls   int
	block   chan struct{}
	started chan struct{}
}

func (f *fakeProvider) Chat(context.Context, *llm.ChatRequest) (*llm.ChatResponse, error) {
	if f.started != nil {
		close(f.started)
		f.started = nil
	}
	if f.block != nil {
		<-f.block
	}
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	reply := "ok"
	if i < len(f.replies) {
		reply = f.replies[i]
	}
	return &llm.ChatResponse{Content: reply}, nil
}

func (f *fakeProvider) Name() string    { return f.name }
func (f *fakeProvider) Available() bool { return true }

type memPrefs struct {
	prefs types.Preferences
}

func (m *memPrefs) Load() types.Preferences { return m.prefs }
func (m *memPrefs) SetLocation(l string)    { m.prefs.DefaultLocation = l }
func (m *memPrefs) AddTopic(t string)       { m.prefs.PreferredTopics = append(m.prefs.PreferredTopics, t) }
func (m *memPrefs) SetAIProvider(p string)  { m.prefs.AIProvider = p }

type captureEnricher struct {
	got types.Query
}

func (e *captureEnricher) Enrich(_ context.Context, q types.Query, _ classifier.Result) types.Query {
	e.got = q
	return q
}

type memNotifier struct {
	titles []string
	bodies []string
}

func (m *memNotifier) Notify(title, body string) {
	m.titles = append(m.titles, title)
	m.bodies = append(m.bodies, body)
}

func testExecutor(t *testing.T) (*command.Executor, *store.Events) {
	t.Helper()
	blobs, err := store.Open(t.TempDir() + "/aide.db")
	require.NoError(t, err)
	t.Cleanup(func() { blobs.Close() })
	events := store.NewEvents(blobs)
	return command.NewExecutor(events, store.NewBookmarks(blobs), nil), events
}

func messagesByRole(msgs []types.Message, role types.Role) []types.Message {
	var out []types.Message
	for _, m := range msgs {
		if m.Role == role {
			out = append(out, m)
		}
	}
	return out
}

func TestSend_CalendarCommandEndToEnd(t *testing.T) {
	executor, events := testExecutor(t)
	provider := &fakeProvider{name: "gemini", replies: []string{
		`I'll add that now. [COMMAND:{"type":"calendar","action":"add","data":{"title":"Standup","start":1756710000000}}]`,
	}}
	conv := New(nil, executor, &memPrefs{}, nil, provider, nil)

	msg, err := conv.Send(context.Background(), "Add an event called Standup tomorrow at 9am")
	require.NoError(t, err)

	all := events.List()
	require.Len(t, all, 1)
	assert.Equal(t, "Standup", all[0].Title)

	assert.Contains(t, msg.Text, "✅")
	assert.Contains(t, msg.Text, `Added event "Standup"`)
	assert.False(t, msg.IsError)

	transcript := conv.Messages()
	system := messagesByRole(transcript, types.RoleSystem)
	require.Len(t, system, 1)
	assert.Contains(t, system[0].Text, `Added event "Standup"`)

	// system notice lands before the assistant reply
	assert.Equal(t, types.RoleAssistant, transcript[len(transcript)-1].Role)
}

func TestSend_FailedCommandGetsCrossMarker(t *testing.T) {
	executor, _ := testExecutor(t)
	provider := &fakeProvider{name: "gemini", replies: []string{
		`Done! [COMMAND:{"type":"calendar","action":"update","data":{"id":"nope","title":"x"}}]`,
	}}
	conv := New(nil, executor, &memPrefs{}, nil, provider, nil)

	msg, err := conv.Send(context.Background(), "update my meeting")
	require.NoError(t, err)
	assert.Contains(t, msg.Text, "❌")
	assert.Contains(t, msg.Text, "Failed to update event")
}

func TestSend_ModelFailureAppendsErrorMessage(t *testing.T) {
	notifier := &memNotifier{}
	provider := &fakeProvider{name: "gemini", errs: []error{
		&llm.Error{Kind: llm.RateLimited, Provider: "gemini"},
	}}
	conv := New(nil, nil, &memPrefs{}, notifier, provider, nil)

	msg, err := conv.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.True(t, msg.IsError)
	assert.Equal(t, apologyText, msg.Text)

	require.Len(t, notifier.titles, 1)
	assert.Contains(t, notifier.bodies[0], "rate limiting")
}

func TestRetry_ReplacesFailedMessageWithoutDuplicates(t *testing.T) {
	notifier := &memNotifier{}
	provider := &fakeProvider{
		name: "gemini",
		errs: []error{
			&llm.Error{Kind: llm.RequestFailed, Provider: "gemini"},
			&llm.Error{Kind: llm.RequestFailed, Provider: "gemini"},
			&llm.Error{Kind: llm.RequestFailed, Provider: "gemini"},
			nil,
		},
		replies: []string{"", "", "", "here you go"},
	}
	conv := New(nil, nil, &memPrefs{}, notifier, provider, nil)

	_, err := conv.Send(context.Background(), "tell me a story")
	require.NoError(t, err)

	_, err = conv.RetryLast(context.Background())
	require.NoError(t, err)

	_, err = conv.RetryLast(context.Background())
	require.NoError(t, err)

	msg, err := conv.RetryLast(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "here you go", msg.Text)
	assert.False(t, msg.IsError)

	transcript := conv.Messages()
	assistant := messagesByRole(transcript, types.RoleAssistant)
	require.Len(t, assistant, 1, "retries must replace, not append")
	assert.Equal(t, "here you go", assistant[0].Text)
	require.Len(t, messagesByRole(transcript, types.RoleUser), 1)

	// the third consecutive failure escalates to the credential hint
	require.Len(t, notifier.titles, 3)
	assert.NotContains(t, notifier.bodies[1], "credentials")
	assert.Contains(t, notifier.bodies[2], "credentials")
}

func TestSend_ProviderSwitchShortCircuits(t *testing.T) {
	provider := &fakeProvider{name: "gemini"}
	prefs := &memPrefs{}
	conv := New(nil, nil, prefs, nil, provider, &fakeProvider{name: "playai"})

	msg, err := conv.Send(context.Background(), "use playai")
	require.NoError(t, err)
	assert.Equal(t, types.RoleSystem, msg.Role)
	assert.Contains(t, msg.Text, "playai")
	assert.Equal(t, "playai", prefs.prefs.AIProvider)
	assert.Zero(t, provider.calls, "switch turns never reach the model")
}

func TestSend_AlternateRequestedMidSentence(t *testing.T) {
	primary := &fakeProvider{name: "gemini", errs: []error{nil}}
	alternate := &fakeProvider{name: "playai", replies: []string{"from playai"}}
	conv := New(nil, nil, &memPrefs{}, nil, primary, alternate)

	msg, err := conv.Send(context.Background(), "tell me a joke, use playai please")
	require.NoError(t, err)
	assert.Equal(t, "from playai", msg.Text)
	assert.Equal(t, 1, alternate.calls)
	assert.Zero(t, primary.calls, "alternate succeeded, primary must stay untouched")
}

func TestSend_AlternateFailureFallsBackToPrimary(t *testing.T) {
	primary := &fakeProvider{name: "gemini", replies: []string{"from gemini"}}
	alternate := &fakeProvider{name: "playai", errs: []error{
		&llm.Error{Kind: llm.RequestFailed, Provider: "playai"},
	}}
	conv := New(nil, nil, &memPrefs{}, nil, primary, alternate)

	msg, err := conv.Send(context.Background(), "tell me a joke, use playai please")
	require.NoError(t, err)
	assert.Equal(t, "from gemini", msg.Text)
	assert.Equal(t, 1, alternate.calls)
	assert.Equal(t, 1, primary.calls)
}

func TestSend_StoredProviderPreferenceLeads(t *testing.T) {
	primary := &fakeProvider{name: "gemini"}
	alternate := &fakeProvider{name: "playai", replies: []string{"from playai"}}
	prefs := &memPrefs{prefs: types.Preferences{AIProvider: "playai"}}
	conv := New(nil, nil, prefs, nil, primary, alternate)

	msg, err := conv.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "from playai", msg.Text)
	assert.Zero(t, primary.calls)
}

func TestSend_StoredSearchPreferenceReachesEnricher(t *testing.T) {
	enr := &captureEnricher{}
	prefs := &memPrefs{prefs: types.Preferences{SearchProvider: "exa"}}
	provider := &fakeProvider{name: "gemini"}
	conv := New(enr, nil, prefs, nil, provider, nil)

	_, err := conv.Send(context.Background(), "search for the go memory model")
	require.NoError(t, err)
	assert.Equal(t, types.SearchExa, enr.got.SearchProvider)

	// no stored preference leaves the choice to the classifier
	enr2 := &captureEnricher{}
	conv2 := New(enr2, nil, &memPrefs{}, nil, &fakeProvider{name: "gemini"}, nil)
	_, err = conv2.Send(context.Background(), "search for the go memory model")
	require.NoError(t, err)
	assert.Empty(t, enr2.got.SearchProvider)
}

func TestSend_LearnsLocationAndTopic(t *testing.T) {
	provider := &fakeProvider{name: "gemini", replies: []string{"nice"}}
	prefs := &memPrefs{}
	conv := New(nil, nil, prefs, nil, provider, nil)

	_, err := conv.Send(context.Background(), "I live in Lisbon")
	require.NoError(t, err)
	assert.Equal(t, "Lisbon", prefs.prefs.DefaultLocation)

	_, err = conv.Send(context.Background(), "I'm interested in astronomy")
	require.NoError(t, err)
	assert.Contains(t, prefs.prefs.PreferredTopics, "astronomy")
}

func TestSend_RejectsConcurrentTurn(t *testing.T) {
	provider := &fakeProvider{name: "gemini", block: make(chan struct{}), started: make(chan struct{})}
	started := provider.started
	conv := New(nil, nil, &memPrefs{}, nil, provider, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = conv.Send(context.Background(), "slow one")
	}()

	// wait until the first turn is inside the model call
	<-started

	_, err := conv.Send(context.Background(), "second")
	assert.ErrorIs(t, err, ErrBusy)

	close(provider.block)
	<-done
}

func TestExtractPreferences(t *testing.T) {
	got := ExtractPreferences("I live in New York. I'm interested in chess")
	assert.Equal(t, "New York", got.Location)
	assert.Equal(t, "chess", got.Topic)

	assert.Equal(t, ExtractedPreferences{}, ExtractPreferences("nothing personal here"))
}
