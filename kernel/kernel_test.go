package kernel_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tailored-agentic-units/converse/capability"
	"github.com/tailored-agentic-units/converse/completion"
	"github.com/tailored-agentic-units/converse/completion/mock"
	"github.com/tailored-agentic-units/converse/core/protocol"
	"github.com/tailored-agentic-units/converse/kernel"
	"github.com/tailored-agentic-units/converse/observability"
	"github.com/tailored-agentic-units/converse/prompt"
	"github.com/tailored-agentic-units/converse/speech"
	"github.com/tailored-agentic-units/converse/translation"
)

// --- Test helpers ---

func newKernel(t *testing.T, opts ...kernel.Option) (*kernel.Kernel, *observability.Recorder) {
	t.Helper()

	cfg := kernel.DefaultConfig()
	cfg.Translation.Provider = translation.ProviderNone
	cfg.Speech.Provider = speech.ProviderNone

	rec := observability.NewRecorder(0)
	opts = append([]kernel.Option{kernel.WithObserver(rec)}, opts...)

	k, err := kernel.New(context.Background(), &cfg, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return k, rec
}

// hindi translates the canned replies used in these tests.
var hindi = translation.Func(func(ctx context.Context, text, lang string) string {
	switch text {
	case "Hi there":
		return "नमस्ते"
	case translation.TrialText:
		return "नमस्ते, आप कैसे हैं?"
	default:
		return text
	}
})

// failingTranslator always reports a fallback.
type failingTranslator struct{}

func (failingTranslator) Translate(ctx context.Context, text, lang string) string { return text }

func (failingTranslator) TranslateOutcome(ctx context.Context, text, lang string) (string, translation.Outcome) {
	return text, translation.OutcomeFallback
}

type fakeSpeaker struct {
	mu    sync.Mutex
	ok    bool
	spoke []string
	langs []string
}

func (s *fakeSpeaker) Speak(ctx context.Context, text, lang string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoke = append(s.spoke, text)
	s.langs = append(s.langs, lang)
	return s.ok
}

type fakeListener struct {
	text string
	ok   bool
}

func (l fakeListener) Listen(ctx context.Context, timeout time.Duration) (string, bool) {
	return l.text, l.ok
}

// blockingClient holds Complete until released.
type blockingClient struct {
	entered chan struct{}
	release chan struct{}
}

func (c *blockingClient) Complete(ctx context.Context, window []protocol.Message, model string) (string, error) {
	close(c.entered)
	<-c.release
	return "done", nil
}

func runTurns(t *testing.T, k *kernel.Kernel, n int) {
	t.Helper()
	for i := range n {
		if _, err := k.ExecuteTurn(context.Background(), "message"); err != nil {
			t.Fatalf("turn %d failed: %v", i+1, err)
		}
	}
}

// --- Window bounding ---

func TestExecuteTurn_WindowWithinBound(t *testing.T) {
	client := mock.New(mock.WithReply("reply"))
	k, _ := newKernel(t, kernel.WithCompletion(client))

	runTurns(t, k, 3)

	calls := client.Calls()
	// Third call: system + 2 prior exchanges (4 turns) + user.
	window := calls[2].Window
	if len(window) != 6 {
		t.Fatalf("got window length %d, want 6", len(window))
	}
	if window[0].Role != protocol.RoleSystem {
		t.Errorf("got first role %s, want system", window[0].Role)
	}
	last := window[len(window)-1]
	if last.Role != protocol.RoleUser || last.Content != "message" {
		t.Errorf("got last turn %+v, want the user turn", last)
	}
	if calls[2].Model != completion.DefaultModel {
		t.Errorf("got model %q, want %q", calls[2].Model, completion.DefaultModel)
	}
}

func TestExecuteTurn_WindowBeyondBound(t *testing.T) {
	client := mock.New()
	k, _ := newKernel(t, kernel.WithCompletion(client))

	runTurns(t, k, 6)

	calls := client.Calls()
	window := calls[5].Window
	if len(window) != 6+2 {
		t.Errorf("got window length %d, want %d", len(window), 6+2)
	}
	if window[0].Role != protocol.RoleSystem {
		t.Errorf("got first role %s, want system", window[0].Role)
	}

	if got := len(k.History()); got != 1+12 {
		t.Errorf("got history length %d, want 13", got)
	}
}

// --- History mutation ---

func TestClearHistory_Idempotent(t *testing.T) {
	k, rec := newKernel(t, kernel.WithCompletion(mock.New()))
	runTurns(t, k, 2)

	k.ClearHistory()
	once := k.History()
	k.ClearHistory()
	twice := k.History()

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("got %v after second clear, want %v", twice, once)
	}
	if len(twice) != 1 || twice[0].Role != protocol.RoleSystem {
		t.Errorf("got history %v, want only the system turn", twice)
	}
	if got := len(rec.OfType(kernel.EventHistoryClear)); got != 2 {
		t.Errorf("got %d clear events, want 2", got)
	}
}

func TestExecuteTurn_CompletionFailureLeavesHistory(t *testing.T) {
	client := mock.New(
		mock.WithReply("first"),
		mock.WithError(completion.StatusError(429, errors.New("slow down"))),
		mock.WithReply("recovered"),
	)
	k, rec := newKernel(t, kernel.WithCompletion(client))

	runTurns(t, k, 1)
	before := k.History()

	_, err := k.ExecuteTurn(context.Background(), "second")
	if !errors.Is(err, completion.ErrRateLimited) {
		t.Fatalf("got error %v, want rate limited", err)
	}
	var ce *completion.Error
	if !errors.As(err, &ce) {
		t.Fatalf("error %T does not wrap *completion.Error", err)
	}

	if after := k.History(); !reflect.DeepEqual(before, after) {
		t.Errorf("history changed after failed turn:\n got %v\nwant %v", after, before)
	}
	if got := k.Capabilities()[capability.Completion]; got != capability.Degraded {
		t.Errorf("got completion %s, want degraded", got)
	}
	if got := k.State(); got != kernel.Idle {
		t.Errorf("got state %s, want idle", got)
	}
	if len(rec.OfType(kernel.EventTurnFailed)) != 1 {
		t.Error("expected one turn failed event")
	}

	// Degraded is retried and a success restores availability.
	result, err := k.ExecuteTurn(context.Background(), "third")
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if result.RawText != "recovered" {
		t.Errorf("got %q, want recovered", result.RawText)
	}
	if got := k.Capabilities()[capability.Completion]; got != capability.Available {
		t.Errorf("got completion %s, want available", got)
	}
}

func TestExecuteTurn_EmptyInput(t *testing.T) {
	client := mock.New()
	k, _ := newKernel(t, kernel.WithCompletion(client))

	for _, input := range []string{"", "   ", "\n\t"} {
		if _, err := k.ExecuteTurn(context.Background(), input); !errors.Is(err, kernel.ErrInputEmpty) {
			t.Errorf("ExecuteTurn(%q) error = %v, want ErrInputEmpty", input, err)
		}
	}
	if client.CallCount() != 0 {
		t.Errorf("got %d completion calls, want 0", client.CallCount())
	}
}

func TestExecuteTurn_TrimsInput(t *testing.T) {
	client := mock.New()
	k, _ := newKernel(t, kernel.WithCompletion(client))

	if _, err := k.ExecuteTurn(context.Background(), "  hello  "); err != nil {
		t.Fatalf("ExecuteTurn failed: %v", err)
	}

	history := k.History()
	if history[1].Content != "hello" {
		t.Errorf("got user turn %q, want trimmed", history[1].Content)
	}
}

func TestExecuteTurn_InProgress(t *testing.T) {
	client := &blockingClient{entered: make(chan struct{}), release: make(chan struct{})}
	k, _ := newKernel(t, kernel.WithCompletion(client))

	done := make(chan error, 1)
	go func() {
		_, err := k.ExecuteTurn(context.Background(), "first")
		done <- err
	}()

	<-client.entered
	if got := k.State(); got != kernel.AwaitingCompletion {
		t.Errorf("got state %s, want awaiting-completion", got)
	}

	if _, err := k.ExecuteTurn(context.Background(), "second"); !errors.Is(err, kernel.ErrTurnInProgress) {
		t.Errorf("got error %v, want ErrTurnInProgress", err)
	}

	close(client.release)
	if err := <-done; err != nil {
		t.Fatalf("first turn failed: %v", err)
	}
	if got := len(k.History()); got != 3 {
		t.Errorf("got history length %d, want 3", got)
	}
}

// --- Translation ---

func TestExecuteTurn_TargetMode(t *testing.T) {
	k, _ := newKernel(t,
		kernel.WithCompletion(mock.New(mock.WithReply("Hi there"))),
		kernel.WithTranslation(hindi),
	)
	if err := k.SetLanguageMode(kernel.LanguageTarget); err != nil {
		t.Fatalf("SetLanguageMode failed: %v", err)
	}

	result, err := k.ExecuteTurn(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("ExecuteTurn failed: %v", err)
	}

	if result.DisplayText != "नमस्ते" {
		t.Errorf("got display %q, want %q", result.DisplayText, "नमस्ते")
	}
	if result.RawText != "Hi there" || !result.Translated {
		t.Errorf("got result %+v", result)
	}

	history := k.History()
	if got := history[len(history)-1]; got.Role != protocol.RoleAssistant || got.Content != "Hi there" {
		t.Errorf("got stored reply %+v, want raw text", got)
	}
}

func TestExecuteTurn_TranslationFailureFallsBack(t *testing.T) {
	k, _ := newKernel(t,
		kernel.WithCompletion(mock.New(mock.WithReply("Hi there"))),
		kernel.WithTranslation(failingTranslator{}),
	)
	k.ToggleLanguageMode()

	result, err := k.ExecuteTurn(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("ExecuteTurn failed: %v", err)
	}

	if result.DisplayText != "Hi there" || result.Translated {
		t.Errorf("got result %+v, want raw passthrough", result)
	}
	if got := k.Capabilities()[capability.Translation]; got != capability.Degraded {
		t.Errorf("got translation %s, want degraded", got)
	}
}

func TestExecuteTurn_SourceModeSkipsTranslation(t *testing.T) {
	called := false
	spy := translation.Func(func(ctx context.Context, text, lang string) string {
		called = true
		return text
	})
	k, _ := newKernel(t, kernel.WithCompletion(mock.New(mock.WithReply("Hi there"))), kernel.WithTranslation(spy))

	result, err := k.ExecuteTurn(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("ExecuteTurn failed: %v", err)
	}
	if called || result.Translated || result.DisplayText != "Hi there" {
		t.Errorf("got result %+v (translator called %v), want untranslated", result, called)
	}
}

// --- Speech ---

func TestExecuteTurn_Speak(t *testing.T) {
	speaker := &fakeSpeaker{ok: true}
	k, _ := newKernel(t,
		kernel.WithCompletion(mock.New(mock.WithReply("Hi there"))),
		kernel.WithTranslation(hindi),
		kernel.WithSpeaker(speaker),
	)
	k.SetLanguageMode(kernel.LanguageTarget)

	result, err := k.ExecuteTurnWith(context.Background(), "Hello", kernel.TurnOptions{Speak: true})
	if err != nil {
		t.Fatalf("ExecuteTurnWith failed: %v", err)
	}

	if !result.Spoken {
		t.Error("expected Spoken")
	}
	if !slices.Equal(speaker.spoke, []string{"नमस्ते"}) || !slices.Equal(speaker.langs, []string{"hi"}) {
		t.Errorf("got spoken %v in %v", speaker.spoke, speaker.langs)
	}
}

func TestExecuteTurn_SpeakFailureDoesNotFailTurn(t *testing.T) {
	k, _ := newKernel(t,
		kernel.WithCompletion(mock.New()),
		kernel.WithSpeaker(&fakeSpeaker{ok: false}),
	)

	result, err := k.ExecuteTurnWith(context.Background(), "Hello", kernel.TurnOptions{Speak: true})
	if err != nil {
		t.Fatalf("ExecuteTurnWith failed: %v", err)
	}
	if result.Spoken {
		t.Error("expected Spoken to be false")
	}
	if got := k.Capabilities()[capability.SpeechOut]; got != capability.Degraded {
		t.Errorf("got speech-out %s, want degraded", got)
	}
	if got := len(k.History()); got != 3 {
		t.Errorf("got history length %d, want 3", got)
	}
}

func TestSpeak_Absent(t *testing.T) {
	k, _ := newKernel(t)
	if k.Speak(context.Background(), "hello") {
		t.Error("expected Speak to report false without a speaker")
	}
}

// historySpeaker records the history length visible while speaking.
type historySpeaker struct {
	k    *kernel.Kernel
	seen []int
}

func (s *historySpeaker) Speak(ctx context.Context, text, lang string) bool {
	s.seen = append(s.seen, len(s.k.History()))
	return true
}

func TestExecuteTurn_SpeaksBeforeHistoryUpdate(t *testing.T) {
	speaker := &historySpeaker{}
	k, _ := newKernel(t,
		kernel.WithCompletion(mock.New(mock.WithReply("Hi there"))),
		kernel.WithSpeaker(speaker),
	)
	speaker.k = k

	if _, err := k.ExecuteTurnWith(context.Background(), "Hello", kernel.TurnOptions{Speak: true}); err != nil {
		t.Fatalf("ExecuteTurnWith failed: %v", err)
	}

	if len(speaker.seen) != 1 || speaker.seen[0] != 1 {
		t.Errorf("got history lengths %v during Speak, want [1]", speaker.seen)
	}
	if got := len(k.History()); got != 3 {
		t.Errorf("got history length %d after the turn, want 3", got)
	}
}

func TestListen(t *testing.T) {
	absent, _ := newKernel(t)
	if text, ok := absent.Listen(context.Background()); ok || text != "" {
		t.Errorf("got (%q, %v), want absent", text, ok)
	}

	k, _ := newKernel(t, kernel.WithListener(fakeListener{text: "hello there", ok: true}))
	if text, ok := k.Listen(context.Background()); !ok || text != "hello there" {
		t.Errorf("got (%q, %v), want hello there", text, ok)
	}

	deaf, _ := newKernel(t, kernel.WithListener(fakeListener{}))
	if _, ok := deaf.Listen(context.Background()); ok {
		t.Error("expected Listen to fail")
	}
	if got := deaf.Capabilities()[capability.SpeechIn]; got != capability.Degraded {
		t.Errorf("got speech-in %s, want degraded", got)
	}
}

// --- Probe and degraded mode ---

func TestProbe_CompletionFailsTranslationSucceeds(t *testing.T) {
	client := mock.New(mock.WithModelsError(errors.New("dial tcp: connection refused")))
	k, rec := newKernel(t,
		kernel.WithCompletion(client),
		kernel.WithTranslation(hindi),
	)

	results := k.Probe(context.Background())
	if len(results) != 4 {
		t.Fatalf("got %d probe results, want 4", len(results))
	}

	caps := k.Capabilities()
	want := map[capability.Name]capability.State{
		capability.Completion:  capability.Unavailable,
		capability.Translation: capability.Available,
		capability.SpeechIn:    capability.Unavailable,
		capability.SpeechOut:   capability.Unavailable,
	}
	if !reflect.DeepEqual(caps, want) {
		t.Errorf("got capabilities %v, want %v", caps, want)
	}

	_, err := k.ExecuteTurn(context.Background(), "Hello")
	var unavailable *kernel.CapabilityUnavailableError
	if !errors.As(err, &unavailable) || unavailable.Capability != capability.Completion {
		t.Fatalf("got error %v, want completion unavailable", err)
	}
	if client.CallCount() != 0 {
		t.Errorf("got %d completion calls, want 0", client.CallCount())
	}
	if got := len(k.History()); got != 1 {
		t.Errorf("got history length %d, want 1", got)
	}

	if got := k.Translate(context.Background(), "Hi there"); got != "नमस्ते" {
		t.Errorf("got translation %q, want %q", got, "नमस्ते")
	}

	if len(rec.OfType(kernel.EventProbeComplete)) != 1 {
		t.Error("expected one probe complete event")
	}
}

func TestProbe_SelectsModels(t *testing.T) {
	client := mock.New(mock.WithModels("whisper-large-v3", "allam-2-7b", "gemma2-9b-it"))
	k, _ := newKernel(t, kernel.WithCompletion(client))

	k.Probe(context.Background())

	want := []string{"allam-2-7b", "whisper-large-v3"}
	if got := k.AvailableModels(); !slices.Equal(got, want) {
		t.Errorf("got models %v, want %v", got, want)
	}
	// The configured default is not offered, so the first candidate is used.
	if got := k.Config().ActiveModel; got != "allam-2-7b" {
		t.Errorf("got active model %q, want allam-2-7b", got)
	}

	model, err := k.ChooseModel("2")
	if err != nil {
		t.Fatalf("ChooseModel failed: %v", err)
	}
	if model != "whisper-large-v3" || k.Config().ActiveModel != "whisper-large-v3" {
		t.Errorf("got model %q, want whisper-large-v3", model)
	}
}

func TestProbe_SlowProbeTimesOut(t *testing.T) {
	slow := translation.Func(func(ctx context.Context, text, lang string) string {
		<-ctx.Done()
		return text
	})

	cfg := kernel.DefaultConfig()
	cfg.Translation.Provider = translation.ProviderNone
	cfg.Speech.Provider = speech.ProviderNone
	cfg.ProbeTimeoutSeconds = 1

	k, err := kernel.New(context.Background(), &cfg,
		kernel.WithObserver(observability.Discard),
		kernel.WithCompletion(mock.New()),
		kernel.WithTranslation(slow),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	start := time.Now()
	k.Probe(context.Background())
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Probe took %v, want it bounded by the probe timeout", elapsed)
	}

	// The slow translator returns its input unchanged, which is not a
	// fallback, so only completion's outcome is asserted.
	if got := k.Capabilities()[capability.Completion]; got != capability.Available {
		t.Errorf("got completion %s, want available", got)
	}
}

func TestChooseModel_CompletionUnavailable(t *testing.T) {
	k, _ := newKernel(t)

	if _, err := k.ChooseModel("1"); !errors.Is(err, &kernel.CapabilityUnavailableError{Capability: capability.Completion}) {
		t.Errorf("got error %v, want completion unavailable", err)
	}
}

func TestNew_WithoutCredentials(t *testing.T) {
	k, _ := newKernel(t)

	caps := k.Capabilities()
	if caps[capability.Completion] != capability.Unavailable {
		t.Errorf("got completion %s, want unavailable", caps[capability.Completion])
	}

	_, err := k.ExecuteTurn(context.Background(), "Hello")
	if !errors.Is(err, &kernel.CapabilityUnavailableError{Capability: capability.Completion}) {
		t.Errorf("got error %v, want completion unavailable", err)
	}
}

// --- Model selection ---

func TestSelectModel(t *testing.T) {
	available := []string{"a", "b", "c"}

	tests := []struct {
		name      string
		available []string
		preferred string
		override  string
		want      string
	}{
		{"preferred present", available, "b", "", "b"},
		{"override wins", available, "b", "1", "a"},
		{"override out of range", available, "b", "9", "b"},
		{"override zero", available, "b", "0", "b"},
		{"override not numeric", available, "b", "x", "b"},
		{"preferred missing", available, "z", "", "a"},
		{"empty list", nil, "b", "1", "b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := kernel.SelectModel(tt.available, tt.preferred, tt.override); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

// --- Configuration ---

func TestLanguageMode(t *testing.T) {
	k, rec := newKernel(t)

	if got := k.ToggleLanguageMode(); got != kernel.LanguageTarget {
		t.Errorf("got %s, want target", got)
	}
	if got := k.ToggleLanguageMode(); got != kernel.LanguageSource {
		t.Errorf("got %s, want source", got)
	}
	if err := k.SetLanguageMode("klingon"); !errors.Is(err, kernel.ErrUnknownLanguageMode) {
		t.Errorf("got error %v, want ErrUnknownLanguageMode", err)
	}
	if got := len(rec.OfType(kernel.EventConfigChange)); got != 2 {
		t.Errorf("got %d config change events, want 2", got)
	}

	if _, err := kernel.ParseLanguageMode("TARGET"); err != nil {
		t.Errorf("ParseLanguageMode(TARGET) error = %v", err)
	}
}

func TestSetModel(t *testing.T) {
	k, _ := newKernel(t)

	if err := k.SetModel(""); !errors.Is(err, kernel.ErrModelRequired) {
		t.Errorf("got error %v, want ErrModelRequired", err)
	}
	if err := k.SetModel("allam-2-7b"); err != nil {
		t.Fatalf("SetModel failed: %v", err)
	}
	if got := k.Config().ActiveModel; got != "allam-2-7b" {
		t.Errorf("got %q, want allam-2-7b", got)
	}
}

func TestNew_ComposesPromptFragments(t *testing.T) {
	root := t.TempDir()
	store := prompt.NewFileStore(root)
	if err := os.WriteFile(filepath.Join(root, "tone.md"), []byte("Keep answers short.\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	client := mock.New()
	k, _ := newKernel(t, kernel.WithCompletion(client), kernel.WithPromptStore(store))
	runTurns(t, k, 1)

	system := client.Calls()[0].Window[0]
	if system.Role != protocol.RoleSystem {
		t.Fatalf("got role %s, want system", system.Role)
	}
	if want := "Keep answers short."; !strings.Contains(system.Content, want) {
		t.Errorf("got system prompt %q, want it to include %q", system.Content, want)
	}
}

// --- Status and events ---

type fixedCounter int

func (c fixedCounter) Count(string) int { return int(c) }

func TestStatus(t *testing.T) {
	k, _ := newKernel(t,
		kernel.WithCompletion(mock.New()),
		kernel.WithTokenCounter(fixedCounter(1)),
	)
	runTurns(t, k, 2)

	st := k.Status()
	if st.SessionID == "" {
		t.Error("expected a session id")
	}
	if st.HistoryLength != 5 || st.Exchanges != 2 {
		t.Errorf("got length %d exchanges %d, want 5 and 2", st.HistoryLength, st.Exchanges)
	}
	if st.Summary != "Conversation has 4 messages" {
		t.Errorf("got summary %q", st.Summary)
	}
	// Five messages at overhead 4 + role 1 + content 1.
	if st.WindowTokens != 30 {
		t.Errorf("got WindowTokens %d, want 30", st.WindowTokens)
	}
	if st.State != kernel.Idle || st.LanguageMode != kernel.LanguageSource {
		t.Errorf("got state %s mode %s", st.State, st.LanguageMode)
	}
	if st.Capabilities[capability.Completion] != capability.Available {
		t.Errorf("got completion %s, want available", st.Capabilities[capability.Completion])
	}
}

func TestExecuteTurn_Events(t *testing.T) {
	k, rec := newKernel(t,
		kernel.WithCompletion(mock.New(mock.WithReply("Hi there"))),
		kernel.WithTranslation(hindi),
	)
	k.SetLanguageMode(kernel.LanguageTarget)
	rec.Reset()

	if _, err := k.ExecuteTurn(context.Background(), "Hello"); err != nil {
		t.Fatalf("ExecuteTurn failed: %v", err)
	}

	var states []string
	for _, e := range rec.OfType(kernel.EventTurnState) {
		states = append(states, e.Data["to"].(string))
	}
	want := []string{"awaiting-completion", "awaiting-translation", "turn-complete", "idle"}
	if !slices.Equal(states, want) {
		t.Errorf("got transitions %v, want %v", states, want)
	}

	types := rec.Types()
	if types[0] != kernel.EventTurnStart {
		t.Errorf("got first event %s, want %s", types[0], kernel.EventTurnStart)
	}
	if len(rec.OfType(kernel.EventTurnComplete)) != 1 {
		t.Error("expected one turn complete event")
	}
	for _, e := range rec.Events() {
		if e.Source != "kernel" {
			t.Errorf("got source %q, want kernel", e.Source)
		}
	}
}
