// Package kernel implements the conversation session manager: it owns the
// history, the session configuration and the capability map, and executes
// each turn against the completion, translation and speech clients.
//
// The kernel initializes from configuration via New, creating all subsystems
// internally. Functional options allow test overrides of any subsystem.
//
//	k, err := kernel.New(ctx, &cfg)
//	k.Probe(ctx)
//	result, err := k.ExecuteTurn(ctx, "Hello")
package kernel

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tailored-agentic-units/converse/capability"
	"github.com/tailored-agentic-units/converse/completion"
	"github.com/tailored-agentic-units/converse/core/protocol"
	"github.com/tailored-agentic-units/converse/core/tokens"
	"github.com/tailored-agentic-units/converse/observability"
	"github.com/tailored-agentic-units/converse/prompt"
	"github.com/tailored-agentic-units/converse/session"
	"github.com/tailored-agentic-units/converse/speech"
	"github.com/tailored-agentic-units/converse/translation"
)

// SessionConfig is the user-adjustable part of the session. It changes only
// through explicit commands.
type SessionConfig struct {
	ActiveModel    string
	LanguageMode   LanguageMode
	TargetLanguage string
}

// TurnOptions adjusts a single turn.
type TurnOptions struct {
	Speak bool // speak the displayed reply once the turn completes
}

// TurnResult is the outcome of a successful turn.
type TurnResult struct {
	DisplayText string // reply as shown to the user, translated in target mode
	RawText     string // reply as returned by the completion service
	ModelUsed   string
	Translated  bool
	Spoken      bool
}

// Option configures a Kernel after config-driven initialization.
// Applied by New after cold start; overrides replace config-created defaults.
type Option func(*Kernel)

// WithCompletion overrides the config-created completion client. Clients
// that also implement completion.ModelLister are used for the model probe.
func WithCompletion(c completion.Client) Option {
	return func(k *Kernel) {
		k.completion = c
		if l, ok := c.(completion.ModelLister); ok {
			k.lister = l
		} else {
			k.lister = nil
		}
	}
}

// WithModelLister overrides the client used to list models.
func WithModelLister(l completion.ModelLister) Option {
	return func(k *Kernel) { k.lister = l }
}

// WithTranslation overrides the config-created translation client.
func WithTranslation(t translation.Client) Option {
	return func(k *Kernel) { k.translator = t }
}

// WithListener overrides the config-created speech listener. nil disables
// speech input.
func WithListener(l speech.Listener) Option {
	return func(k *Kernel) { k.listener = l }
}

// WithSpeaker overrides the config-created speaker. nil disables speech
// output.
func WithSpeaker(s speech.Speaker) Option {
	return func(k *Kernel) { k.speaker = s }
}

// WithSession overrides the config-created session.
func WithSession(s session.Session) Option {
	return func(k *Kernel) { k.session = s }
}

// WithPromptStore overrides the config-created prompt fragment store.
func WithPromptStore(s prompt.Store) Option {
	return func(k *Kernel) { k.prompts = s }
}

// WithObserver overrides the configured observer.
func WithObserver(o observability.Observer) Option {
	return func(k *Kernel) { k.observer = o }
}

// WithTokenCounter sets the counter used for the window token estimate.
func WithTokenCounter(c tokens.Counter) Option {
	return func(k *Kernel) { k.counter = c }
}

// Kernel is the conversation session manager. Reads are safe from any
// goroutine; turns are serialized.
type Kernel struct {
	completion completion.Client
	lister     completion.ModelLister
	translator translation.Client
	listener   speech.Listener
	speaker    speech.Speaker
	session    session.Session
	prompts    prompt.Store
	observer   observability.Observer
	counter    tokens.Counter
	caps       *capability.Set

	historyWindow  int
	defaultModel   string
	candidates     []string
	sourceLanguage string
	listenTimeout  time.Duration
	probeTimeout   time.Duration

	mu     sync.RWMutex
	config SessionConfig
	models []string

	busy  atomic.Bool
	state atomic.Int32
}

// New creates a Kernel from configuration. Subsystems are initialized from
// their config sections; a leaf client that lacks credentials is left absent
// and its capability starts unavailable. Options applied after
// initialization can override any subsystem.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Kernel, error) {
	mode, err := ParseLanguageMode(cfg.LanguageMode)
	if err != nil {
		return nil, err
	}

	sesh, err := session.New(&cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	observer, err := observability.GetObserver(cfg.Observer)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}

	k := &Kernel{
		session:        sesh,
		prompts:        prompt.NewStore(&cfg.Prompt),
		observer:       observer,
		caps:           capability.NewSet(),
		historyWindow:  cfg.Session.HistoryWindow,
		defaultModel:   cfg.Completion.DefaultModel,
		candidates:     slices.Clone(cfg.Completion.Candidates),
		sourceLanguage: cfg.Translation.SourceLanguage,
		listenTimeout:  cfg.Speech.ListenTimeout(),
		probeTimeout:   cfg.ProbeTimeout(),
		config: SessionConfig{
			ActiveModel:    cfg.Completion.DefaultModel,
			LanguageMode:   mode,
			TargetLanguage: cfg.TargetLanguage,
		},
	}

	provider, err := completion.New(ctx, &cfg.Completion)
	switch {
	case err == nil:
		k.completion, k.lister = provider, provider
	case !errors.Is(err, completion.ErrMissingAPIKey):
		return nil, fmt.Errorf("failed to create completion client: %w", err)
	}

	if k.translator, err = translation.New(&cfg.Translation); err != nil {
		return nil, fmt.Errorf("failed to create translation client: %w", err)
	}

	listener, speaker, err := speech.New(&cfg.Speech)
	switch {
	case err == nil:
		k.listener, k.speaker = listener, speaker
	case !errors.Is(err, speech.ErrMissingAPIKey):
		return nil, fmt.Errorf("failed to create speech clients: %w", err)
	}

	if cfg.TokenEncoding != "" {
		k.counter = tokens.LazyTiktoken(cfg.TokenEncoding)
	}

	for _, opt := range opts {
		opt(k)
	}

	if k.historyWindow <= 0 {
		k.historyWindow = session.DefaultHistoryWindow
	}
	if k.sourceLanguage == "" {
		k.sourceLanguage = translation.DefaultSourceLanguage
	}

	system, err := prompt.Compose(ctx, k.prompts, k.session.System().Content)
	if err != nil {
		return nil, fmt.Errorf("failed to compose system prompt: %w", err)
	}
	k.session.SetSystem(system)

	k.initCapabilities()

	return k, nil
}

// initCapabilities marks configured clients available until a probe says
// otherwise.
func (k *Kernel) initCapabilities() {
	present := map[capability.Name]bool{
		capability.Completion:  k.completion != nil,
		capability.Translation: k.translator != nil,
		capability.SpeechIn:    k.listener != nil,
		capability.SpeechOut:   k.speaker != nil,
	}
	for name, ok := range present {
		if ok {
			k.caps.Set(name, capability.Available)
		} else {
			k.caps.Set(name, capability.Unavailable)
		}
	}
}

// ExecuteTurn runs one conversational turn with default options.
func (k *Kernel) ExecuteTurn(ctx context.Context, text string) (*TurnResult, error) {
	return k.ExecuteTurnWith(ctx, text, TurnOptions{})
}

// ExecuteTurnWith runs one conversational turn. The user turn and the raw
// reply are appended to history together, after every network call of the
// turn (speech included) has resolved; any failure leaves history exactly as
// it was. Completion
// failures are returned wrapping a *completion.Error.
func (k *Kernel) ExecuteTurnWith(ctx context.Context, text string, opts TurnOptions) (*TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrInputEmpty
	}

	if !k.busy.CompareAndSwap(false, true) {
		return nil, ErrTurnInProgress
	}
	defer k.busy.Store(false)

	ctx = observability.WithSessionID(ctx, k.session.ID())

	if k.completion == nil || k.caps.Get(capability.Completion) == capability.Unavailable {
		return nil, &CapabilityUnavailableError{Capability: capability.Completion}
	}

	cfg := k.Config()
	user := protocol.NewMessage(protocol.RoleUser, text)
	window := append(k.session.Window(k.historyWindow), user)

	k.emit(ctx, EventTurnStart, observability.LevelInfo, map[string]any{
		"model":         cfg.ActiveModel,
		"language_mode": string(cfg.LanguageMode),
		"window_size":   len(window),
		"input_length":  len(text),
	})

	k.transition(ctx, AwaitingCompletion)

	raw, err := k.completion.Complete(ctx, window, cfg.ActiveModel)
	if err != nil {
		cerr := completion.Classify(err)
		k.transition(ctx, TurnFailed)
		k.markFailure(ctx, capability.Completion)
		k.emit(ctx, EventTurnFailed, observability.LevelWarning, map[string]any{
			"model": cfg.ActiveModel,
			"kind":  cerr.Kind.String(),
			"error": cerr.Error(),
		})
		k.transition(ctx, Idle)
		return nil, fmt.Errorf("completion with %s: %w", cfg.ActiveModel, cerr)
	}
	k.markSuccess(ctx, capability.Completion)

	result := &TurnResult{
		DisplayText: raw,
		RawText:     raw,
		ModelUsed:   cfg.ActiveModel,
	}

	if cfg.LanguageMode == LanguageTarget && k.usable(capability.Translation, k.translator != nil) {
		k.transition(ctx, AwaitingTranslation)
		result.DisplayText, result.Translated = k.translate(ctx, raw, cfg.TargetLanguage)
	}

	if opts.Speak {
		result.Spoken = k.speak(ctx, result.DisplayText, k.displayLanguage(cfg))
	}

	k.session.AppendExchange(user, protocol.NewMessage(protocol.RoleAssistant, raw))
	k.transition(ctx, TurnComplete)

	k.emit(ctx, EventTurnComplete, observability.LevelInfo, map[string]any{
		"model":          cfg.ActiveModel,
		"reply_length":   len(raw),
		"translated":     result.Translated,
		"spoken":         result.Spoken,
		"history_length": k.session.Len(),
	})

	k.transition(ctx, Idle)
	return result, nil
}

// Translate translates text into the target language for direct display.
// It does not touch history and works while completion is unavailable.
func (k *Kernel) Translate(ctx context.Context, text string) string {
	if k.translator == nil {
		return text
	}
	ctx = observability.WithSessionID(ctx, k.session.ID())
	out, _ := k.translate(ctx, text, k.Config().TargetLanguage)
	return out
}

func (k *Kernel) translate(ctx context.Context, text, lang string) (string, bool) {
	out, outcome := translation.Do(ctx, k.translator, text, lang)
	if outcome == translation.OutcomeFallback {
		k.markFailure(ctx, capability.Translation)
		return text, false
	}
	k.markSuccess(ctx, capability.Translation)
	return out, outcome == translation.OutcomeTranslated
}

// Listen captures one spoken utterance. It returns ("", false) when speech
// input is absent or nothing was understood.
func (k *Kernel) Listen(ctx context.Context) (string, bool) {
	if !k.usable(capability.SpeechIn, k.listener != nil) {
		return "", false
	}
	ctx = observability.WithSessionID(ctx, k.session.ID())

	text, ok := k.listener.Listen(ctx, k.listenTimeout)
	if !ok {
		k.markFailure(ctx, capability.SpeechIn)
		return "", false
	}
	k.markSuccess(ctx, capability.SpeechIn)
	return text, true
}

// Speak speaks text in the language currently used for display.
func (k *Kernel) Speak(ctx context.Context, text string) bool {
	ctx = observability.WithSessionID(ctx, k.session.ID())
	return k.speak(ctx, text, k.displayLanguage(k.Config()))
}

func (k *Kernel) speak(ctx context.Context, text, lang string) bool {
	if !k.usable(capability.SpeechOut, k.speaker != nil) {
		return false
	}
	if !k.speaker.Speak(ctx, text, lang) {
		k.markFailure(ctx, capability.SpeechOut)
		return false
	}
	k.markSuccess(ctx, capability.SpeechOut)
	return true
}

func (k *Kernel) displayLanguage(cfg SessionConfig) string {
	if cfg.LanguageMode == LanguageTarget {
		return cfg.TargetLanguage
	}
	return k.sourceLanguage
}

// ClearHistory resets history to the system turn. Configuration and
// capabilities are untouched.
func (k *Kernel) ClearHistory() {
	removed := k.session.Len() - 1
	k.session.Reset()

	ctx := observability.WithSessionID(context.Background(), k.session.ID())
	k.emit(ctx, EventHistoryClear, observability.LevelInfo, map[string]any{
		"removed": removed,
	})
}

// History returns a copy of the full history, system turn first.
func (k *Kernel) History() []protocol.Message {
	return k.session.Messages()
}

// Config returns a copy of the session configuration.
func (k *Kernel) Config() SessionConfig {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.config
}

// SetLanguageMode sets the display language mode.
func (k *Kernel) SetLanguageMode(mode LanguageMode) error {
	if mode != LanguageSource && mode != LanguageTarget {
		return fmt.Errorf("%w: %q", ErrUnknownLanguageMode, mode)
	}

	k.mu.Lock()
	prev := k.config.LanguageMode
	k.config.LanguageMode = mode
	k.mu.Unlock()

	k.configChanged("language_mode", string(prev), string(mode))
	return nil
}

// ToggleLanguageMode switches between source and target display and returns
// the new mode.
func (k *Kernel) ToggleLanguageMode() LanguageMode {
	k.mu.Lock()
	prev := k.config.LanguageMode
	k.config.LanguageMode = prev.Toggle()
	next := k.config.LanguageMode
	k.mu.Unlock()

	k.configChanged("language_mode", string(prev), string(next))
	return next
}

// SetModel sets the active model by name.
func (k *Kernel) SetModel(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrModelRequired
	}

	k.mu.Lock()
	prev := k.config.ActiveModel
	k.config.ActiveModel = name
	k.mu.Unlock()

	k.configChanged("active_model", prev, name)
	return nil
}

// ChooseModel applies SelectModel to the probed model list using the
// configured default as the preference, and makes the result active.
func (k *Kernel) ChooseModel(override string) (string, error) {
	if k.caps.Get(capability.Completion) == capability.Unavailable {
		return "", &CapabilityUnavailableError{Capability: capability.Completion}
	}

	model := SelectModel(k.AvailableModels(), k.defaultModel, override)
	if err := k.SetModel(model); err != nil {
		return "", err
	}
	return model, nil
}

// AvailableModels returns the models found by the last probe.
func (k *Kernel) AvailableModels() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return slices.Clone(k.models)
}

// Capabilities returns a snapshot of every capability state.
func (k *Kernel) Capabilities() map[capability.Name]capability.State {
	return k.caps.Snapshot()
}

// State returns the current turn state.
func (k *Kernel) State() TurnState {
	return TurnState(k.state.Load())
}

// SessionID returns the session identifier.
func (k *Kernel) SessionID() string {
	return k.session.ID()
}

func (k *Kernel) transition(ctx context.Context, next TurnState) {
	prev := TurnState(k.state.Swap(int32(next)))
	k.emit(ctx, EventTurnState, observability.LevelVerbose, map[string]any{
		"from": prev.String(),
		"to":   next.String(),
	})
}

// usable reports whether a capability may be attempted: its client is
// present and it is not unavailable. Degraded capabilities are retried.
func (k *Kernel) usable(name capability.Name, present bool) bool {
	return present && k.caps.Get(name) != capability.Unavailable
}

func (k *Kernel) markFailure(ctx context.Context, name capability.Name) {
	prev, next := k.caps.MarkFailure(name)
	k.capabilityChanged(ctx, name, prev, next)
}

func (k *Kernel) markSuccess(ctx context.Context, name capability.Name) {
	prev, next := k.caps.MarkSuccess(name)
	k.capabilityChanged(ctx, name, prev, next)
}

func (k *Kernel) capabilityChanged(ctx context.Context, name capability.Name, prev, next capability.State) {
	if prev == next {
		return
	}

	level := observability.LevelInfo
	if next != capability.Available {
		level = observability.LevelWarning
	}
	k.emit(ctx, EventCapabilityChange, level, map[string]any{
		"capability": string(name),
		"from":       prev.String(),
		"to":         next.String(),
	})
}

func (k *Kernel) configChanged(field, from, to string) {
	ctx := observability.WithSessionID(context.Background(), k.session.ID())
	k.emit(ctx, EventConfigChange, observability.LevelInfo, map[string]any{
		"field": field,
		"from":  from,
		"to":    to,
	})
}

func (k *Kernel) emit(ctx context.Context, typ observability.EventType, level observability.Level, data map[string]any) {
	if k.observer == nil {
		return
	}
	k.observer.OnEvent(ctx, observability.NewEvent(typ, level, "kernel", data))
}
