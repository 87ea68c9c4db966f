package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/zaf/g711"
)

const (
	handshakeTimeout = 10 * time.Second
	audioChunkBytes  = 3200
	maxSpeakChars    = 1900
)

type (
	controlMessage struct {
		Type string `json:"type"`
	}

	speakText struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}

	serverMessage struct {
		Type        string `json:"type"`
		IsFinal     bool   `json:"is_final"`
		SpeechFinal bool   `json:"speech_final"`
		Description string `json:"description"`
		Channel     struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channel"`
	}
)

// Option configures a Deepgram listener or speaker.
type Option func(*deepgramBase)

// WithRecorder overrides the audio source used by Listen.
func WithRecorder(r RecorderFunc) Option {
	return func(b *deepgramBase) {
		b.recorder = r
		b.customAudio = true
	}
}

// WithPlayer overrides the audio sink used by Speak.
func WithPlayer(p PlayerFunc) Option {
	return func(b *deepgramBase) {
		b.player = p
		b.customAudio = true
	}
}

type deepgramBase struct {
	cfg      Config
	dialer   *websocket.Dialer
	recorder RecorderFunc
	player   PlayerFunc

	customAudio bool
}

func newDeepgramBase(cfg *Config, opts []Option) deepgramBase {
	b := deepgramBase{
		cfg:      *cfg,
		dialer:   &websocket.Dialer{HandshakeTimeout: handshakeTimeout, Proxy: http.ProxyFromEnvironment},
		recorder: CommandRecorder(cfg.RecorderCommand),
		player:   CommandPlayer(cfg.PlayerCommand),
	}
	if b.cfg.BaseURL == "" {
		b.cfg.BaseURL = DefaultBaseURL
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *deepgramBase) dial(ctx context.Context, path string, query url.Values) (*websocket.Conn, error) {
	endpoint := strings.TrimRight(b.cfg.BaseURL, "/") + path + "?" + query.Encode()
	header := http.Header{"Authorization": {"Token " + b.cfg.APIKey}}

	conn, resp, err := b.dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dialing %s: HTTP %d: %w", path, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dialing %s: %w", path, err)
	}
	return conn, nil
}

func (b *deepgramBase) check(argv []string) error {
	if b.cfg.APIKey == "" {
		return ErrMissingAPIKey
	}
	if b.customAudio {
		return nil
	}
	return lookCommand(argv)
}

// lockedConn serializes writes; gorilla connections allow one concurrent
// writer.
type lockedConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (c *lockedConn) writeBinary(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.WriteMessage(websocket.BinaryMessage, data)
}

func (c *lockedConn) writeJSON(v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.WriteMessage(websocket.TextMessage, data)
}

// DeepgramListener transcribes one utterance per Listen call over the
// Deepgram streaming listen socket.
type DeepgramListener struct {
	deepgramBase
}

// NewDeepgramListener creates a DeepgramListener.
func NewDeepgramListener(cfg *Config, opts ...Option) *DeepgramListener {
	return &DeepgramListener{deepgramBase: newDeepgramBase(cfg, opts)}
}

// Check verifies the API key and the recorder command.
func (l *DeepgramListener) Check(ctx context.Context) error {
	return l.check(l.cfg.RecorderCommand)
}

// Listen streams recorder audio until Deepgram marks the utterance final or
// timeout elapses. Text finalized before the timeout is still returned.
func (l *DeepgramListener) Listen(ctx context.Context, timeout time.Duration) (string, bool) {
	if timeout <= 0 {
		timeout = l.cfg.ListenTimeout()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, _ := l.listen(ctx)
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	return text, true
}

func (l *DeepgramListener) listen(ctx context.Context) (string, error) {
	query := url.Values{}
	query.Set("model", l.cfg.ListenModel)
	if l.cfg.ListenLanguage != "" {
		query.Set("language", l.cfg.ListenLanguage)
	}
	query.Set("encoding", "linear16")
	query.Set("sample_rate", strconv.Itoa(ListenSampleRate))
	query.Set("channels", "1")
	query.Set("punctuate", "true")
	query.Set("smart_format", "true")
	query.Set("interim_results", "true")

	ws, err := l.dial(ctx, "/v1/listen", query)
	if err != nil {
		return "", err
	}
	conn := &lockedConn{Conn: ws}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	source, err := l.recorder(ctx)
	if err != nil {
		return "", err
	}
	defer source.Close()

	go pumpAudio(conn, source)

	var transcript strings.Builder
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return transcript.String(), err
		}
		if kind != websocket.TextMessage {
			continue
		}

		var msg serverMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "Results":
			if msg.IsFinal && len(msg.Channel.Alternatives) > 0 {
				if t := strings.TrimSpace(msg.Channel.Alternatives[0].Transcript); t != "" {
					if transcript.Len() > 0 {
						transcript.WriteByte(' ')
					}
					transcript.WriteString(t)
				}
			}
			if msg.SpeechFinal && transcript.Len() > 0 {
				_ = conn.writeJSON(controlMessage{Type: "CloseStream"})
				return transcript.String(), nil
			}
		case "UtteranceEnd":
			if transcript.Len() > 0 {
				_ = conn.writeJSON(controlMessage{Type: "CloseStream"})
				return transcript.String(), nil
			}
		case "Error":
			return transcript.String(), fmt.Errorf("%w: %s", ErrServiceError, msg.Description)
		}
	}
}

func pumpAudio(conn *lockedConn, source io.Reader) {
	buf := make([]byte, audioChunkBytes)
	for {
		n, err := source.Read(buf)
		if n > 0 {
			if werr := conn.writeBinary(buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				_ = conn.writeJSON(controlMessage{Type: "Finalize"})
			}
			return
		}
	}
}

// DeepgramSpeaker speaks text over the Deepgram speak socket. Audio arrives
// as 8 kHz mu-law and is decoded to linear16 for the player.
type DeepgramSpeaker struct {
	deepgramBase
}

// NewDeepgramSpeaker creates a DeepgramSpeaker.
func NewDeepgramSpeaker(cfg *Config, opts ...Option) *DeepgramSpeaker {
	return &DeepgramSpeaker{deepgramBase: newDeepgramBase(cfg, opts)}
}

// Check verifies the API key and the player command.
func (s *DeepgramSpeaker) Check(ctx context.Context) error {
	return s.check(s.cfg.PlayerCommand)
}

// Speak plays text and blocks until playback completes, ctx is cancelled or
// the service fails.
func (s *DeepgramSpeaker) Speak(ctx context.Context, text, lang string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	return s.speak(ctx, text, lang) == nil
}

func (s *DeepgramSpeaker) speak(ctx context.Context, text, lang string) error {
	query := url.Values{}
	query.Set("model", s.cfg.Voice(lang))
	query.Set("encoding", "mulaw")
	query.Set("sample_rate", strconv.Itoa(SpeakSampleRate))

	ws, err := s.dial(ctx, "/v1/speak", query)
	if err != nil {
		return err
	}
	conn := &lockedConn{Conn: ws}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	sink, err := s.player(ctx)
	if err != nil {
		return err
	}

	chunks := splitText(text, maxSpeakChars)
	for _, chunk := range chunks {
		if err := conn.writeJSON(speakText{Type: "Speak", Text: chunk}); err != nil {
			sink.Close()
			return err
		}
		if err := conn.writeJSON(controlMessage{Type: "Flush"}); err != nil {
			sink.Close()
			return err
		}
	}

	flushed := 0
	for flushed < len(chunks) {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			sink.Close()
			return err
		}

		if kind == websocket.BinaryMessage {
			if _, err := sink.Write(g711.DecodeUlaw(data)); err != nil {
				sink.Close()
				return fmt.Errorf("writing audio: %w", err)
			}
			continue
		}

		var msg serverMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "Flushed":
			flushed++
		case "Error":
			sink.Close()
			return fmt.Errorf("%w: %s", ErrServiceError, msg.Description)
		}
	}

	_ = conn.writeJSON(controlMessage{Type: "Close"})
	return sink.Close()
}

// splitText breaks text into pieces of at most limit bytes, preferring
// whitespace boundaries.
func splitText(text string, limit int) []string {
	var chunks []string
	for len(text) > limit {
		cut := strings.LastIndexAny(text[:limit], " \n\t")
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		chunks = append(chunks, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
