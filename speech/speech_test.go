package speech_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tailored-agentic-units/converse/speech"
)

var upgrader = websocket.Upgrader{}

func wsServer(t *testing.T, handler func(r *http.Request, conn *websocket.Conn)) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Token test-key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		handler(r, conn)
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testConfig(baseURL string) *speech.Config {
	cfg := speech.DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.APIKey = "test-key"
	return &cfg
}

type bufferSink struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

func (b *bufferSink) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *bufferSink) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func silence(n int) speech.RecorderFunc {
	return func(ctx context.Context) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(make([]byte, n))), nil
	}
}

func TestDeepgramListener_Listen(t *testing.T) {
	requests := make(chan *http.Request, 1)

	base := wsServer(t, func(r *http.Request, conn *websocket.Conn) {
		requests <- r

		kind, _, err := conn.ReadMessage()
		if err != nil || kind != websocket.BinaryMessage {
			t.Errorf("expected audio frame, got kind %d err %v", kind, err)
			return
		}

		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Results","is_final":true,"speech_final":false,"channel":{"alternatives":[{"transcript":"hello"}]}}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Results","is_final":true,"speech_final":true,"channel":{"alternatives":[{"transcript":"there"}]}}`))

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	listener := speech.NewDeepgramListener(testConfig(base), speech.WithRecorder(silence(6400)))

	text, ok := listener.Listen(context.Background(), 2*time.Second)
	if !ok {
		t.Fatal("expected Listen to succeed")
	}
	if text != "hello there" {
		t.Errorf("got %q, want %q", text, "hello there")
	}
	r := <-requests
	if r.URL.Path != "/v1/listen" {
		t.Errorf("got path %q, want /v1/listen", r.URL.Path)
	}
	if got := r.URL.Query().Get("sample_rate"); got != "16000" {
		t.Errorf("got sample_rate %q, want 16000", got)
	}
}

func TestDeepgramListener_NoSpeech(t *testing.T) {
	base := wsServer(t, func(r *http.Request, conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	listener := speech.NewDeepgramListener(testConfig(base), speech.WithRecorder(silence(3200)))

	start := time.Now()
	text, ok := listener.Listen(context.Background(), 100*time.Millisecond)
	if ok || text != "" {
		t.Errorf("got (%q, %v), want no utterance", text, ok)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Listen took %v, want it bounded by the timeout", elapsed)
	}
}

func TestDeepgramListener_Unauthorized(t *testing.T) {
	base := wsServer(t, func(r *http.Request, conn *websocket.Conn) {})

	cfg := testConfig(base)
	cfg.APIKey = "wrong"
	listener := speech.NewDeepgramListener(cfg, speech.WithRecorder(silence(10)))

	if _, ok := listener.Listen(context.Background(), time.Second); ok {
		t.Error("expected Listen to fail with a rejected key")
	}
}

func TestDeepgramSpeaker_Speak(t *testing.T) {
	models := make(chan string, 1)
	texts := make(chan string, 1)
	audio := []byte{0xFF, 0x7F, 0x00, 0x80}

	base := wsServer(t, func(r *http.Request, conn *websocket.Conn) {
		models <- r.URL.Query().Get("model")

		_, speak, err := conn.ReadMessage()
		if err != nil {
			t.Errorf("reading Speak: %v", err)
			return
		}
		texts <- string(speak)

		if _, flush, err := conn.ReadMessage(); err != nil || !strings.Contains(string(flush), "Flush") {
			t.Errorf("expected Flush, got %q err %v", flush, err)
			return
		}

		conn.WriteMessage(websocket.BinaryMessage, audio)
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Flushed","sequence_id":0}`))

		conn.ReadMessage()
	})

	sink := &bufferSink{}
	speaker := speech.NewDeepgramSpeaker(testConfig(base), speech.WithPlayer(func(ctx context.Context) (io.WriteCloser, error) {
		return sink, nil
	}))

	if !speaker.Speak(context.Background(), "Hello there", "hi") {
		t.Fatal("expected Speak to succeed")
	}

	if got := <-models; got != speech.DefaultVoice {
		t.Errorf("got model %q, want fallback voice %q", got, speech.DefaultVoice)
	}
	if got := <-texts; !strings.Contains(got, `"Hello there"`) {
		t.Errorf("got Speak message %s", got)
	}
	if got, want := sink.buf.Len(), 2*len(audio); got != want {
		t.Errorf("got %d PCM bytes, want %d", got, want)
	}
	if !sink.closed {
		t.Error("player was not closed")
	}
}

func TestDeepgramSpeaker_ServiceError(t *testing.T) {
	base := wsServer(t, func(r *http.Request, conn *websocket.Conn) {
		conn.ReadMessage()
		conn.ReadMessage()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Error","description":"bad voice"}`))
		conn.ReadMessage()
	})

	speaker := speech.NewDeepgramSpeaker(testConfig(base), speech.WithPlayer(func(ctx context.Context) (io.WriteCloser, error) {
		return &bufferSink{}, nil
	}))

	if speaker.Speak(context.Background(), "Hello", "en") {
		t.Error("expected Speak to report failure")
	}
}

func TestDeepgramSpeaker_EmptyText(t *testing.T) {
	speaker := speech.NewDeepgramSpeaker(testConfig("ws://127.0.0.1:1"))
	if speaker.Speak(context.Background(), "  ", "en") {
		t.Error("expected Speak to refuse blank text")
	}
}

func TestCheck(t *testing.T) {
	cfg := speech.DefaultConfig()
	listener := speech.NewDeepgramListener(&cfg)
	if err := listener.Check(context.Background()); !errors.Is(err, speech.ErrMissingAPIKey) {
		t.Errorf("got %v, want ErrMissingAPIKey", err)
	}

	cfg.APIKey = "k"
	cfg.PlayerCommand = []string{"definitely-not-an-audio-player-xyz"}
	speaker := speech.NewDeepgramSpeaker(&cfg)
	if err := speaker.Check(context.Background()); err == nil {
		t.Error("expected Check to fail for a missing player command")
	}

	custom := speech.NewDeepgramSpeaker(&cfg, speech.WithPlayer(func(ctx context.Context) (io.WriteCloser, error) {
		return &bufferSink{}, nil
	}))
	if err := custom.Check(context.Background()); err != nil {
		t.Errorf("custom player Check failed: %v", err)
	}
}

func TestNew(t *testing.T) {
	cfg := speech.DefaultConfig()
	if _, _, err := speech.New(&cfg); !errors.Is(err, speech.ErrMissingAPIKey) {
		t.Errorf("got %v, want ErrMissingAPIKey", err)
	}

	cfg.Provider = speech.ProviderNone
	l, s, err := speech.New(&cfg)
	if err != nil || l != nil || s != nil {
		t.Errorf("got (%v, %v, %v), want absent speech", l, s, err)
	}

	cfg.Provider = speech.ProviderDeepgram
	cfg.APIKey = "k"
	l, s, err = speech.New(&cfg)
	if err != nil || l == nil || s == nil {
		t.Errorf("got (%v, %v, %v), want deepgram speech", l, s, err)
	}
}

func TestConfig_Voice(t *testing.T) {
	cfg := speech.DefaultConfig()
	cfg.Merge(&speech.Config{Voices: map[string]string{"hi": "aura-hindi"}})

	tests := []struct {
		lang string
		want string
	}{
		{"hi", "aura-hindi"},
		{"en", speech.DefaultVoice},
		{"fr", speech.DefaultVoice},
	}

	for _, tt := range tests {
		if got := cfg.Voice(tt.lang); got != tt.want {
			t.Errorf("Voice(%q): got %q, want %q", tt.lang, got, tt.want)
		}
	}
}
