// Package observability carries structured events from the session manager
// and its leaf clients to logs, tests and the terminal UI. Level values align
// with OpenTelemetry SeverityNumbers so events can be forwarded to an OTel
// collector without translation.
package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

var ErrUnknownLevel = errors.New("unknown level")

// Level is event severity on the OpenTelemetry SeverityNumber scale.
type Level int

const (
	LevelVerbose Level = 5  // first of the OTel DEBUG band
	LevelInfo    Level = 9  // first of the OTel INFO band
	LevelWarning Level = 13 // first of the OTel WARN band
	LevelError   Level = 17 // first of the OTel ERROR band
)

// severity bands, ordered by upper bound.
var bands = []struct {
	upper Level
	text  string
	slog  slog.Level
}{
	{4, "TRACE", slog.LevelDebug},
	{8, "DEBUG", slog.LevelDebug},
	{12, "INFO", slog.LevelInfo},
	{16, "WARN", slog.LevelWarn},
	{20, "ERROR", slog.LevelError},
}

func (l Level) band() int {
	for i, b := range bands {
		if l <= b.upper {
			return i
		}
	}
	return len(bands)
}

// String returns the OTel severity text for the level.
func (l Level) String() string {
	if i := l.band(); i < len(bands) {
		return bands[i].text
	}
	return "FATAL"
}

// SlogLevel maps the level onto slog's four levels.
func (l Level) SlogLevel() slog.Level {
	if i := l.band(); i < len(bands) {
		return bands[i].slog
	}
	return slog.LevelError
}

// ParseLevel reads a severity name as accepted on the command line:
// verbose (or debug), info, warning (or warn) and error, in any case.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "verbose", "debug":
		return LevelVerbose, nil
	case "info":
		return LevelInfo, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
}

// EventType names an event, dotted by subsystem ("kernel.turn.start").
type EventType string

// Event is one observation. Type becomes the log message; Data keys become
// attributes.
type Event struct {
	Type      EventType
	Level     Level
	Timestamp time.Time
	Source    string
	Data      map[string]any
}

// NewEvent builds an Event stamped with the current time.
func NewEvent(typ EventType, level Level, source string, data map[string]any) Event {
	return Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    source,
		Data:      data,
	}
}

// Observer receives events.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, event Event)

func (f ObserverFunc) OnEvent(ctx context.Context, event Event) {
	f(ctx, event)
}
