package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/tailored-agentic-units/converse/kernel"
	"github.com/tailored-agentic-units/converse/observability"
)

// flags shared by every subcommand.
type flags struct {
	configFile     string
	verbose        bool
	logFile        string
	logFormat      string
	model          string
	language       string
	targetLanguage string
	provider       string
	promptPath     string
	activityLevel  string
}

// app holds what PersistentPreRunE builds for the subcommands.
type app struct {
	flags  flags
	cfg    kernel.Config
	logger *slog.Logger
	logOut io.Closer
}

// loadConfig layers the config file, the environment and the flags, in that
// order, over the defaults.
func (a *app) loadConfig() error {
	cfg := kernel.DefaultConfig()
	if a.flags.configFile != "" {
		loaded, err := kernel.LoadConfig(a.flags.configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	cfg.ApplyEnv(os.Getenv)

	if a.flags.provider != "" {
		cfg.Completion.Provider = a.flags.provider
	}
	if a.flags.model != "" {
		cfg.Completion.DefaultModel = a.flags.model
	}
	if a.flags.language != "" {
		cfg.LanguageMode = a.flags.language
	}
	if a.flags.targetLanguage != "" {
		cfg.TargetLanguage = a.flags.targetLanguage
	}
	if a.flags.promptPath != "" {
		cfg.Prompt.Path = a.flags.promptPath
	}

	a.cfg = cfg
	return nil
}

// initLogging builds the slog logger and registers it as the "slog"
// observer. When toFile is set and no log file was given, logs are
// discarded so they do not draw over the chat screen.
func (a *app) initLogging(toFile bool) error {
	level := slog.LevelInfo
	if a.flags.verbose {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	switch {
	case a.flags.logFile != "":
		f, err := os.OpenFile(a.flags.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		w, a.logOut = f, f
	case toFile:
		w = io.Discard
	}

	a.logger = observability.NewLogger(w, level, a.flags.logFormat)
	slog.SetDefault(a.logger)
	observability.RegisterObserver("slog", observability.NewSlogObserver(a.logger))
	return nil
}

func (a *app) close() {
	if a.logOut != nil {
		a.logOut.Close()
	}
}

// newKernel creates the session manager and probes every capability.
func (a *app) newKernel(ctx context.Context, opts ...kernel.Option) (*kernel.Kernel, error) {
	k, err := kernel.New(ctx, &a.cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	for _, r := range k.Probe(ctx) {
		if r.Err != nil {
			a.logger.Debug("capability probe failed", "capability", r.Name, "error", r.Err)
		}
	}
	return k, nil
}
