// Command converse is a conversational assistant: a terminal chat UI, a
// connect server for the same session, and one-shot helpers.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/converse/capability"
	"github.com/tailored-agentic-units/converse/command"
	"github.com/tailored-agentic-units/converse/kernel"
	"github.com/tailored-agentic-units/converse/observability"
	"github.com/tailored-agentic-units/converse/rpc"
	"github.com/tailored-agentic-units/converse/tui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "converse",
		Short:         "Chat with a hosted model, with translation and speech",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(); err != nil {
				return err
			}
			return a.initLogging(cmd.Name() == "converse" || cmd.Name() == "chat")
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configFile, "config", "", "config file (.json, .yaml or .yml)")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&a.flags.logFile, "log-file", "", "write logs to this file")
	pf.StringVar(&a.flags.logFormat, "log-format", observability.FormatText, "log format: text or json")
	pf.StringVar(&a.flags.provider, "provider", "", "completion provider: openai or gemini (overrides config)")
	pf.StringVar(&a.flags.model, "model", "", "default completion model (overrides config)")
	pf.StringVar(&a.flags.language, "language", "", "reply language mode: source or target (overrides config)")
	pf.StringVar(&a.flags.targetLanguage, "target-language", "", "translation target language code (overrides config)")
	pf.StringVar(&a.flags.promptPath, "prompts", "", "directory of system prompt fragments (overrides config)")

	chat := chatCmd(a)
	root.RunE = chat.RunE
	root.Flags().AddFlagSet(chat.Flags())

	root.AddCommand(chat, serveCmd(a), probeCmd(a), modelsCmd(a), translateCmd(a), askCmd(a))
	return root
}

func chatCmd(a *app) *cobra.Command {
	var speak bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start the interactive chat (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			threshold, err := observability.ParseLevel(a.flags.activityLevel)
			if err != nil {
				return err
			}
			activity := observability.NewRecorder(64)
			slogObs, err := observability.GetObserver(a.cfg.Observer)
			if err != nil {
				return err
			}

			k, err := a.newKernel(ctx, kernel.WithObserver(observability.Fanout(slogObs, observability.AtLeast(threshold, activity))))
			if err != nil {
				return err
			}

			return tui.Run(ctx, k, tui.Options{
				SourceLanguage: a.cfg.Translation.SourceLanguage,
				Speak:          speak,
				Activity:       activity,
			})
		},
	}
	cmd.Flags().BoolVar(&speak, "speak", false, "speak replies aloud")
	cmd.Flags().StringVar(&a.flags.activityLevel, "activity-level", "info", "lowest event level shown in the activity footer")
	return cmd
}

func serveCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session over connect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			k, err := a.newKernel(ctx)
			if err != nil {
				return err
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("failed to listen: %w", err)
			}

			obs, err := observability.GetObserver(a.cfg.Observer)
			if err != nil {
				return err
			}

			a.logger.Info("serving session", "addr", ln.Addr().String(), "service", rpc.ServiceName, "session_id", k.SessionID())
			return rpc.Serve(ctx, ln, k, obs)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	return cmd
}

func probeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check every service and print the session status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := a.newKernel(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			st := k.Status()
			for _, name := range capability.Names() {
				fmt.Fprintf(out, "%-12s %s\n", name, st.Capabilities[name])
			}
			fmt.Fprintf(out, "%-12s %s\n", "model", st.ActiveModel)
			fmt.Fprintf(out, "%-12s %s (%s)\n", "language", st.LanguageMode, st.TargetLanguage)
			return nil
		},
	}
}

func modelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the completion models offered for selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := a.newKernel(cmd.Context())
			if err != nil {
				return err
			}
			if k.Capabilities()[capability.Completion] == capability.Unavailable {
				return &kernel.CapabilityUnavailableError{Capability: capability.Completion}
			}

			active := k.Config().ActiveModel
			for i, m := range k.AvailableModels() {
				marker := " "
				if m == active {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d. %s\n", marker, i+1, m)
			}
			return nil
		},
	}
}

func translateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "translate <text>",
		Short: "Translate text into the target language",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := kernel.New(cmd.Context(), &a.cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), k.Translate(cmd.Context(), strings.Join(args, " ")))
			return nil
		},
	}
}

func askCmd(a *app) *cobra.Command {
	var speak bool

	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Send one message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			k, err := a.newKernel(ctx)
			if err != nil {
				return err
			}

			input := strings.Join(args, " ")
			if parsed := command.Parse(input); !parsed.IsMessage() {
				result, err := command.Bind(k, a.cfg.Translation.SourceLanguage).Execute(ctx, parsed)
				if err != nil {
					return err
				}
				input = result.Message
				if input == "" {
					fmt.Fprintln(cmd.OutOrStdout(), result.Content)
					return nil
				}
			}

			result, err := k.ExecuteTurnWith(ctx, input, kernel.TurnOptions{Speak: speak})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.DisplayText)
			return nil
		},
	}
	cmd.Flags().BoolVar(&speak, "speak", false, "speak the reply aloud")
	return cmd
}
