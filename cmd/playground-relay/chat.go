package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/samber/ro"
	"github.com/spf13/cobra"

	"github.com/omarluq/playground-relay/internal/adapter"
	"github.com/omarluq/playground-relay/internal/chat"
	"github.com/omarluq/playground-relay/internal/di"
	relayro "github.com/omarluq/playground-relay/internal/ro"
)

// Environment variables read for the credential when --credential-env is unset.
var defaultCredentialEnv = map[chat.ProviderKind]string{
	chat.ProviderAnthropic:        "ANTHROPIC_API_KEY",
	chat.ProviderGemini:           "GEMINI_API_KEY",
	chat.ProviderOpenAICompatible: "OPENROUTER_API_KEY",
}

type chatOptions struct {
	temperature   float64
	provider      string
	model         string
	system        string
	credentialEnv string
	maxTokens     int
	thinking      bool
	showThinking  bool
	events        bool
}

var chatOpts chatOptions

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send one chat request and stream the answer",
	Long: `Send a single user message through the configured providers and print the
answer as it streams. The credential is read from an environment variable,
never from a flag, and is not printed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChat,
}

func init() {
	flags := chatCmd.Flags()
	flags.StringVarP(&chatOpts.provider, "provider", "p", string(chat.ProviderAnthropic),
		"provider: anthropic, gemini, openai_compatible")
	flags.StringVarP(&chatOpts.model, "model", "m", "", "upstream model name")
	flags.StringVar(&chatOpts.system, "system", "", "system prompt")
	flags.StringVar(&chatOpts.credentialEnv, "credential-env", "",
		"environment variable holding the credential (default depends on provider)")
	flags.IntVar(&chatOpts.maxTokens, "max-tokens", 0, "maximum answer tokens")
	flags.Float64Var(&chatOpts.temperature, "temperature", -1, "sampling temperature (unset when negative)")
	flags.BoolVar(&chatOpts.thinking, "thinking", false, "request reasoning output")
	flags.BoolVar(&chatOpts.showThinking, "show-thinking", false, "print reasoning deltas to stderr")
	flags.BoolVar(&chatOpts.events, "events", false, "print every normalized event as a JSON line")
	_ = chatCmd.MarkFlagRequired("model")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	container, err := di.NewContainer(configPath())
	if err != nil {
		return err
	}
	defer func() { _ = container.Shutdown() }()

	// stdout carries the answer. The logger is not built yet, so redirecting
	// the loaded config is enough.
	logging := &di.MustInvoke[*di.ConfigService](container).Get().Logging
	if logging.Output == "" || logging.Output == "stdout" {
		logging.Output = "stderr"
	}

	adapterSvc, err := di.Invoke[*di.AdapterService](container)
	if err != nil {
		return err
	}
	loggerSvc := di.MustInvoke[*di.LoggerService](container)

	req, err := buildChatRequest(chatOpts, strings.Join(args, " "), os.Getenv)
	if err != nil {
		return err
	}

	var transcript relayro.Transcript
	if chatOpts.events {
		transcript, err = printEvents(cmd.Context(), adapterSvc.Adapter, req, cmd.OutOrStdout())
	} else {
		var thinkingOut io.Writer
		if chatOpts.showThinking {
			thinkingOut = cmd.ErrOrStderr()
		}
		transcript, err = streamChat(cmd.Context(), adapterSvc.Adapter, req, loggerSvc.Logger, cmd.OutOrStdout(), thinkingOut)
	}
	if err != nil {
		return err
	}

	loggerSvc.Logger.Info().
		Str("provider", string(req.Provider)).
		Str("finish_reason", string(transcript.Terminal.FinishReason)).
		Int("deltas", transcript.Deltas).
		Msg("chat completed")
	return nil
}

// buildChatRequest assembles the request from flags. getenv is os.Getenv
// outside tests.
func buildChatRequest(opts chatOptions, message string, getenv func(string) string) (*chat.Request, error) {
	kind, ok := chat.ParseProviderKind(opts.provider)
	if !ok {
		return nil, fmt.Errorf("unsupported provider %q", opts.provider)
	}

	envName := opts.credentialEnv
	if envName == "" {
		envName = defaultCredentialEnv[kind]
	}
	credential := strings.TrimSpace(getenv(envName))
	if credential == "" {
		return nil, fmt.Errorf("no credential found: set %s", envName)
	}

	messages := make([]chat.Message, 0, 2)
	if opts.system != "" {
		messages = append(messages, chat.Message{Role: chat.RoleSystem, Content: opts.system})
	}
	messages = append(messages, chat.Message{Role: chat.RoleUser, Content: message})

	req := &chat.Request{
		Provider:   kind,
		Model:      opts.model,
		Credential: credential,
		Messages:   messages,
	}
	if opts.maxTokens > 0 {
		req.MaxTokens = lo.ToPtr(opts.maxTokens)
	}
	if opts.temperature >= 0 {
		req.Temperature = lo.ToPtr(opts.temperature)
	}
	if opts.thinking {
		req.ThinkingEnabled = lo.ToPtr(true)
	}
	return req, nil
}

type chatRunner interface {
	Run(ctx context.Context, req *chat.Request) (*adapter.Stream, error)
}

// streamChat runs req and writes text deltas to out as they arrive. Thinking
// deltas go to thinkingOut when it is non-nil. A terminal error event is
// returned as the error.
func streamChat(
	ctx context.Context,
	runner chatRunner,
	req *chat.Request,
	logger *zerolog.Logger,
	out, thinkingOut io.Writer,
) (relayro.Transcript, error) {
	stream, err := runner.Run(ctx, req)
	if err != nil {
		return relayro.Transcript{}, err
	}
	defer func() { _ = stream.Close() }()

	events := ro.Pipe2(
		stream.Observable(),
		relayro.LogEvents(logger, string(req.Provider)),
		relayro.DoOnEvent(func(ev chat.Event) {
			switch ev.Type {
			case chat.EventTextDelta:
				_, _ = io.WriteString(out, ev.Text)
			case chat.EventThinkingDelta:
				if thinkingOut != nil {
					_, _ = io.WriteString(thinkingOut, ev.Text)
				}
			}
		}),
	)

	transcript, err := relayro.CollectTranscript(ctx, events)
	if err != nil {
		return transcript, err
	}
	_, _ = io.WriteString(out, "\n")

	if !transcript.Completed() && transcript.Err() == nil {
		return transcript, errors.New("stream ended without a terminal event")
	}
	return transcript, transcript.Err()
}

// printEvents writes each normalized event as one JSON line, the same payload
// the server sends in its SSE data field.
func printEvents(ctx context.Context, runner chatRunner, req *chat.Request, out io.Writer) (relayro.Transcript, error) {
	stream, err := runner.Run(ctx, req)
	if err != nil {
		return relayro.Transcript{}, err
	}
	defer func() { _ = stream.Close() }()

	enc := json.NewEncoder(out)
	var events []chat.Event
	for {
		ev, ok := stream.Next()
		if !ok {
			break
		}
		if err := enc.Encode(ev); err != nil {
			return relayro.Transcript{}, fmt.Errorf("write event: %w", err)
		}
		events = append(events, ev)
	}

	transcript := relayro.Fold(events)
	return transcript, transcript.Err()
}
