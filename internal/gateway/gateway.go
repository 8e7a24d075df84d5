package gateway

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"cinechat/internal/chat"
	"cinechat/internal/config"
	"cinechat/internal/console"
	"cinechat/internal/llm"
	"cinechat/internal/logging"
	"cinechat/internal/movies"
	"cinechat/internal/trace"
)

const unknownFunctionReply = "Sorry, I can't do that. I can help you find a movie and buy a ticket for it."

// Gateway wires configuration, the model adapter and the movie tools into a
// chat session and drives it from a terminal.
type Gateway struct {
	ConfigPath string

	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Adapter replaces the configured model client when set.
	Adapter chat.Adapter
	// Tools replaces the demo catalog when set.
	Tools chat.Tools
}

func New(configPath string) *Gateway {
	return &Gateway{
		ConfigPath: configPath,
		In:         os.Stdin,
		Out:        os.Stdout,
		Err:        os.Stderr,
	}
}

func (g *Gateway) initService() (*chat.Service, config.Config, func(), error) {
	cfg, err := config.Load(g.ConfigPath)
	if err != nil {
		return nil, config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	level, _ := cfg.SlogLevel()
	logger := logging.New(g.Err, level, false)

	adapter := g.Adapter
	if adapter == nil {
		adapter, err = llm.NewAdapter(llm.Options{
			Provider: cfg.Provider,
			Model:    cfg.Model,
			BaseURL:  cfg.BaseURL,
			APIKey:   cfg.APIKey,
		})
		if err != nil {
			return nil, config.Config{}, nil, fmt.Errorf("failed to initialize adapter: %w", err)
		}
	}

	cleanup := func() {}
	var tw *trace.Writer
	if cfg.TracePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.TracePath), 0o755); err != nil {
			logger.Warn("trace disabled: cannot create directory", "path", cfg.TracePath, "err", err)
		} else if f, err := os.OpenFile(cfg.TracePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err != nil {
			logger.Warn("trace disabled: cannot open file", "path", cfg.TracePath, "err", err)
		} else {
			tw = trace.New(f)
			cleanup = func() { _ = f.Close() }
		}
	}

	tools := g.Tools
	if tools == nil {
		tools = movies.NewDemoCatalog()
	}
	dispatcher := chat.NewDispatcher(tools,
		chat.WithToolTimeout(time.Duration(cfg.ToolTimeout)),
		chat.WithLegacyNameMatching(cfg.LegacyNameMatching),
		chat.WithConfirmationSource(cfg.ConfirmationSource),
		chat.WithConfirmPolicy(cfg.ConfirmPolicy),
	)

	service := chat.NewService(adapter, dispatcher,
		chat.WithParams(chat.Params{
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		}),
		chat.WithTransport(console.NewPrinter(g.Out, "cinechat")),
		chat.WithMaxCallDepth(cfg.MaxCallDepth),
		chat.WithModelTimeout(time.Duration(cfg.ModelTimeout)),
		chat.WithRepromptOnArgumentError(cfg.RepromptOnArgumentError),
		chat.WithLogger(logger.With(slog.String("component", "chat"))),
		chat.WithTrace(tw),
	)
	logger.Debug("session started", "session", service.ID(), "provider", cfg.Provider, "model", cfg.Model)
	return service, cfg, cleanup, nil
}

// Execute runs a single turn. The reply is streamed to Out.
func (g *Gateway) Execute(ctx context.Context, input string) error {
	service, _, cleanup, err := g.initService()
	if err != nil {
		return err
	}
	defer cleanup()

	return g.turn(ctx, service, input)
}

// turn runs one message through service. Fallback replies never come from
// the model stream, and rejected calls are only shown as a note by the
// console, so both get a line here.
func (g *Gateway) turn(ctx context.Context, service *chat.Service, input string) error {
	t, err := service.Run(ctx, input)
	if err != nil {
		return err
	}
	switch t.Outcome {
	case chat.OutcomeModelFailure, chat.OutcomeToolTimeout, chat.OutcomeDepthExceeded:
		fmt.Fprintln(g.Out, t.Reply)
	case chat.OutcomeArgumentError:
		var argErr *chat.ArgumentError
		if errors.As(t.Err, &argErr) {
			fmt.Fprintf(g.Out, "I need a bit more information before I can run %s. Missing: %s.\n",
				argErr.Function, strings.Join(argErr.Missing, ", "))
		} else {
			fmt.Fprintln(g.Out, t.Reply)
		}
	case chat.OutcomeUnknownFunction:
		fmt.Fprintln(g.Out, unknownFunctionReply)
	}
	return nil
}

func (g *Gateway) Run(ctx context.Context) error {
	service, cfg, cleanup, err := g.initService()
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Fprintln(g.Out, "cinechat")
	fmt.Fprintf(g.Out, "model=%s, provider=%s, url=%s\n", cfg.Model, cfg.Provider, valueOrDefault(cfg.BaseURL, "default"))
	fmt.Fprintln(g.Out, "Type /exit to quit, /clear to reset context, /history to show the conversation.")

	scanner := bufio.NewScanner(g.In)
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(g.Out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(g.Out)
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		switch input {
		case "/exit", "exit", "quit":
			return nil
		case "/clear":
			service.Clear()
			fmt.Fprintln(g.Out, "context cleared")
			continue
		case "/history":
			printHistory(g.Out, service.History())
			continue
		}

		if err := g.turn(ctx, service, input); err != nil {
			fmt.Fprintf(g.Err, "error: %v\n", err)
		}
	}
}

func printHistory(w io.Writer, msgs []chat.Message) {
	// Skip the system prompt.
	for _, m := range msgs[1:] {
		fmt.Fprintf(w, "[%s] %s\n", m.Role, clip(m.Content, historyPreviewRunes))
	}
}

const historyPreviewRunes = 200

// clip shortens s to at most n runes.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func valueOrDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
