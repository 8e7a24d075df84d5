package gateway

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"cinechat/internal/chat"
)

type replayAdapter struct {
	replies []string
	calls   int
}

func (a *replayAdapter) ReplyStream(_ context.Context, _ []chat.Message, _ *chat.Params, streamFn func(string)) (string, error) {
	reply := a.replies[a.calls%len(a.replies)]
	a.calls++
	if streamFn != nil {
		streamFn(reply)
	}
	return reply, nil
}

func newTestGateway(t *testing.T, input string, replies ...string) (*Gateway, *bytes.Buffer, *replayAdapter) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, kv := range os.Environ() {
		if name, _, _ := strings.Cut(kv, "="); strings.HasPrefix(name, "CINECHAT_") {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
	t.Setenv("CINECHAT_LOG_LEVEL", "error")

	out := &bytes.Buffer{}
	a := &replayAdapter{replies: replies}
	g := &Gateway{
		In:      strings.NewReader(input),
		Out:     out,
		Err:     &bytes.Buffer{},
		Adapter: a,
	}
	return g, out, a
}

func TestRunDrivesTurnsUntilExit(t *testing.T) {
	g, out, a := newTestGateway(t,
		"What is playing?\n/history\n/exit\nignored\n",
		`{"function_name":"get_now_playing_movies","arguments":{},"rationale":"r"}`,
		"Dune: Part Two is playing.",
	)

	if err := g.Run(context.Background()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if a.calls != 2 {
		t.Fatalf("expected 2 model calls, got %d", a.calls)
	}
	got := out.String()
	for _, want := range []string{
		"calling get_now_playing_movies",
		"Dune: Part Two is playing.",
		"[user] What is playing?",
		"[system] These are the movies currently playing:",
		"[assistant] Dune: Part Two is playing.",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRunClear(t *testing.T) {
	g, out, _ := newTestGateway(t, "hi there\n/clear\n/history\n", "Hello!")
	if err := g.Run(context.Background()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "context cleared") {
		t.Fatalf("expected clear confirmation:\n%s", got)
	}
	if strings.Contains(got, "[user] hi there") {
		t.Fatalf("history should be empty after clear:\n%s", got)
	}
}

func TestExecuteSingleTurn(t *testing.T) {
	g, out, a := newTestGateway(t, "", "Inception is a great pick.")
	if err := g.Execute(context.Background(), "Recommend something"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if a.calls != 1 || !strings.Contains(out.String(), "Inception is a great pick.") {
		t.Fatalf("unexpected run: calls=%d out=%q", a.calls, out.String())
	}
}

func TestExecutePrintsFallbackReply(t *testing.T) {
	g, out, a := newTestGateway(t, "",
		`{"function_name":"get_now_playing_movies","arguments":{},"rationale":"again"}`)
	if err := g.Execute(context.Background(), "loop forever"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if a.calls != chat.DefaultMaxCallDepth+1 {
		t.Fatalf("expected %d model calls, got %d", chat.DefaultMaxCallDepth+1, a.calls)
	}
	if !strings.Contains(out.String(), chat.DepthExceededReply) {
		t.Fatalf("fallback reply not printed:\n%s", out.String())
	}
}

func TestExecuteRejectsEmptyInput(t *testing.T) {
	g, _, a := newTestGateway(t, "", "unused")
	if err := g.Execute(context.Background(), "   "); err == nil {
		t.Fatalf("expected error for empty input")
	}
	if a.calls != 0 {
		t.Fatalf("model should not be called, got %d calls", a.calls)
	}
}

func TestExecuteExplainsMissingArguments(t *testing.T) {
	g, out, _ := newTestGateway(t, "",
		`{"function_name":"get_showtimes","arguments":{"title":"Inception"},"rationale":"r"}`)
	if err := g.Execute(context.Background(), "When is Inception on?"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "calling get_showtimes") {
		t.Fatalf("expected call note:\n%s", got)
	}
	if !strings.Contains(got, "Missing: location.") {
		t.Fatalf("missing arguments not reported to the user:\n%s", got)
	}
}

func TestExecuteExplainsUnknownFunction(t *testing.T) {
	g, out, _ := newTestGateway(t, "",
		`{"function_name":"get_weather","arguments":{},"rationale":"r"}`)
	if err := g.Execute(context.Background(), "Will it rain?"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !strings.Contains(out.String(), unknownFunctionReply) {
		t.Fatalf("no reply for unknown function:\n%s", out.String())
	}
}

func TestClipKeepsRunesWhole(t *testing.T) {
	s := strings.Repeat("é", 250)
	got := clip(s, historyPreviewRunes)
	if !utf8.ValidString(got) {
		t.Fatalf("clip produced invalid UTF-8: %q", got)
	}
	if want := strings.Repeat("é", historyPreviewRunes) + "..."; got != want {
		t.Fatalf("clip = %q, want %d runes plus ellipsis", got, historyPreviewRunes)
	}
	if clip("short", historyPreviewRunes) != "short" {
		t.Fatalf("short strings must be unchanged")
	}
}

func TestTraceDirectoryFailureIsLogged(t *testing.T) {
	g, _, _ := newTestGateway(t, "", "Hello!")
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CINECHAT_TRACE_PATH", filepath.Join(blocker, "trace", "turns.jsonl"))
	t.Setenv("CINECHAT_LOG_LEVEL", "warn")
	stderr := &bytes.Buffer{}
	g.Err = stderr

	if err := g.Execute(context.Background(), "hi"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !strings.Contains(stderr.String(), "cannot create directory") {
		t.Fatalf("expected directory failure to be logged:\n%s", stderr.String())
	}
}
