package llm

import (
	"context"
	"errors"
	"testing"

	"cinechat/internal/chat"

	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	chunks   []string
	reply    string
	err      error
	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, o := range options {
		o(&f.opts)
	}
	if f.err != nil {
		return nil, f.err
	}
	for _, c := range f.chunks {
		if f.opts.StreamingFunc != nil {
			if err := f.opts.StreamingFunc(ctx, []byte(c)); err != nil {
				return nil, err
			}
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestReplyStreamForwardsChunksAndParams(t *testing.T) {
	m := &fakeModel{chunks: []string{"Dune ", "is ", "playing."}, reply: "Dune is playing."}
	a := newAdapter(m, "mistral")

	var streamed string
	text, err := a.ReplyStream(context.Background(), []chat.Message{
		{Role: chat.RoleSystem, Content: "sys"},
		{Role: chat.RoleUser, Content: "what is on?"},
	}, &chat.Params{Temperature: 0.2, MaxTokens: 500}, func(s string) { streamed += s })
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if text != "Dune is playing." || streamed != "Dune is playing." {
		t.Fatalf("text=%q streamed=%q", text, streamed)
	}
	if m.opts.Model != "mistral" || m.opts.Temperature != 0.2 || m.opts.MaxTokens != 500 {
		t.Fatalf("unexpected call options: %+v", m.opts)
	}
}

func TestReplyStreamParamsModelOverrides(t *testing.T) {
	m := &fakeModel{reply: "ok"}
	a := newAdapter(m, "mistral")
	if _, err := a.ReplyStream(context.Background(), nil, &chat.Params{Model: "gpt-4o"}, nil); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if m.opts.Model != "gpt-4o" {
		t.Fatalf("expected params model to win, got %q", m.opts.Model)
	}
}

func TestReplyStreamErrors(t *testing.T) {
	a := newAdapter(&fakeModel{err: errors.New("boom")}, "m")
	if _, err := a.ReplyStream(context.Background(), nil, nil, nil); err == nil {
		t.Fatalf("expected error")
	}

	empty := &emptyModel{}
	a = newAdapter(empty, "m")
	if _, err := a.ReplyStream(context.Background(), nil, nil, nil); err == nil {
		t.Fatalf("expected error on empty choices")
	}
}

type emptyModel struct{ fakeModel }

func (e *emptyModel) GenerateContent(context.Context, []llms.MessageContent, ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{}, nil
}

func TestConvertHistoryRoles(t *testing.T) {
	msgs := convertHistory([]chat.Message{
		{Role: chat.RoleSystem, Content: "sys"},
		{Role: chat.RoleUser, Content: "hi"},
		{Role: chat.RoleSystem, Content: "These are the movies currently playing"},
		{Role: chat.RoleAssistant, Content: ""},
	})
	want := []llms.ChatMessageType{
		llms.ChatMessageTypeSystem,
		llms.ChatMessageTypeHuman,
		llms.ChatMessageTypeSystem,
		llms.ChatMessageTypeAI,
	}
	if len(msgs) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(msgs))
	}
	for i, m := range msgs {
		if m.Role != want[i] {
			t.Fatalf("message %d role = %s, want %s", i, m.Role, want[i])
		}
	}
	last, ok := msgs[3].Parts[0].(llms.TextContent)
	if !ok || last.Text != " " {
		t.Fatalf("empty assistant content should be padded, got %#v", msgs[3].Parts[0])
	}
}

func TestNewAdapterRejectsUnknownProvider(t *testing.T) {
	if _, err := NewAdapter(Options{Provider: "mystery"}); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}
