package llm

import (
	"os"

	"cinechat/internal/chat"

	"github.com/tmc/langchaingo/llms/anthropic"
)

func NewAnthropicAdapter(o Options) (chat.Adapter, error) {
	opts := []anthropic.Option{
		anthropic.WithModel(o.Model),
	}
	if o.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(o.BaseURL))
	}
	if key := firstNonEmpty(o.APIKey, os.Getenv("ANTHROPIC_API_KEY")); key != "" {
		opts = append(opts, anthropic.WithToken(key))
	}

	client, err := anthropic.New(opts...)
	if err != nil {
		return nil, err
	}
	return newAdapter(client, o.Model), nil
}
