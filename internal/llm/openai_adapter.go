package llm

import (
	"os"

	"cinechat/internal/chat"

	"github.com/tmc/langchaingo/llms/openai"
)

// NewOpenAIAdapter also serves any OpenAI-compatible proxy (LiteLLM and the
// like) when BaseURL is set.
func NewOpenAIAdapter(o Options) (chat.Adapter, error) {
	opts := []openai.Option{
		openai.WithModel(o.Model),
	}
	if o.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(o.BaseURL))
	}
	token := firstNonEmpty(o.APIKey, os.Getenv("OPENAI_API_KEY"))
	if token == "" && o.BaseURL != "" {
		// Proxies usually ignore the key but the client insists on one.
		token = "unused"
	}
	if token != "" {
		opts = append(opts, openai.WithToken(token))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return newAdapter(client, o.Model), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
