package llm

import (
	"context"
	"os"

	"cinechat/internal/chat"

	"github.com/tmc/langchaingo/llms/googleai"
)

func NewGeminiAdapter(o Options) (chat.Adapter, error) {
	model := o.Model
	if model == "" {
		model = googleai.DefaultOptions().DefaultModel
	}

	opts := []googleai.Option{
		googleai.WithDefaultModel(model),
	}
	if key := firstNonEmpty(o.APIKey, os.Getenv("GOOGLE_API_KEY")); key != "" {
		opts = append(opts, googleai.WithAPIKey(key))
	}

	client, err := googleai.New(context.Background(), opts...)
	if err != nil {
		return nil, err
	}
	return newAdapter(client, model), nil
}
