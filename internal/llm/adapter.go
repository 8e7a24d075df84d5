package llm

import (
	"context"
	"fmt"

	"cinechat/internal/chat"

	"github.com/tmc/langchaingo/llms"
)

// Adapter drives any LangChainGo model that supports GenerateContent.
type Adapter struct {
	client llms.Model
	model  string
}

func newAdapter(client llms.Model, model string) *Adapter {
	return &Adapter{client: client, model: model}
}

func (a *Adapter) ReplyStream(ctx context.Context, history []chat.Message, params *chat.Params, streamFn func(string)) (string, error) {
	resp, err := a.client.GenerateContent(ctx, convertHistory(history), a.callOptions(params, streamFn)...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from model")
	}
	return resp.Choices[0].Content, nil
}

func (a *Adapter) callOptions(params *chat.Params, streamFn func(string)) []llms.CallOption {
	opts := make([]llms.CallOption, 0, 4)
	if a.model != "" {
		opts = append(opts, llms.WithModel(a.model))
	}
	if params != nil {
		if params.Model != "" {
			opts = append(opts, llms.WithModel(params.Model))
		}
		if params.Temperature != 0 {
			opts = append(opts, llms.WithTemperature(params.Temperature))
		}
		if params.MaxTokens != 0 {
			opts = append(opts, llms.WithMaxTokens(params.MaxTokens))
		}
	}
	opts = append(opts, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
		if streamFn != nil {
			streamFn(string(chunk))
		}
		return nil
	}))
	return opts
}

func convertHistory(history []chat.Message) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case chat.RoleUser:
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, m.Content))
		case chat.RoleAssistant:
			content := m.Content
			// Some backends reject empty assistant turns.
			if content == "" {
				content = " "
			}
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeAI, content))
		case chat.RoleSystem:
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, m.Content))
		}
	}
	return messages
}
