// Package llm adapts LangChainGo chat models to chat.Adapter.
package llm

import (
	"fmt"

	"cinechat/internal/chat"
)

type Provider string

const (
	ProviderOllama    Provider = "ollama"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
)

// Providers lists every supported provider in display order.
var Providers = []Provider{ProviderOpenAI, ProviderOllama, ProviderAnthropic, ProviderGemini}

type Options struct {
	Provider Provider
	Model    string
	// BaseURL points OpenAI-compatible, Ollama and Anthropic clients at a
	// proxy or self-hosted endpoint.
	BaseURL string
	APIKey  string
}

func NewAdapter(opts Options) (chat.Adapter, error) {
	switch opts.Provider {
	case ProviderOllama:
		return NewOllamaAdapter(opts)
	case ProviderOpenAI:
		return NewOpenAIAdapter(opts)
	case ProviderAnthropic:
		return NewAnthropicAdapter(opts)
	case ProviderGemini:
		return NewGeminiAdapter(opts)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", opts.Provider)
	}
}
