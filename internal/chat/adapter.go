package chat

import (
	"context"
)

// Adapter abstracts chat completion providers.
type Adapter interface {
	// ReplyStream should stream assistant text chunks to streamFn (if non-nil)
	// and return the full text once generation ends.
	ReplyStream(ctx context.Context, history []Message, params *Params, streamFn func(string)) (string, error)
}

// Transport receives the assistant's tokens as they arrive. It is fed only by
// the assembler, never by the dispatch logic.
type Transport interface {
	AppendToken(text string)
	Finalize()
}

type discardTransport struct{}

func (discardTransport) AppendToken(string) {}
func (discardTransport) Finalize()          {}
