package chat

import (
	"context"
	"strings"
)

type streamResult struct {
	text string
	err  error
}

// Assemble requests one reply from the adapter and returns its full text.
//
// The model stream is produced on its own goroutine; tokens are handed to the
// transport and accumulated here. The text is returned only after the
// producer has signalled end of stream, so callers never classify a partial
// reply. On error the partial text is discarded.
func Assemble(ctx context.Context, a Adapter, history []Message, params *Params, t Transport) (string, error) {
	if t == nil {
		t = discardTransport{}
	}
	defer t.Finalize()

	tokens := make(chan string, 64)
	done := make(chan streamResult, 1)

	go func() {
		defer close(tokens)
		text, err := a.ReplyStream(ctx, history, params, func(tok string) {
			if tok == "" {
				return
			}
			select {
			case tokens <- tok:
			case <-ctx.Done():
			}
		})
		done <- streamResult{text: text, err: err}
	}()

	var b strings.Builder
	for {
		select {
		case tok, ok := <-tokens:
			if !ok {
				return finishStream(<-done, b.String(), t)
			}
			b.WriteString(tok)
			t.AppendToken(tok)
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func finishStream(res streamResult, streamed string, t Transport) (string, error) {
	if res.err != nil {
		return "", res.err
	}
	if streamed == "" && res.text != "" {
		// Provider answered without incremental delivery.
		t.AppendToken(res.text)
	}
	if res.text != "" {
		return res.text, nil
	}
	return streamed, nil
}
