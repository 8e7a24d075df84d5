package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// scriptedAdapter replies with the next scripted text on every request and
// streams it in small chunks.
type scriptedAdapter struct {
	replies  []string
	errs     []error
	calls    int
	lastSeen [][]Message
}

func (a *scriptedAdapter) ReplyStream(ctx context.Context, history []Message, _ *Params, streamFn func(string)) (string, error) {
	i := a.calls
	a.calls++
	a.lastSeen = append(a.lastSeen, history)
	if i < len(a.errs) && a.errs[i] != nil {
		return "", a.errs[i]
	}
	if i >= len(a.replies) {
		return "", errors.New("script exhausted")
	}
	reply := a.replies[i]
	if streamFn != nil {
		for _, chunk := range chunks(reply, 5) {
			streamFn(chunk)
		}
	}
	return reply, nil
}

func chunks(s string, n int) []string {
	var out []string
	for len(s) > n {
		out = append(out, s[:n])
		s = s[n:]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

type blockingAdapter struct{}

func (blockingAdapter) ReplyStream(ctx context.Context, _ []Message, _ *Params, streamFn func(string)) (string, error) {
	streamFn("partial ")
	<-ctx.Done()
	return "", ctx.Err()
}

type fakeTools struct {
	movies    []string
	showtimes []string
	receipt   string
	err       error
	block     bool

	calls []string
}

func (f *fakeTools) NowPlaying(ctx context.Context) ([]string, error) {
	f.calls = append(f.calls, "now_playing")
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.movies, f.err
}

func (f *fakeTools) Showtimes(ctx context.Context, title, location string) ([]string, error) {
	f.calls = append(f.calls, "showtimes:"+title+"|"+location)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.showtimes, f.err
}

func (f *fakeTools) BuyTicket(ctx context.Context, theater, movie, showtime string) (string, error) {
	f.calls = append(f.calls, "buy:"+theater+"|"+movie+"|"+showtime)
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	return f.receipt, f.err
}

func (f *fakeTools) wait(ctx context.Context) error {
	if !f.block {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

type recordingTransport struct {
	mu        sync.Mutex
	tokens    []string
	finalized int
}

func (r *recordingTransport) AppendToken(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, text)
}

func (r *recordingTransport) Finalize() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finalized++
}

func (r *recordingTransport) text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.tokens, "")
}
