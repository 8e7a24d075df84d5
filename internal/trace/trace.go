// Package trace writes one JSON line per agent loop transition.
package trace

import (
	"encoding/json"
	"io"
	"math"
	"regexp"
	"sync"
	"time"
	"unicode/utf8"
)

type Entry struct {
	Session  string
	Turn     int
	State    string
	Outcome  string
	Function string
	Reason   string
	// Text is the message the transition acted on. Only its size is recorded.
	Text string
}

type line struct {
	Timestamp string `json:"ts"`
	Session   string `json:"session"`
	Turn      int    `json:"turn"`
	State     string `json:"state"`
	Outcome   string `json:"outcome,omitempty"`
	Function  string `json:"function,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Chars     int    `json:"chars"`
	Tokens    int    `json:"tokens_est"`
}

// Writer is safe for concurrent use. A nil *Writer discards everything.
type Writer struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

func New(w io.Writer) *Writer {
	if w == nil {
		return nil
	}
	return &Writer{w: w, now: time.Now}
}

func (t *Writer) Log(e Entry) {
	if t == nil {
		return
	}
	b, err := json.Marshal(line{
		Timestamp: t.now().UTC().Format(time.RFC3339Nano),
		Session:   e.Session,
		Turn:      e.Turn,
		State:     e.State,
		Outcome:   e.Outcome,
		Function:  e.Function,
		Reason:    e.Reason,
		Chars:     utf8.RuneCountInString(e.Text),
		Tokens:    EstimateTokens(e.Text),
	})
	if err != nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = t.w.Write(append(b, '\n'))
}

// tokenish matches "word-like" chunks (including dotted/slashed technical tokens),
// otherwise falls back to single non-space characters.
var tokenish = regexp.MustCompile(`[\pL\pN]+(?:[._/\\-][\pL\pN]+)*|[^\s]`)

// EstimateTokens approximates the token count of s without a tokenizer.
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	// Cap the minimum by a chars/4 heuristic so punctuation-heavy strings
	// don't look too cheap.
	chunks := len(tokenish.FindAllString(s, -1))
	charHeuristic := int(math.Ceil(float64(utf8.RuneCountInString(s)) / 4.0))
	if chunks < charHeuristic {
		return charHeuristic
	}
	return chunks
}
