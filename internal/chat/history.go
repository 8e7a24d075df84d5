package chat

// History is the ordered message log of one chat session. The first entry is
// always the system prompt.
type History struct {
	msgs []Message
}

func NewHistory(systemPrompt string) *History {
	h := &History{msgs: make([]Message, 0, 16)}
	h.msgs = append(h.msgs, Message{Role: RoleSystem, Content: systemPrompt})
	return h
}

func (h *History) Append(role Role, content string) {
	h.msgs = append(h.msgs, Message{Role: role, Content: content})
}

// Messages returns a copy of the log.
func (h *History) Messages() []Message {
	out := make([]Message, len(h.msgs))
	copy(out, h.msgs)
	return out
}

func (h *History) Len() int { return len(h.msgs) }

// truncate drops every entry past n. The system prompt is never dropped.
func (h *History) truncate(n int) {
	if n < 1 {
		n = 1
	}
	if n < len(h.msgs) {
		h.msgs = h.msgs[:n]
	}
}

// Clear resets the log to just the system prompt.
func (h *History) Clear() {
	h.truncate(1)
}
