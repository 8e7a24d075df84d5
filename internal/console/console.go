// Package console renders streamed assistant replies in a terminal.
package console

import (
	"fmt"
	"io"
	"strings"

	"cinechat/internal/chat"

	"github.com/charmbracelet/lipgloss"
)

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	noteStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("241"))
)

// Printer is a chat.Transport that writes tokens as they arrive.
//
// A reply that opens with "{" or a code fence may be a function call, so it
// is held back until the stream ends; calls are then shown as a short note
// instead of raw JSON, and anything else is printed in full.
type Printer struct {
	w       io.Writer
	label   string
	started bool
	holding bool
	pending strings.Builder
}

func NewPrinter(w io.Writer, label string) *Printer {
	return &Printer{w: w, label: label}
}

func (p *Printer) AppendToken(text string) {
	if p.holding {
		p.pending.WriteString(text)
		return
	}
	if !p.started {
		// Wait for the first visible character before deciding.
		p.pending.WriteString(text)
		lead := strings.TrimSpace(p.pending.String())
		if lead == "" {
			return
		}
		p.started = true
		if strings.HasPrefix(lead, "{") || strings.HasPrefix(lead, "`") {
			p.holding = true
			return
		}
		text = strings.TrimLeft(p.pending.String(), " \t\r\n")
		p.pending.Reset()
		fmt.Fprint(p.w, labelStyle.Render(p.label)+" ")
	}
	fmt.Fprint(p.w, text)
}

func (p *Printer) Finalize() {
	defer p.reset()
	if !p.started {
		return
	}
	if !p.holding {
		fmt.Fprintln(p.w)
		return
	}
	held := p.pending.String()
	if det := chat.Detect(held); det.Kind == chat.KindCall {
		fmt.Fprintln(p.w, noteStyle.Render(fmt.Sprintf("(calling %s)", det.Call.Name)))
		return
	}
	fmt.Fprintln(p.w, labelStyle.Render(p.label)+" "+strings.TrimSpace(held))
}

func (p *Printer) reset() {
	p.started = false
	p.holding = false
	p.pending.Reset()
}
