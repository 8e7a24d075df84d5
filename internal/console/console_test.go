package console

import (
	"bytes"
	"strings"
	"testing"
)

func feed(p *Printer, chunks ...string) {
	for _, c := range chunks {
		p.AppendToken(c)
	}
	p.Finalize()
}

func TestPrinterStreamsPlainText(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out, "bot")
	feed(p, "\n", "Dune ", "is playing.")

	got := out.String()
	if !strings.Contains(got, "bot") || !strings.HasSuffix(got, "Dune is playing.\n") {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestPrinterHidesFunctionCalls(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out, "bot")
	feed(p, `{"function_name":"get_showtimes",`, `"arguments":{},"rationale":"r"}`)

	got := out.String()
	if strings.Contains(got, "function_name") {
		t.Fatalf("raw call JSON should be hidden: %q", got)
	}
	if !strings.Contains(got, "calling get_showtimes") {
		t.Fatalf("expected call note, got %q", got)
	}
}

func TestPrinterShowsHeldNonCalls(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out, "bot")
	feed(p, `{"function_name": "buy_ticket"`)

	if !strings.Contains(out.String(), `{"function_name": "buy_ticket"`) {
		t.Fatalf("malformed JSON is the reply and must be shown: %q", out.String())
	}
}

func TestPrinterResetsBetweenMessages(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out, "bot")
	feed(p, `{"function_name":"get_now_playing_movies","rationale":"r"}`)
	feed(p, "Here you go.")

	if !strings.HasSuffix(out.String(), "Here you go.\n") {
		t.Fatalf("second message should stream normally: %q", out.String())
	}
}
