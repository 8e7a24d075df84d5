package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Function is one of the fixed operations a model may call.
type Function string

const (
	FuncNowPlaying    Function = "get_now_playing_movies"
	FuncShowtimes     Function = "get_showtimes"
	FuncBuyTicket     Function = "buy_ticket"
	FuncConfirmTicket Function = "confirm_ticket_purchase"
)

// legacyOrder is the resolution order when substring matching is enabled.
var legacyOrder = []Function{FuncShowtimes, FuncBuyTicket, FuncConfirmTicket}

var requiredArgs = map[Function][]string{
	FuncNowPlaying:    nil,
	FuncShowtimes:     {"title", "location"},
	FuncBuyTicket:     {"theater", "movie", "showtime"},
	FuncConfirmTicket: {"theater", "movie", "showtime"},
}

// ConfirmationSource picks the text injected after a purchase.
type ConfirmationSource string

const (
	// ConfirmationTemplate injects a sentence built from the call arguments.
	ConfirmationTemplate ConfirmationSource = "template"
	// ConfirmationTool injects whatever the purchase tool returned.
	ConfirmationTool ConfirmationSource = "tool"
)

// ConfirmPolicy decides what confirm_ticket_purchase does.
type ConfirmPolicy string

const (
	// ConfirmPurchase treats confirmation exactly like buy_ticket.
	ConfirmPurchase ConfirmPolicy = "purchase"
	// ConfirmDryRun never charges; it asks the model to confirm with the user.
	ConfirmDryRun ConfirmPolicy = "dry-run"
)

var (
	ErrUnknownFunction = errors.New("unknown function")
	ErrToolTimeout     = errors.New("tool timed out")
)

// ArgumentError reports required arguments missing from a call.
type ArgumentError struct {
	Function Function
	Missing  []string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: missing required argument(s): %s", e.Function, strings.Join(e.Missing, ", "))
}

// Tools are the movie operations the dispatcher can invoke.
type Tools interface {
	NowPlaying(ctx context.Context) ([]string, error)
	Showtimes(ctx context.Context, title, location string) ([]string, error)
	BuyTicket(ctx context.Context, theater, movie, showtime string) (string, error)
}

// DispatchResult is the outcome of a successful dispatch. Message is the
// system message to append. ToolErr is set when the tool itself failed; the
// failure is then described in Message.
type DispatchResult struct {
	Function Function
	Message  string
	ToolErr  error
}

type Dispatcher struct {
	tools        Tools
	timeout      time.Duration
	legacy       bool
	confirmation ConfirmationSource
	confirm      ConfirmPolicy
}

type DispatcherOption func(*Dispatcher)

// WithToolTimeout bounds every tool invocation. Zero disables the bound.
func WithToolTimeout(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) { disp.timeout = d }
}

// WithLegacyNameMatching resolves names by substring containment instead of
// exact match.
func WithLegacyNameMatching(on bool) DispatcherOption {
	return func(d *Dispatcher) { d.legacy = on }
}

func WithConfirmationSource(src ConfirmationSource) DispatcherOption {
	return func(d *Dispatcher) { d.confirmation = src }
}

func WithConfirmPolicy(p ConfirmPolicy) DispatcherOption {
	return func(d *Dispatcher) { d.confirm = p }
}

func NewDispatcher(tools Tools, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		tools:        tools,
		timeout:      30 * time.Second,
		confirmation: ConfirmationTemplate,
		confirm:      ConfirmPurchase,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Resolve maps a model-emitted name to a known function.
func (d *Dispatcher) Resolve(name string) (Function, bool) {
	fn := Function(strings.TrimSpace(name))
	if fn == FuncNowPlaying {
		return fn, true
	}
	if !d.legacy {
		if _, ok := requiredArgs[fn]; !ok {
			return "", false
		}
		return fn, true
	}
	for _, candidate := range legacyOrder {
		if strings.Contains(string(fn), string(candidate)) {
			return candidate, true
		}
	}
	return "", false
}

// Dispatch validates and runs call. It returns ErrUnknownFunction,
// an *ArgumentError or ErrToolTimeout without appending anything; any other
// tool failure is folded into the result message.
func (d *Dispatcher) Dispatch(ctx context.Context, call *FunctionCall) (DispatchResult, error) {
	fn, ok := d.Resolve(call.Name)
	if !ok {
		return DispatchResult{}, fmt.Errorf("%w: %q", ErrUnknownFunction, call.Name)
	}
	if missing := missingArgs(fn, call.Arguments); len(missing) > 0 {
		return DispatchResult{}, &ArgumentError{Function: fn, Missing: missing}
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	msg, err := d.invokeBounded(ctx, fn, call.Arguments)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return DispatchResult{}, fmt.Errorf("%s: %w", fn, ErrToolTimeout)
		}
		return DispatchResult{
			Function: fn,
			Message:  fmt.Sprintf("The %s tool failed: %v", fn, err),
			ToolErr:  err,
		}, nil
	}
	return DispatchResult{Function: fn, Message: msg}, nil
}

type invokeResult struct {
	msg string
	err error
}

// invokeBounded returns as soon as ctx is done, even if the tool ignores ctx.
// A late result is dropped.
func (d *Dispatcher) invokeBounded(ctx context.Context, fn Function, args map[string]string) (string, error) {
	done := make(chan invokeResult, 1)
	go func() {
		msg, err := d.invoke(ctx, fn, args)
		done <- invokeResult{msg: msg, err: err}
	}()

	select {
	case res := <-done:
		return res.msg, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (d *Dispatcher) invoke(ctx context.Context, fn Function, args map[string]string) (string, error) {
	switch fn {
	case FuncNowPlaying:
		movies, err := d.tools.NowPlaying(ctx)
		if err != nil {
			return "", err
		}
		return "These are the movies currently playing:\n\n" + formatList(movies), nil

	case FuncShowtimes:
		title, location := args["title"], args["location"]
		times, err := d.tools.Showtimes(ctx, title, location)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Here are the showtimes for %s in %s:\n\n%s", title, location, formatList(times)), nil

	case FuncConfirmTicket:
		if d.confirm == ConfirmDryRun {
			return fmt.Sprintf("No ticket has been purchased yet. Ask the user to confirm buying a ticket for %s at %s for %s before calling buy_ticket.",
				args["movie"], args["theater"], args["showtime"]), nil
		}
		return d.purchase(ctx, args)

	case FuncBuyTicket:
		return d.purchase(ctx, args)
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFunction, fn)
}

func (d *Dispatcher) purchase(ctx context.Context, args map[string]string) (string, error) {
	theater, movie, showtime := args["theater"], args["movie"], args["showtime"]
	confirmation, err := d.tools.BuyTicket(ctx, theater, movie, showtime)
	if err != nil {
		return "", err
	}
	if d.confirmation == ConfirmationTool && strings.TrimSpace(confirmation) != "" {
		return confirmation, nil
	}
	return fmt.Sprintf("Ticket purchased for %s at %s for %s.", movie, theater, showtime), nil
}

func missingArgs(fn Function, args map[string]string) []string {
	var missing []string
	for _, key := range requiredArgs[fn] {
		if strings.TrimSpace(args[key]) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(it)
	}
	return b.String()
}
