package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cinechat/internal/trace"

	"github.com/google/uuid"
)

// State is a step of the per-turn loop.
type State string

const (
	StateAwaitingModelResponse State = "awaiting_model_response"
	StateClassifyingResponse   State = "classifying_response"
	StateDispatchingCall       State = "dispatching_call"
	StateTurnComplete          State = "turn_complete"
)

// Outcome records why a turn ended.
type Outcome string

const (
	OutcomeContent         Outcome = "content"
	OutcomeSchemaMismatch  Outcome = "schema_mismatch"
	OutcomeDecodeFailure   Outcome = "decode_failure"
	OutcomeUnknownFunction Outcome = "unknown_function"
	OutcomeArgumentError   Outcome = "argument_error"
	OutcomeDepthExceeded   Outcome = "depth_exceeded"
	OutcomeToolTimeout     Outcome = "tool_timeout"
	OutcomeModelFailure    Outcome = "model_failure"
)

const (
	DefaultMaxCallDepth = 5

	FailureReply       = "Sorry, something went wrong while I was working on that. Please try again."
	DepthExceededReply = "Sorry, I couldn't finish that request. Could you try asking in a different way?"
)

// Turn describes one processed user message.
type Turn struct {
	Reply      string
	Outcome    Outcome
	Calls      int // tool-result messages appended
	ModelCalls int
	// Err is the fault that ended a non-content turn, if any: the model
	// error, ErrUnknownFunction, an *ArgumentError or ErrToolTimeout.
	Err error
}

// Service runs the chat loop for a single session. It is not safe for
// concurrent use; callers process one turn at a time.
type Service struct {
	id           string
	adapter      Adapter
	dispatcher   *Dispatcher
	history      *History
	params       Params
	transport    Transport
	maxDepth     int
	modelTimeout time.Duration
	reprompt     bool
	logger       *slog.Logger
	trace        *trace.Writer
	turns        int
}

type ServiceOption func(*Service)

func WithSystemPrompt(prompt string) ServiceOption {
	return func(s *Service) {
		s.history = NewHistory(prompt)
	}
}

func WithParams(p Params) ServiceOption {
	return func(s *Service) {
		s.params = p
	}
}

// WithTransport sets where streamed tokens are delivered.
func WithTransport(t Transport) ServiceOption {
	return func(s *Service) {
		s.transport = t
	}
}

// WithMaxCallDepth bounds the number of call cycles in one turn.
func WithMaxCallDepth(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.maxDepth = n
		}
	}
}

// WithModelTimeout bounds every model request. Zero disables the bound.
func WithModelTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.modelTimeout = d
	}
}

// WithRepromptOnArgumentError makes the loop ask the model for missing
// arguments instead of ending the turn.
func WithRepromptOnArgumentError(on bool) ServiceOption {
	return func(s *Service) {
		s.reprompt = on
	}
}

func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithTrace(w *trace.Writer) ServiceOption {
	return func(s *Service) {
		s.trace = w
	}
}

func WithSessionID(id string) ServiceOption {
	return func(s *Service) {
		s.id = id
	}
}

func NewService(adapter Adapter, dispatcher *Dispatcher, opts ...ServiceOption) *Service {
	s := &Service{
		id:           uuid.NewString(),
		adapter:      adapter,
		dispatcher:   dispatcher,
		history:      NewHistory(SystemPrompt),
		transport:    discardTransport{},
		maxDepth:     DefaultMaxCallDepth,
		modelTimeout: 2 * time.Minute,
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ID() string { return s.id }

// History returns a copy of the conversation so far.
func (s *Service) History() []Message { return s.history.Messages() }

func (s *Service) Clear() {
	s.history.Clear()
}

func (s *Service) Send(ctx context.Context, input string) (string, error) {
	turn, err := s.Run(ctx, input)
	if err != nil {
		return "", err
	}
	return turn.Reply, nil
}

// Run processes one user message to completion. Every turn appends the user
// message, zero or more system messages and exactly one assistant message.
// Model, parse and dispatch faults end the turn instead of returning an error.
func (s *Service) Run(ctx context.Context, input string) (*Turn, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, errors.New("empty input")
	}

	s.turns++
	turn := &Turn{}
	s.history.Append(RoleUser, input)

	cycles := 0
	for {
		s.step(StateAwaitingModelResponse, "", "")
		text, err := s.generate(ctx)
		turn.ModelCalls++
		if err != nil {
			s.logger.Warn("model request failed", "session", s.id, "err", err)
			turn.Err = err
			return s.complete(turn, OutcomeModelFailure, FailureReply, err.Error()), nil
		}

		s.step(StateClassifyingResponse, "", text)
		det := Detect(text)
		s.logger.Debug("classified reply", "session", s.id, "kind", det.Kind.String())
		switch det.Kind {
		case KindContent:
			return s.complete(turn, OutcomeContent, text, ""), nil
		case KindSchemaMismatch:
			return s.complete(turn, OutcomeSchemaMismatch, text, "reply is JSON but not a function call"), nil
		case KindDecodeFailure:
			return s.complete(turn, OutcomeDecodeFailure, text, "reply starts with { but is not valid JSON"), nil
		}

		if cycles >= s.maxDepth {
			s.logger.Warn("call chain limit reached", "session", s.id, "limit", s.maxDepth, "function", det.Call.Name)
			return s.complete(turn, OutcomeDepthExceeded, DepthExceededReply, fmt.Sprintf("call limit of %d reached", s.maxDepth)), nil
		}
		cycles++

		s.step(StateDispatchingCall, det.Call.Name, "")
		res, err := s.dispatcher.Dispatch(ctx, det.Call)
		var argErr *ArgumentError
		switch {
		case errors.Is(err, ErrUnknownFunction):
			s.logger.Warn("unknown function", "session", s.id, "function", det.Call.Name)
			turn.Err = err
			return s.complete(turn, OutcomeUnknownFunction, text, err.Error()), nil
		case errors.As(err, &argErr):
			s.logger.Warn("call rejected", "session", s.id, "err", err)
			if !s.reprompt {
				turn.Err = err
				return s.complete(turn, OutcomeArgumentError, text, err.Error()), nil
			}
			s.history.Append(RoleSystem, fmt.Sprintf(
				"The %s call is missing required argument(s): %s. Ask the user for the missing information or call the function again with every argument.",
				argErr.Function, strings.Join(argErr.Missing, ", ")))
			continue
		case err != nil:
			// ErrToolTimeout, or the caller gave up on the turn.
			s.logger.Warn("tool call did not finish", "session", s.id, "err", err)
			turn.Err = err
			return s.complete(turn, OutcomeToolTimeout, FailureReply, err.Error()), nil
		}

		if res.ToolErr != nil {
			s.logger.Warn("tool failed", "session", s.id, "function", res.Function, "err", res.ToolErr)
		} else {
			s.logger.Info("tool called", "session", s.id, "function", res.Function, "rationale", det.Call.Rationale)
		}
		s.history.Append(RoleSystem, res.Message)
		turn.Calls++
	}
}

func (s *Service) generate(ctx context.Context) (string, error) {
	if s.modelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.modelTimeout)
		defer cancel()
	}
	text, err := Assemble(ctx, s.adapter, s.history.Messages(), &s.params, s.transport)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("empty response from model")
	}
	return text, nil
}

// complete appends the assistant reply and ends the turn. reason explains
// non-content outcomes in the trace.
func (s *Service) complete(turn *Turn, outcome Outcome, reply, reason string) *Turn {
	s.history.Append(RoleAssistant, reply)
	turn.Reply = reply
	turn.Outcome = outcome
	s.trace.Log(trace.Entry{
		Session: s.id,
		Turn:    s.turns,
		State:   string(StateTurnComplete),
		Outcome: string(outcome),
		Reason:  reason,
		Text:    reply,
	})
	return turn
}

func (s *Service) step(state State, function, text string) {
	s.trace.Log(trace.Entry{
		Session:  s.id,
		Turn:     s.turns,
		State:    string(state),
		Function: function,
		Text:     text,
	})
}
