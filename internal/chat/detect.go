package chat

import (
	"encoding/json"
	"strings"
)

const (
	fenceOpen  = "```json"
	fenceClose = "```"
)

// Kind classifies an assembled model reply.
type Kind int

const (
	KindContent Kind = iota
	KindCall
	KindSchemaMismatch
	KindDecodeFailure
)

func (k Kind) String() string {
	switch k {
	case KindContent:
		return "content"
	case KindCall:
		return "call"
	case KindSchemaMismatch:
		return "schema_mismatch"
	case KindDecodeFailure:
		return "decode_failure"
	default:
		return "unknown"
	}
}

// FunctionCall is the payload a model emits in place of natural language:
//
//	{"function_name": "...", "arguments": {"k": "v"}, "rationale": "..."}
type FunctionCall struct {
	Name      string
	Arguments map[string]string
	Rationale string
}

type Detection struct {
	Kind Kind
	// Call is set only for KindCall.
	Call *FunctionCall
	// Text is the reply after fence stripping and trimming.
	Text string
}

// Detect decides whether raw is a function call. It never fails: malformed
// JSON and unknown shapes are reported through Kind.
func Detect(raw string) Detection {
	text := stripFence(strings.TrimSpace(raw))
	if !strings.HasPrefix(text, "{") {
		return Detection{Kind: KindContent, Text: text}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return Detection{Kind: KindDecodeFailure, Text: text}
	}
	rawName, hasName := fields["function_name"]
	rawWhy, hasWhy := fields["rationale"]
	if !hasName || !hasWhy {
		return Detection{Kind: KindSchemaMismatch, Text: text}
	}

	call := &FunctionCall{Arguments: map[string]string{}}
	if err := json.Unmarshal(rawName, &call.Name); err != nil {
		return Detection{Kind: KindSchemaMismatch, Text: text}
	}
	// A non-string rationale is tolerated; only its presence matters.
	_ = json.Unmarshal(rawWhy, &call.Rationale)
	if rawArgs, ok := fields["arguments"]; ok {
		args, ok := decodeArguments(rawArgs)
		if !ok {
			return Detection{Kind: KindSchemaMismatch, Text: text}
		}
		call.Arguments = args
	}
	return Detection{Kind: KindCall, Call: call, Text: text}
}

// stripFence removes a ```json ... ``` pair bounding s, leaving the content.
func stripFence(s string) string {
	if len(s) < len(fenceOpen)+len(fenceClose) {
		return s
	}
	if !strings.HasPrefix(s, fenceOpen) || !strings.HasSuffix(s, fenceClose) {
		return s
	}
	return strings.TrimSpace(s[len(fenceOpen) : len(s)-len(fenceClose)])
}

// decodeArguments flattens the arguments object to strings. Non-string values
// keep their JSON text so "2" and 2 are both usable.
func decodeArguments(raw json.RawMessage) (map[string]string, bool) {
	if string(raw) == "null" {
		return map[string]string{}, true
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		if string(v) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[k] = s
			continue
		}
		out[k] = strings.TrimSpace(string(v))
	}
	return out, true
}
