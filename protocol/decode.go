package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeError reports why a raw model reply could not be turned into a valid
// Response. Reason distinguishes syntactic failures from schema violations.
type DecodeError struct {
	Reason string // "parse" or "validate"
	Err    error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s error: %v", e.Reason, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As chains.
func (e *DecodeError) Unwrap() error { return e.Err }

// Decode parses a raw model reply as JSON and validates it against the
// response contract. Unknown fields are rejected, not ignored. On failure the
// whole reply is rejected; callers must not act on a partially-decoded batch.
func Decode(raw string) (*Response, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()

	var resp Response
	if err := dec.Decode(&resp); err != nil {
		return nil, &DecodeError{Reason: "parse", Err: err}
	}
	if dec.More() {
		return nil, &DecodeError{Reason: "parse", Err: fmt.Errorf("trailing data after response object")}
	}

	if err := resp.Validate(); err != nil {
		return nil, &DecodeError{Reason: "validate", Err: err}
	}

	return &resp, nil
}

// Validate checks the response against the action contract: a non-empty batch
// whose every action has a known type and the fields that type requires.
func (r *Response) Validate() error {
	if len(r.Actions) == 0 {
		return fmt.Errorf("response contains no actions")
	}

	for i, action := range r.Actions {
		if !action.Type.Valid() {
			return fmt.Errorf("action %d: invalid type %q (must be %q, %q or %q)",
				i, action.Type, ActionRespond, ActionUseTool, ActionCallAgent)
		}
		switch action.Type {
		case ActionUseTool:
			if action.Tool == nil || action.Tool.Name == "" {
				return fmt.Errorf("action %d: use_tool requires a tool name", i)
			}
		case ActionCallAgent:
			if action.Agent == "" {
				return fmt.Errorf("action %d: call_agent requires an agent name", i)
			}
		}
	}

	return nil
}
