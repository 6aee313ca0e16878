// Package protocol defines the structured-output contract between agents and
// model providers: the response/action data model, a strict decoder for raw
// model replies and the JSON schema agents attach to every model request.
//
// Decoding is intentionally unforgiving. An action type outside the known
// enum, a missing required-by-type field or an unspecified extra field fails
// the whole decode step; a malformed batch is never partially executed.
package protocol

import (
	"encoding/json"
	"fmt"
)

// ActionType enumerates the three kinds of model-directed behavior.
type ActionType string

const (
	// ActionRespond produces the agent's (provisional) final answer.
	ActionRespond ActionType = "respond"
	// ActionUseTool invokes one of the agent's registered tools.
	ActionUseTool ActionType = "use_tool"
	// ActionCallAgent delegates a task to a direct parent or child agent.
	ActionCallAgent ActionType = "call_agent"
)

// Valid reports whether t is one of the three known action types.
func (t ActionType) Valid() bool {
	switch t {
	case ActionRespond, ActionUseTool, ActionCallAgent:
		return true
	}
	return false
}

// ToolCall names a tool together with its JSON-encoded argument object.
type ToolCall struct {
	Name   string `json:"name"`
	Params string `json:"params"`
}

// DecodeParams parses the JSON-encoded Params string into a key/value map.
// Any shape other than a JSON object is an error; arguments are decoded once
// here and passed on without further coercion.
func (c *ToolCall) DecodeParams() (map[string]any, error) {
	var decoded any
	if err := json.Unmarshal([]byte(c.Params), &decoded); err != nil {
		return nil, fmt.Errorf("tool params must be a JSON object: %w", err)
	}
	params, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("tool params must be a JSON object, got %T", decoded)
	}
	return params, nil
}

// Action is one unit of model-directed behavior. Agent is only meaningful for
// call_agent actions, Tool only for use_tool actions. Message carries the
// final answer for respond and the delegated instruction for call_agent.
type Action struct {
	Type    ActionType `json:"type"`
	Agent   string     `json:"agent,omitempty"`
	Tool    *ToolCall  `json:"tool,omitempty"`
	Message string     `json:"message,omitempty"`
}

// Response is the decoded form of one model turn: free-text reasoning plus an
// ordered, non-empty batch of actions. Actions execute strictly in list order.
type Response struct {
	Reasoning string   `json:"reasoning"`
	Actions   []Action `json:"actions"`
}
