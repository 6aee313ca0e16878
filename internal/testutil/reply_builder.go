package testutil

import (
	"encoding/json"
	"fmt"
)

// RespondAction builds a respond action object.
func RespondAction(message string) map[string]any {
	return map[string]any{"type": "respond", "message": message}
}

// UseToolAction builds a use_tool action object. params must be a
// JSON-encoded object string, matching the wire contract.
func UseToolAction(tool, params string) map[string]any {
	return map[string]any{
		"type": "use_tool",
		"tool": map[string]any{"name": tool, "params": params},
	}
}

// CallAgentAction builds a call_agent action object.
func CallAgentAction(target, message string) map[string]any {
	return map[string]any{"type": "call_agent", "agent": target, "message": message}
}

// Reply serializes a reasoning string and an ordered action batch into the
// raw JSON a model provider would return.
func Reply(reasoning string, actions ...map[string]any) string {
	if actions == nil {
		actions = []map[string]any{}
	}
	raw, err := json.Marshal(map[string]any{
		"reasoning": reasoning,
		"actions":   actions,
	})
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal reply: %v", err))
	}
	return string(raw)
}

// RespondReply is shorthand for a single-respond batch.
func RespondReply(reasoning, message string) string {
	return Reply(reasoning, RespondAction(message))
}
