package protocol

// SchemaName is the identifier providers attach to the response schema.
const SchemaName = "agent_response"

// ResponseSchema returns the JSON schema every model reply must conform to.
// The returned map is freshly built on each call so callers may not mutate
// shared state through it.
func ResponseSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"required":             []string{"reasoning", "actions"},
		"additionalProperties": false,
		"properties": map[string]any{
			"reasoning": map[string]any{
				"type":        "string",
				"description": "Reasoning behind actions",
			},
			"actions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"required":             []string{"type", "agent", "tool", "message"},
					"additionalProperties": false,
					"properties": map[string]any{
						"type": map[string]any{
							"type": "string",
							"enum": []string{string(ActionRespond), string(ActionUseTool), string(ActionCallAgent)},
						},
						"agent": map[string]any{
							"type":        []string{"string", "null"},
							"description": "Target agent name, only for call_agent",
						},
						"tool": map[string]any{
							"type":                 []string{"object", "null"},
							"required":             []string{"name", "params"},
							"additionalProperties": false,
							"properties": map[string]any{
								"name": map[string]any{"type": "string"},
								"params": map[string]any{
									"type":        "string",
									"description": "JSON-encoded object of tool arguments",
								},
							},
						},
						"message": map[string]any{
							"type":        "string",
							"description": "Final answer for respond, instruction for call_agent",
						},
					},
				},
			},
		},
	}
}
