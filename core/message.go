package core

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleSystem is the singleton instruction slot, always logically first.
	RoleSystem Role = "system"
	// RoleUser marks caller input and synthetic continuation prompts.
	RoleUser Role = "user"
	// RoleAssistant marks raw model output and orchestration notes.
	RoleAssistant Role = "assistant"
	// RoleTool marks recorded tool results; Name carries the tool name.
	RoleTool Role = "tool"
)

// Message is a single role-tagged entry in a conversation. Name is only set
// for tool messages, where it identifies the tool that produced the content.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}
