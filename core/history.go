package core

import "sync"

// History is the ordered conversation state owned by an agent. It is safe for
// concurrent access.
//
// Contract:
//   - At most one system message exists and it is always logically first;
//     SetSystem replaces its content in place rather than appending.
//   - All non-system messages are append-only and insertion-ordered. This
//     ordering is the model's conversation context and is preserved exactly.
//   - Snapshot returns a defensive copy; no entry is ever dropped or pruned
//     automatically (truncation policy is deliberately left to callers).
type History struct {
	mu       sync.RWMutex
	messages []Message
}

// NewHistory creates a History, optionally seeding the system slot when
// systemMessage is non-empty.
func NewHistory(systemMessage string) *History {
	h := &History{}
	if systemMessage != "" {
		h.SetSystem(systemMessage)
	}
	return h
}

// SetSystem replaces the content of the system message, inserting one at
// position 0 if none exists yet. Setting identical content is a no-op.
func (h *History) SetSystem(content string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range h.messages {
		if h.messages[i].Role == RoleSystem {
			if h.messages[i].Content != content {
				h.messages[i].Content = content
			}
			return
		}
	}

	h.messages = append([]Message{{Role: RoleSystem, Content: content}}, h.messages...)
}

// AddUser appends a user message.
func (h *History) AddUser(content string) { h.add(Message{Role: RoleUser, Content: content}) }

// AddAssistant appends an assistant message.
func (h *History) AddAssistant(content string) {
	h.add(Message{Role: RoleAssistant, Content: content})
}

// AddTool appends a tool result message attributed to the named tool.
func (h *History) AddTool(content, toolName string) {
	h.add(Message{Role: RoleTool, Content: content, Name: toolName})
}

func (h *History) add(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
}

// Snapshot returns a copy of the full ordered message sequence exactly as
// stored. The returned slice is the literal context for the next model call.
func (h *History) Snapshot() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	messages := make([]Message, len(h.messages))
	copy(messages, h.messages)
	return messages
}

// Len returns the number of stored messages including the system slot.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// System returns the current system message content and whether one is set.
func (h *History) System() (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, msg := range h.messages {
		if msg.Role == RoleSystem {
			return msg.Content, true
		}
	}
	return "", false
}
