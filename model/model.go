package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agenttree/core"
)

// Request captures the normalized model input produced by an agent turn: the
// full ordered conversation, the schema the reply must conform to and an
// optional provider-specific model identifier override.
type Request struct {
	Model      string         `json:"model,omitempty"`
	Messages   []core.Message `json:"messages"`
	Schema     map[string]any `json:"schema"`
	SchemaName string         `json:"schema_name"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name                     string `json:"name"`
	Provider                 string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsStructuredOutput bool   `json:"supports_structured_output"`
}

// Model is the minimal interface agents use to obtain one structured reply.
// Complete blocks for the full round trip; the returned string is expected to
// be JSON conforming to the request schema, but conformance is verified by
// the caller, never assumed.
type Model interface {
	Complete(ctx context.Context, req Request) (string, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
// Replies resolve in two stages: an exact match on the last message content
// wins, otherwise the next scripted reply (FIFO) is consumed. With neither
// available Complete returns an error, mimicking a provider failure.
type MockModel struct {
	mu        sync.Mutex
	info      Info
	responses map[string]string
	scripted  []string
	requests  []Request
}

// NewMockModel constructs a MockModel reporting structured-output support.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info: Info{
			Name:                     name,
			Provider:                 "mock",
			SupportsStructuredOutput: true,
		},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned reply for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// Script appends replies consumed in order when no prompt-keyed reply matches.
func (m *MockModel) Script(responses ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripted = append(m.scripted, responses...)
}

// Requests returns a copy of every request seen, in arrival order.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	reqs := make([]Request, len(m.requests))
	copy(reqs, m.requests)
	return reqs
}

// Complete implements Model.
func (m *MockModel) Complete(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if len(req.Messages) == 0 {
		return "", fmt.Errorf("no messages provided")
	}

	last := req.Messages[len(req.Messages)-1]
	if reply, ok := m.responses[last.Content]; ok {
		return reply, nil
	}

	if len(m.scripted) > 0 {
		reply := m.scripted[0]
		m.scripted = m.scripted[1:]
		return reply, nil
	}

	return "", fmt.Errorf("no scripted reply for input: %s", last.Content)
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
