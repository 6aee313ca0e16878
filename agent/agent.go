package agent

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/agenttree/core"
	"github.com/hupe1980/agenttree/logging"
	"github.com/hupe1980/agenttree/model"
	"github.com/hupe1980/agenttree/tool"
)

// Options configures an Agent instance.
//
// Use functional options with New to override defaults.
type Options struct {
	// Description is shown to peer agents so they can decide whether to
	// delegate to this agent.
	Description string

	// ModelID optionally overrides the provider's default model identifier.
	ModelID string

	// Tools the agent may invoke, exposed to the model in the system prompt.
	Tools []*tool.Tool

	// Parent makes this agent a child of an existing agent. The parent's
	// system prompt is rebuilt so its model sees the new delegation target.
	Parent *Agent

	// MaxTurns bounds the number of model request cycles per RunConversation.
	// Zero disables the guard.
	MaxTurns int

	// MaxDepth bounds nested delegation recursion. Zero disables the guard.
	MaxDepth int

	// Logger receives orchestration observability output.
	Logger logging.Logger
}

const (
	// DefaultMaxTurns is the default per-conversation model call budget.
	DefaultMaxTurns = 20
	// DefaultMaxDepth is the default delegation recursion limit.
	DefaultMaxDepth = 8
)

// Agent is the orchestration unit: it owns a conversation history, a tool
// set and a position in the agent tree, and drives the request/decide/act
// loop. Name is unique across the Manager and immutable after registration.
type Agent struct {
	name        string
	role        string
	description string
	modelID     string
	llm         model.Model
	mgr         *Manager
	logger      logging.Logger
	history     *core.History
	maxTurns    int
	maxDepth    int

	mu           sync.Mutex // guards hierarchy, tools and lastResponse
	tools        map[string]*tool.Tool
	toolOrder    []string
	parent       *Agent
	children     []*Agent
	lastResponse string
}

// New constructs an Agent, registers it with the Manager and, when a parent
// is given, wires it into the tree as that parent's child. Construction
// fails if the name is already registered.
//
// Example:
//
//	mgr := agent.NewManager()
//	root, err := agent.New(mgr, "coordinator", "You split tasks into subtasks.", llm,
//		func(o *agent.Options) {
//			o.Description = "Coordinates specialized agents"
//		})
func New(mgr *Manager, name, role string, llm model.Model, optFns ...func(o *Options)) (*Agent, error) {
	opts := Options{
		Description: fmt.Sprintf("Agent %s", name),
		MaxTurns:    DefaultMaxTurns,
		MaxDepth:    DefaultMaxDepth,
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	a := &Agent{
		name:        name,
		role:        role,
		description: opts.Description,
		modelID:     opts.ModelID,
		llm:         llm,
		mgr:         mgr,
		logger:      opts.Logger,
		maxTurns:    opts.MaxTurns,
		maxDepth:    opts.MaxDepth,
		tools:       make(map[string]*tool.Tool),
		parent:      opts.Parent,
	}

	for _, t := range opts.Tools {
		if _, exists := a.tools[t.Name()]; !exists {
			a.toolOrder = append(a.toolOrder, t.Name())
		}
		a.tools[t.Name()] = t
	}

	a.history = core.NewHistory(a.buildSystemMessage())

	if err := mgr.Register(a); err != nil {
		return nil, err
	}
	if opts.Parent != nil {
		opts.Parent.registerChild(a)
	}

	return a, nil
}

// Name returns the unique agent name.
func (a *Agent) Name() string { return a.name }

// Role returns the free-text persona description.
func (a *Agent) Role() string { return a.role }

// Description returns the summary peers use to pick delegation targets.
func (a *Agent) Description() string { return a.description }

// Parent returns the parent agent or nil for a root agent.
func (a *Agent) Parent() *Agent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.parent
}

// Children returns a copy of the direct child agents in registration order.
func (a *Agent) Children() []*Agent {
	a.mu.Lock()
	defer a.mu.Unlock()
	children := make([]*Agent, len(a.children))
	copy(children, a.children)
	return children
}

// History exposes the agent's conversation state.
func (a *Agent) History() *core.History { return a.history }

// LastResponse returns the most recent terminal message, or "" if none yet.
func (a *Agent) LastResponse() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastResponse
}

func (a *Agent) setLastResponse(message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastResponse = message
}

// RegisterTool adds a tool to the agent's capability set and rebuilds the
// system prompt so subsequent model calls see the updated call shape.
func (a *Agent) RegisterTool(t *tool.Tool) {
	a.mu.Lock()
	if _, exists := a.tools[t.Name()]; !exists {
		a.toolOrder = append(a.toolOrder, t.Name())
	}
	a.tools[t.Name()] = t
	a.mu.Unlock()

	a.history.SetSystem(a.buildSystemMessage())
}

// lookupTool returns the named tool, if registered.
func (a *Agent) lookupTool(name string) (*tool.Tool, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.tools[name]
	return t, ok
}

// registerChild appends a child and rebuilds the system message in place so
// the next model call sees the updated peer list.
func (a *Agent) registerChild(child *Agent) {
	a.mu.Lock()
	a.children = append(a.children, child)
	a.mu.Unlock()

	a.logger.Debug("registered child agent", "agent", a.name, "child", child.Name())
	a.history.SetSystem(a.buildSystemMessage())
}

// permittedTargets is the delegation allow-list: the direct parent (if any)
// and each direct child. Anything else is rejected before registry lookup.
func (a *Agent) permittedTargets() map[string]bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	allowed := make(map[string]bool, len(a.children)+1)
	if a.parent != nil {
		allowed[a.parent.Name()] = true
	}
	for _, child := range a.children {
		allowed[child.Name()] = true
	}
	return allowed
}

// buildSystemMessage derives the system prompt from the agent's role, its
// registered tools (name, ordered parameter names, description) and its
// children (name, description). The parent, fixed at construction, is named
// once so the model knows the upward delegation target.
func (a *Agent) buildSystemMessage() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	toolInfo := "none"
	if len(a.toolOrder) > 0 {
		descs := make([]string, 0, len(a.toolOrder))
		for _, name := range a.toolOrder {
			t := a.tools[name]
			descs = append(descs, fmt.Sprintf("%s (params: %s): %s",
				t.Name(), strings.Join(t.ParamNames(), ", "), t.Description()))
		}
		toolInfo = strings.Join(descs, "; ")
	}

	childInfo := "none"
	if len(a.children) > 0 {
		descs := make([]string, 0, len(a.children))
		for _, child := range a.children {
			descs = append(descs, fmt.Sprintf("%s (%s)", child.Name(), child.Description()))
		}
		childInfo = strings.Join(descs, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Role: %s\n", a.role)
	fmt.Fprintf(&b, "Tools:\n  %s\n\n", toolInfo)
	b.WriteString("To call a tool, emit an action of type 'use_tool' with 'tool.name' and 'tool.params' (a JSON-encoded object).\n")
	if a.parent != nil {
		fmt.Fprintf(&b, "Parent Agent: %s.\n", a.parent.Name())
	}
	fmt.Fprintf(&b, "Peer Agents: %s.", childInfo)

	return b.String()
}
