package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hupe1980/agenttree/model"
	"github.com/hupe1980/agenttree/protocol"
)

// continuePrompt is the synthetic user turn driving the next model call when
// a batch finishes without a respond action.
const continuePrompt = "Continue."

var (
	// ErrMaxTurnsExceeded is returned when a conversation exhausts its model
	// call budget without producing a terminal respond action.
	ErrMaxTurnsExceeded = errors.New("maximum conversation turns exceeded")

	// ErrDepthExceeded is returned when a delegation chain recurses past the
	// configured depth limit.
	ErrDepthExceeded = errors.New("maximum delegation depth exceeded")
)

// depthKey carries the delegation depth through nested RunConversation calls.
type depthKey struct{}

func delegationDepth(ctx context.Context) int {
	depth, _ := ctx.Value(depthKey{}).(int)
	return depth
}

// RunConversation appends initialMessage as a user turn and drives the
// request/decide/act loop until a terminal respond action is produced,
// returning its message.
//
// Dispatch-level failures (unknown tool, forbidden delegation target,
// argument mismatch, tool errors) are recorded into the conversation and fed
// back to the model on its next turn. Provider and decode failures, and
// failures propagated out of a delegated agent's own loop, abort the
// conversation and are returned to the caller.
func (a *Agent) RunConversation(ctx context.Context, initialMessage string) (string, error) {
	if depth := delegationDepth(ctx); a.maxDepth > 0 && depth > a.maxDepth {
		return "", fmt.Errorf("agent %q at delegation depth %d: %w", a.name, depth, ErrDepthExceeded)
	}

	invocationID := uuid.NewString()
	a.logger.Debug("conversation started",
		"agent", a.name, "invocation_id", invocationID, "message", initialMessage)

	message := initialMessage
	for turn := 1; ; turn++ {
		if a.maxTurns > 0 && turn > a.maxTurns {
			a.logger.Error("conversation exceeded turn budget",
				"agent", a.name, "invocation_id", invocationID, "max_turns", a.maxTurns)
			return "", fmt.Errorf("agent %q after %d turns: %w", a.name, a.maxTurns, ErrMaxTurnsExceeded)
		}

		resp, err := a.send(ctx, message)
		if err != nil {
			return "", err
		}

		done, err := a.processActions(ctx, resp)
		if err != nil {
			return "", err
		}
		if done {
			final := a.LastResponse()
			a.logger.Debug("conversation finished",
				"agent", a.name, "invocation_id", invocationID, "turns", turn)
			return final, nil
		}

		message = continuePrompt
	}
}

// send appends the user turn, performs one blocking model call and decodes
// the reply. On decode failure an assistant-role note describing the error is
// recorded before the failure surfaces, so a later conversation still carries
// the evidence.
func (a *Agent) send(ctx context.Context, message string) (*protocol.Response, error) {
	a.history.AddUser(message)

	raw, err := a.llm.Complete(ctx, model.Request{
		Model:      a.modelID,
		Messages:   a.history.Snapshot(),
		Schema:     protocol.ResponseSchema(),
		SchemaName: protocol.SchemaName,
	})
	if err != nil {
		a.logger.Error("model request failed", "agent", a.name, "error", err)
		return nil, fmt.Errorf("agent %q: model request: %w", a.name, err)
	}

	resp, err := protocol.Decode(raw)
	if err != nil {
		a.logger.Error("reply rejected", "agent", a.name, "error", err)
		a.history.AddAssistant(fmt.Sprintf("Error parsing response: %v", err))
		return nil, fmt.Errorf("agent %q: %w", a.name, err)
	}

	a.history.AddAssistant(raw)
	a.logger.Debug("model reasoning", "agent", a.name, "reasoning", resp.Reasoning)

	return resp, nil
}

// processActions executes the batch strictly in list order. Every action runs
// even after a respond in the same batch; if multiple respond actions occur,
// the last one wins. The returned bool reports whether the batch was terminal.
func (a *Agent) processActions(ctx context.Context, resp *protocol.Response) (bool, error) {
	a.setLastResponse("")

	done := false
	for _, action := range resp.Actions {
		switch action.Type {
		case protocol.ActionRespond:
			a.logger.Info("agent response", "agent", a.name, "message", action.Message)
			a.setLastResponse(action.Message)
			done = true
		case protocol.ActionUseTool:
			a.dispatchTool(action)
		case protocol.ActionCallAgent:
			if err := a.dispatchDelegation(ctx, action); err != nil {
				return false, err
			}
		}
	}

	return done, nil
}

// dispatchTool resolves, validates and invokes one use_tool action. All
// failures are recoverable: they are logged and recorded as notes the model
// sees on its next turn, and sibling actions still run.
func (a *Agent) dispatchTool(action protocol.Action) {
	t, ok := a.lookupTool(action.Tool.Name)
	if !ok {
		a.logger.Error("tool not available", "agent", a.name, "tool", action.Tool.Name)
		a.history.AddAssistant(fmt.Sprintf("Tool not available: %s", action.Tool.Name))
		return
	}

	params, err := action.Tool.DecodeParams()
	if err != nil {
		a.logger.Error("invalid tool params", "agent", a.name, "tool", t.Name(), "error", err)
		a.history.AddAssistant(fmt.Sprintf("Tool error: %v", err))
		return
	}

	a.logger.Info("using tool", "agent", a.name, "tool", t.Name(), "params", params)

	result, err := t.Call(params)
	if err != nil {
		a.logger.Error("tool failed", "agent", a.name, "tool", t.Name(), "error", err)
		a.history.AddAssistant(fmt.Sprintf("Tool error: %v", err))
		return
	}

	out := formatToolResult(result)
	a.logger.Info("tool result", "agent", a.name, "tool", t.Name(), "result", out)
	a.history.AddTool(out, t.Name())
}

// formatToolResult renders a tool return value for the conversation. A nil or
// empty result becomes a canned success note so the model still sees that the
// call happened.
func formatToolResult(result any) string {
	switch v := result.(type) {
	case nil:
		return "Tool executed successfully."
	case string:
		if v == "" {
			return "Tool executed successfully."
		}
		return v
	default:
		return fmt.Sprint(v)
	}
}

// dispatchDelegation validates and executes one call_agent action. The target
// must be the direct parent or a direct child; anything else is rejected
// before any registry lookup. A permitted target runs its own conversation
// loop synchronously; its terminal message is recorded under its name so the
// model sees the delegated result next turn. Errors escaping the target's
// loop (provider, decode, guard errors) abort this agent's loop too.
func (a *Agent) dispatchDelegation(ctx context.Context, action protocol.Action) error {
	if !a.permittedTargets()[action.Agent] {
		a.logger.Error("delegation not allowed", "agent", a.name, "target", action.Agent)
		a.history.AddAssistant(fmt.Sprintf("Delegation not allowed: %s", action.Agent))
		return nil
	}

	target, ok := a.mgr.Get(action.Agent)
	if !ok {
		a.logger.Error("delegation target not found", "agent", a.name, "target", action.Agent)
		a.history.AddAssistant(fmt.Sprintf("Agent not found: %s", action.Agent))
		return nil
	}

	a.logger.Info("delegating", "agent", a.name, "target", action.Agent, "message", action.Message)

	childCtx := context.WithValue(ctx, depthKey{}, delegationDepth(ctx)+1)
	reply, err := target.RunConversation(childCtx, action.Message)
	if err != nil {
		if errors.Is(err, ErrDepthExceeded) {
			// The guard tripped before the target mutated any state; feed it
			// back to the model instead of unwinding the whole tree.
			a.logger.Error("delegation depth exceeded", "agent", a.name, "target", action.Agent)
			a.history.AddAssistant(fmt.Sprintf("Delegation to %s failed: %v", action.Agent, err))
			return nil
		}
		return fmt.Errorf("agent %q: delegation to %q: %w", a.name, action.Agent, err)
	}

	if reply == "" {
		a.logger.Error("no reply from delegated agent", "agent", a.name, "target", action.Agent)
		return nil
	}

	a.history.AddAssistant(fmt.Sprintf("%s: %s", action.Agent, reply))
	a.logger.Info("delegation result", "agent", a.name, "target", action.Agent, "reply", reply)

	return nil
}
