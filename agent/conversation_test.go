package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/hupe1980/agenttree/core"
	"github.com/hupe1980/agenttree/internal/testutil"
	"github.com/hupe1980/agenttree/model"
	"github.com/hupe1980/agenttree/protocol"
	"github.com/hupe1980/agenttree/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func historyContents(t *testing.T, a *Agent, role core.Role) []string {
	t.Helper()
	var contents []string
	for _, msg := range a.History().Snapshot() {
		if msg.Role == role {
			contents = append(contents, msg.Content)
		}
	}
	return contents
}

func TestRunConversation_SingleRespond(t *testing.T) {
	mgr := NewManager()
	llm := model.NewMockModel("m")
	llm.Script(testutil.RespondReply("task is trivial", "all done"))

	a, err := New(mgr, "alpha", "Helper.", llm)
	require.NoError(t, err)

	final, err := a.RunConversation(context.Background(), "do the task")
	require.NoError(t, err)
	assert.Equal(t, "all done", final)
	assert.Equal(t, "all done", a.LastResponse())

	// Exactly one request cycle.
	assert.Len(t, llm.Requests(), 1)

	// Raw assistant turn recorded verbatim.
	assistants := historyContents(t, a, core.RoleAssistant)
	require.Len(t, assistants, 1)
	assert.Contains(t, assistants[0], "task is trivial")
}

func TestRunConversation_ContinuePromptDrivesNextTurn(t *testing.T) {
	mgr := NewManager()
	llm := model.NewMockModel("m")
	llm.Script(
		testutil.Reply("need the sum first", testutil.UseToolAction("add", `{"a": 1, "b": 2}`)),
		testutil.RespondReply("sum known", "the answer is 3"),
	)

	a, err := New(mgr, "alpha", "Calculator.", llm, func(o *Options) {
		o.Tools = []*tool.Tool{newAddTool()}
	})
	require.NoError(t, err)

	final, err := a.RunConversation(context.Background(), "add 1 and 2")
	require.NoError(t, err)
	assert.Equal(t, "the answer is 3", final)
	assert.Len(t, llm.Requests(), 2)

	// The second cycle was driven by a synthetic user turn.
	users := historyContents(t, a, core.RoleUser)
	assert.Equal(t, []string{"add 1 and 2", "Continue."}, users)

	// Tool result recorded under the tool's name.
	msgs := a.History().Snapshot()
	var toolMsg *core.Message
	for i := range msgs {
		if msgs[i].Role == core.RoleTool {
			toolMsg = &msgs[i]
		}
	}
	require.NotNil(t, toolMsg)
	assert.Equal(t, "add", toolMsg.Name)
	assert.Equal(t, "3", toolMsg.Content)
}

func TestRunConversation_FullBatchExecutesAfterRespond(t *testing.T) {
	mgr := NewManager()
	llm := model.NewMockModel("m")
	llm.Script(testutil.Reply("answer first, log anyway",
		testutil.RespondAction("early answer"),
		testutil.UseToolAction("add", `{"a": 2, "b": 3}`),
	))

	a, err := New(mgr, "alpha", "Calculator.", llm, func(o *Options) {
		o.Tools = []*tool.Tool{newAddTool()}
	})
	require.NoError(t, err)

	final, err := a.RunConversation(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "early answer", final)
	assert.Len(t, llm.Requests(), 1)

	// The tool action after the respond still executed.
	toolMsgs := historyContents(t, a, core.RoleTool)
	assert.Equal(t, []string{"5"}, toolMsgs)
}

func TestRunConversation_LastRespondWins(t *testing.T) {
	mgr := NewManager()
	llm := model.NewMockModel("m")
	llm.Script(testutil.Reply("two answers",
		testutil.RespondAction("first"),
		testutil.RespondAction("second"),
	))

	a, err := New(mgr, "alpha", "Helper.", llm)
	require.NoError(t, err)

	final, err := a.RunConversation(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "second", final)
}

func TestRunConversation_DecodeFailureAbortsAndNotes(t *testing.T) {
	mgr := NewManager()
	llm := model.NewMockModel("m")
	llm.Script("this is not json")

	a, err := New(mgr, "alpha", "Helper.", llm)
	require.NoError(t, err)

	_, err = a.RunConversation(context.Background(), "go")
	require.Error(t, err)

	var decodeErr *protocol.DecodeError
	assert.ErrorAs(t, err, &decodeErr)

	assistants := historyContents(t, a, core.RoleAssistant)
	require.Len(t, assistants, 1)
	assert.Contains(t, assistants[0], "Error parsing response:")
}

func TestRunConversation_ProviderFailureAborts(t *testing.T) {
	mgr := NewManager()
	llm := model.NewMockModel("m") // no scripted replies -> provider error

	a, err := New(mgr, "alpha", "Helper.", llm)
	require.NoError(t, err)

	_, err = a.RunConversation(context.Background(), "go")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model request")
}

func TestRunConversation_MaxTurnsGuard(t *testing.T) {
	mgr := NewManager()
	llm := model.NewMockModel("m")
	// Never a respond action: every batch is one failing tool lookup.
	for range 5 {
		llm.Script(testutil.Reply("stalling", testutil.UseToolAction("missing", "{}")))
	}

	a, err := New(mgr, "alpha", "Helper.", llm, func(o *Options) { o.MaxTurns = 3 })
	require.NoError(t, err)

	_, err = a.RunConversation(context.Background(), "go")
	require.ErrorIs(t, err, ErrMaxTurnsExceeded)
	assert.Len(t, llm.Requests(), 3)
}

func TestDispatchTool_Failures(t *testing.T) {
	tests := []struct {
		name     string
		action   map[string]any
		wantNote string
	}{
		{
			name:     "unknown tool",
			action:   testutil.UseToolAction("nope", "{}"),
			wantNote: "Tool not available: nope",
		},
		{
			name:     "params not an object",
			action:   testutil.UseToolAction("add", `[1, 2]`),
			wantNote: "Tool error:",
		},
		{
			name:     "params subset",
			action:   testutil.UseToolAction("add", `{"a": 1}`),
			wantNote: "missing parameters: b",
		},
		{
			name:     "params superset",
			action:   testutil.UseToolAction("add", `{"a": 1, "b": 2, "c": 3}`),
			wantNote: "unexpected parameters: c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr := NewManager()
			invoked := false
			spy := tool.New("add", "Add two numbers", []string{"a", "b"}, func(args map[string]any) (any, error) {
				invoked = true
				return args["a"].(float64) + args["b"].(float64), nil
			})

			llm := model.NewMockModel("m")
			llm.Script(
				testutil.Reply("try the tool", tt.action),
				testutil.RespondReply("give up", "done"),
			)

			a, err := New(mgr, "alpha", "Calculator.", llm, func(o *Options) {
				o.Tools = []*tool.Tool{spy}
			})
			require.NoError(t, err)

			final, err := a.RunConversation(context.Background(), "go")
			require.NoError(t, err) // dispatch failures never abort the loop
			assert.Equal(t, "done", final)
			assert.False(t, invoked)

			assistants := historyContents(t, a, core.RoleAssistant)
			found := false
			for _, content := range assistants {
				if strings.Contains(content, tt.wantNote) {
					found = true
				}
			}
			assert.True(t, found, "expected note %q in %v", tt.wantNote, assistants)
		})
	}
}

func TestDispatchTool_EmptyResultRecordsCannedNote(t *testing.T) {
	mgr := NewManager()
	noop := tool.New("noop", "Does nothing", nil, func(_ map[string]any) (any, error) {
		return nil, nil
	})

	llm := model.NewMockModel("m")
	llm.Script(
		testutil.Reply("fire and forget", testutil.UseToolAction("noop", "{}")),
		testutil.RespondReply("done", "ok"),
	)

	a, err := New(mgr, "alpha", "Helper.", llm, func(o *Options) {
		o.Tools = []*tool.Tool{noop}
	})
	require.NoError(t, err)

	_, err = a.RunConversation(context.Background(), "go")
	require.NoError(t, err)

	toolMsgs := historyContents(t, a, core.RoleTool)
	assert.Equal(t, []string{"Tool executed successfully."}, toolMsgs)
}

func TestDispatchTool_ErrorFedBackToModel(t *testing.T) {
	mgr := NewManager()
	boom := tool.New("boom", "Always fails", nil, func(_ map[string]any) (any, error) {
		return nil, assert.AnError
	})

	llm := model.NewMockModel("m")
	llm.Script(
		testutil.Reply("try it", testutil.UseToolAction("boom", "{}")),
		testutil.RespondReply("recovered", "done"),
	)

	a, err := New(mgr, "alpha", "Helper.", llm, func(o *Options) {
		o.Tools = []*tool.Tool{boom}
	})
	require.NoError(t, err)

	final, err := a.RunConversation(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "done", final)

	assistants := historyContents(t, a, core.RoleAssistant)
	joined := ""
	for _, s := range assistants {
		joined += s + "\n"
	}
	assert.Contains(t, joined, "Tool error:")
}

func TestDelegation_EndToEnd(t *testing.T) {
	mgr := NewManager()

	parentLLM := model.NewMockModel("m")
	parentLLM.Script(
		testutil.Reply("child handles this", testutil.CallAgentAction("child", "handle it")),
		testutil.RespondReply("child finished", "done"),
	)
	childLLM := model.NewMockModel("m")
	childLLM.AddResponse("handle it", testutil.RespondReply("easy", "done"))

	parent, err := New(mgr, "parent", "Coordinator.", parentLLM)
	require.NoError(t, err)
	child, err := New(mgr, "child", "Worker.", childLLM, func(o *Options) { o.Parent = parent })
	require.NoError(t, err)

	final, err := parent.RunConversation(context.Background(), "delegate to child")
	require.NoError(t, err)
	assert.Equal(t, "done", final)
	assert.Equal(t, "done", child.LastResponse())

	// The delegated result is visible in the parent's history, tagged with
	// the child's name.
	assistants := historyContents(t, parent, core.RoleAssistant)
	assert.Contains(t, assistants, "child: done")

	// The child ran a full conversation of its own.
	users := historyContents(t, child, core.RoleUser)
	assert.Equal(t, []string{"handle it"}, users)
}

func TestDelegation_ForbiddenTargetNeverTouchesTarget(t *testing.T) {
	mgr := NewManager()

	llmA := model.NewMockModel("m")
	llmA.Script(
		testutil.Reply("try the sibling", testutil.CallAgentAction("sibling", "do it")),
		testutil.RespondReply("denied", "gave up"),
	)
	llmSibling := model.NewMockModel("m")

	root, err := New(mgr, "root", "Root.", model.NewMockModel("m"))
	require.NoError(t, err)
	a, err := New(mgr, "a", "Agent A.", llmA, func(o *Options) { o.Parent = root })
	require.NoError(t, err)
	sibling, err := New(mgr, "sibling", "Agent B.", llmSibling, func(o *Options) { o.Parent = root })
	require.NoError(t, err)

	siblingHistoryLen := sibling.History().Len()

	final, err := a.RunConversation(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "gave up", final)

	// The sibling's model never ran and its state is untouched.
	assert.Empty(t, llmSibling.Requests())
	assert.Equal(t, siblingHistoryLen, sibling.History().Len())

	assistants := historyContents(t, a, core.RoleAssistant)
	assert.Contains(t, assistants, "Delegation not allowed: sibling")
}

func TestDelegation_SelfIsForbidden(t *testing.T) {
	mgr := NewManager()
	llm := model.NewMockModel("m")
	llm.Script(
		testutil.Reply("recurse into myself", testutil.CallAgentAction("alpha", "again")),
		testutil.RespondReply("stop", "done"),
	)

	a, err := New(mgr, "alpha", "Helper.", llm)
	require.NoError(t, err)

	final, err := a.RunConversation(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "done", final)

	assistants := historyContents(t, a, core.RoleAssistant)
	assert.Contains(t, assistants, "Delegation not allowed: alpha")
}

func TestDelegation_UnregisteredTargetRecovered(t *testing.T) {
	mgr := NewManager()
	llm := model.NewMockModel("m")
	llm.Script(
		testutil.Reply("call the child", testutil.CallAgentAction("child", "do it")),
		testutil.RespondReply("moving on", "done"),
	)

	parent, err := New(mgr, "parent", "Coordinator.", llm)
	require.NoError(t, err)
	_, err = New(mgr, "child", "Worker.", model.NewMockModel("m"), func(o *Options) { o.Parent = parent })
	require.NoError(t, err)

	// The child is a permitted target but has been removed from the registry.
	mgr.Unregister("child")

	final, err := parent.RunConversation(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "done", final)

	assistants := historyContents(t, parent, core.RoleAssistant)
	assert.Contains(t, assistants, "Agent not found: child")
}

func TestDelegation_ChildFailureAbortsCaller(t *testing.T) {
	mgr := NewManager()

	parentLLM := model.NewMockModel("m")
	parentLLM.Script(testutil.Reply("delegate", testutil.CallAgentAction("child", "handle it")))
	childLLM := model.NewMockModel("m")
	childLLM.AddResponse("handle it", "not json at all")

	parent, err := New(mgr, "parent", "Coordinator.", parentLLM)
	require.NoError(t, err)
	_, err = New(mgr, "child", "Worker.", childLLM, func(o *Options) { o.Parent = parent })
	require.NoError(t, err)

	_, err = parent.RunConversation(context.Background(), "go")
	require.Error(t, err)

	var decodeErr *protocol.DecodeError
	assert.ErrorAs(t, err, &decodeErr)
	assert.Contains(t, err.Error(), `delegation to "child"`)
}

func TestDelegation_EmptyChildReplyRecoverable(t *testing.T) {
	mgr := NewManager()

	parentLLM := model.NewMockModel("m")
	parentLLM.Script(
		testutil.Reply("delegate", testutil.CallAgentAction("child", "handle it")),
		testutil.RespondReply("fallback", "done without child"),
	)
	childLLM := model.NewMockModel("m")
	childLLM.AddResponse("handle it", testutil.RespondReply("silent", ""))

	parent, err := New(mgr, "parent", "Coordinator.", parentLLM)
	require.NoError(t, err)
	_, err = New(mgr, "child", "Worker.", childLLM, func(o *Options) { o.Parent = parent })
	require.NoError(t, err)

	final, err := parent.RunConversation(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "done without child", final)

	// No tagged entry for an empty reply.
	for _, content := range historyContents(t, parent, core.RoleAssistant) {
		assert.NotEqual(t, "child: ", content)
	}
}

func TestRunConversation_DepthGuard(t *testing.T) {
	mgr := NewManager()
	a, err := New(mgr, "alpha", "Helper.", model.NewMockModel("m"), func(o *Options) {
		o.MaxDepth = 2
	})
	require.NoError(t, err)

	ctx := context.WithValue(context.Background(), depthKey{}, 3)
	_, err = a.RunConversation(ctx, "go")
	require.ErrorIs(t, err, ErrDepthExceeded)
}

func TestDelegation_DepthExceededRecoveredByCaller(t *testing.T) {
	mgr := NewManager()

	parentLLM := model.NewMockModel("m")
	parentLLM.Script(
		testutil.Reply("delegate", testutil.CallAgentAction("child", "handle it")),
		testutil.RespondReply("fallback", "handled locally"),
	)

	parent, err := New(mgr, "parent", "Coordinator.", parentLLM, func(o *Options) { o.MaxDepth = 4 })
	require.NoError(t, err)
	child, err := New(mgr, "child", "Worker.", model.NewMockModel("m"), func(o *Options) {
		o.Parent = parent
		o.MaxDepth = 4
	})
	require.NoError(t, err)

	// Enter the parent at the depth limit; the delegation pushes past it.
	ctx := context.WithValue(context.Background(), depthKey{}, 4)
	final, err := parent.RunConversation(ctx, "go")
	require.NoError(t, err)
	assert.Equal(t, "handled locally", final)

	// The child never ran.
	assert.Equal(t, 1, child.History().Len())

	assistants := historyContents(t, parent, core.RoleAssistant)
	found := false
	for _, content := range assistants {
		if strings.Contains(content, "Delegation to child failed:") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRunConversation_LastResponseResetEachBatch(t *testing.T) {
	mgr := NewManager()
	llm := model.NewMockModel("m")
	llm.Script(
		testutil.RespondReply("first run", "first answer"),
		testutil.RespondReply("second run", "second answer"),
	)

	a, err := New(mgr, "alpha", "Helper.", llm)
	require.NoError(t, err)

	final, err := a.RunConversation(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "first answer", final)

	final, err = a.RunConversation(context.Background(), "again")
	require.NoError(t, err)
	assert.Equal(t, "second answer", final)
	assert.Equal(t, "second answer", a.LastResponse())
}
