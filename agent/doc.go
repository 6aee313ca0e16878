// Package agent implements the orchestration unit of agenttree: an Agent owns
// a conversation history, a set of tools and a position in a parent/child
// tree, and drives the request/decide/act loop against a model provider.
//
// A RunConversation call appends the task as a user turn, requests one
// structured reply, executes the decoded action batch in order (respond,
// use_tool, call_agent) and repeats with a synthetic continuation prompt
// until a terminal respond action is produced. Delegation via call_agent is
// synchronous recursion into the target agent's own loop and is restricted
// to the agent's direct parent and direct children.
//
// Agents register themselves with an injected Manager at construction; the
// Manager enforces process-wide name uniqueness and provides lookup for
// delegation targets.
package agent
