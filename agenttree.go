// Package agenttree coordinates a tree of LLM-backed agents so a task can be
// decomposed, delegated between specialized agents and resolved into one
// final answer. Most applications interact with this package by:
//  1. Creating a Runtime via New() (optionally supplying a structured logger)
//  2. Constructing agents with NewAgent, wiring parents and tools
//  3. Running a conversation on the root agent via Agent.RunConversation
//
// The Runtime bundles the agent registry and shared defaults while the
// heavy lifting lives in the agent, protocol, model and tool packages. All
// defaults are safe for local development and testing; production callers
// typically supply a real model adapter (model/openai, model/anthropic) and
// a structured logger.
package agenttree

import (
	"github.com/hupe1980/agenttree/agent"
	"github.com/hupe1980/agenttree/logging"
	"github.com/hupe1980/agenttree/model"
)

// Options configures the Runtime.
type Options struct {
	// Logger used by every agent created through this Runtime.
	// Defaults to a NoOp logger.
	Logger logging.Logger

	// MaxTurns is the default per-conversation model call budget applied to
	// agents created through this Runtime.
	MaxTurns int

	// MaxDepth is the default delegation recursion limit applied to agents
	// created through this Runtime.
	MaxDepth int
}

// Runtime is the high-level facade aggregating the agent registry and the
// shared construction defaults.
type Runtime struct {
	opts Options
	mgr  *agent.Manager
}

// New creates a Runtime with a fresh registry and optional overrides.
func New(optFns ...func(o *Options)) *Runtime {
	opts := Options{
		Logger:   logging.NoOpLogger{},
		MaxTurns: agent.DefaultMaxTurns,
		MaxDepth: agent.DefaultMaxDepth,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Runtime{opts: opts, mgr: agent.NewManager()}
}

// Manager exposes the underlying agent registry.
func (r *Runtime) Manager() *agent.Manager { return r.mgr }

// NewAgent constructs and registers an agent with the Runtime's defaults
// applied first, so per-agent options can still override them.
func (r *Runtime) NewAgent(name, role string, llm model.Model, optFns ...func(o *agent.Options)) (*agent.Agent, error) {
	withDefaults := append([]func(o *agent.Options){func(o *agent.Options) {
		o.Logger = r.opts.Logger
		o.MaxTurns = r.opts.MaxTurns
		o.MaxDepth = r.opts.MaxDepth
	}}, optFns...)

	return agent.New(r.mgr, name, role, llm, withDefaults...)
}
