// Package core provides the foundational domain types used across agenttree.
// It defines the conversational primitives:
//
//   - Roles and Messages (the units of conversational context)
//   - History (the ordered, mutable conversation state owned by each agent)
//
// The package intentionally keeps implementation concerns (model providers,
// orchestration, concrete agents) out of scope so that higher layers can
// depend on a small, stable surface.
package core
