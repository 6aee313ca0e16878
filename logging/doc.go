// Package logging provides a tiny abstraction over slog so the rest of
// agenttree can depend on a minimal interface (Logger) while callers plug in
// any structured logger. Log output is an observability side effect only; no
// log content is load-bearing for orchestration correctness.
package logging
