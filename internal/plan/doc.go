// Package plan defines the plan model shared by the orchestrator, the
// specialists and the execution coordinator, and the ephemeral store that
// holds plans between creation and execution.
//
// A Plan is an ordered list of EnrichedSteps. Step order values are unique
// and strictly increasing (gaps allowed); Validate enforces this. Steps are
// values: every transform returns a modified copy and Params maps are
// deep-copied, so a stored plan is never mutated by its consumers.
//
// Plans live in a Store until executed (Take removes them atomically),
// discarded (Delete) or expired (MemoryStore sweeps them after a TTL).
package plan
