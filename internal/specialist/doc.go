// Package specialist implements the domain specialists that enrich and
// execute plan steps: Ambiance (lights, windows), Security (locks), Energy
// (thermostats) and Wellness (speakers).
//
// Enrich attaches a retry policy, validation checks and an optional
// fallback, and clamps parameters to safe ranges. It is a pure function of
// the step, so enriching an enriched step's Step yields the same result.
//
// Execute makes exactly one attempt: resolve device hints by name, map
// semantic parameters to each device's provider data points, optionally
// skip devices already at target, send the commands and optionally verify
// the resulting state after a settle delay. Retries belong to the caller;
// IsRetryable tells it which errors are worth another attempt.
//
// Specialists are held in a Registry keyed by plan.SpecialistKind.
package specialist
