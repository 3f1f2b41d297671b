// Package execution runs enriched plans against the device layer.
//
// A Coordinator takes a plan out of the plan store and drives its steps in
// ascending order, one at a time:
//
//	pending -> running -> completed
//	                   \-> failed
//
// Each step gets up to retry.max_attempts tries with a fixed backoff
// between them. Errors that retrying cannot fix (no device resolved) stop
// the step at once with zero attempts. When retries run out and the step
// carries a fallback, one fallback attempt is made. A failed step never
// stops the plan.
//
// The result is an ExecutionLog whose status is success only when every step
// completed, and partial otherwise. The log is handed to a LogStore, and
// each step start and end goes to a NotificationSink (WebSocket hub, MQTT,
// or both through FanoutSink). Neither can change the outcome: their errors
// are logged and dropped.
//
// Dry runs skip every device call and delay. Each step is reported
// completed with Simulated set.
package execution
