// Package api implements the HTTP REST API and WebSocket server for the conductor.
//
// This package provides:
//   - Goal submission, which classifies text into a stored plan
//   - Plan execution and execution history
//   - Read access to devices, their live state and recorded history
//   - A WebSocket hub that pushes step progress on the "plan.step" channel
//   - JSON system metrics and a Prometheus scrape endpoint
//
// # Architecture
//
// Clients submit a goal, inspect the returned plan, then execute it. Execution
// runs synchronously within the request; step notifications go out through
// the hub while the request is in flight, so clients connected to /api/v1/ws
// can render progress before the final response arrives.
//
// # Graceful Degradation
//
// The server operates without MQTT or InfluxDB. Device history is optional;
// when no history repository is configured the history endpoint returns 503.
package api
