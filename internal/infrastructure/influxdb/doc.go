// Package influxdb provides InfluxDB connectivity for the Gray Logic Conductor.
//
// It wraps the official influxdb-client-go v2 library and is used to record
// plan execution telemetry: one point per step outcome and one per finished
// execution. Writes are batched and never block plan execution.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
//
//	client.SetOnError(func(err error) {
//	    logger.Warn("influxdb write failed", "error", err)
//	})
package influxdb
