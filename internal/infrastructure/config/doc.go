// Package config handles loading and validating Gray Logic Conductor configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with CONDUCTOR_* environment variables
//   - Validation of required fields and value ranges
//   - Default value handling, so the conductor can start with no file at all
//
// Sensitive values (MQTT password, InfluxDB token) should be set via
// environment variables rather than committed config files.
//
// Usage:
//
//	cfg, err := config.Load("configs/conductor.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Execution.SettleDelayMS)
package config
