// Package config handles loading and validating thermlog configuration.
//
// Values are layered in this order, later layers winning:
//   - built-in defaults
//   - a .env file in the working directory (loaded into the environment)
//   - the YAML file
//   - THERMLOG_* environment variables
//
// Validation collects every problem and reports them together, so an operator
// sees all mistakes in one run.
//
// Secrets (MQTT password, InfluxDB token, JWT secret) should be supplied via
// the environment rather than committed to the YAML file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	interval := cfg.PollInterval()
package config
