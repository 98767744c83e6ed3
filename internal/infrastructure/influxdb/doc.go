// Package influxdb records thermlog health metrics in InfluxDB v2.
//
// Only per-tick health is written: how long each poll tick and sampler tick
// took, whether it overran its interval, and which routes or sources failed.
// The logged telemetry itself stays in the configured sinks.
//
// Measurements:
//
//	engine_tick   fields: duration_ms, wait_ms, overrun, entries, header_routes,
//	              row_routes, failed_routes, pull_failures, skipped
//	              tags:   failed (space separated route names, "none" when healthy)
//	sampler_tick  fields: duration_ms, sources, failed, locked
//
// Writes go through the non-blocking WriteAPI; points are batched and
// flushed in the background. Asynchronous write errors are delivered to the
// callback set with SetOnError.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	engine.SetTickObserver(client)
//	sampler.SetObserver(client)
package influxdb
