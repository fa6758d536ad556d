// Package influxdb ships telemetry to an InfluxDB v2 instance: one point
// per fan state transition, tagged by serial and source. The whole
// package is optional; when the config section is disabled the bridge
// runs without it.
//
// Writes go through influxdb-client-go's non-blocking API, so they are
// batched and never slow the state path. Batch failures surface through
// the SetOnError callback and are logged, not retried.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	client.WriteFanState("1582290600a34f40", true, 50, false, "report")
package influxdb
