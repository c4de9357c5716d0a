// Package influxdb writes publish, ticket and lifecycle telemetry to
// InfluxDB v2. Measurement names come from influxdb.measurements.
//
// Writes go through the non-blocking batched write API; batch_size and
// flush_interval come from the influxdb configuration section. Write
// failures are reported asynchronously through SetOnError.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.RecordPublish("/chat", 200, 12*time.Millisecond, nil)
//	client.RecordTicket()
//	client.RecordEvent("subscribe", "/chat")
package influxdb
