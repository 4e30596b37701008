// Package influxdb provides the optional time-series mirror for metricsink.
//
// It wraps the official influxdb-client-go v2 library with metricsink-specific
// patterns for connection management, sample writing, and health monitoring.
//
// # Purpose
//
// The relational targets are the system of record; this package mirrors
// each written sample to InfluxDB for dashboarding and retention-policy
// driven downsampling. The mirror is best-effort and disabled by default.
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    Enabled: true,
//	    URL:     "http://localhost:8086",
//	    Token:   "your-token",
//	    Org:     "metricsink",
//	    Bucket:  "samples",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteSample("web01", "cpu", "0", "cpu", "idle", "value", 94.2, ts)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This reduces network overhead for high-frequency sample traffic.
package influxdb
