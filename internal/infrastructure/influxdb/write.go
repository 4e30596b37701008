package influxdb

import (
	"math"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSample mirrors a single metric sample to InfluxDB.
//
// This is the primary method for the time-series mirror. The write is
// non-blocking; points are batched and sent asynchronously.
//
// NaN rates are skipped: line protocol has no representation for them,
// and an undefined rate carries no information for a time-series store.
//
// Parameters:
//   - host: Originating host (e.g., "web01")
//   - plugin: Plugin name (e.g., "cpu")
//   - pluginInstance: Plugin instance, may be empty (e.g., "0")
//   - typ: Value type (e.g., "cpu")
//   - typeInstance: Type instance, may be empty (e.g., "idle")
//   - source: Data source name within the value list (e.g., "value")
//   - rate: The normalised rate for this sample
//   - ts: The sample timestamp
//
// Example:
//
//	client.WriteSample("web01", "cpu", "0", "cpu", "idle", "value", 94.2, ts)
func (c *Client) WriteSample(host, plugin, pluginInstance, typ, typeInstance, source string, rate float64, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	if math.IsNaN(rate) {
		return
	}

	tags := map[string]string{
		"host":   host,
		"plugin": plugin,
		"type":   typ,
		"ds":     source,
	}
	if pluginInstance != "" {
		tags["plugin_instance"] = pluginInstance
	}
	if typeInstance != "" {
		tags["type_instance"] = typeInstance
	}

	point := write.NewPoint(
		"samples",
		tags,
		map[string]interface{}{
			"value": rate,
		},
		ts,
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("sink_stats",
//	    map[string]string{"target": "primary"},
//	    map[string]interface{}{"cached_identifiers": 1024})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
