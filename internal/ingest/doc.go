// Package ingest decodes metric sample payloads and dispatches them to
// the configured sinks.
//
// Payloads arrive over MQTT as JSON arrays of value lists, the format
// emitted by collectd's JSON exporters. Each value list carries one
// timestamped group of data sources for a single plugin instance.
//
// The dispatcher is the glue between transport and storage:
//
//	MQTT handler → DecodeBatches → rate normalization → sink writes
//
// Decode failures reject the whole payload. Write failures are logged
// per target and do not stop delivery to the remaining targets, so one
// unreachable database never blocks the others.
package ingest
