// Package metric defines the core value types shared by the ingestion and
// persistence layers: metric identities, data-source descriptors, and
// timestamped sample batches.
//
// A Batch is one timestamped group of samples sharing host, plugin,
// plugin instance, type and type instance. Each data source in the batch
// expands to its own seven-field Identity, which the SQL sink maps to a
// compact integer identifier.
//
// Field values are bounded and validated here so that downstream layers
// (identifier key serialization, database column widths) can rely on the
// invariants instead of re-checking them.
package metric
