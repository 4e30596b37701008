// Package sink persists metric sample batches into a relational store,
// normalizing repeated metric identities into compact integer keys.
//
// Each configured store is an independent Target owning its own connection,
// prepared statements, locks and identifier cache; independent targets share
// nothing. The write path for one batch is:
//
//	Write → connect (lazy, idempotent) → timestamp conversion
//	      → per source: resolve identity → execute data insert
//
// # Identifier resolution
//
// An identity (host, plugin, plugin instance, type, type instance, data
// source name, data source type) maps to a store-generated integer id.
// Resolution is a two-level lookup: an in-memory cache first, then a
// select-or-insert sequence against the identifier table. The select and
// insert run under the resolver lock so concurrent writers racing an unseen
// identity cannot create duplicate rows; the store's UNIQUE constraint is
// the backstop, never the mechanism.
//
// The cache never evicts. Identifier rows are immutable once created, so a
// cached id can never go stale; the cost is unbounded growth over the
// process lifetime, which high-cardinality deployments should keep in mind.
//
// # Locking
//
// Two locks per target. The connection lock serializes connection state
// transitions and all statement execution, and is held for the duration of
// one batch. The resolver lock serializes cache access plus the
// select-or-insert round trip and nests inside the connection lock.
//
// # Failure model
//
// Connection and timestamp failures abort the whole batch. A resolution
// failure skips only that data source. A data-insert execution failure
// aborts the remaining sources and surfaces to the caller. There are no
// automatic retries; the next Write reconnects synchronously if needed.
package sink
