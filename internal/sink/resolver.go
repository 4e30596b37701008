package sink

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mkettle/metricsink/internal/metric"
)

// ResolveIdentifier maps an identity to its store-generated id, connecting
// first if necessary. Exposed for callers that need ids outside a batch
// write; the write pipeline resolves internally.
func (t *Target) ResolveIdentifier(ctx context.Context, identity metric.Identity) (int64, error) {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	if err := t.connectLocked(ctx); err != nil {
		return 0, err
	}
	return t.resolve(ctx, identity)
}

// resolve performs the two-level lookup: cache, then select-or-insert.
//
// The resolver lock covers the cache lookup and the whole database round
// trip. Select-or-insert is not idempotent under concurrency: two writers
// racing an unseen identity would otherwise both miss the select and both
// insert, violating the one-row-per-identity invariant.
//
// Caller must hold connMu (statements are in use).
func (t *Target) resolve(ctx context.Context, identity metric.Identity) (int64, error) {
	if err := identity.Validate(); err != nil {
		return 0, err
	}
	key := identity.Key()

	t.idMu.Lock()
	defer t.idMu.Unlock()

	if id, ok := t.ids.lookup(key); ok {
		return id, nil
	}

	id, err := t.selectOrInsert(ctx, identity)
	if err != nil {
		return 0, err
	}

	// Best effort: a lost entry would only force the next resolution back
	// through the slow path.
	t.ids.insert(key, id)

	return id, nil
}

// selectOrInsert looks the identity up in the store and creates it only if
// absent. Caller must hold idMu and connMu.
func (t *Target) selectOrInsert(ctx context.Context, identity metric.Identity) (int64, error) {
	rows, err := t.stmtIDSelect.QueryContext(ctx,
		identity.Host, identity.Plugin, identity.PluginInstance,
		identity.Type, identity.TypeInstance, identity.SourceName)
	if err != nil {
		return 0, fmt.Errorf("selecting identifier %s: %w", identity.Key(), err)
	}
	defer rows.Close() //nolint:errcheck // read-only statement

	// Materialize the full result set first; the row count is only
	// knowable after iteration completes.
	var found []sql.NullInt64
	for rows.Next() {
		var id sql.NullInt64
		if err := rows.Scan(&id); err != nil {
			return 0, fmt.Errorf("scanning identifier %s: %w", identity.Key(), err)
		}
		found = append(found, id)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("reading identifier %s: %w", identity.Key(), err)
	}

	switch {
	case len(found) == 0:
		return t.insertIdentifier(ctx, identity)
	case len(found) > 1:
		return 0, fmt.Errorf("%w: select for %s returned %d rows",
			ErrIdentifierCardinality, identity.Key(), len(found))
	}

	if !found[0].Valid {
		return 0, fmt.Errorf("%w: %s", ErrNullIdentifierID, identity.Key())
	}
	return found[0].Int64, nil
}

// insertIdentifier creates the identifier row and reads back its id.
func (t *Target) insertIdentifier(ctx context.Context, identity metric.Identity) (int64, error) {
	res, err := t.stmtIDInsert.ExecContext(ctx,
		identity.Host, identity.Plugin, identity.PluginInstance,
		identity.Type, identity.TypeInstance, identity.SourceName,
		identity.SourceKind.String())
	if err != nil {
		return 0, fmt.Errorf("inserting identifier %s: %w", identity.Key(), err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("inserting identifier %s: affected rows: %w", identity.Key(), err)
	}
	if affected != 1 {
		return 0, fmt.Errorf("%w: insert for %s affected %d rows, expected 1",
			ErrIdentifierCardinality, identity.Key(), affected)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("inserting identifier %s: last insert id: %w", identity.Key(), err)
	}

	t.logger.Debug("identifier created",
		"target", t.cfg.Name,
		"identity", identity.Key(),
		"id", id,
	)
	return id, nil
}
