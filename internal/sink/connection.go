package sink

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Statements prepared on every connection, in fixed order. All three exist
// or none do; a connection is never left live with partial setup.
const (
	dataInsertSQL = "INSERT INTO data " +
		"(identifier_id, timestamp, value) VALUES (?, ?, ?)"

	identifierSelectSQL = "SELECT id FROM identifier " +
		"WHERE host = ? AND plugin = ? AND plugin_instance = ? " +
		"AND type = ? AND type_instance = ? AND data_source_name = ?"

	identifierInsertSQL = "INSERT INTO identifier " +
		"(host, plugin, plugin_instance, type, type_instance, " +
		"data_source_name, data_source_type) " +
		"VALUES (?, ?, ?, ?, ?, ?, ?)"
)

// connectTimeout bounds the connectivity check during Connect.
const connectTimeout = 10 * time.Second

// Connect establishes the store connection and prepares the statements.
// It is idempotent: calling Connect on a connected target is a no-op.
func (t *Target) Connect(ctx context.Context) error {
	t.connMu.Lock()
	defer t.connMu.Unlock()
	return t.connectLocked(ctx)
}

// Disconnect closes the prepared statements and the connection.
// Safe to call multiple times and on a never-connected target.
func (t *Target) Disconnect() {
	t.connMu.Lock()
	defer t.connMu.Unlock()
	t.disconnectLocked()
}

// connectLocked performs the Disconnected → Connected transition. Any
// failure at any step tears the connection back down before returning, so
// callers never observe a target with fewer than three usable statements.
//
// The pool is capped at a single connection: the driver transparently
// re-establishes it after a network loss, which stands in for the client
// library's reconnect option, while batch serialization keeps statement
// execution on one session.
//
// Caller must hold connMu.
func (t *Target) connectLocked(ctx context.Context) error {
	if t.db != nil {
		return nil
	}

	db, err := sql.Open(t.cfg.Driver, t.cfg.DSN)
	if err != nil {
		return fmt.Errorf("%w: opening %s store: %w", ErrConnectionFailed, t.cfg.Driver, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close() //nolint:errcheck // best effort cleanup on error path
		return fmt.Errorf("%w: verifying %s store: %w", ErrConnectionFailed, t.cfg.Name, err)
	}

	t.db = db

	// Prepare the data INSERT statement.
	if t.stmtData, err = db.PrepareContext(ctx, dataInsertSQL); err != nil {
		t.disconnectLocked()
		return fmt.Errorf("%w: preparing data insert: %w", ErrConnectionFailed, err)
	}

	// Prepare the identifier SELECT statement.
	if t.stmtIDSelect, err = db.PrepareContext(ctx, identifierSelectSQL); err != nil {
		t.disconnectLocked()
		return fmt.Errorf("%w: preparing identifier select: %w", ErrConnectionFailed, err)
	}

	// Prepare the identifier INSERT statement.
	if t.stmtIDInsert, err = db.PrepareContext(ctx, identifierInsertSQL); err != nil {
		t.disconnectLocked()
		return fmt.Errorf("%w: preparing identifier insert: %w", ErrConnectionFailed, err)
	}

	t.logger.Debug("store connected", "target", t.cfg.Name)
	return nil
}

// disconnectLocked closes whatever was set up, statements first.
// Caller must hold connMu.
func (t *Target) disconnectLocked() {
	if t.stmtData != nil {
		t.stmtData.Close() //nolint:errcheck // closing on teardown
		t.stmtData = nil
	}
	if t.stmtIDSelect != nil {
		t.stmtIDSelect.Close() //nolint:errcheck // closing on teardown
		t.stmtIDSelect = nil
	}
	if t.stmtIDInsert != nil {
		t.stmtIDInsert.Close() //nolint:errcheck // closing on teardown
		t.stmtIDInsert = nil
	}
	if t.db != nil {
		t.db.Close() //nolint:errcheck // closing on teardown
		t.db = nil
	}
}
