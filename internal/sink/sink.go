package sink

import (
	"database/sql"
	"fmt"
	"sync"
)

// Logger defines the logging interface used by a Target.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config describes one write target.
type Config struct {
	// Name identifies the target in logs. Defaults to the DSN-free
	// driver name if empty.
	Name string

	// Driver is the database/sql driver name (e.g. DriverMySQL).
	Driver string

	// DSN is the driver-specific data source name. For MySQL targets use
	// MySQLConfig.DSN().
	DSN string
}

// Target writes metric sample batches to one relational store.
//
// A Target connects lazily: construction never touches the network, and the
// first Write (or an explicit Connect) establishes the connection and
// prepares the statements. After a connection loss the next Write
// reconnects synchronously; there is no background retry.
//
// All methods are safe for concurrent use from multiple goroutines. Batches
// are serialized per target; throughput scales by configuring multiple
// independent targets, not by intra-target parallelism.
type Target struct {
	cfg    Config
	logger Logger

	// connMu guards the connection state and all statement execution.
	connMu       sync.Mutex
	db           *sql.DB
	stmtData     *sql.Stmt
	stmtIDSelect *sql.Stmt
	stmtIDInsert *sql.Stmt

	// idMu guards the identifier cache and, for misses, the whole
	// select-or-insert round trip. Nests inside connMu.
	idMu sync.Mutex
	ids  *identifierCache
}

// New creates a Target for the given store. No connection is attempted.
func New(cfg Config) (*Target, error) {
	if cfg.Driver == "" {
		return nil, fmt.Errorf("sink: driver is required")
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("sink: dsn is required")
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Driver
	}

	return &Target{
		cfg:    cfg,
		logger: noopLogger{},
		ids:    newIdentifierCache(),
	}, nil
}

// Name returns the target's configured name.
func (t *Target) Name() string {
	return t.cfg.Name
}

// SetLogger sets the logger for the target.
func (t *Target) SetLogger(logger Logger) {
	t.logger = logger
}

// Stats is a point-in-time snapshot of a target's state.
type Stats struct {
	Connected         bool
	CachedIdentifiers int
}

// Stats reports connection state and identifier cache size.
func (t *Target) Stats() Stats {
	t.connMu.Lock()
	connected := t.db != nil
	t.connMu.Unlock()

	t.idMu.Lock()
	cached := t.ids.size()
	t.idMu.Unlock()

	return Stats{
		Connected:         connected,
		CachedIdentifiers: cached,
	}
}
