package sink

import (
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mkettle/metricsink/internal/metric"
)

// testSchema provisions the store the way an operator would; schema
// management is outside the sink's responsibility.
const testSchema = `
	CREATE TABLE identifier (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		host TEXT NOT NULL,
		plugin TEXT NOT NULL,
		plugin_instance TEXT NOT NULL,
		type TEXT NOT NULL,
		type_instance TEXT NOT NULL,
		data_source_name TEXT NOT NULL,
		data_source_type TEXT NOT NULL,
		UNIQUE (host, plugin, plugin_instance, type, type_instance, data_source_name)
	);

	CREATE TABLE data (
		identifier_id INTEGER NOT NULL REFERENCES identifier(id),
		timestamp TEXT NOT NULL,
		value REAL
	);
`

// testStore creates a temporary SQLite database with the sink schema and
// returns its DSN plus a separate connection for assertions.
func testStore(t *testing.T) (string, *sql.DB) {
	t.Helper()

	f, err := os.CreateTemp("", "sink-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	dsn := "file:" + dbPath + "?_busy_timeout=5000"

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	return dsn, db
}

// testTarget creates a Target backed by the test store at dsn.
func testTarget(t *testing.T, dsn string) *Target {
	t.Helper()

	target, err := New(Config{
		Name:   "test",
		Driver: "sqlite3",
		DSN:    dsn,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(target.Disconnect)

	return target
}

// cpuIdentity returns the canonical test identity.
func cpuIdentity() metric.Identity {
	return metric.Identity{
		Host:           "host1",
		Plugin:         "cpu",
		PluginInstance: "0",
		Type:           "cpu",
		TypeInstance:   "idle",
		SourceName:     "value",
		SourceKind:     metric.Gauge,
	}
}

// cpuBatch returns a single-source gauge batch matching cpuIdentity.
func cpuBatch(ts time.Time) metric.Batch {
	return metric.Batch{
		Host:           "host1",
		Plugin:         "cpu",
		PluginInstance: "0",
		Type:           "cpu",
		TypeInstance:   "idle",
		Time:           ts,
		Sources: []metric.Source{
			{Name: "value", Kind: metric.Gauge, Raw: 98.5},
		},
	}
}

// countRows returns the number of rows in the named table.
func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("counting %s rows: %v", table, err)
	}
	return n
}
