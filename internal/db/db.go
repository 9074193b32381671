package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sigreer/hwsnap/internal/report"
)

// DefaultPath is the default database location
const DefaultPath = "/var/lib/hwsnap/inventory.db"

// ErrNotFound is returned when a host has no stored snapshot
var ErrNotFound = errors.New("not found in inventory")

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
	path string
}

// New opens or creates the SQLite database at the given path
func New(path string) (*DB, error) {
	if path == "" {
		path = DefaultPath
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// PRAGMA foreign_keys is per connection, so keep a single one
	conn.SetMaxOpenConns(1)

	// Enable foreign keys and WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	db := &DB{conn: conn, path: path}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.conn.Close()
}

// Path returns the database file path
func (d *DB) Path() string {
	return d.path
}

// SchemaVersion returns the highest applied migration.
func (d *DB) SchemaVersion() (int, error) {
	var version int
	err := d.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	return version, err
}

var migrations = []string{
	migrationV1,
	migrationV2,
}

// migrate runs the database schema migrations
func (d *DB) migrate() error {
	// Create schema version table
	_, err := d.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	version, err := d.SchemaVersion()
	if err != nil {
		return err
	}

	for i, migration := range migrations {
		v := i + 1
		if v <= version {
			continue
		}

		tx, err := d.conn.Begin()
		if err != nil {
			return err
		}

		if _, err := tx.Exec(migration); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration v%d failed: %w", v, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", v); err != nil {
			tx.Rollback()
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}

// migrationV1 creates the hosts table: the latest snapshot per host
const migrationV1 = `
CREATE TABLE IF NOT EXISTS hosts (
    id INTEGER PRIMARY KEY,
    hostname TEXT UNIQUE NOT NULL,
    report_id TEXT NOT NULL,
    tool_version TEXT,
    collected_at TIMESTAMP NOT NULL,

    -- Identity summary
    manufacturer TEXT,
    product TEXT,
    serial TEXT,
    system_uuid TEXT,
    os_name TEXT,
    kernel TEXT,

    -- Totals
    logical_cpus INTEGER DEFAULT 0,
    memory_bytes INTEGER DEFAULT 0,
    storage_bytes INTEGER DEFAULT 0,
    disks INTEGER DEFAULT 0,
    gpus INTEGER DEFAULT 0,
    nics INTEGER DEFAULT 0,
    diagnostics INTEGER DEFAULT 0,

    report_json TEXT NOT NULL,

    first_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_hosts_serial ON hosts(serial);
`

// migrationV2 adds the per-device table used for fleet-wide serial lookup
const migrationV2 = `
CREATE TABLE IF NOT EXISTS devices (
    id INTEGER PRIMARY KEY,
    host_id INTEGER NOT NULL REFERENCES hosts(id) ON DELETE CASCADE,
    category TEXT NOT NULL,
    identity TEXT NOT NULL,
    model TEXT,
    serial TEXT COLLATE NOCASE,
    size_bytes INTEGER
);

CREATE INDEX IF NOT EXISTS idx_devices_host ON devices(host_id);
CREATE INDEX IF NOT EXISTS idx_devices_serial ON devices(serial);
`

// HostRecord is the stored summary of a host's latest snapshot
type HostRecord struct {
	ID           int64     `json:"-" yaml:"-"`
	Hostname     string    `json:"hostname" yaml:"hostname"`
	ReportID     string    `json:"report_id" yaml:"report_id"`
	ToolVersion  string    `json:"tool_version,omitempty" yaml:"tool_version,omitempty"`
	CollectedAt  time.Time `json:"collected_at" yaml:"collected_at"`
	Manufacturer string    `json:"manufacturer,omitempty" yaml:"manufacturer,omitempty"`
	Product      string    `json:"product,omitempty" yaml:"product,omitempty"`
	Serial       string    `json:"serial,omitempty" yaml:"serial,omitempty"`
	SystemUUID   string    `json:"system_uuid,omitempty" yaml:"system_uuid,omitempty"`
	OSName       string    `json:"os_name,omitempty" yaml:"os_name,omitempty"`
	Kernel       string    `json:"kernel,omitempty" yaml:"kernel,omitempty"`
	LogicalCPUs  int       `json:"logical_cpus" yaml:"logical_cpus"`
	MemoryBytes  int64     `json:"memory_bytes" yaml:"memory_bytes"`
	StorageBytes int64     `json:"storage_bytes" yaml:"storage_bytes"`
	Disks        int       `json:"disks" yaml:"disks"`
	GPUs         int       `json:"gpus" yaml:"gpus"`
	NICs         int       `json:"nics" yaml:"nics"`
	Diagnostics  int       `json:"diagnostics" yaml:"diagnostics"`
	FirstSeen    time.Time `json:"first_seen" yaml:"first_seen"`
	LastSeen     time.Time `json:"last_seen" yaml:"last_seen"`

	// Report is only loaded by GetHost
	Report *report.Report `json:"report,omitempty" yaml:"report,omitempty"`
}

// DeviceRecord is one device row of a stored snapshot
type DeviceRecord struct {
	Hostname  string `json:"hostname" yaml:"hostname"`
	Category  string `json:"category" yaml:"category"`
	Identity  string `json:"identity" yaml:"identity"`
	Model     string `json:"model,omitempty" yaml:"model,omitempty"`
	Serial    string `json:"serial,omitempty" yaml:"serial,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty" yaml:"size_bytes,omitempty"`
}

// Helper functions for nullable values
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt64(i int64) sql.NullInt64 {
	if i == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: i, Valid: true}
}
