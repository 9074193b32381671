package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/report"
)

// SaveReport stores r as the latest snapshot of its host, replacing any
// earlier one. first_seen survives the replacement.
func (d *DB) SaveReport(r *report.Report) error {
	if r.Hostname == "" {
		return errors.New("cannot store a report without a hostname")
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	rec := summarize(r)
	now := time.Now().UTC()

	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO hosts (
			hostname, report_id, tool_version, collected_at,
			manufacturer, product, serial, system_uuid, os_name, kernel,
			logical_cpus, memory_bytes, storage_bytes, disks, gpus, nics, diagnostics,
			report_json, first_seen, last_seen
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hostname) DO UPDATE SET
			report_id = excluded.report_id,
			tool_version = excluded.tool_version,
			collected_at = excluded.collected_at,
			manufacturer = excluded.manufacturer,
			product = excluded.product,
			serial = excluded.serial,
			system_uuid = excluded.system_uuid,
			os_name = excluded.os_name,
			kernel = excluded.kernel,
			logical_cpus = excluded.logical_cpus,
			memory_bytes = excluded.memory_bytes,
			storage_bytes = excluded.storage_bytes,
			disks = excluded.disks,
			gpus = excluded.gpus,
			nics = excluded.nics,
			diagnostics = excluded.diagnostics,
			report_json = excluded.report_json,
			last_seen = excluded.last_seen
	`,
		rec.Hostname, rec.ReportID, nullString(rec.ToolVersion), rec.CollectedAt,
		nullString(rec.Manufacturer), nullString(rec.Product), nullString(rec.Serial),
		nullString(rec.SystemUUID), nullString(rec.OSName), nullString(rec.Kernel),
		rec.LogicalCPUs, rec.MemoryBytes, rec.StorageBytes, rec.Disks, rec.GPUs, rec.NICs, rec.Diagnostics,
		string(data), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert host: %w", err)
	}

	var hostID int64
	if err := tx.QueryRow("SELECT id FROM hosts WHERE hostname = ?", rec.Hostname).Scan(&hostID); err != nil {
		return fmt.Errorf("failed to look up host id: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM devices WHERE host_id = ?", hostID); err != nil {
		return fmt.Errorf("failed to clear devices: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO devices (host_id, category, identity, model, serial, size_bytes)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, dev := range devicesOf(r) {
		if _, err := stmt.Exec(hostID, dev.Category, dev.Identity,
			nullString(dev.Model), nullString(dev.Serial), nullInt64(dev.SizeBytes)); err != nil {
			return fmt.Errorf("failed to insert device %s/%s: %w", dev.Category, dev.Identity, err)
		}
	}

	return tx.Commit()
}

// summarize extracts the indexed host columns from a report.
func summarize(r *report.Report) HostRecord {
	rec := HostRecord{
		Hostname:     r.Hostname,
		ReportID:     r.ID,
		ToolVersion:  r.Version,
		CollectedAt:  r.CollectedAt,
		LogicalCPUs:  r.Totals.LogicalCPUs,
		MemoryBytes:  r.Totals.MemoryBytes,
		StorageBytes: r.Totals.StorageBytes,
		Disks:        r.Totals.Disks,
		GPUs:         r.Totals.GPUs,
		NICs:         r.Totals.NICs,
		Diagnostics:  len(r.Diagnostics),
	}
	if s := r.System; s != nil {
		rec.Manufacturer = detect.Deref(s.Manufacturer)
		rec.Product = detect.Deref(s.ProductName)
		rec.Serial = detect.Deref(s.Serial)
		rec.SystemUUID = detect.Deref(s.UUID)
		rec.OSName = detect.Deref(s.OSName)
		rec.Kernel = detect.Deref(s.KernelRelease)
	}
	return rec
}

const hostColumns = `
	id, hostname, report_id, tool_version, collected_at,
	manufacturer, product, serial, system_uuid, os_name, kernel,
	logical_cpus, memory_bytes, storage_bytes, disks, gpus, nics, diagnostics,
	first_seen, last_seen
`

// GetHost returns the stored snapshot of hostname, decoded report
// included.
func (d *DB) GetHost(hostname string) (*HostRecord, error) {
	row := d.conn.QueryRow(`SELECT `+hostColumns+`, report_json FROM hosts WHERE hostname = ?`, hostname)

	var data string
	rec, err := scanHost(row, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("host %q: %w", hostname, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var r report.Report
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("failed to decode stored report for %s: %w", hostname, err)
	}
	rec.Report = &r
	return rec, nil
}

// ListHosts returns every stored host without its report
func (d *DB) ListHosts() ([]*HostRecord, error) {
	rows, err := d.conn.Query(`SELECT ` + hostColumns + ` FROM hosts ORDER BY hostname`)
	if err != nil {
		return nil, fmt.Errorf("failed to query hosts: %w", err)
	}
	defer rows.Close()

	var hosts []*HostRecord
	for rows.Next() {
		rec, err := scanHost(rows)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, rec)
	}

	return hosts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanHost(row scanner, extra ...any) (*HostRecord, error) {
	var rec HostRecord
	var toolVersion, manufacturer, product, serial, systemUUID, osName, kernel sql.NullString

	dest := []any{
		&rec.ID, &rec.Hostname, &rec.ReportID, &toolVersion, &rec.CollectedAt,
		&manufacturer, &product, &serial, &systemUUID, &osName, &kernel,
		&rec.LogicalCPUs, &rec.MemoryBytes, &rec.StorageBytes, &rec.Disks, &rec.GPUs, &rec.NICs, &rec.Diagnostics,
		&rec.FirstSeen, &rec.LastSeen,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan host row: %w", err)
	}

	rec.ToolVersion = toolVersion.String
	rec.Manufacturer = manufacturer.String
	rec.Product = product.String
	rec.Serial = serial.String
	rec.SystemUUID = systemUUID.String
	rec.OSName = osName.String
	rec.Kernel = kernel.String

	return &rec, nil
}
