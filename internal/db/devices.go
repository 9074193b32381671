package db

import (
	"fmt"
	"strings"

	"github.com/sigreer/hwsnap/internal/cpu"
	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/gpu"
	"github.com/sigreer/hwsnap/internal/memory"
	"github.com/sigreer/hwsnap/internal/network"
	"github.com/sigreer/hwsnap/internal/report"
	"github.com/sigreer/hwsnap/internal/storage"
	"github.com/sigreer/hwsnap/internal/system"
)

// devicesOf flattens a report into device rows. Identity is the most
// stable human-facing handle of each record: slot locator, kernel name or
// PCI address.
func devicesOf(r *report.Report) []DeviceRecord {
	var out []DeviceRecord
	add := func(category string, identity, model, serial *string, size *int64) {
		id := detect.Deref(identity)
		if id == "" {
			id = detect.Deref(serial)
		}
		if id == "" {
			return
		}
		out = append(out, DeviceRecord{
			Hostname:  r.Hostname,
			Category:  category,
			Identity:  id,
			Model:     detect.Deref(model),
			Serial:    detect.Deref(serial),
			SizeBytes: detect.Deref(size),
		})
	}

	if s := r.System; s != nil {
		add(system.Category, detect.Str(system.Category), s.ProductName, s.Serial, nil)
		if s.BoardSerial != nil {
			add(system.Category, detect.Str("baseboard"), s.BoardName, s.BoardSerial, nil)
		}
	}
	for i, c := range r.CPU {
		add(cpu.Category, detect.Str(fmt.Sprintf("cpu%d", i)), c.Model, nil, nil)
	}
	for _, m := range r.Memory {
		add(memory.Category, m.Locator, m.PartNumber, m.Serial, m.SizeBytes)
	}
	for _, d := range r.Storage {
		add(storage.Category, d.Name, d.Model, d.Serial, d.SizeBytes)
	}
	for _, g := range r.GPU {
		id := g.PCIAddress
		if id == nil {
			id = g.UUID
		}
		add(gpu.Category, id, g.Name, g.Serial, g.VRAMBytes)
	}
	for _, n := range r.Network {
		id := n.Name
		if id == nil {
			id = n.PCIAddress
		}
		add(network.Category, id, n.Model, nil, nil)
	}
	return out
}

// FindDevicesBySerial returns every stored device whose serial matches,
// ignoring case, across all hosts.
func (d *DB) FindDevicesBySerial(serial string) ([]DeviceRecord, error) {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return nil, nil
	}
	return d.queryDevices(`WHERE d.serial = ? ORDER BY h.hostname, d.category, d.identity`, serial)
}

// ListDevices returns the stored devices of one host
func (d *DB) ListDevices(hostname string) ([]DeviceRecord, error) {
	return d.queryDevices(`WHERE h.hostname = ? ORDER BY d.category, d.identity`, hostname)
}

func (d *DB) queryDevices(where string, args ...any) ([]DeviceRecord, error) {
	rows, err := d.conn.Query(`
		SELECT h.hostname, d.category, d.identity,
			COALESCE(d.model, ''), COALESCE(d.serial, ''), COALESCE(d.size_bytes, 0)
		FROM devices d JOIN hosts h ON h.id = d.host_id
		`+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	var devices []DeviceRecord
	for rows.Next() {
		var dev DeviceRecord
		if err := rows.Scan(&dev.Hostname, &dev.Category, &dev.Identity, &dev.Model, &dev.Serial, &dev.SizeBytes); err != nil {
			return nil, fmt.Errorf("failed to scan device row: %w", err)
		}
		devices = append(devices, dev)
	}

	return devices, rows.Err()
}
