// Package storage resolves physical block devices from sysfs, the udev
// database, lsblk, nvme-cli, smartctl, lsscsi, sas3ircu and ghw.
package storage

// Observation is one detector's view of one block device. Nil means the
// detector could not determine the field.
type Observation struct {
	// Identification
	Name       *string `json:"name,omitempty" yaml:"name,omitempty"` // sda, nvme0n1
	Serial     *string `json:"serial,omitempty" yaml:"serial,omitempty"`
	WWN        *string `json:"wwn,omitempty" yaml:"wwn,omitempty"`
	SASAddress *string `json:"sas_address,omitempty" yaml:"sas_address,omitempty"`

	// Hardware
	Model             *string `json:"model,omitempty" yaml:"model,omitempty"`
	Vendor            *string `json:"vendor,omitempty" yaml:"vendor,omitempty"`
	Firmware          *string `json:"firmware,omitempty" yaml:"firmware,omitempty"`
	SizeBytes         *int64  `json:"size_bytes,omitempty" yaml:"size_bytes,omitempty" unit:"bytes"`
	Rotational        *bool   `json:"rotational,omitempty" yaml:"rotational,omitempty"`
	RotationRPM       *int    `json:"rotation_rpm,omitempty" yaml:"rotation_rpm,omitempty" unit:"rpm"`
	Removable         *bool   `json:"removable,omitempty" yaml:"removable,omitempty"`
	LogicalBlockSize  *int    `json:"logical_block_size,omitempty" yaml:"logical_block_size,omitempty" unit:"bytes"`
	PhysicalBlockSize *int    `json:"physical_block_size,omitempty" yaml:"physical_block_size,omitempty" unit:"bytes"`
	FormFactor        *string `json:"form_factor,omitempty" yaml:"form_factor,omitempty"`
	Transport         *string `json:"transport,omitempty" yaml:"transport,omitempty"` // sata, sas, nvme, usb

	// Location
	HCTL      *string `json:"hctl,omitempty" yaml:"hctl,omitempty"`
	Enclosure *string `json:"enclosure,omitempty" yaml:"enclosure,omitempty"`
	Slot      *int    `json:"slot,omitempty" yaml:"slot,omitempty" unit:"index"`

	// State
	Health *string `json:"health,omitempty" yaml:"health,omitempty"`

	// Enrichment
	NUMANode *int     `json:"numa_node,omitempty" yaml:"numa_node,omitempty" merge:"enrich" unit:"index"`
	ByID     []string `json:"by_id,omitempty" yaml:"by_id,omitempty" merge:"enrich"`
}

// Disk is a resolved physical block device.
type Disk struct {
	Observation `yaml:",inline"`

	Path    string   `json:"path,omitempty" yaml:"path,omitempty"`
	Kind    string   `json:"kind" yaml:"kind"` // NVMe, eMMC, HDD, SSD, Unknown
	SizeGB  *float64 `json:"size_gb,omitempty" yaml:"size_gb,omitempty"`
	SizeTB  *float64 `json:"size_tb,omitempty" yaml:"size_tb,omitempty"`
	Sources []string `json:"sources" yaml:"sources"`
}

// Category is the name used in diagnostics and disabled_detectors.
const Category = "storage"
