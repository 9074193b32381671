// Package gpu resolves graphics and compute accelerators from vendor
// tools, the PCI sysfs tree, the NVIDIA proc interface, lspci and ghw.
package gpu

// Observation is one detector's view of one GPU.
type Observation struct {
	PCIAddress *string `json:"pci_address,omitempty" yaml:"pci_address,omitempty"` // 0000:3b:00.0
	UUID       *string `json:"uuid,omitempty" yaml:"uuid,omitempty"`
	Serial     *string `json:"serial,omitempty" yaml:"serial,omitempty"`

	Name     *string `json:"name,omitempty" yaml:"name,omitempty"`
	Vendor   *string `json:"vendor,omitempty" yaml:"vendor,omitempty"`
	VendorID *string `json:"vendor_id,omitempty" yaml:"vendor_id,omitempty"`
	DeviceID *string `json:"device_id,omitempty" yaml:"device_id,omitempty"`

	Driver        *string `json:"driver,omitempty" yaml:"driver,omitempty"`
	DriverVersion *string `json:"driver_version,omitempty" yaml:"driver_version,omitempty"`
	VBIOS         *string `json:"vbios,omitempty" yaml:"vbios,omitempty"`

	VRAMBytes *int64  `json:"vram_bytes,omitempty" yaml:"vram_bytes,omitempty" unit:"bytes"`
	LinkWidth *int    `json:"link_width,omitempty" yaml:"link_width,omitempty" unit:"lanes"`
	LinkSpeed *string `json:"link_speed,omitempty" yaml:"link_speed,omitempty"`

	NUMANode *int `json:"numa_node,omitempty" yaml:"numa_node,omitempty" merge:"enrich" unit:"index"`
}

// GPU is a resolved graphics or compute device.
type GPU struct {
	Observation `yaml:",inline"`

	VRAMGiB *float64 `json:"vram_gib,omitempty" yaml:"vram_gib,omitempty"`
	Sources []string `json:"sources" yaml:"sources"`
}

// Category is the name used in diagnostics and disabled_detectors.
const Category = "gpu"
