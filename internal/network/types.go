// Package network resolves physical network interfaces from sysfs,
// ethtool, iproute2, lspci, gopsutil and ghw.
package network

// Observation is one detector's view of one network interface.
type Observation struct {
	Name       *string `json:"name,omitempty" yaml:"name,omitempty"`
	PCIAddress *string `json:"pci_address,omitempty" yaml:"pci_address,omitempty"`
	MAC        *string `json:"mac,omitempty" yaml:"mac,omitempty"`

	Model    *string `json:"model,omitempty" yaml:"model,omitempty"`
	Vendor   *string `json:"vendor,omitempty" yaml:"vendor,omitempty"`
	VendorID *string `json:"vendor_id,omitempty" yaml:"vendor_id,omitempty"`
	DeviceID *string `json:"device_id,omitempty" yaml:"device_id,omitempty"`

	Driver        *string `json:"driver,omitempty" yaml:"driver,omitempty"`
	DriverVersion *string `json:"driver_version,omitempty" yaml:"driver_version,omitempty"`
	Firmware      *string `json:"firmware,omitempty" yaml:"firmware,omitempty"`

	MTU          *int    `json:"mtu,omitempty" yaml:"mtu,omitempty" unit:"bytes"`
	SpeedMbps    *int    `json:"speed_mbps,omitempty" yaml:"speed_mbps,omitempty" unit:"Mbps"`
	Duplex       *string `json:"duplex,omitempty" yaml:"duplex,omitempty"`
	OperState    *string `json:"oper_state,omitempty" yaml:"oper_state,omitempty"`
	LinkDetected *bool   `json:"link_detected,omitempty" yaml:"link_detected,omitempty"`

	// Virtual is set by sources that can tell a software interface from
	// one backed by a device.
	Virtual *bool `json:"-" yaml:"-"`

	NUMANode  *int     `json:"numa_node,omitempty" yaml:"numa_node,omitempty" merge:"enrich" unit:"index"`
	Addresses []string `json:"addresses,omitempty" yaml:"addresses,omitempty" merge:"enrich"`
}

// Interface is a resolved physical network interface.
type Interface struct {
	Observation `yaml:",inline"`

	Sources []string `json:"sources" yaml:"sources"`
}

// Category is the name used in diagnostics and disabled_detectors.
const Category = "network"
