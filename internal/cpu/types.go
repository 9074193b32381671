// Package cpu resolves the host processor from sysfs topology, uname,
// /proc/cpuinfo, lscpu, dmidecode and gopsutil.
package cpu

// Observation is one detector's view of the host CPUs. All sockets are
// assumed to carry the same part.
type Observation struct {
	Vendor            *string `json:"vendor,omitempty" yaml:"vendor,omitempty"`       // normalized: Intel, AMD, ARM, Ampere...
	VendorID          *string `json:"vendor_id,omitempty" yaml:"vendor_id,omitempty"` // GenuineIntel, AuthenticAMD, 0x41
	Model             *string `json:"model,omitempty" yaml:"model,omitempty"`
	Architecture      *string `json:"architecture,omitempty" yaml:"architecture,omitempty"`
	Microarchitecture *string `json:"microarchitecture,omitempty" yaml:"microarchitecture,omitempty"`

	// x86 identification, decimal as /proc/cpuinfo prints it
	Family    *int    `json:"family,omitempty" yaml:"family,omitempty"`
	ModelID   *int    `json:"model_id,omitempty" yaml:"model_id,omitempty"`
	Stepping  *int    `json:"stepping,omitempty" yaml:"stepping,omitempty"`
	Microcode *string `json:"microcode,omitempty" yaml:"microcode,omitempty"`

	// ARM identification, hex as /proc/cpuinfo prints it
	Implementer *string `json:"implementer,omitempty" yaml:"implementer,omitempty"`
	Part        *string `json:"part,omitempty" yaml:"part,omitempty"`

	// Topology
	Sockets        *int `json:"sockets,omitempty" yaml:"sockets,omitempty" unit:"count"`
	CoresPerSocket *int `json:"cores_per_socket,omitempty" yaml:"cores_per_socket,omitempty" unit:"count"`
	ThreadsPerCore *int `json:"threads_per_core,omitempty" yaml:"threads_per_core,omitempty" unit:"count"`
	PhysicalCores  *int `json:"physical_cores,omitempty" yaml:"physical_cores,omitempty" unit:"count"`
	LogicalCPUs    *int `json:"logical_cpus,omitempty" yaml:"logical_cpus,omitempty" unit:"count"`
	NUMANodes      *int `json:"numa_nodes,omitempty" yaml:"numa_nodes,omitempty" unit:"count"`

	// Frequencies
	BaseMHz *int `json:"base_mhz,omitempty" yaml:"base_mhz,omitempty" unit:"MHz"`
	MinMHz  *int `json:"min_mhz,omitempty" yaml:"min_mhz,omitempty" unit:"MHz"`
	MaxMHz  *int `json:"max_mhz,omitempty" yaml:"max_mhz,omitempty" unit:"MHz"`

	// Per-instance cache sizes
	L1dKB *int `json:"l1d_kb,omitempty" yaml:"l1d_kb,omitempty" unit:"KiB"`
	L1iKB *int `json:"l1i_kb,omitempty" yaml:"l1i_kb,omitempty" unit:"KiB"`
	L2KB  *int `json:"l2_kb,omitempty" yaml:"l2_kb,omitempty" unit:"KiB"`
	L3KB  *int `json:"l3_kb,omitempty" yaml:"l3_kb,omitempty" unit:"KiB"`

	Flags []string `json:"flags,omitempty" yaml:"flags,omitempty" merge:"enrich"`
}

// CPU is the resolved host processor.
type CPU struct {
	Observation `yaml:",inline"`

	// TotalCores and TotalThreads aggregate the topology across sockets.
	TotalCores   *int     `json:"total_cores,omitempty" yaml:"total_cores,omitempty"`
	TotalThreads *int     `json:"total_threads,omitempty" yaml:"total_threads,omitempty"`
	Sources      []string `json:"sources" yaml:"sources"`
}

// Category is the name used in diagnostics and disabled_detectors.
const Category = "cpu"
