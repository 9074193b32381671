// Package system resolves host and platform identity: SMBIOS system,
// board and BIOS strings, the operating system, installed memory and the
// BMC.
package system

// Observation is one detector's view of the host.
type Observation struct {
	Hostname      *string `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	OSName        *string `json:"os_name,omitempty" yaml:"os_name,omitempty"` // PRETTY_NAME
	OSID          *string `json:"os_id,omitempty" yaml:"os_id,omitempty"`
	OSVersion     *string `json:"os_version,omitempty" yaml:"os_version,omitempty"`
	KernelRelease *string `json:"kernel_release,omitempty" yaml:"kernel_release,omitempty"`
	Architecture  *string `json:"architecture,omitempty" yaml:"architecture,omitempty"`
	Hypervisor    *string `json:"hypervisor,omitempty" yaml:"hypervisor,omitempty"`

	Manufacturer   *string `json:"manufacturer,omitempty" yaml:"manufacturer,omitempty"`
	ProductName    *string `json:"product_name,omitempty" yaml:"product_name,omitempty"`
	ProductVersion *string `json:"product_version,omitempty" yaml:"product_version,omitempty"`
	Serial         *string `json:"serial,omitempty" yaml:"serial,omitempty"`
	UUID           *string `json:"uuid,omitempty" yaml:"uuid,omitempty"`
	SKU            *string `json:"sku,omitempty" yaml:"sku,omitempty"`
	Family         *string `json:"family,omitempty" yaml:"family,omitempty"`

	BoardVendor  *string `json:"board_vendor,omitempty" yaml:"board_vendor,omitempty"`
	BoardName    *string `json:"board_name,omitempty" yaml:"board_name,omitempty"`
	BoardVersion *string `json:"board_version,omitempty" yaml:"board_version,omitempty"`
	BoardSerial  *string `json:"board_serial,omitempty" yaml:"board_serial,omitempty"`

	ChassisVendor   *string `json:"chassis_vendor,omitempty" yaml:"chassis_vendor,omitempty"`
	ChassisSerial   *string `json:"chassis_serial,omitempty" yaml:"chassis_serial,omitempty"`
	ChassisAssetTag *string `json:"chassis_asset_tag,omitempty" yaml:"chassis_asset_tag,omitempty"`

	BIOSVendor  *string `json:"bios_vendor,omitempty" yaml:"bios_vendor,omitempty"`
	BIOSVersion *string `json:"bios_version,omitempty" yaml:"bios_version,omitempty"`
	BIOSDate    *string `json:"bios_date,omitempty" yaml:"bios_date,omitempty"`

	// MemTotalBytes is the memory visible to the kernel, which is less
	// than the installed DIMM total.
	MemTotalBytes *int64 `json:"mem_total_bytes,omitempty" yaml:"mem_total_bytes,omitempty" unit:"bytes"`

	BMCAddress      *string `json:"bmc_address,omitempty" yaml:"bmc_address,omitempty"`
	BMCMAC          *string `json:"bmc_mac,omitempty" yaml:"bmc_mac,omitempty"`
	BMCAddressSource *string `json:"bmc_address_source,omitempty" yaml:"bmc_address_source,omitempty"`
	BMCFirmware     *string `json:"bmc_firmware,omitempty" yaml:"bmc_firmware,omitempty"`
	BMCManufacturer *string `json:"bmc_manufacturer,omitempty" yaml:"bmc_manufacturer,omitempty"`
	IPMIVersion     *string `json:"ipmi_version,omitempty" yaml:"ipmi_version,omitempty"`
}

// System is the resolved host identity.
type System struct {
	Observation `yaml:",inline"`

	MemTotalGiB *float64 `json:"mem_total_gib,omitempty" yaml:"mem_total_gib,omitempty"`
	Sources     []string `json:"sources" yaml:"sources"`
}

// Category is the name used in diagnostics and disabled_detectors.
const Category = "system"
