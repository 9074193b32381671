// Package memory resolves installed DIMMs from the SMBIOS memory device
// table, the EDAC sysfs tree and ghw.
package memory

// Observation is one detector's view of one memory slot.
type Observation struct {
	Locator     *string `json:"locator,omitempty" yaml:"locator,omitempty"` // DIMM_A1, ChannelA-DIMM0
	BankLocator *string `json:"bank_locator,omitempty" yaml:"bank_locator,omitempty"`
	// Label is the EDAC dimm_label. ghes_edac writes "<bank locator> <locator>".
	Label *string `json:"-" yaml:"-"`
	Serial      *string `json:"serial,omitempty" yaml:"serial,omitempty"`

	Manufacturer *string `json:"manufacturer,omitempty" yaml:"manufacturer,omitempty"`
	PartNumber   *string `json:"part_number,omitempty" yaml:"part_number,omitempty"`
	SizeBytes    *int64  `json:"size_bytes,omitempty" yaml:"size_bytes,omitempty" unit:"bytes"`
	Type         *string `json:"type,omitempty" yaml:"type,omitempty"` // DDR4, DDR5, LPDDR4
	TypeDetail   *string `json:"type_detail,omitempty" yaml:"type_detail,omitempty"`
	FormFactor   *string `json:"form_factor,omitempty" yaml:"form_factor,omitempty"`
	Rank         *int    `json:"rank,omitempty" yaml:"rank,omitempty" unit:"count"`

	SpeedMTs           *int `json:"speed_mts,omitempty" yaml:"speed_mts,omitempty" unit:"MT/s"`
	ConfiguredSpeedMTs *int `json:"configured_speed_mts,omitempty" yaml:"configured_speed_mts,omitempty" unit:"MT/s"`

	TotalWidth *int  `json:"total_width,omitempty" yaml:"total_width,omitempty" unit:"bits"`
	DataWidth  *int  `json:"data_width,omitempty" yaml:"data_width,omitempty" unit:"bits"`
	ECC        *bool `json:"ecc,omitempty" yaml:"ecc,omitempty"`

	// Populated is false for slots SMBIOS lists with no module installed.
	Populated *bool `json:"-" yaml:"-"`

	// EDAC controller placement, e.g. "mc0 channel 0 slot 1"
	EDACLocation *string `json:"edac_location,omitempty" yaml:"edac_location,omitempty" merge:"enrich"`
}

// Module is a resolved, installed memory module.
type Module struct {
	Observation `yaml:",inline"`

	SizeGiB *float64 `json:"size_gib,omitempty" yaml:"size_gib,omitempty"`
	Sources []string `json:"sources" yaml:"sources"`
}

// Category is the name used in diagnostics and disabled_detectors.
const Category = "memory"
