package memory

import (
	"strings"

	"github.com/sigreer/hwsnap/internal/classify"
	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/dmi"
	"github.com/sigreer/hwsnap/internal/source"
	"github.com/sigreer/hwsnap/internal/units"
)

// dmiSize parses the Size property. dmidecode prints binary units with
// decimal names ("32 GB", "16384 MB"). Empty slots read "No Module
// Installed" and are reported as unpopulated.
func dmiSize(v string) (size *int64, populated bool) {
	switch {
	case v == "", strings.EqualFold(v, "Unknown"):
		return nil, true
	case strings.HasPrefix(v, "No Module Installed"), strings.EqualFold(v, "Not Installed"), v == "0":
		return nil, false
	}
	b, err := units.ParseBinarySize(v)
	if err != nil {
		return nil, true
	}
	if b == 0 {
		return nil, false
	}
	return &b, true
}

// dmiSpeed parses "2933 MT/s", "2400 MHz" or "Unknown".
func dmiSpeed(v string) *int {
	mts, err := units.ParseMHz(v)
	if err != nil || mts <= 0 {
		return nil
	}
	return &mts
}

// dmiWidth parses "72 bits".
func dmiWidth(v string) *int {
	n := detect.Int(strings.TrimSuffix(strings.TrimSpace(v), " bits"))
	if n == nil || *n <= 0 {
		return nil
	}
	return n
}

// parseDmidecodeMemory parses `dmidecode -t 17`. Every Memory Device
// yields an observation so empty slots can be recognized by locator.
func parseDmidecodeMemory(out source.Output) ([]Observation, error) {
	sections, err := dmi.Parse(out.String())
	if err != nil {
		return nil, err
	}

	var obs []Observation
	for _, s := range dmi.OfType(sections, dmi.TypeMemory) {
		size, populated := dmiSize(s.Get("Size"))
		o := Observation{
			Locator:      detect.Ident(s.Get("Locator")),
			BankLocator:  detect.Ident(s.Get("Bank Locator")),
			Serial:       detect.Ident(s.Get("Serial Number")),
			Manufacturer: detect.Ident(s.Get("Manufacturer")),
			PartNumber:   detect.Ident(s.Get("Part Number")),
			SizeBytes:    size,
			TypeDetail:   detect.Ident(s.Get("Type Detail")),
			FormFactor:   detect.Ident(s.Get("Form Factor")),
			SpeedMTs:     dmiSpeed(s.Get("Speed")),
			TotalWidth:   dmiWidth(s.Get("Total Width")),
			DataWidth:    dmiWidth(s.Get("Data Width")),
			Populated:    detect.Ptr(populated),
		}
		if t := detect.Ident(s.Get("Type")); t != nil && !strings.EqualFold(*t, "Other") {
			o.Type = detect.Str(classify.MemoryType(*t))
		}
		if r := detect.Int(s.Get("Rank")); r != nil && *r > 0 {
			o.Rank = r
		}
		// Renamed from "Configured Clock Speed" in dmidecode 3.2.
		if v := s.Get("Configured Memory Speed"); v != "" {
			o.ConfiguredSpeedMTs = dmiSpeed(v)
		} else {
			o.ConfiguredSpeedMTs = dmiSpeed(s.Get("Configured Clock Speed"))
		}
		obs = append(obs, o)
	}
	return obs, nil
}

func dmidecodeDetector() detect.Detector[Observation] {
	return detect.Command[Observation]{
		Method:  "dmidecode",
		Rank:    0,
		Program: "dmidecode",
		Args:    []string{"-t", "17"},
		Parse:   parseDmidecodeMemory,
	}
}
