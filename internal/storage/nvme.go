package storage

import (
	"encoding/json"
	"strings"

	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/source"
)

type nvmeList struct {
	Devices []nvmeDevice `json:"Devices"`
}

type nvmeDevice struct {
	DevicePath   string `json:"DevicePath"`
	Firmware     string `json:"Firmware"`
	ModelNumber  string `json:"ModelNumber"`
	SerialNumber string `json:"SerialNumber"`
	PhysicalSize *int64 `json:"PhysicalSize"`
	SectorSize   *int   `json:"SectorSize"`
}

// parseNvmeList parses `nvme list -o json`. Devices are namespaces
// (/dev/nvme0n1), matching the kernel block device names.
func parseNvmeList(out source.Output) ([]Observation, error) {
	var list nvmeList
	if err := json.Unmarshal(out.Data, &list); err != nil {
		return nil, &detect.ParseError{Format: "nvme list json", Err: err}
	}

	var obs []Observation
	for _, d := range list.Devices {
		name := strings.TrimPrefix(d.DevicePath, "/dev/")
		if name == "" {
			continue
		}
		o := Observation{
			Name:       detect.Str(name),
			Model:      detect.Ident(d.ModelNumber),
			Serial:     detect.Ident(d.SerialNumber),
			Firmware:   detect.Ident(d.Firmware),
			Transport:  detect.Str("nvme"),
			Rotational: detect.Ptr(false),
		}
		if d.PhysicalSize != nil && *d.PhysicalSize > 0 {
			o.SizeBytes = detect.Ptr(*d.PhysicalSize)
		}
		if d.SectorSize != nil && *d.SectorSize > 0 {
			o.LogicalBlockSize = detect.Ptr(*d.SectorSize)
		}
		obs = append(obs, o)
	}
	return obs, nil
}

func nvmeDetector() detect.Detector[Observation] {
	return detect.Command[Observation]{
		Method:  "nvme",
		Rank:    3,
		Program: "nvme",
		Args:    []string{"list", "-o", "json"},
		Parse:   parseNvmeList,
	}
}
