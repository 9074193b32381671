package gpu

import (
	"context"
	"path"

	"github.com/sigreer/hwsnap/internal/classify"
	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/pci"
	"github.com/sigreer/hwsnap/internal/source"
)

// fromPCI converts display-class functions. amdgpu exposes the VRAM size
// in bytes as mem_info_vram_total.
func fromPCI(fsys source.FS, devices []pci.Device) []Observation {
	obs := make([]Observation, 0, len(devices))
	for _, d := range devices {
		o := Observation{
			PCIAddress: detect.Str(d.Address),
			VendorID:   detect.Str(d.VendorID),
			DeviceID:   detect.Str(d.DeviceID),
			Driver:     detect.Str(d.Driver),
			NUMANode:   d.NUMANode,
			LinkWidth:  pci.LinkWidth(fsys, d.Address),
			LinkSpeed:  pci.LinkSpeed(fsys, d.Address),
		}
		if v, err := source.ReadTrimmed(fsys, path.Join(pci.DevicesDir, d.Address, "mem_info_vram_total")); err == nil {
			if b := detect.Int64(v); b != nil && *b > 0 {
				o.VRAMBytes = b
			}
		}
		obs = append(obs, o)
	}
	return obs
}

func sysfsDetector() detect.Detector[Observation] {
	return detect.Func[Observation]{
		Method: "sysfs",
		Rank:   2,
		Desc:   pci.DevicesDir + "/* class 0x03",
		Fn: func(ctx context.Context, env detect.Env) ([]Observation, error) {
			devices, err := pci.ListSysfs(env.FS, classify.PCIClassDisplay)
			if err != nil {
				return nil, err
			}
			return fromPCI(env.FS, devices), nil
		},
	}
}

// parseLspciDisplay keeps the display-class records of `lspci -Dvmmnn`.
func parseLspciDisplay(out source.Output) ([]Observation, error) {
	devices, err := pci.ParseLspci(out.String())
	if err != nil {
		return nil, err
	}
	var obs []Observation
	for _, d := range devices {
		if !d.IsClass(classify.PCIClassDisplay) {
			continue
		}
		obs = append(obs, Observation{
			PCIAddress: detect.Str(d.Address),
			Name:       detect.Ident(d.Device),
			Vendor:     detect.Ident(d.Vendor),
			VendorID:   detect.Str(d.VendorID),
			DeviceID:   detect.Str(d.DeviceID),
			Driver:     detect.Str(d.Driver),
			NUMANode:   d.NUMANode,
		})
	}
	return obs, nil
}

func lspciDetector() detect.Detector[Observation] {
	return detect.Command[Observation]{
		Method:  "lspci",
		Rank:    4,
		Program: "lspci",
		Args:    []string{"-Dvmmnnk"},
		Parse:   parseLspciDisplay,
	}
}
