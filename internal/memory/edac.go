package memory

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/sigreer/hwsnap/internal/classify"
	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/source"
)

const edacBase = "/sys/devices/system/edac/mc"

// edacDimm is the raw attribute set of one mcN/dimmN directory.
type edacDimm struct {
	Controller string
	Label      string // dimm_label
	SizeMiB    string // size
	MemType    string // dimm_mem_type, e.g. "Registered-DDR4"
	Location   string // dimm_location, e.g. "channel 0 slot 1"
	EDACMode   string // dimm_edac_mode, e.g. "SECDED"
}

// edacLocator extracts the SMBIOS locator from a dimm_label. ghes_edac
// labels are "<bank locator> <locator>"; other drivers use their own
// naming, which then stays distinct from the SMBIOS locator.
func edacLocator(label string) *string {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return nil
	}
	return detect.Ident(fields[len(fields)-1])
}

func parseEdacDimm(d edacDimm) Observation {
	o := Observation{Locator: edacLocator(d.Label), Label: detect.Ident(d.Label)}
	if mib := detect.Int64(d.SizeMiB); mib != nil {
		if *mib > 0 {
			o.SizeBytes = detect.Ptr(*mib << 20)
			o.Populated = detect.Ptr(true)
		} else {
			o.Populated = detect.Ptr(false)
		}
	}
	if t := detect.Ident(d.MemType); t != nil {
		o.Type = detect.Str(classify.MemoryType(*t))
		switch {
		case strings.HasPrefix(*t, "Registered-"):
			o.TypeDetail = detect.Str("Registered (Buffered)")
		case strings.HasPrefix(*t, "Unbuffered-"):
			o.TypeDetail = detect.Str("Unbuffered (Unregistered)")
		}
	}
	switch mode := strings.ToUpper(strings.TrimSpace(d.EDACMode)); mode {
	case "", "UNKNOWN":
	case "NONE", "EC":
		o.ECC = detect.Ptr(false)
	default:
		o.ECC = detect.Ptr(true)
	}
	if loc := strings.TrimSpace(d.Location); loc != "" {
		o.EDACLocation = detect.Str(d.Controller + " " + loc)
	}
	return o
}

func readEdac(fsys source.FS) ([]edacDimm, error) {
	controllers, err := fsys.ReadDir(edacBase)
	if err != nil {
		return nil, err
	}
	var dimms []edacDimm
	for _, mc := range controllers {
		if !strings.HasPrefix(mc, "mc") {
			continue
		}
		entries, err := fsys.ReadDir(path.Join(edacBase, mc))
		if err != nil {
			continue
		}
		for _, e := range entries {
			// Kernels before 3.6 expose rankN instead of dimmN.
			if !strings.HasPrefix(e, "dimm") && !strings.HasPrefix(e, "rank") {
				continue
			}
			dir := path.Join(edacBase, mc, e)
			d := edacDimm{Controller: mc}
			d.Label, _ = source.ReadTrimmed(fsys, path.Join(dir, "dimm_label"))
			d.SizeMiB, _ = source.ReadTrimmed(fsys, path.Join(dir, "size"))
			d.MemType, _ = source.ReadTrimmed(fsys, path.Join(dir, "dimm_mem_type"))
			d.Location, _ = source.ReadTrimmed(fsys, path.Join(dir, "dimm_location"))
			d.EDACMode, _ = source.ReadTrimmed(fsys, path.Join(dir, "dimm_edac_mode"))
			dimms = append(dimms, d)
		}
	}
	return dimms, nil
}

func edacDetector() detect.Detector[Observation] {
	return detect.Func[Observation]{
		Method: "edac",
		Rank:   1,
		Desc:   edacBase + "/mc*/dimm*",
		Fn: func(ctx context.Context, env detect.Env) ([]Observation, error) {
			dimms, err := readEdac(env.FS)
			if err != nil {
				return nil, err
			}
			if len(dimms) == 0 {
				return nil, fmt.Errorf("no EDAC dimm entries: %w", source.ErrNotFound)
			}
			obs := make([]Observation, 0, len(dimms))
			for _, d := range dimms {
				obs = append(obs, parseEdacDimm(d))
			}
			return obs, nil
		},
	}
}
