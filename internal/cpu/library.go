package cpu

import (
	"context"
	"strings"

	gocpu "github.com/shirou/gopsutil/v4/cpu"

	"github.com/sigreer/hwsnap/internal/classify"
	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/fallback"
)

func unameDetector() detect.Detector[Observation] {
	return detect.Func[Observation]{
		Method: "uname",
		Rank:   1,
		Desc:   "uname(2)",
		Fn: func(ctx context.Context, env detect.Env) ([]Observation, error) {
			u, err := fallback.Uname(env.Root)
			if err != nil {
				return nil, err
			}
			return []Observation{{Architecture: detect.Str(u.Machine)}}, nil
		},
	}
}

// fromGopsutil converts gopsutil's per-thread InfoStat list plus its
// logical and physical counts. Zero counts mean gopsutil could not tell.
func fromGopsutil(infos []gocpu.InfoStat, logical, physical int) []Observation {
	if len(infos) == 0 && logical == 0 {
		return nil
	}
	var o Observation
	if logical > 0 {
		o.LogicalCPUs = &logical
	}
	if physical > 0 {
		o.PhysicalCores = &physical
	}
	if len(infos) == 0 {
		return []Observation{o}
	}

	first := infos[0]
	o.VendorID = detect.Ident(first.VendorID)
	if o.VendorID != nil {
		o.Vendor = detect.Str(classify.CPUVendor(*o.VendorID))
	}
	o.Model = detect.Ident(first.ModelName)
	o.Family = detect.Int(first.Family)
	o.ModelID = parseInt(first.Model)
	if first.Stepping > 0 {
		o.Stepping = detect.Ptr(int(first.Stepping))
	}
	o.Microcode = detect.Str(first.Microcode)
	if first.Mhz > 0 {
		o.MaxMHz = detect.Ptr(int(first.Mhz + 0.5))
	}
	if len(first.Flags) > 0 {
		o.Flags = append([]string(nil), first.Flags...)
	}

	packages := make(map[string]struct{})
	for _, info := range infos {
		if id := strings.TrimSpace(info.PhysicalID); id != "" {
			packages[id] = struct{}{}
		}
	}
	if len(packages) > 0 {
		o.Sockets = detect.Ptr(len(packages))
	}
	return []Observation{o}
}

func gopsutilDetector() detect.Detector[Observation] {
	return detect.Func[Observation]{
		Method: "gopsutil",
		Rank:   5,
		Desc:   "gopsutil cpu.Info",
		Fn: func(ctx context.Context, env detect.Env) ([]Observation, error) {
			ctx = fallback.GopsutilContext(ctx, env.Root)
			infos, err := gocpu.InfoWithContext(ctx)
			if err != nil {
				return nil, err
			}
			logical, _ := gocpu.CountsWithContext(ctx, true)
			physical, _ := gocpu.CountsWithContext(ctx, false)
			return fromGopsutil(infos, logical, physical), nil
		},
	}
}
