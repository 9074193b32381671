package system

import (
	"context"
	"errors"

	"github.com/jaypipes/ghw"
	ghwbaseboard "github.com/jaypipes/ghw/pkg/baseboard"
	ghwbios "github.com/jaypipes/ghw/pkg/bios"
	ghwproduct "github.com/jaypipes/ghw/pkg/product"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/fallback"
)

// fromGopsutil skips gopsutil's platform name: it renames some
// distributions ("rhel" becomes "redhat") and would disagree with
// os-release.
func fromGopsutil(info *host.InfoStat, vm *mem.VirtualMemoryStat) Observation {
	var o Observation
	if info != nil {
		o.Hostname = detect.Str(info.Hostname)
		o.KernelRelease = detect.Str(info.KernelVersion)
		o.Architecture = detect.Str(info.KernelArch)
		if info.VirtualizationRole == "guest" {
			o.Hypervisor = detect.Str(info.VirtualizationSystem)
		}
	}
	if vm != nil && vm.Total > 0 {
		o.MemTotalBytes = detect.Ptr(int64(vm.Total))
	}
	return o
}

func gopsutilDetector() detect.Detector[Observation] {
	return detect.Func[Observation]{
		Method: "gopsutil",
		Rank:   7,
		Desc:   "gopsutil host.Info, mem.VirtualMemory",
		Fn: func(ctx context.Context, env detect.Env) ([]Observation, error) {
			ctx = fallback.GopsutilContext(ctx, env.Root)
			info, hostErr := host.InfoWithContext(ctx)
			vm, memErr := mem.VirtualMemoryWithContext(ctx)
			if hostErr != nil && memErr != nil {
				return nil, errors.Join(hostErr, memErr)
			}
			return []Observation{fromGopsutil(info, vm)}, nil
		},
	}
}

func fromGhw(p *ghwproduct.Info, b *ghwbios.Info, bb *ghwbaseboard.Info) Observation {
	var o Observation
	if p != nil {
		o.Manufacturer = detect.Ident(p.Vendor)
		o.ProductName = detect.Ident(p.Name)
		o.ProductVersion = detect.Ident(p.Version)
		o.Serial = detect.Ident(p.SerialNumber)
		o.UUID = normalizeUUID(p.UUID)
		o.SKU = detect.Ident(p.SKU)
		o.Family = detect.Ident(p.Family)
	}
	if b != nil {
		o.BIOSVendor = detect.Ident(b.Vendor)
		o.BIOSVersion = detect.Ident(b.Version)
		o.BIOSDate = detect.Ident(b.Date)
	}
	if bb != nil {
		o.BoardVendor = detect.Ident(bb.Vendor)
		o.BoardName = detect.Ident(bb.Product)
		o.BoardVersion = detect.Ident(bb.Version)
		o.BoardSerial = detect.Ident(bb.SerialNumber)
	}
	return o
}

func ghwDetector() detect.Detector[Observation] {
	return detect.Func[Observation]{
		Method: "ghw",
		Rank:   8,
		Desc:   "ghw.Product, ghw.BIOS, ghw.Baseboard",
		Fn: func(ctx context.Context, env detect.Env) ([]Observation, error) {
			opts := fallback.GhwOptions(env.Root)
			product, err := ghw.Product(opts...)
			if err != nil {
				return nil, err
			}
			bios, err := ghw.BIOS(opts...)
			if err != nil {
				return nil, err
			}
			board, err := ghw.Baseboard(opts...)
			if err != nil {
				return nil, err
			}
			return []Observation{fromGhw(product, bios, board)}, nil
		},
	}
}
