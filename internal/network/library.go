package network

import (
	"context"
	"slices"
	"strings"

	"github.com/jaypipes/ghw"
	ghwnet "github.com/jaypipes/ghw/pkg/net"
	gonet "github.com/shirou/gopsutil/v4/net"

	"github.com/sigreer/hwsnap/internal/classify"
	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/fallback"
	"github.com/sigreer/hwsnap/internal/units"
)

func fromGopsutil(ifaces []gonet.InterfaceStat) []Observation {
	obs := make([]Observation, 0, len(ifaces))
	for _, i := range ifaces {
		o := Observation{
			Name: detect.Str(i.Name),
			MAC:  normalizeMAC(i.HardwareAddr),
		}
		if i.MTU > 0 {
			o.MTU = detect.Ptr(i.MTU)
		}
		if slices.Contains(i.Flags, "loopback") {
			o.Virtual = detect.Ptr(true)
		}
		for _, a := range i.Addrs {
			if a.Addr != "" {
				o.Addresses = append(o.Addresses, a.Addr)
			}
		}
		obs = append(obs, o)
	}
	return obs
}

func gopsutilDetector() detect.Detector[Observation] {
	return detect.Func[Observation]{
		Method: "gopsutil",
		Rank:   5,
		Desc:   "gopsutil net.Interfaces",
		Fn: func(ctx context.Context, env detect.Env) ([]Observation, error) {
			ifaces, err := gonet.InterfacesWithContext(fallback.GopsutilContext(ctx, env.Root))
			if err != nil {
				return nil, err
			}
			return fromGopsutil(ifaces), nil
		},
	}
}

func fromGhwNICs(nics []*ghwnet.NIC) []Observation {
	var obs []Observation
	for _, n := range nics {
		if n == nil {
			continue
		}
		o := Observation{
			Name:    detect.Str(n.Name),
			MAC:     normalizeMAC(n.MacAddress),
			Virtual: detect.Ptr(n.IsVirtual),
		}
		if n.PCIAddress != nil {
			if addr := classify.CanonicalPCIAddress(*n.PCIAddress); pciAddressRe.MatchString(addr) {
				o.PCIAddress = &addr
			}
		}
		if mbps, err := units.ParseLinkSpeed(n.Speed); err == nil && mbps > 0 {
			o.SpeedMbps = &mbps
		}
		if d := strings.ToLower(n.Duplex); d == "full" || d == "half" {
			o.Duplex = &d
		}
		obs = append(obs, o)
	}
	return obs
}

func ghwDetector() detect.Detector[Observation] {
	return detect.Func[Observation]{
		Method: "ghw",
		Rank:   6,
		Desc:   "ghw.Network",
		Fn: func(ctx context.Context, env detect.Env) ([]Observation, error) {
			info, err := ghw.Network(fallback.GhwOptions(env.Root)...)
			if err != nil {
				return nil, err
			}
			return fromGhwNICs(info.NICs), nil
		},
	}
}
