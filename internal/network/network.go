package network

import (
	"context"

	"github.com/sigreer/hwsnap/internal/classify"
	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/logging"
)

// Chain returns the network detectors in priority order.
func Chain() detect.Chain[Observation] {
	return detect.NewChain(Category,
		sysfsDetector(),
		ethtoolDriverDetector(),
		ethtoolLinkDetector(),
		ipDetector(),
		lspciDetector(),
		gopsutilDetector(),
		ghwDetector(),
	)
}

// Identity matches on interface name or PCI function. MACs are not keys:
// bonds and VLANs share them.
func Identity(o Observation) []string {
	addr := ""
	if o.PCIAddress != nil {
		addr = classify.CanonicalPCIAddress(*o.PCIAddress)
	}
	return []string{
		detect.Key("name", detect.Deref(o.Name)),
		detect.Key("pci", addr),
	}
}

// Resolve detects physical network interfaces. Loopback, bridges, veth,
// tunnels, bonds, VLANs and anything a source flagged virtual are
// dropped.
func Resolve(ctx context.Context, env detect.Env) detect.Result[Interface] {
	ctx = logging.WithCategory(ctx, Category)
	entities, errs, conflicts := detect.Resolve(ctx, env, Chain(), Identity)

	res := detect.Result[Interface]{Errors: errs, Conflicts: conflicts}
	for _, e := range entities {
		if isVirtual(e.Record) {
			continue
		}
		res.Records = append(res.Records, finish(e))
	}
	logging.FromContext(ctx).Debug().
		Int("interfaces", len(res.Records)).
		Int("errors", len(res.Errors)).
		Msg("network resolved")
	return res
}

func isVirtual(o Observation) bool {
	if o.Virtual != nil && *o.Virtual {
		return true
	}
	return o.Name != nil && classify.IsVirtualInterface(*o.Name)
}

func finish(e detect.Entity[Observation]) Interface {
	i := Interface{Observation: e.Record, Sources: e.Sources}
	switch {
	case i.VendorID != nil:
		i.Vendor = detect.Str(classify.PCIVendor(*i.VendorID))
	case i.Vendor != nil:
		i.Vendor = detect.Str(classify.VendorFromName(*i.Vendor))
	}
	return i
}
