package gpu

import (
	"context"

	"github.com/sigreer/hwsnap/internal/classify"
	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/logging"
	"github.com/sigreer/hwsnap/internal/units"
)

// Chain returns the GPU detectors in priority order.
func Chain() detect.Chain[Observation] {
	return detect.NewChain(Category,
		nvidiaSMIDetector(),
		rocmSMIDetector(),
		sysfsDetector(),
		nvidiaProcDetector(),
		lspciDetector(),
		ghwDetector(),
	)
}

// Identity matches on the canonical PCI address or the GPU UUID.
func Identity(o Observation) []string {
	addr := ""
	if o.PCIAddress != nil {
		addr = classify.CanonicalPCIAddress(*o.PCIAddress)
	}
	return []string{
		detect.Key("pci", addr),
		detect.Key("uuid", detect.Deref(o.UUID)),
	}
}

// Resolve detects GPUs.
func Resolve(ctx context.Context, env detect.Env) detect.Result[GPU] {
	ctx = logging.WithCategory(ctx, Category)
	entities, errs, conflicts := detect.Resolve(ctx, env, Chain(), Identity)

	res := detect.Result[GPU]{Errors: errs, Conflicts: conflicts}
	for _, e := range entities {
		res.Records = append(res.Records, finish(e))
	}
	logging.FromContext(ctx).Debug().
		Int("gpus", len(res.Records)).
		Int("errors", len(res.Errors)).
		Msg("gpu resolved")
	return res
}

// finish names the vendor from the PCI vendor ID, falling back to a tool's
// vendor string, and derives GiB from the VRAM byte count.
func finish(e detect.Entity[Observation]) GPU {
	g := GPU{Observation: e.Record, Sources: e.Sources}
	vendor := classify.Unknown
	if g.VendorID != nil {
		vendor = classify.PCIVendor(*g.VendorID)
	}
	if vendor == classify.Unknown && g.Vendor != nil {
		vendor = classify.VendorFromName(*g.Vendor)
	}
	g.Vendor = &vendor
	if g.VRAMBytes != nil {
		g.VRAMGiB = detect.Ptr(units.GiB(*g.VRAMBytes))
	}
	return g
}
