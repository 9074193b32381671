package memory

import (
	"context"

	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/logging"
	"github.com/sigreer/hwsnap/internal/units"
)

// Chain returns the memory detectors in priority order.
func Chain() detect.Chain[Observation] {
	return detect.NewChain(Category,
		dmidecodeDetector(),
		edacDetector(),
		ghwDetector(),
	)
}

// Identity keys a slot. SMBIOS repeats locators across channels and
// sockets ("DIMM 0" under BANK 0 and again under BANK 2), so the primary
// key is bank locator plus locator. EDAC and ghw reach the same key
// through a ghes_edac label and fall back to the locator alone. Serial is
// only used when there is no locator, so two DIMMs swapped between slots
// never fold into one entity.
func Identity(o Observation) []string {
	loc := detect.Deref(o.Locator)
	var slot string
	switch {
	case o.Label != nil:
		slot = *o.Label
	case o.BankLocator != nil && loc != "":
		slot = *o.BankLocator + " " + loc
	}
	keys := []string{detect.Key("slot", slot), detect.Key("locator", loc)}
	if loc == "" {
		keys = append(keys, detect.Key("serial", detect.Deref(o.Serial)))
	}
	return keys
}

// Resolve detects installed memory modules. Empty slots are dropped.
func Resolve(ctx context.Context, env detect.Env) detect.Result[Module] {
	ctx = logging.WithCategory(ctx, Category)
	entities, errs, conflicts := detect.Resolve(ctx, env, Chain(), Identity)

	res := detect.Result[Module]{Errors: errs, Conflicts: conflicts}
	for _, e := range entities {
		if !installed(e.Record) {
			continue
		}
		res.Records = append(res.Records, finish(e))
	}

	logging.FromContext(ctx).Debug().
		Int("modules", len(res.Records)).
		Int("errors", len(res.Errors)).
		Msg("memory resolved")
	return res
}

// installed drops slots marked empty and records that carry nothing but a
// locator.
func installed(o Observation) bool {
	if o.Populated != nil && !*o.Populated {
		return false
	}
	return o.SizeBytes != nil || o.Serial != nil || o.PartNumber != nil
}

// TotalBytes sums the sizes of the modules that report one.
func TotalBytes(modules []Module) int64 {
	var total int64
	for _, m := range modules {
		total += detect.Deref(m.SizeBytes)
	}
	return total
}

func finish(e detect.Entity[Observation]) Module {
	m := Module{Observation: e.Record, Sources: e.Sources}
	if m.ECC == nil && m.TotalWidth != nil && m.DataWidth != nil {
		m.ECC = detect.Ptr(*m.TotalWidth > *m.DataWidth)
	}
	if m.SizeBytes != nil {
		m.SizeGiB = detect.Ptr(units.GiB(*m.SizeBytes))
	}
	return m
}
