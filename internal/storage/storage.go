package storage

import (
	"context"

	"github.com/sigreer/hwsnap/internal/classify"
	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/logging"
	"github.com/sigreer/hwsnap/internal/units"
)

// Chain returns the storage detectors in priority order.
func Chain() detect.Chain[Observation] {
	return detect.NewChain(Category,
		sysfsDetector(),
		udevDetector(),
		lsblkDetector(),
		nvmeDetector(),
		smartDetector(),
		lsscsiDetector(),
		sas3ircuDetector(),
		ghwDetector(),
	)
}

// Identity matches observations on kernel name, serial, WWN or SAS
// address. Any shared key puts two observations on the same disk.
func Identity(o Observation) []string {
	return []string{
		detect.Key("name", detect.Deref(o.Name)),
		detect.Key("serial", detect.Deref(o.Serial)),
		detect.Key("wwn", detect.Deref(o.WWN)),
		detect.Key("sas", detect.Deref(o.SASAddress)),
	}
}

// Resolve detects physical disks. Software block devices (loop, dm,
// zram, md and friends) never appear in the result.
func Resolve(ctx context.Context, env detect.Env) detect.Result[Disk] {
	ctx = logging.WithCategory(ctx, Category)
	entities, errs, conflicts := detect.Resolve(ctx, env, Chain(), Identity)

	res := detect.Result[Disk]{Errors: errs, Conflicts: conflicts}
	for _, e := range entities {
		name := detect.Deref(e.Record.Name)
		if name != "" && classify.IsVirtualBlock(name) {
			continue
		}
		res.Records = append(res.Records, finish(e))
	}

	logging.FromContext(ctx).Debug().
		Int("disks", len(res.Records)).
		Int("errors", len(res.Errors)).
		Int("conflicts", len(res.Conflicts)).
		Msg("storage resolved")
	return res
}

// finish derives the fields no detector reports directly.
func finish(e detect.Entity[Observation]) Disk {
	d := Disk{
		Observation: e.Record,
		Sources:     e.Sources,
	}
	name := detect.Deref(d.Name)
	if name != "" {
		d.Path = "/dev/" + name
	}
	d.Kind = classify.StorageKind(name, d.Rotational)
	if d.SizeBytes != nil {
		d.SizeGB = detect.Ptr(units.GB(*d.SizeBytes))
		d.SizeTB = detect.Ptr(units.TB(*d.SizeBytes))
	}
	return d
}
